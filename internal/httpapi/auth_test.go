package httpapi

import (
	"context"
	"strings"
	"testing"
	"time"

	"starose/backend/internal/domain"
	"starose/backend/internal/store/memory"
)

func TestLoginAndParseToken(t *testing.T) {
	auth := NewAuthManager("test-secret-key", time.Hour, memory.NewSeeded())

	resp, err := auth.Login(domain.LoginRequest{
		Email:    "admin@starose.local",
		Password: "admin123",
	})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if resp.Role != "admin" {
		t.Fatalf("role = %q, want admin", resp.Role)
	}

	actor, err := auth.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token failed: %v", err)
	}
	if actor.Email != "admin@starose.local" || actor.Role != "admin" {
		t.Fatalf("actor = %+v", actor)
	}
}

func TestLoginIsCaseInsensitiveOnEmail(t *testing.T) {
	auth := NewAuthManager("test-secret-key", time.Hour, memory.NewSeeded())

	_, err := auth.Login(domain.LoginRequest{
		Email:    "  Admin@Starose.Local ",
		Password: "admin123",
	})
	if err != nil {
		t.Fatalf("login with mixed-case email failed: %v", err)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	auth := NewAuthManager("test-secret-key", time.Hour, memory.NewSeeded())

	_, err := auth.Login(domain.LoginRequest{
		Email:    "admin@starose.local",
		Password: "nope",
	})
	if err == nil {
		t.Fatalf("expected login failure")
	}
}

func TestParseTokenRejectsForeignSecret(t *testing.T) {
	repo := memory.NewSeeded()
	auth := NewAuthManager("test-secret-key", time.Hour, repo)
	other := NewAuthManager("another-secret-entirely", time.Hour, repo)

	resp, err := other.Login(domain.LoginRequest{
		Email:    "admin@starose.local",
		Password: "admin123",
	})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if _, err := auth.ParseToken(resp.AccessToken); err == nil {
		t.Fatalf("expected token signed with a different secret to be rejected")
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	auth := NewAuthManager("test-secret-key", time.Hour, memory.NewSeeded())

	token, err := auth.sign("admin@starose.local", "admin", time.Now().UTC().Add(-time.Minute))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if _, err := auth.ParseToken(token); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestCreateAttendantValidation(t *testing.T) {
	auth := NewAuthManager("test-secret-key", time.Hour, memory.NewSeeded())

	cases := []struct {
		name string
		req  domain.AttendantCreateRequest
	}{
		{"missing email", domain.AttendantCreateRequest{Password: "longenough"}},
		{"not an email", domain.AttendantCreateRequest{Email: "no-at-sign", Password: "longenough"}},
		{"short password", domain.AttendantCreateRequest{Email: "x@starose.local", Password: "abc"}},
		{"duplicate", domain.AttendantCreateRequest{Email: "attendant@starose.local", Password: "longenough"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := auth.CreateAttendant(tc.req); err == nil {
				t.Fatalf("expected rejection")
			}
		})
	}
}

func TestCreateAttendantPersistsToStore(t *testing.T) {
	repo := memory.NewSeeded()
	auth := NewAuthManager("test-secret-key", time.Hour, repo)

	created, err := auth.CreateAttendant(domain.AttendantCreateRequest{
		Email:    "New.Hire@Starose.Local",
		Password: "longenough",
	})
	if err != nil {
		t.Fatalf("create attendant failed: %v", err)
	}
	if created.Email != "new.hire@starose.local" {
		t.Fatalf("email = %q, want lowercased", created.Email)
	}

	users, err := repo.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("list users failed: %v", err)
	}
	var stored *domain.UserAccount
	for i := range users {
		if users[i].Email == "new.hire@starose.local" {
			stored = &users[i]
		}
	}
	if stored == nil {
		t.Fatalf("attendant not persisted to the user store")
	}
	if !strings.HasPrefix(stored.Password, "$2") {
		t.Fatalf("stored password is not a bcrypt hash")
	}
	if stored.Role != "attendant" {
		t.Fatalf("role = %q, want attendant", stored.Role)
	}
}

func TestBootstrapUpgradesPlainTextPasswords(t *testing.T) {
	repo := memory.NewSeeded()
	if err := repo.CreateUser(context.Background(), domain.UserAccount{
		Email:     "legacy@starose.local",
		Password:  "plaintext-password",
		Role:      "attendant",
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("create user failed: %v", err)
	}

	auth := NewAuthManager("test-secret-key", time.Hour, repo)

	if _, err := auth.Login(domain.LoginRequest{
		Email:    "legacy@starose.local",
		Password: "plaintext-password",
	}); err != nil {
		t.Fatalf("legacy login failed: %v", err)
	}

	users, err := repo.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("list users failed: %v", err)
	}
	for _, user := range users {
		if user.Email == "legacy@starose.local" && !strings.HasPrefix(user.Password, "$2") {
			t.Fatalf("legacy password was not upgraded to bcrypt in the store")
		}
	}
}
