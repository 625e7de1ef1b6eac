package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.AllowedOrigin != "*" {
		t.Errorf("AllowedOrigin = %q, want *", cfg.AllowedOrigin)
	}
	if cfg.AccessTokenTTL != 60*time.Minute {
		t.Errorf("AccessTokenTTL = %v, want 60m", cfg.AccessTokenTTL)
	}
	if cfg.ReportCacheTTL != 30*time.Second {
		t.Errorf("ReportCacheTTL = %v, want 30s", cfg.ReportCacheTTL)
	}
	if !cfg.MetricsEnabled {
		t.Error("MetricsEnabled = false, want true by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "15")
	t.Setenv("METRICS_ENABLED", "false")

	cfg := Load()

	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want 9090", cfg.Port)
	}
	if cfg.RedisDB != 3 {
		t.Errorf("RedisDB = %d, want 3", cfg.RedisDB)
	}
	if cfg.AccessTokenTTL != 15*time.Minute {
		t.Errorf("AccessTokenTTL = %v, want 15m", cfg.AccessTokenTTL)
	}
	if cfg.MetricsEnabled {
		t.Error("MetricsEnabled = true, want false")
	}
}

func TestLoadIgnoresUnparsable(t *testing.T) {
	t.Setenv("REDIS_DB", "not-a-number")
	t.Setenv("METRICS_ENABLED", "maybe")

	cfg := Load()

	if cfg.RedisDB != 0 {
		t.Errorf("RedisDB = %d, want fallback 0", cfg.RedisDB)
	}
	if !cfg.MetricsEnabled {
		t.Error("MetricsEnabled should fall back to true on a bad value")
	}
}
