package store

import (
	"context"
	"errors"
	"time"

	"starose/backend/internal/domain"
)

var (
	// ErrInvalidInput marks malformed data rejected before any persistence work.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound means the referenced record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInsufficientStock is a business rejection: the item exists but cannot
	// cover the requested quantity.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrConflict means a concurrent writer invalidated the read-then-write
	// sequence. Callers may retry; the store never retries internally.
	ErrConflict = errors.New("concurrent modification conflict")
	// ErrUnavailable wraps infrastructure failures from the underlying store.
	ErrUnavailable = errors.New("store unavailable")
)

type Repository interface {
	CreateItem(ctx context.Context, req domain.ItemCreateRequest) (*domain.Item, error)
	GetItemByID(ctx context.Context, id string) (*domain.Item, error)
	ListItems(ctx context.Context, filter domain.ItemFilter) (domain.ItemListResponse, error)
	UpdateItem(ctx context.Context, id string, req domain.ItemUpdateRequest) (*domain.Item, error)
	DeleteItem(ctx context.Context, id string) error
	ListLowStockItems(ctx context.Context, limit int) ([]domain.Item, error)

	// CreateSale is the atomic sale transaction: read the item, verify stock,
	// snapshot the economics, decrement the quantity, and append the sale
	// record, all of it committing or rolling back together.
	CreateSale(ctx context.Context, draft domain.SaleDraft) (*domain.Sale, error)
	// DecrementStock applies a conditional decrement guarded by the item's
	// version. A stale version yields ErrConflict.
	DecrementStock(ctx context.Context, itemID string, qty int, expectedVersion int64) error
	ListSales(ctx context.Context, filter domain.SaleFilter) (domain.SaleListResponse, error)

	CreateExpense(ctx context.Context, req domain.ExpenseCreateRequest) (*domain.Expense, error)
	ListExpenses(ctx context.Context, filter domain.ExpenseFilter) (domain.ExpenseListResponse, error)

	SummaryReport(ctx context.Context, from time.Time, to time.Time, period string) (domain.SummaryReport, error)
	ListSalesInRange(ctx context.Context, from time.Time, to time.Time) ([]domain.Sale, error)
	ListExpensesInRange(ctx context.Context, from time.Time, to time.Time) ([]domain.Expense, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, email string, password string) error
}
