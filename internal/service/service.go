package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"starose/backend/internal/cache"
	"starose/backend/internal/domain"
	"starose/backend/internal/metrics"
	"starose/backend/internal/store"
)

// ErrForbidden marks operations the actor's role does not permit.
var ErrForbidden = errors.New("admin role required")

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo        store.Repository
	reportCache cache.ReportCache
	reportTTL   time.Duration
	reportGroup singleflight.Group
}

func New(repo store.Repository, reportCache cache.ReportCache, reportTTL time.Duration) *Service {
	if reportCache == nil {
		reportCache = cache.NoopReportCache{}
	}
	if reportTTL <= 0 {
		reportTTL = 30 * time.Second
	}

	return &Service{
		repo:        repo,
		reportCache: reportCache,
		reportTTL:   reportTTL,
	}
}

// CreateSale is the single entry point for selling stock. Input is validated
// before any store access; the store then runs the atomic read-check-
// decrement-append transaction. Conflicts are returned to the caller, never
// retried here.
func (s *Service) CreateSale(ctx context.Context, req domain.SaleRequest) (domain.Sale, error) {
	req.Attendant = strings.TrimSpace(req.Attendant)
	req.Notes = strings.TrimSpace(req.Notes)

	if strings.TrimSpace(req.ItemID) == "" {
		metrics.SalesFailed.WithLabelValues(metrics.ReasonValidation).Inc()
		return domain.Sale{}, fmt.Errorf("%w: item id is required", store.ErrInvalidInput)
	}
	if req.QuantitySold < 1 {
		metrics.SalesFailed.WithLabelValues(metrics.ReasonValidation).Inc()
		return domain.Sale{}, fmt.Errorf("%w: quantity must be a positive integer", store.ErrInvalidInput)
	}
	if req.ActualSellingPrice.IsNegative() {
		metrics.SalesFailed.WithLabelValues(metrics.ReasonValidation).Inc()
		return domain.Sale{}, fmt.Errorf("%w: selling price must not be negative", store.ErrInvalidInput)
	}
	if !domain.IsSupportedPaymentMethod(req.PaymentMethod) {
		metrics.SalesFailed.WithLabelValues(metrics.ReasonValidation).Inc()
		return domain.Sale{}, fmt.Errorf("%w: invalid payment method", store.ErrInvalidInput)
	}
	if req.Attendant == "" {
		metrics.SalesFailed.WithLabelValues(metrics.ReasonValidation).Inc()
		return domain.Sale{}, fmt.Errorf("%w: attendant name is required", store.ErrInvalidInput)
	}

	startedAt := time.Now()
	sale, err := s.repo.CreateSale(ctx, domain.SaleDraft{
		ItemID:             req.ItemID,
		QuantitySold:       req.QuantitySold,
		ActualSellingPrice: req.ActualSellingPrice,
		PaymentMethod:      req.PaymentMethod,
		Attendant:          req.Attendant,
		Notes:              req.Notes,
	})
	metrics.SaleDuration.Observe(time.Since(startedAt).Seconds())
	if err != nil {
		metrics.SalesFailed.WithLabelValues(saleFailureReason(err)).Inc()
		return domain.Sale{}, err
	}

	metrics.SalesCompleted.Inc()
	log.Printf("[service] sale %s: %d x %s by %s", sale.ID, sale.QuantitySold, sale.ItemName, sale.Attendant)
	return *sale, nil
}

func saleFailureReason(err error) string {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return metrics.ReasonNotFound
	case errors.Is(err, store.ErrInsufficientStock):
		return metrics.ReasonInsufficientStock
	case errors.Is(err, store.ErrConflict):
		return metrics.ReasonConflict
	case errors.Is(err, store.ErrInvalidInput):
		return metrics.ReasonValidation
	default:
		return metrics.ReasonUnavailable
	}
}

func (s *Service) ListSales(ctx context.Context, filter domain.SaleFilter) (domain.SaleListResponse, error) {
	if filter.PaymentMethod != "" && !domain.IsSupportedPaymentMethod(filter.PaymentMethod) {
		return domain.SaleListResponse{}, fmt.Errorf("%w: invalid payment method", store.ErrInvalidInput)
	}
	return s.repo.ListSales(ctx, filter)
}

func (s *Service) CreateItem(ctx context.Context, req domain.ItemCreateRequest) (domain.Item, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)
	if req.Name == "" {
		return domain.Item{}, fmt.Errorf("%w: name is required", store.ErrInvalidInput)
	}
	if req.Category == "" {
		return domain.Item{}, fmt.Errorf("%w: category is required", store.ErrInvalidInput)
	}
	if req.BuyingPrice.IsNegative() || req.DefaultSellingPrice.IsNegative() {
		return domain.Item{}, fmt.Errorf("%w: prices must not be negative", store.ErrInvalidInput)
	}
	if req.Quantity < 0 || req.LowStockThreshold < 0 {
		return domain.Item{}, fmt.Errorf("%w: quantity and threshold must not be negative", store.ErrInvalidInput)
	}

	created, err := s.repo.CreateItem(ctx, req)
	if err != nil {
		return domain.Item{}, err
	}
	return *created, nil
}

func (s *Service) GetItem(ctx context.Context, id string) (domain.Item, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Item{}, store.ErrInvalidInput
	}
	item, err := s.repo.GetItemByID(ctx, id)
	if err != nil {
		return domain.Item{}, err
	}
	return *item, nil
}

func (s *Service) ListItems(ctx context.Context, filter domain.ItemFilter) (domain.ItemListResponse, error) {
	return s.repo.ListItems(ctx, filter)
}

func (s *Service) UpdateItem(ctx context.Context, id string, req domain.ItemUpdateRequest) (domain.Item, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Item{}, store.ErrInvalidInput
	}
	updated, err := s.repo.UpdateItem(ctx, id, req)
	if err != nil {
		return domain.Item{}, err
	}
	return *updated, nil
}

func (s *Service) DeleteItem(ctx context.Context, id string) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return ErrForbidden
	}
	if strings.TrimSpace(id) == "" {
		return store.ErrInvalidInput
	}
	if err := s.repo.DeleteItem(ctx, id); err != nil {
		return err
	}
	log.Printf("[service] item %s removed by %s", id, actor.Email)
	return nil
}

func (s *Service) CreateExpense(ctx context.Context, req domain.ExpenseCreateRequest) (domain.Expense, error) {
	if !req.Amount.IsPositive() {
		return domain.Expense{}, fmt.Errorf("%w: amount must be a positive number", store.ErrInvalidInput)
	}
	if !domain.IsExpenseCategory(req.Category) {
		return domain.Expense{}, fmt.Errorf("%w: invalid category", store.ErrInvalidInput)
	}
	if strings.TrimSpace(req.Description) == "" {
		return domain.Expense{}, fmt.Errorf("%w: description is required", store.ErrInvalidInput)
	}

	created, err := s.repo.CreateExpense(ctx, req)
	if err != nil {
		return domain.Expense{}, err
	}
	return *created, nil
}

func (s *Service) ListExpenses(ctx context.Context, filter domain.ExpenseFilter) (domain.ExpenseListResponse, error) {
	if filter.Category != "" && !domain.IsExpenseCategory(filter.Category) {
		return domain.ExpenseListResponse{}, fmt.Errorf("%w: invalid category", store.ErrInvalidInput)
	}
	return s.repo.ListExpenses(ctx, filter)
}

// SummaryReport aggregates sales, expenses, and stock health for the range.
// Results are cached briefly and concurrent misses for the same range collapse
// into one store query.
func (s *Service) SummaryReport(ctx context.Context, from *time.Time, to *time.Time, period string) (domain.SummaryReport, error) {
	switch period {
	case "", domain.ReportPeriodDaily:
		period = domain.ReportPeriodDaily
	case domain.ReportPeriodWeekly, domain.ReportPeriodMonthly:
	default:
		return domain.SummaryReport{}, fmt.Errorf("%w: invalid period", store.ErrInvalidInput)
	}

	now := time.Now().UTC()
	fromAt := startOfDay(now)
	toAt := endOfDay(now)
	if from != nil {
		fromAt = from.UTC()
	}
	if to != nil {
		toAt = to.UTC()
	}

	key := fmt.Sprintf("reports:summary:%d:%d:%s", fromAt.Unix(), toAt.Unix(), period)
	if cached, ok, err := s.reportCache.Get(ctx, key); err == nil && ok {
		return *cached, nil
	} else if err != nil {
		log.Printf("[service] WARN: report cache read failed: %v", err)
	}

	result, err, _ := s.reportGroup.Do(key, func() (any, error) {
		report, err := s.repo.SummaryReport(ctx, fromAt, toAt, period)
		if err != nil {
			return nil, err
		}
		if err := s.reportCache.Set(ctx, key, &report, s.reportTTL); err != nil {
			log.Printf("[service] WARN: report cache write failed: %v", err)
		}
		return report, nil
	})
	if err != nil {
		return domain.SummaryReport{}, err
	}
	return result.(domain.SummaryReport), nil
}

// ExportBundle gathers everything a report file needs for one date range.
func (s *Service) ExportBundle(ctx context.Context, from time.Time, to time.Time) (domain.ExportBundle, error) {
	if to.Before(from) {
		return domain.ExportBundle{}, fmt.Errorf("%w: date range is inverted", store.ErrInvalidInput)
	}

	sales, err := s.repo.ListSalesInRange(ctx, from, to)
	if err != nil {
		return domain.ExportBundle{}, err
	}
	expenses, err := s.repo.ListExpensesInRange(ctx, from, to)
	if err != nil {
		return domain.ExportBundle{}, err
	}

	bundle := domain.ExportBundle{
		From:          from,
		To:            to,
		Sales:         sales,
		Expenses:      expenses,
		TotalSales:    decimal.Zero,
		GrossProfit:   decimal.Zero,
		TotalExpenses: decimal.Zero,
	}
	for _, sale := range sales {
		bundle.TotalSales = bundle.TotalSales.Add(sale.TotalSale)
		bundle.GrossProfit = bundle.GrossProfit.Add(sale.Profit)
	}
	for _, expense := range expenses {
		bundle.TotalExpenses = bundle.TotalExpenses.Add(expense.Amount)
	}
	bundle.NetProfit = bundle.GrossProfit.Sub(bundle.TotalExpenses)
	return bundle, nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC)
}
