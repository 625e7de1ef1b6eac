package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"starose/backend/internal/domain"
	"starose/backend/internal/store"
)

func createItem(t *testing.T, s *Store, name string, qty int) domain.Item {
	t.Helper()
	item, err := s.CreateItem(context.Background(), domain.ItemCreateRequest{
		Name:                name,
		Category:            "Test",
		BuyingPrice:         decimal.NewFromInt(40),
		DefaultSellingPrice: decimal.NewFromInt(60),
		Quantity:            qty,
		LowStockThreshold:   1,
	})
	if err != nil {
		t.Fatalf("create item failed: %v", err)
	}
	return *item
}

func saleDraft(itemID string, qty int) domain.SaleDraft {
	return domain.SaleDraft{
		ItemID:             itemID,
		QuantitySold:       qty,
		ActualSellingPrice: decimal.NewFromInt(60),
		PaymentMethod:      domain.PaymentMethodCash,
		Attendant:          "jane",
	}
}

func TestCreateSaleFailedLedgerInsertRollsBack(t *testing.T) {
	s := NewSeeded()
	item := createItem(t, s, "Rollback Test", 5)

	s.saleInsertHook = func() error { return errors.New("disk full") }
	_, err := s.CreateSale(context.Background(), saleDraft(item.ID, 2))
	if !errors.Is(err, store.ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}

	after, err2 := s.GetItemByID(context.Background(), item.ID)
	if err2 != nil {
		t.Fatalf("get item failed: %v", err2)
	}
	if after.Quantity != 5 {
		t.Fatalf("quantity = %d, failed sale must not decrement stock", after.Quantity)
	}
	if after.Version != item.Version {
		t.Fatalf("version = %d, failed sale must not bump the version", after.Version)
	}

	sales, err2 := s.ListSales(context.Background(), domain.SaleFilter{Page: 1})
	if err2 != nil {
		t.Fatalf("list sales failed: %v", err2)
	}
	if sales.Count != 0 {
		t.Fatalf("ledger has %d records after failed insert, want 0", sales.Count)
	}

	// Hook cleared, the same draft goes through.
	s.saleInsertHook = nil
	if _, err := s.CreateSale(context.Background(), saleDraft(item.ID, 2)); err != nil {
		t.Fatalf("sale after recovery failed: %v", err)
	}
}

func TestCreateSaleCancelledContext(t *testing.T) {
	s := NewSeeded()
	item := createItem(t, s, "Ctx Test", 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.CreateSale(ctx, saleDraft(item.ID, 1))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestConcurrentCreateSaleExactlyStock(t *testing.T) {
	s := NewSeeded()
	item := createItem(t, s, "Race Test", 5)

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			_, errs[slot] = s.CreateSale(context.Background(), saleDraft(item.ID, 1))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, store.ErrInsufficientStock):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 5 {
		t.Fatalf("succeeded = %d, want exactly 5", succeeded)
	}

	after, err := s.GetItemByID(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("get item failed: %v", err)
	}
	if after.Quantity != 0 {
		t.Fatalf("final quantity = %d, want 0", after.Quantity)
	}

	sales, err := s.ListSales(context.Background(), domain.SaleFilter{Page: 1})
	if err != nil {
		t.Fatalf("list sales failed: %v", err)
	}
	if sales.Count != 5 {
		t.Fatalf("ledger count = %d, want 5", sales.Count)
	}
}

func TestDecrementStockVersionCAS(t *testing.T) {
	s := NewSeeded()
	item := createItem(t, s, "CAS Test", 5)

	if err := s.DecrementStock(context.Background(), item.ID, 1, item.Version); err != nil {
		t.Fatalf("decrement with current version failed: %v", err)
	}

	// The version moved, so the same expected version is now stale.
	err := s.DecrementStock(context.Background(), item.ID, 1, item.Version)
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict on stale version", err)
	}

	err = s.DecrementStock(context.Background(), item.ID, 10, item.Version+1)
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("err = %v, want ErrInsufficientStock", err)
	}

	err = s.DecrementStock(context.Background(), "no-such-item", 1, 1)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateItemRestockBumpsDate(t *testing.T) {
	s := NewSeeded()
	item := createItem(t, s, "Restock Test", 5)

	time.Sleep(5 * time.Millisecond)
	updated, err := s.UpdateItem(context.Background(), item.ID, domain.ItemUpdateRequest{
		Name:                item.Name,
		Category:            item.Category,
		BuyingPrice:         item.BuyingPrice,
		DefaultSellingPrice: item.DefaultSellingPrice,
		Quantity:            12,
		LowStockThreshold:   item.LowStockThreshold,
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if !updated.LastRestockDate.After(item.LastRestockDate) {
		t.Fatalf("restock date did not move forward on a quantity increase")
	}

	// Lowering the quantity is a correction, not a restock.
	corrected, err := s.UpdateItem(context.Background(), item.ID, domain.ItemUpdateRequest{
		Name:                item.Name,
		Category:            item.Category,
		BuyingPrice:         item.BuyingPrice,
		DefaultSellingPrice: item.DefaultSellingPrice,
		Quantity:            8,
		LowStockThreshold:   item.LowStockThreshold,
	})
	if err != nil {
		t.Fatalf("correction failed: %v", err)
	}
	if !corrected.LastRestockDate.Equal(updated.LastRestockDate) {
		t.Fatalf("restock date moved on a quantity decrease")
	}
}

func TestListItemsFiltersAndPaginates(t *testing.T) {
	s := NewSeeded()
	for i := 0; i < 12; i++ {
		createItem(t, s, "Bulk Item "+string(rune('A'+i)), 5)
	}

	page1, err := s.ListItems(context.Background(), domain.ItemFilter{Category: "Test", Page: 1})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(page1.Items) != pageSize {
		t.Fatalf("page 1 has %d items, want %d", len(page1.Items), pageSize)
	}
	if page1.Count != 12 || page1.Pages != 2 {
		t.Fatalf("count=%d pages=%d, want 12 and 2", page1.Count, page1.Pages)
	}

	page2, err := s.ListItems(context.Background(), domain.ItemFilter{Category: "Test", Page: 2})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(page2.Items) != 2 {
		t.Fatalf("page 2 has %d items, want 2", len(page2.Items))
	}

	byKeyword, err := s.ListItems(context.Background(), domain.ItemFilter{Keyword: "bulk item a", Page: 1})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(byKeyword.Items) != 1 {
		t.Fatalf("keyword match = %d items, want 1 (case-insensitive)", len(byKeyword.Items))
	}
}

func TestCreateItemRejectsDuplicateSKU(t *testing.T) {
	s := NewSeeded()
	_, err := s.CreateItem(context.Background(), domain.ItemCreateRequest{
		Name:                "First",
		Category:            "Test",
		SKU:                 "SKU-1",
		BuyingPrice:         decimal.NewFromInt(10),
		DefaultSellingPrice: decimal.NewFromInt(20),
		Quantity:            1,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	_, err = s.CreateItem(context.Background(), domain.ItemCreateRequest{
		Name:                "Second",
		Category:            "Test",
		SKU:                 "SKU-1",
		BuyingPrice:         decimal.NewFromInt(10),
		DefaultSellingPrice: decimal.NewFromInt(20),
		Quantity:            1,
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput for duplicate sku", err)
	}
}

func TestSummaryReportBuckets(t *testing.T) {
	s := NewSeeded()
	item := createItem(t, s, "Bucket Test", 50)

	for i := 0; i < 4; i++ {
		if _, err := s.CreateSale(context.Background(), saleDraft(item.ID, 1)); err != nil {
			t.Fatalf("sale failed: %v", err)
		}
	}

	now := time.Now().UTC()
	from := now.Add(-time.Hour)
	to := now.Add(time.Hour)

	daily, err := s.SummaryReport(context.Background(), from, to, domain.ReportPeriodDaily)
	if err != nil {
		t.Fatalf("daily report failed: %v", err)
	}
	if len(daily.SalesTrend) != 1 {
		t.Fatalf("daily trend has %d buckets, want 1", len(daily.SalesTrend))
	}
	if !daily.Summary.TotalSales.Equal(decimal.NewFromInt(240)) {
		t.Fatalf("total sales = %s, want 240", daily.Summary.TotalSales)
	}

	monthly, err := s.SummaryReport(context.Background(), from, to, domain.ReportPeriodMonthly)
	if err != nil {
		t.Fatalf("monthly report failed: %v", err)
	}
	if len(monthly.SalesTrend) != 1 {
		t.Fatalf("monthly trend has %d buckets, want 1", len(monthly.SalesTrend))
	}
	if monthly.SalesTrend[0].Bucket != now.Format("2006-01") {
		t.Fatalf("monthly bucket = %q, want %q", monthly.SalesTrend[0].Bucket, now.Format("2006-01"))
	}
}
