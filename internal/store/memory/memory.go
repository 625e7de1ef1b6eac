package memory

import (
	"context"
	"fmt"
	"log"
	"math"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"starose/backend/internal/domain"
	"starose/backend/internal/store"
	"starose/backend/internal/xid"
)

const pageSize = 10

// Store is the in-memory Repository used for dev mode and tests. A single
// mutex is the transactional scope: every sale runs read-check-decrement-append
// under one critical section, so partial effects are never visible.
type Store struct {
	mu       sync.RWMutex
	items    map[string]domain.Item
	sales    []domain.Sale
	expenses []domain.Expense
	users    map[string]domain.UserAccount

	// saleInsertHook simulates a ledger failure between the stock check and the
	// sale append. Only tests set it.
	saleInsertHook func() error
}

// seedUsers builds the initial in-memory accounts for dev/demo mode.
// Credentials come from SEED_ADMIN_PASSWORD and SEED_ATTENDANT_PASSWORD; if
// unset, hardcoded dev defaults are used with a warning. Production runs use
// PostgreSQL (DATABASE_URL set) and never touch these.
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	attendantPwd := envOr("SEED_ATTENDANT_PASSWORD", "attendant123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_ATTENDANT_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_ATTENDANT_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		email    string
		password string
		role     string
	}{
		{"admin@starose.local", adminPwd, "admin"},
		{"attendant@starose.local", attendantPwd, "attendant"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.email, err)
		}
		users[u.email] = domain.UserAccount{
			Email:     u.email,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func NewSeeded() *Store {
	now := time.Now().UTC()
	seed := []domain.Item{
		{Name: "Printing A4 B&W", Category: "Services", BuyingPrice: dec(1), DefaultSellingPrice: dec(10), Quantity: 10000, LowStockThreshold: 0},
		{Name: "Photocopy A4", Category: "Services", BuyingPrice: dec(1), DefaultSellingPrice: dec(5), Quantity: 10000, LowStockThreshold: 0},
		{Name: "Scanning per Page", Category: "Services", BuyingPrice: dec(0), DefaultSellingPrice: dec(20), Quantity: 1000, LowStockThreshold: 0},
		{Name: "Coca-Cola 500ml", Category: "Drinks", BuyingPrice: dec(40), DefaultSellingPrice: dec(60), Quantity: 24, LowStockThreshold: 6},
		{Name: "Fanta 500ml", Category: "Drinks", BuyingPrice: dec(40), DefaultSellingPrice: dec(60), Quantity: 18, LowStockThreshold: 6},
		{Name: "K-Gas Refill 6kg", Category: "Supplies", BuyingPrice: dec(1300), DefaultSellingPrice: dec(1600), Quantity: 3, LowStockThreshold: 1},
	}

	items := make(map[string]domain.Item, len(seed))
	for _, item := range seed {
		item.ID = xid.New("item")
		item.Version = 1
		item.LastRestockDate = now
		item.CreatedAt = now
		item.UpdatedAt = now
		items[item.ID] = item
	}

	return &Store{
		items:    items,
		sales:    make([]domain.Sale, 0, 128),
		expenses: make([]domain.Expense, 0, 64),
		users:    seedUsers(),
	}
}

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func (s *Store) CreateItem(_ context.Context, req domain.ItemCreateRequest) (*domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := strings.TrimSpace(req.Name)
	category := strings.TrimSpace(req.Category)
	sku := strings.TrimSpace(req.SKU)
	if name == "" || category == "" {
		return nil, store.ErrInvalidInput
	}
	if req.BuyingPrice.IsNegative() || req.DefaultSellingPrice.IsNegative() {
		return nil, store.ErrInvalidInput
	}
	if req.Quantity < 0 || req.LowStockThreshold < 0 {
		return nil, store.ErrInvalidInput
	}
	if sku != "" {
		for _, existing := range s.items {
			if existing.SKU == sku {
				return nil, fmt.Errorf("%w: item with this sku already exists", store.ErrInvalidInput)
			}
		}
	}

	now := time.Now().UTC()
	item := domain.Item{
		ID:                  xid.New("item"),
		Name:                name,
		Category:            category,
		SKU:                 sku,
		BuyingPrice:         req.BuyingPrice,
		DefaultSellingPrice: req.DefaultSellingPrice,
		Quantity:            req.Quantity,
		LowStockThreshold:   req.LowStockThreshold,
		LastRestockDate:     now,
		Version:             1,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	s.items[item.ID] = item
	created := item
	return &created, nil
}

func (s *Store) GetItemByID(_ context.Context, id string) (*domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, exists := s.items[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	found := item
	return &found, nil
}

func (s *Store) ListItems(_ context.Context, filter domain.ItemFilter) (domain.ItemListResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keyword := strings.ToLower(strings.TrimSpace(filter.Keyword))
	category := strings.TrimSpace(filter.Category)

	matched := make([]domain.Item, 0, len(s.items))
	categorySet := make(map[string]struct{}, 8)
	for _, item := range s.items {
		categorySet[item.Category] = struct{}{}
		if keyword != "" && !strings.Contains(strings.ToLower(item.Name), keyword) {
			continue
		}
		if category != "" && item.Category != category {
			continue
		}
		matched = append(matched, item)
	}

	slices.SortFunc(matched, func(a, b domain.Item) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return strings.Compare(a.ID, b.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})

	categories := make([]string, 0, len(categorySet))
	for c := range categorySet {
		categories = append(categories, c)
	}
	slices.Sort(categories)

	count := len(matched)
	page, items := paginate(matched, filter.Page)
	return domain.ItemListResponse{
		Items:      items,
		Page:       page,
		Pages:      totalPages(count),
		Count:      count,
		Categories: categories,
	}, nil
}

func (s *Store) UpdateItem(_ context.Context, id string, req domain.ItemUpdateRequest) (*domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.items[id]
	if !exists {
		return nil, store.ErrNotFound
	}

	name := strings.TrimSpace(req.Name)
	category := strings.TrimSpace(req.Category)
	sku := strings.TrimSpace(req.SKU)
	if name == "" || category == "" {
		return nil, store.ErrInvalidInput
	}
	if req.BuyingPrice.IsNegative() || req.DefaultSellingPrice.IsNegative() {
		return nil, store.ErrInvalidInput
	}
	if req.Quantity < 0 || req.LowStockThreshold < 0 {
		return nil, store.ErrInvalidInput
	}
	if sku != "" {
		for otherID, other := range s.items {
			if otherID != id && other.SKU == sku {
				return nil, fmt.Errorf("%w: item with this sku already exists", store.ErrInvalidInput)
			}
		}
	}

	now := time.Now().UTC()
	updated := existing
	updated.Name = name
	updated.Category = category
	updated.SKU = sku
	updated.BuyingPrice = req.BuyingPrice
	updated.DefaultSellingPrice = req.DefaultSellingPrice
	updated.Quantity = req.Quantity
	updated.LowStockThreshold = req.LowStockThreshold
	if req.Quantity > existing.Quantity {
		updated.LastRestockDate = now
	}
	updated.Version = existing.Version + 1
	updated.UpdatedAt = now

	s.items[id] = updated
	result := updated
	return &result, nil
}

func (s *Store) DeleteItem(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *Store) ListLowStockItems(_ context.Context, limit int) ([]domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lowStockLocked(limit), nil
}

func (s *Store) lowStockLocked(limit int) []domain.Item {
	if limit < 1 {
		limit = 10
	}
	low := make([]domain.Item, 0, limit)
	for _, item := range s.items {
		if item.Quantity <= item.LowStockThreshold {
			low = append(low, item)
		}
	}
	slices.SortFunc(low, func(a, b domain.Item) int {
		if a.Quantity == b.Quantity {
			return strings.Compare(a.ID, b.ID)
		}
		return a.Quantity - b.Quantity
	})
	if len(low) > limit {
		low = low[:limit]
	}
	return low
}

func (s *Store) CreateSale(ctx context.Context, draft domain.SaleDraft) (*domain.Sale, error) {
	if draft.ItemID == "" || draft.QuantitySold < 1 || draft.ActualSellingPrice.IsNegative() {
		return nil, store.ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item, exists := s.items[draft.ItemID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if item.Quantity < draft.QuantitySold {
		return nil, store.ErrInsufficientStock
	}

	if s.saleInsertHook != nil {
		if err := s.saleInsertHook(); err != nil {
			return nil, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
		}
	}

	sale := domain.NewSaleRecord(xid.New("sale"), item, draft, time.Now().UTC())

	item.Quantity -= draft.QuantitySold
	item.Version++
	item.UpdatedAt = sale.Date
	s.items[draft.ItemID] = item
	s.sales = append(s.sales, sale)

	created := sale
	return &created, nil
}

func (s *Store) DecrementStock(_ context.Context, itemID string, qty int, expectedVersion int64) error {
	if itemID == "" || qty < 1 {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item, exists := s.items[itemID]
	if !exists {
		return store.ErrNotFound
	}
	if item.Version != expectedVersion {
		return store.ErrConflict
	}
	if item.Quantity < qty {
		return store.ErrInsufficientStock
	}

	item.Quantity -= qty
	item.Version++
	item.UpdatedAt = time.Now().UTC()
	s.items[itemID] = item
	return nil
}

func (s *Store) ListSales(_ context.Context, filter domain.SaleFilter) (domain.SaleListResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	attendant := strings.ToLower(filter.Attendant)
	itemName := strings.ToLower(filter.ItemName)

	matched := make([]domain.Sale, 0, len(s.sales))
	for _, sale := range s.sales {
		if filter.From != nil && filter.To != nil {
			if sale.Date.Before(*filter.From) || sale.Date.After(*filter.To) {
				continue
			}
		}
		if filter.PaymentMethod != "" && sale.PaymentMethod != filter.PaymentMethod {
			continue
		}
		if attendant != "" && !strings.Contains(strings.ToLower(sale.Attendant), attendant) {
			continue
		}
		if itemName != "" && !strings.Contains(strings.ToLower(sale.ItemName), itemName) {
			continue
		}
		matched = append(matched, sale)
	}

	slices.SortFunc(matched, func(a, b domain.Sale) int {
		if a.Date.Equal(b.Date) {
			return strings.Compare(b.ID, a.ID)
		}
		if a.Date.After(b.Date) {
			return -1
		}
		return 1
	})

	count := len(matched)
	page, sales := paginate(matched, filter.Page)
	return domain.SaleListResponse{
		Sales: sales,
		Page:  page,
		Pages: totalPages(count),
		Count: count,
	}, nil
}

func (s *Store) CreateExpense(_ context.Context, req domain.ExpenseCreateRequest) (*domain.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	description := strings.TrimSpace(req.Description)
	if description == "" || !req.Amount.IsPositive() || !domain.IsExpenseCategory(req.Category) {
		return nil, store.ErrInvalidInput
	}

	now := time.Now().UTC()
	expense := domain.Expense{
		ID:          xid.New("exp"),
		Amount:      req.Amount,
		Category:    req.Category,
		Description: description,
		Recurring:   req.Recurring,
		Attendant:   strings.TrimSpace(req.Attendant),
		Date:        now,
		CreatedAt:   now,
	}
	if req.Date != nil {
		expense.Date = req.Date.UTC()
	}

	s.expenses = append(s.expenses, expense)
	created := expense
	return &created, nil
}

func (s *Store) ListExpenses(_ context.Context, filter domain.ExpenseFilter) (domain.ExpenseListResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]domain.Expense, 0, len(s.expenses))
	for _, expense := range s.expenses {
		if filter.From != nil && filter.To != nil {
			if expense.Date.Before(*filter.From) || expense.Date.After(*filter.To) {
				continue
			}
		}
		if filter.Category != "" && expense.Category != filter.Category {
			continue
		}
		matched = append(matched, expense)
	}

	slices.SortFunc(matched, func(a, b domain.Expense) int {
		if a.Date.Equal(b.Date) {
			return strings.Compare(b.ID, a.ID)
		}
		if a.Date.After(b.Date) {
			return -1
		}
		return 1
	})

	count := len(matched)
	page, expenses := paginate(matched, filter.Page)
	return domain.ExpenseListResponse{
		Expenses: expenses,
		Page:     page,
		Pages:    totalPages(count),
		Count:    count,
	}, nil
}

func (s *Store) SummaryReport(_ context.Context, from time.Time, to time.Time, period string) (domain.SummaryReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var report domain.SummaryReport
	report.Summary.TotalSales = decimal.Zero
	report.Summary.TotalCost = decimal.Zero
	report.Summary.TotalExpenses = decimal.Zero

	type sellerAgg struct {
		qty     int
		revenue decimal.Decimal
	}
	type trendAgg struct {
		sales  decimal.Decimal
		profit decimal.Decimal
	}
	sellers := make(map[string]sellerAgg)
	trend := make(map[string]trendAgg)

	for _, sale := range s.sales {
		if sale.Date.Before(from) || sale.Date.After(to) {
			continue
		}
		qty := decimal.NewFromInt(int64(sale.QuantitySold))
		report.Summary.TotalSales = report.Summary.TotalSales.Add(sale.TotalSale)
		report.Summary.TotalCost = report.Summary.TotalCost.Add(sale.BuyingPriceAtSale.Mul(qty))

		agg := sellers[sale.ItemName]
		agg.qty += sale.QuantitySold
		agg.revenue = agg.revenue.Add(sale.TotalSale)
		sellers[sale.ItemName] = agg

		bucket := trendBucket(sale.Date, period)
		point := trend[bucket]
		point.sales = point.sales.Add(sale.TotalSale)
		point.profit = point.profit.Add(sale.Profit)
		trend[bucket] = point
	}

	for _, expense := range s.expenses {
		if expense.Date.Before(from) || expense.Date.After(to) {
			continue
		}
		report.Summary.TotalExpenses = report.Summary.TotalExpenses.Add(expense.Amount)
	}

	report.Summary.GrossProfit = report.Summary.TotalSales.Sub(report.Summary.TotalCost)
	report.Summary.NetProfit = report.Summary.GrossProfit.Sub(report.Summary.TotalExpenses)

	top := make([]domain.TopSellingItem, 0, len(sellers))
	for name, agg := range sellers {
		top = append(top, domain.TopSellingItem{ItemName: name, TotalQuantity: agg.qty, TotalRevenue: agg.revenue})
	}
	slices.SortFunc(top, func(a, b domain.TopSellingItem) int {
		if a.TotalQuantity == b.TotalQuantity {
			return strings.Compare(a.ItemName, b.ItemName)
		}
		return b.TotalQuantity - a.TotalQuantity
	})
	if len(top) > 5 {
		top = top[:5]
	}
	report.TopSellingItems = top

	points := make([]domain.TrendPoint, 0, len(trend))
	for bucket, agg := range trend {
		points = append(points, domain.TrendPoint{Bucket: bucket, Sales: agg.sales, Profit: agg.profit})
	}
	slices.SortFunc(points, func(a, b domain.TrendPoint) int {
		return strings.Compare(a.Bucket, b.Bucket)
	})
	report.SalesTrend = points

	report.LowStockItems = s.lowStockLocked(10)
	report.Summary.LowStockCount = len(report.LowStockItems)

	return report, nil
}

func trendBucket(date time.Time, period string) string {
	switch period {
	case domain.ReportPeriodMonthly:
		return date.UTC().Format("2006-01")
	case domain.ReportPeriodWeekly:
		year, week := date.UTC().ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	default:
		return date.UTC().Format("2006-01-02")
	}
}

func (s *Store) ListSalesInRange(_ context.Context, from time.Time, to time.Time) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sales := make([]domain.Sale, 0, len(s.sales))
	for _, sale := range s.sales {
		if sale.Date.Before(from) || sale.Date.After(to) {
			continue
		}
		sales = append(sales, sale)
	}
	slices.SortFunc(sales, func(a, b domain.Sale) int {
		if a.Date.Equal(b.Date) {
			return strings.Compare(a.ID, b.ID)
		}
		if a.Date.Before(b.Date) {
			return -1
		}
		return 1
	})
	return sales, nil
}

func (s *Store) ListExpensesInRange(_ context.Context, from time.Time, to time.Time) ([]domain.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expenses := make([]domain.Expense, 0, len(s.expenses))
	for _, expense := range s.expenses {
		if expense.Date.Before(from) || expense.Date.After(to) {
			continue
		}
		expenses = append(expenses, expense)
	}
	slices.SortFunc(expenses, func(a, b domain.Expense) int {
		if a.Date.Equal(b.Date) {
			return strings.Compare(a.ID, b.ID)
		}
		if a.Date.Before(b.Date) {
			return -1
		}
		return 1
	})
	return expenses, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(strings.TrimSpace(user.Email))
	if email == "" || user.Password == "" {
		return store.ErrInvalidInput
	}
	if _, exists := s.users[email]; exists {
		return fmt.Errorf("%w: user already exists", store.ErrInvalidInput)
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Email = email
	s.users[email] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.users))
	for _, user := range s.users {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return strings.Compare(a.Email, b.Email)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, email string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidInput
	}
	user, exists := s.users[email]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.users[email] = user
	return nil
}

func paginate[T any](all []T, page int) (int, []T) {
	if page < 1 {
		page = 1
	}
	start := pageSize * (page - 1)
	if start >= len(all) {
		return page, []T{}
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	result := make([]T, end-start)
	copy(result, all[start:end])
	return page, result
}

func totalPages(count int) int {
	return int(math.Ceil(float64(count) / float64(pageSize)))
}
