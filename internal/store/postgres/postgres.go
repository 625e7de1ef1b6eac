package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"starose/backend/internal/domain"
	"starose/backend/internal/store"
	"starose/backend/internal/xid"
)

const pageSize = 10

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) CreateItem(ctx context.Context, req domain.ItemCreateRequest) (*domain.Item, error) {
	item := domain.Item{
		ID:                  xid.New("item"),
		Name:                strings.TrimSpace(req.Name),
		Category:            strings.TrimSpace(req.Category),
		SKU:                 strings.TrimSpace(req.SKU),
		BuyingPrice:         req.BuyingPrice,
		DefaultSellingPrice: req.DefaultSellingPrice,
		Quantity:            req.Quantity,
		LowStockThreshold:   req.LowStockThreshold,
		LastRestockDate:     time.Now().UTC(),
		Version:             1,
	}
	if item.Name == "" || item.Category == "" {
		return nil, store.ErrInvalidInput
	}
	if item.BuyingPrice.IsNegative() || item.DefaultSellingPrice.IsNegative() {
		return nil, store.ErrInvalidInput
	}
	if item.Quantity < 0 || item.LowStockThreshold < 0 {
		return nil, store.ErrInvalidInput
	}
	item.CreatedAt = item.LastRestockDate
	item.UpdatedAt = item.LastRestockDate

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO items (
			id, name, category, sku, buying_price, default_selling_price,
			quantity, low_stock_threshold, last_restock_date, version, created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, item.ID, item.Name, item.Category, nullIfEmpty(item.SKU), item.BuyingPrice,
		item.DefaultSellingPrice, item.Quantity, item.LowStockThreshold,
		item.LastRestockDate, item.Version, item.CreatedAt, item.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: item with this sku already exists", store.ErrInvalidInput)
		}
		return nil, err
	}

	created := item
	return &created, nil
}

func (s *Store) GetItemByID(ctx context.Context, id string) (*domain.Item, error) {
	return scanItem(s.db.QueryRowContext(ctx, `
		SELECT id, name, category, COALESCE(sku,''), buying_price, default_selling_price,
			quantity, low_stock_threshold, last_restock_date, version, created_at, updated_at
		FROM items
		WHERE id = $1
	`, id))
}

func (s *Store) ListItems(ctx context.Context, filter domain.ItemFilter) (domain.ItemListResponse, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	keyword := "%" + strings.TrimSpace(filter.Keyword) + "%"
	category := strings.TrimSpace(filter.Category)

	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM items
		WHERE ($1 = '%%' OR name ILIKE $1)
			AND ($2 = '' OR category = $2)
	`, keyword, category).Scan(&count)
	if err != nil {
		return domain.ItemListResponse{}, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, category, COALESCE(sku,''), buying_price, default_selling_price,
			quantity, low_stock_threshold, last_restock_date, version, created_at, updated_at
		FROM items
		WHERE ($1 = '%%' OR name ILIKE $1)
			AND ($2 = '' OR category = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, keyword, category, pageSize, pageSize*(page-1))
	if err != nil {
		return domain.ItemListResponse{}, err
	}
	defer rows.Close()

	items := make([]domain.Item, 0, pageSize)
	for rows.Next() {
		item, err := scanItemRow(rows)
		if err != nil {
			return domain.ItemListResponse{}, err
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return domain.ItemListResponse{}, err
	}

	categories, err := s.listCategories(ctx)
	if err != nil {
		return domain.ItemListResponse{}, err
	}

	return domain.ItemListResponse{
		Items:      items,
		Page:       page,
		Pages:      totalPages(count),
		Count:      count,
		Categories: categories,
	}, nil
}

func (s *Store) listCategories(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT category
		FROM items
		ORDER BY category ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]string, 0, 16)
	for rows.Next() {
		var category string
		if err := rows.Scan(&category); err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	return categories, rows.Err()
}

func (s *Store) UpdateItem(ctx context.Context, id string, req domain.ItemUpdateRequest) (*domain.Item, error) {
	name := strings.TrimSpace(req.Name)
	category := strings.TrimSpace(req.Category)
	if name == "" || category == "" {
		return nil, store.ErrInvalidInput
	}
	if req.BuyingPrice.IsNegative() || req.DefaultSellingPrice.IsNegative() {
		return nil, store.ErrInvalidInput
	}
	if req.Quantity < 0 || req.LowStockThreshold < 0 {
		return nil, store.ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	existing, err := scanItem(tx.QueryRowContext(ctx, `
		SELECT id, name, category, COALESCE(sku,''), buying_price, default_selling_price,
			quantity, low_stock_threshold, last_restock_date, version, created_at, updated_at
		FROM items
		WHERE id = $1
		FOR UPDATE
	`, id))
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	restockDate := existing.LastRestockDate
	if req.Quantity > existing.Quantity {
		restockDate = now
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE items
		SET name = $2, category = $3, sku = $4, buying_price = $5,
			default_selling_price = $6, quantity = $7, low_stock_threshold = $8,
			last_restock_date = $9, version = version + 1, updated_at = $10
		WHERE id = $1
	`, id, name, category, nullIfEmpty(strings.TrimSpace(req.SKU)), req.BuyingPrice,
		req.DefaultSellingPrice, req.Quantity, req.LowStockThreshold, restockDate, now)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: item with this sku already exists", store.ErrInvalidInput)
		}
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	updated := *existing
	updated.Name = name
	updated.Category = category
	updated.SKU = strings.TrimSpace(req.SKU)
	updated.BuyingPrice = req.BuyingPrice
	updated.DefaultSellingPrice = req.DefaultSellingPrice
	updated.Quantity = req.Quantity
	updated.LowStockThreshold = req.LowStockThreshold
	updated.LastRestockDate = restockDate
	updated.Version = existing.Version + 1
	updated.UpdatedAt = now
	return &updated, nil
}

func (s *Store) DeleteItem(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListLowStockItems(ctx context.Context, limit int) ([]domain.Item, error) {
	if limit < 1 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, category, COALESCE(sku,''), buying_price, default_selling_price,
			quantity, low_stock_threshold, last_restock_date, version, created_at, updated_at
		FROM items
		WHERE quantity <= low_stock_threshold
		ORDER BY quantity ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Item, 0, limit)
	for rows.Next() {
		item, err := scanItemRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// CreateSale runs the whole sale as one serializable transaction: the item row
// is locked, stock sufficiency is checked against that locked read, the
// economic snapshot is computed from it, and the decrement plus the ledger
// insert commit together or not at all.
func (s *Store) CreateSale(ctx context.Context, draft domain.SaleDraft) (*domain.Sale, error) {
	if draft.ItemID == "" || draft.QuantitySold < 1 || draft.ActualSellingPrice.IsNegative() {
		return nil, store.ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	defer func() { _ = tx.Rollback() }()

	item, err := scanItem(tx.QueryRowContext(ctx, `
		SELECT id, name, category, COALESCE(sku,''), buying_price, default_selling_price,
			quantity, low_stock_threshold, last_restock_date, version, created_at, updated_at
		FROM items
		WHERE id = $1
		FOR UPDATE
	`, draft.ItemID))
	if err != nil {
		return nil, saleTxError(err)
	}

	if item.Quantity < draft.QuantitySold {
		return nil, store.ErrInsufficientStock
	}

	sale := domain.NewSaleRecord(xid.New("sale"), *item, draft, time.Now().UTC())

	res, err := tx.ExecContext(ctx, `
		UPDATE items
		SET quantity = quantity - $2, version = version + 1, updated_at = $3
		WHERE id = $1 AND quantity >= $2
	`, draft.ItemID, draft.QuantitySold, sale.Date)
	if err != nil {
		return nil, saleTxError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, saleTxError(err)
	}
	if affected == 0 {
		return nil, store.ErrConflict
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sales (
			id, item_id, item_name, quantity_sold, actual_selling_price,
			total_sale, buying_price_at_sale, profit, payment_method,
			attendant, notes, date
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, sale.ID, sale.ItemID, sale.ItemName, sale.QuantitySold, sale.ActualSellingPrice,
		sale.TotalSale, sale.BuyingPriceAtSale, sale.Profit, sale.PaymentMethod,
		sale.Attendant, sale.Notes, sale.Date)
	if err != nil {
		return nil, saleTxError(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, saleTxError(err)
	}

	return &sale, nil
}

func (s *Store) DecrementStock(ctx context.Context, itemID string, qty int, expectedVersion int64) error {
	if itemID == "" || qty < 1 {
		return store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE items
		SET quantity = quantity - $2, version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $3 AND quantity >= $2
	`, itemID, qty, expectedVersion)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 1 {
		return nil
	}

	// Zero rows: tell the caller which precondition failed.
	var quantity int
	var version int64
	err = s.db.QueryRowContext(ctx, `
		SELECT quantity, version FROM items WHERE id = $1
	`, itemID).Scan(&quantity, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return err
	}
	if version != expectedVersion {
		return store.ErrConflict
	}
	return store.ErrInsufficientStock
}

func (s *Store) ListSales(ctx context.Context, filter domain.SaleFilter) (domain.SaleListResponse, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}

	where, args := saleFilterClauses(filter)

	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sales`+where, args...).Scan(&count)
	if err != nil {
		return domain.SaleListResponse{}, err
	}

	query := `
		SELECT id, item_id, item_name, quantity_sold, actual_selling_price,
			total_sale, buying_price_at_sale, profit, payment_method,
			attendant, COALESCE(notes,''), date
		FROM sales` + where + fmt.Sprintf(`
		ORDER BY date DESC
		LIMIT %d OFFSET %d
	`, pageSize, pageSize*(page-1))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return domain.SaleListResponse{}, err
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, pageSize)
	for rows.Next() {
		var sale domain.Sale
		if err := rows.Scan(&sale.ID, &sale.ItemID, &sale.ItemName, &sale.QuantitySold,
			&sale.ActualSellingPrice, &sale.TotalSale, &sale.BuyingPriceAtSale, &sale.Profit,
			&sale.PaymentMethod, &sale.Attendant, &sale.Notes, &sale.Date); err != nil {
			return domain.SaleListResponse{}, err
		}
		sale.Date = sale.Date.UTC()
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return domain.SaleListResponse{}, err
	}

	return domain.SaleListResponse{
		Sales: sales,
		Page:  page,
		Pages: totalPages(count),
		Count: count,
	}, nil
}

func saleFilterClauses(filter domain.SaleFilter) (string, []any) {
	clauses := make([]string, 0, 4)
	args := make([]any, 0, 5)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.From != nil && filter.To != nil {
		clauses = append(clauses, fmt.Sprintf("date >= %s AND date <= %s", arg(*filter.From), arg(*filter.To)))
	}
	if filter.PaymentMethod != "" {
		clauses = append(clauses, fmt.Sprintf("payment_method = %s", arg(filter.PaymentMethod)))
	}
	if filter.Attendant != "" {
		clauses = append(clauses, fmt.Sprintf("attendant ILIKE %s", arg("%"+filter.Attendant+"%")))
	}
	if filter.ItemName != "" {
		clauses = append(clauses, fmt.Sprintf("item_name ILIKE %s", arg("%"+filter.ItemName+"%")))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (s *Store) CreateExpense(ctx context.Context, req domain.ExpenseCreateRequest) (*domain.Expense, error) {
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

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO expenses (id, amount, category, description, recurring, attendant, date, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, expense.ID, expense.Amount, expense.Category, expense.Description,
		expense.Recurring, nullIfEmpty(expense.Attendant), expense.Date, expense.CreatedAt)
	if err != nil {
		return nil, err
	}

	created := expense
	return &created, nil
}

func (s *Store) ListExpenses(ctx context.Context, filter domain.ExpenseFilter) (domain.ExpenseListResponse, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}

	clauses := make([]string, 0, 2)
	args := make([]any, 0, 3)
	if filter.From != nil && filter.To != nil {
		args = append(args, *filter.From, *filter.To)
		clauses = append(clauses, fmt.Sprintf("date >= $%d AND date <= $%d", len(args)-1, len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		clauses = append(clauses, fmt.Sprintf("category = $%d", len(args)))
	}
	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM expenses`+where, args...).Scan(&count); err != nil {
		return domain.ExpenseListResponse{}, err
	}

	query := `
		SELECT id, amount, category, description, recurring, COALESCE(attendant,''), date, created_at
		FROM expenses` + where + fmt.Sprintf(`
		ORDER BY date DESC
		LIMIT %d OFFSET %d
	`, pageSize, pageSize*(page-1))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return domain.ExpenseListResponse{}, err
	}
	defer rows.Close()

	expenses := make([]domain.Expense, 0, pageSize)
	for rows.Next() {
		var expense domain.Expense
		if err := rows.Scan(&expense.ID, &expense.Amount, &expense.Category, &expense.Description,
			&expense.Recurring, &expense.Attendant, &expense.Date, &expense.CreatedAt); err != nil {
			return domain.ExpenseListResponse{}, err
		}
		expense.Date = expense.Date.UTC()
		expenses = append(expenses, expense)
	}
	if err := rows.Err(); err != nil {
		return domain.ExpenseListResponse{}, err
	}

	return domain.ExpenseListResponse{
		Expenses: expenses,
		Page:     page,
		Pages:    totalPages(count),
		Count:    count,
	}, nil
}

func (s *Store) SummaryReport(ctx context.Context, from time.Time, to time.Time, period string) (domain.SummaryReport, error) {
	var report domain.SummaryReport

	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(total_sale), 0), COALESCE(SUM(buying_price_at_sale * quantity_sold), 0)
		FROM sales
		WHERE date >= $1 AND date <= $2
	`, from, to).Scan(&report.Summary.TotalSales, &report.Summary.TotalCost)
	if err != nil {
		return domain.SummaryReport{}, err
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM expenses
		WHERE date >= $1 AND date <= $2
	`, from, to).Scan(&report.Summary.TotalExpenses)
	if err != nil {
		return domain.SummaryReport{}, err
	}

	report.Summary.GrossProfit = report.Summary.TotalSales.Sub(report.Summary.TotalCost)
	report.Summary.NetProfit = report.Summary.GrossProfit.Sub(report.Summary.TotalExpenses)

	topRows, err := s.db.QueryContext(ctx, `
		SELECT item_name, SUM(quantity_sold)::int, SUM(total_sale)
		FROM sales
		WHERE date >= $1 AND date <= $2
		GROUP BY item_name
		ORDER BY SUM(quantity_sold) DESC
		LIMIT 5
	`, from, to)
	if err != nil {
		return domain.SummaryReport{}, err
	}
	top := make([]domain.TopSellingItem, 0, 5)
	for topRows.Next() {
		var entry domain.TopSellingItem
		if err := topRows.Scan(&entry.ItemName, &entry.TotalQuantity, &entry.TotalRevenue); err != nil {
			_ = topRows.Close()
			return domain.SummaryReport{}, err
		}
		top = append(top, entry)
	}
	if err := topRows.Err(); err != nil {
		_ = topRows.Close()
		return domain.SummaryReport{}, err
	}
	_ = topRows.Close()
	report.TopSellingItems = top

	trendRows, err := s.db.QueryContext(ctx, `
		SELECT to_char(date, `+trendBucketFormat(period)+`), SUM(total_sale), SUM(profit)
		FROM sales
		WHERE date >= $1 AND date <= $2
		GROUP BY 1
		ORDER BY 1 ASC
	`, from, to)
	if err != nil {
		return domain.SummaryReport{}, err
	}
	trend := make([]domain.TrendPoint, 0, 32)
	for trendRows.Next() {
		var point domain.TrendPoint
		if err := trendRows.Scan(&point.Bucket, &point.Sales, &point.Profit); err != nil {
			_ = trendRows.Close()
			return domain.SummaryReport{}, err
		}
		trend = append(trend, point)
	}
	if err := trendRows.Err(); err != nil {
		_ = trendRows.Close()
		return domain.SummaryReport{}, err
	}
	_ = trendRows.Close()
	report.SalesTrend = trend

	lowStock, err := s.ListLowStockItems(ctx, 10)
	if err != nil {
		return domain.SummaryReport{}, err
	}
	report.LowStockItems = lowStock
	report.Summary.LowStockCount = len(lowStock)

	return report, nil
}

func trendBucketFormat(period string) string {
	switch period {
	case domain.ReportPeriodMonthly:
		return `'YYYY-MM'`
	case domain.ReportPeriodWeekly:
		return `'IYYY-"W"IW'`
	default:
		return `'YYYY-MM-DD'`
	}
}

func (s *Store) ListSalesInRange(ctx context.Context, from time.Time, to time.Time) ([]domain.Sale, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, item_id, item_name, quantity_sold, actual_selling_price,
			total_sale, buying_price_at_sale, profit, payment_method,
			attendant, COALESCE(notes,''), date
		FROM sales
		WHERE date >= $1 AND date <= $2
		ORDER BY date ASC
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, 128)
	for rows.Next() {
		var sale domain.Sale
		if err := rows.Scan(&sale.ID, &sale.ItemID, &sale.ItemName, &sale.QuantitySold,
			&sale.ActualSellingPrice, &sale.TotalSale, &sale.BuyingPriceAtSale, &sale.Profit,
			&sale.PaymentMethod, &sale.Attendant, &sale.Notes, &sale.Date); err != nil {
			return nil, err
		}
		sale.Date = sale.Date.UTC()
		sales = append(sales, sale)
	}
	return sales, rows.Err()
}

func (s *Store) ListExpensesInRange(ctx context.Context, from time.Time, to time.Time) ([]domain.Expense, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, amount, category, description, recurring, COALESCE(attendant,''), date, created_at
		FROM expenses
		WHERE date >= $1 AND date <= $2
		ORDER BY date ASC
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	expenses := make([]domain.Expense, 0, 64)
	for rows.Next() {
		var expense domain.Expense
		if err := rows.Scan(&expense.ID, &expense.Amount, &expense.Category, &expense.Description,
			&expense.Recurring, &expense.Attendant, &expense.Date, &expense.CreatedAt); err != nil {
			return nil, err
		}
		expense.Date = expense.Date.UTC()
		expenses = append(expenses, expense)
	}
	return expenses, rows.Err()
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	email := strings.ToLower(strings.TrimSpace(user.Email))
	if email == "" || user.Password == "" {
		return store.ErrInvalidInput
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_users (email, password, role, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,now())
	`, email, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: user already exists", store.ErrInvalidInput)
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT email, password, role, active, created_at
		FROM app_users
		ORDER BY email ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Email, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	return users, rows.Err()
}

func (s *Store) UpdateUserPassword(ctx context.Context, email string, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE app_users
		SET password = $2, updated_at = now()
		WHERE email = $1
	`, email, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row *sql.Row) (*domain.Item, error) {
	item, err := scanItemRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return item, nil
}

func scanItemRow(row rowScanner) (*domain.Item, error) {
	var item domain.Item
	err := row.Scan(&item.ID, &item.Name, &item.Category, &item.SKU, &item.BuyingPrice,
		&item.DefaultSellingPrice, &item.Quantity, &item.LowStockThreshold,
		&item.LastRestockDate, &item.Version, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	item.LastRestockDate = item.LastRestockDate.UTC()
	item.CreatedAt = item.CreatedAt.UTC()
	item.UpdatedAt = item.UpdatedAt.UTC()
	return &item, nil
}

// saleTxError keeps the sale transaction's error taxonomy tight: not-found and
// serialization failures get their sentinel, anything else surfaces as an
// unavailable store so the caller knows no partial effect was committed.
func saleTxError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if isSerializationFailure(err) {
		return store.ErrConflict
	}
	return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 40001 serialization_failure, 40P01 deadlock_detected
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func totalPages(count int) int {
	return int(math.Ceil(float64(count) / float64(pageSize)))
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}
