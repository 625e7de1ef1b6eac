package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment methods accepted at the counter. The set is closed: a sale with any
// other method is rejected before the stores are touched.
const (
	PaymentMethodCash  = "Cash"
	PaymentMethodMpesa = "Mpesa"
)

func IsSupportedPaymentMethod(method string) bool {
	return method == PaymentMethodCash || method == PaymentMethodMpesa
}

const (
	ExpenseCategoryRent      = "rent"
	ExpenseCategoryUtilities = "utilities"
	ExpenseCategoryWages     = "wages"
	ExpenseCategorySupplies  = "supplies"
	ExpenseCategoryOther     = "other"
)

func IsExpenseCategory(category string) bool {
	switch category {
	case ExpenseCategoryRent, ExpenseCategoryUtilities, ExpenseCategoryWages,
		ExpenseCategorySupplies, ExpenseCategoryOther:
		return true
	}
	return false
}

const (
	ReportPeriodDaily   = "daily"
	ReportPeriodWeekly  = "weekly"
	ReportPeriodMonthly = "monthly"
)

// Item is a sellable unit of inventory. Quantity is never negative; the only
// way it decreases is through the sale transaction. Version counts every
// mutation and backs the conditional stock decrement.
type Item struct {
	ID                  string          `json:"id"`
	Name                string          `json:"name"`
	Category            string          `json:"category"`
	SKU                 string          `json:"sku,omitempty"`
	BuyingPrice         decimal.Decimal `json:"buying_price"`
	DefaultSellingPrice decimal.Decimal `json:"default_selling_price"`
	Quantity            int             `json:"quantity"`
	LowStockThreshold   int             `json:"low_stock_threshold"`
	LastRestockDate     time.Time       `json:"last_restock_date"`
	Version             int64           `json:"version"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

type ItemCreateRequest struct {
	Name                string          `json:"name"`
	Category            string          `json:"category"`
	SKU                 string          `json:"sku,omitempty"`
	BuyingPrice         decimal.Decimal `json:"buying_price"`
	DefaultSellingPrice decimal.Decimal `json:"default_selling_price"`
	Quantity            int             `json:"quantity"`
	LowStockThreshold   int             `json:"low_stock_threshold"`
}

// ItemUpdateRequest replaces every mutable field. A quantity above the stored
// value counts as a restock and refreshes LastRestockDate.
type ItemUpdateRequest struct {
	Name                string          `json:"name"`
	Category            string          `json:"category"`
	SKU                 string          `json:"sku,omitempty"`
	BuyingPrice         decimal.Decimal `json:"buying_price"`
	DefaultSellingPrice decimal.Decimal `json:"default_selling_price"`
	Quantity            int             `json:"quantity"`
	LowStockThreshold   int             `json:"low_stock_threshold"`
}

type ItemFilter struct {
	Keyword  string
	Category string
	Page     int
}

type ItemListResponse struct {
	Items      []Item   `json:"items"`
	Page       int      `json:"page"`
	Pages      int      `json:"pages"`
	Count      int      `json:"count"`
	Categories []string `json:"categories"`
}

// Sale is an immutable ledger record. Item name and buying price are copied in
// at creation time so later edits to the item cannot rewrite history.
type Sale struct {
	ID                 string          `json:"id"`
	ItemID             string          `json:"item_id"`
	ItemName           string          `json:"item_name"`
	QuantitySold       int             `json:"quantity_sold"`
	ActualSellingPrice decimal.Decimal `json:"actual_selling_price"`
	TotalSale          decimal.Decimal `json:"total_sale"`
	BuyingPriceAtSale  decimal.Decimal `json:"buying_price_at_sale"`
	Profit             decimal.Decimal `json:"profit"`
	PaymentMethod      string          `json:"payment_method"`
	Attendant          string          `json:"attendant"`
	Notes              string          `json:"notes,omitempty"`
	Date               time.Time       `json:"date"`
}

type SaleRequest struct {
	ItemID             string          `json:"item_id"`
	QuantitySold       int             `json:"quantity_sold"`
	ActualSellingPrice decimal.Decimal `json:"actual_selling_price"`
	PaymentMethod      string          `json:"payment_method"`
	Attendant          string          `json:"attendant"`
	Notes              string          `json:"notes,omitempty"`
}

// SaleDraft is a validated sale request on its way into the store. The store
// fills in the economic snapshot from the item it reads inside the transaction.
type SaleDraft struct {
	ItemID             string
	QuantitySold       int
	ActualSellingPrice decimal.Decimal
	PaymentMethod      string
	Attendant          string
	Notes              string
}

// NewSaleRecord freezes the sale economics against the transactionally-read
// item: total = qty * price, COGS = the item's buying price right now,
// profit = (price - COGS) * qty. Both store implementations build the record
// through this function so the arithmetic cannot diverge.
func NewSaleRecord(id string, item Item, draft SaleDraft, now time.Time) Sale {
	qty := decimal.NewFromInt(int64(draft.QuantitySold))
	return Sale{
		ID:                 id,
		ItemID:             item.ID,
		ItemName:           item.Name,
		QuantitySold:       draft.QuantitySold,
		ActualSellingPrice: draft.ActualSellingPrice,
		TotalSale:          draft.ActualSellingPrice.Mul(qty),
		BuyingPriceAtSale:  item.BuyingPrice,
		Profit:             draft.ActualSellingPrice.Sub(item.BuyingPrice).Mul(qty),
		PaymentMethod:      draft.PaymentMethod,
		Attendant:          draft.Attendant,
		Notes:              draft.Notes,
		Date:               now,
	}
}

type SaleFilter struct {
	From          *time.Time
	To            *time.Time
	PaymentMethod string
	Attendant     string
	ItemName      string
	Page          int
}

type SaleListResponse struct {
	Sales []Sale `json:"sales"`
	Page  int    `json:"page"`
	Pages int    `json:"pages"`
	Count int    `json:"count"`
}

type Expense struct {
	ID          string          `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Recurring   bool            `json:"recurring"`
	Attendant   string          `json:"attendant,omitempty"`
	Date        time.Time       `json:"date"`
	CreatedAt   time.Time       `json:"created_at"`
}

type ExpenseCreateRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Recurring   bool            `json:"recurring"`
	Attendant   string          `json:"attendant,omitempty"`
	Date        *time.Time      `json:"date,omitempty"`
}

type ExpenseFilter struct {
	From     *time.Time
	To       *time.Time
	Category string
	Page     int
}

type ExpenseListResponse struct {
	Expenses []Expense `json:"expenses"`
	Page     int       `json:"page"`
	Pages    int       `json:"pages"`
	Count    int       `json:"count"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Email string
	Role  string
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Email     string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

type AttendantCreateRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AttendantUser struct {
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type SummaryTotals struct {
	TotalSales    decimal.Decimal `json:"total_sales"`
	TotalCost     decimal.Decimal `json:"total_cost"`
	GrossProfit   decimal.Decimal `json:"gross_profit"`
	TotalExpenses decimal.Decimal `json:"total_expenses"`
	NetProfit     decimal.Decimal `json:"net_profit"`
	LowStockCount int             `json:"low_stock_count"`
}

type TopSellingItem struct {
	ItemName      string          `json:"item_name"`
	TotalQuantity int             `json:"total_quantity"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
}

// TrendPoint buckets sales and profit by day ("2026-01-05"), ISO week
// ("2026-W02"), or month ("2026-01") depending on the requested period.
type TrendPoint struct {
	Bucket string          `json:"bucket"`
	Sales  decimal.Decimal `json:"sales"`
	Profit decimal.Decimal `json:"profit"`
}

type SummaryReport struct {
	Summary         SummaryTotals    `json:"summary"`
	TopSellingItems []TopSellingItem `json:"top_selling_items"`
	LowStockItems   []Item           `json:"low_stock_items"`
	SalesTrend      []TrendPoint     `json:"sales_trend"`
}

// ExportBundle carries everything a report renderer needs for one date range.
type ExportBundle struct {
	From          time.Time
	To            time.Time
	Sales         []Sale
	Expenses      []Expense
	TotalSales    decimal.Decimal
	GrossProfit   decimal.Decimal
	TotalExpenses decimal.Decimal
	NetProfit     decimal.Decimal
}
