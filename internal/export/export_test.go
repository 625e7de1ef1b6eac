package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"starose/backend/internal/domain"
)

func testBundle() domain.ExportBundle {
	date := time.Date(2026, 2, 10, 14, 30, 0, 0, time.UTC)
	return domain.ExportBundle{
		From: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, 2, 28, 23, 59, 59, 0, time.UTC),
		Sales: []domain.Sale{
			{
				ID:                 "sale-1",
				ItemName:           "Coca-Cola 500ml",
				QuantitySold:       2,
				ActualSellingPrice: decimal.NewFromInt(60),
				TotalSale:          decimal.NewFromInt(120),
				BuyingPriceAtSale:  decimal.NewFromInt(40),
				Profit:             decimal.NewFromInt(40),
				PaymentMethod:      domain.PaymentMethodCash,
				Attendant:          "jane",
				Date:               date,
			},
		},
		Expenses: []domain.Expense{
			{
				ID:          "exp-1",
				Amount:      decimal.NewFromInt(30),
				Category:    domain.ExpenseCategorySupplies,
				Description: "toner, black",
				Date:        date,
			},
		},
		TotalSales:    decimal.NewFromInt(120),
		GrossProfit:   decimal.NewFromInt(40),
		TotalExpenses: decimal.NewFromInt(30),
		NetProfit:     decimal.NewFromInt(10),
	}
}

func TestCSVContents(t *testing.T) {
	out := CSV(testBundle())

	for _, want := range []string{
		"Starose Cyber Café - Financial Report",
		"summary,date_range,2026-02-01 to 2026-02-28",
		"summary,total_sales,120",
		"summary,net_profit,10",
		"2026-02-10,Coca-Cola 500ml,2,60,120,40",
		`2026-02-10,supplies,"toner, black",30`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("csv missing %q\n%s", want, out)
		}
	}
	if !strings.HasSuffix(out, "\n") {
		t.Errorf("csv must end with a newline")
	}
}

func TestCSVQuotesCommasAndQuotes(t *testing.T) {
	bundle := testBundle()
	bundle.Sales[0].ItemName = `Paper "A4", ream`
	out := CSV(bundle)

	if !strings.Contains(out, `"Paper ""A4"", ream"`) {
		t.Fatalf("item name not quoted:\n%s", out)
	}
}

func TestWorkbookOpens(t *testing.T) {
	buf, err := Workbook(testBundle())
	if err != nil {
		t.Fatalf("workbook failed: %v", err)
	}
	// XLSX files are zip archives.
	if !bytes.HasPrefix(buf.Bytes(), []byte("PK")) {
		t.Fatalf("workbook output is not a zip archive")
	}
}

func TestPDFHeader(t *testing.T) {
	data, err := PDF(testBundle())
	if err != nil {
		t.Fatalf("pdf failed: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("output does not start with a pdf header")
	}
}
