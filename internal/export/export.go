// Package export renders a financial report bundle as CSV, XLSX, or PDF for
// download. Layout follows the café's paper report: a summary block, then
// sales detail, then expenses detail.
package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"starose/backend/internal/domain"
)

const reportTitle = "Starose Cyber Café - Financial Report"

func dateRange(bundle domain.ExportBundle) string {
	return fmt.Sprintf("%s to %s", bundle.From.Format("2006-01-02"), bundle.To.Format("2006-01-02"))
}

func CSV(bundle domain.ExportBundle) string {
	lines := []string{
		csvField(reportTitle),
		"section,key,value",
		fmt.Sprintf("summary,date_range,%s", dateRange(bundle)),
		fmt.Sprintf("summary,total_sales,%s", bundle.TotalSales.String()),
		fmt.Sprintf("summary,gross_profit,%s", bundle.GrossProfit.String()),
		fmt.Sprintf("summary,total_expenses,%s", bundle.TotalExpenses.String()),
		fmt.Sprintf("summary,net_profit,%s", bundle.NetProfit.String()),
		"",
		"date,item_name,qty,price,total,profit",
	}
	for _, sale := range bundle.Sales {
		lines = append(lines, fmt.Sprintf("%s,%s,%d,%s,%s,%s",
			sale.Date.Format("2006-01-02"),
			csvField(sale.ItemName),
			sale.QuantitySold,
			sale.ActualSellingPrice.String(),
			sale.TotalSale.String(),
			sale.Profit.String(),
		))
	}
	lines = append(lines, "", "date,category,description,amount")
	for _, expense := range bundle.Expenses {
		lines = append(lines, fmt.Sprintf("%s,%s,%s,%s",
			expense.Date.Format("2006-01-02"),
			expense.Category,
			csvField(expense.Description),
			expense.Amount.String(),
		))
	}
	return strings.Join(lines, "\n") + "\n"
}

func csvField(val string) string {
	if strings.ContainsAny(val, ",\"\n") {
		return `"` + strings.ReplaceAll(val, `"`, `""`) + `"`
	}
	return val
}

func Workbook(bundle domain.ExportBundle) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	summary := "Summary"
	f.SetSheetName("Sheet1", summary)
	setRow := func(sheet string, row int, values ...any) error {
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		return f.SetSheetRow(sheet, cell, &values)
	}

	if err := setRow(summary, 1, reportTitle); err != nil {
		return nil, err
	}
	if err := setRow(summary, 2, "Date Range: "+dateRange(bundle)); err != nil {
		return nil, err
	}
	summaryRows := [][]any{
		{"Metric", "Amount (KES)"},
		{"Total Sales", bundle.TotalSales.InexactFloat64()},
		{"Gross Profit", bundle.GrossProfit.InexactFloat64()},
		{"Total Expenses", bundle.TotalExpenses.InexactFloat64()},
		{"Net Profit", bundle.NetProfit.InexactFloat64()},
	}
	for i, row := range summaryRows {
		if err := setRow(summary, 4+i, row...); err != nil {
			return nil, err
		}
	}

	sales := "Sales"
	if _, err := f.NewSheet(sales); err != nil {
		return nil, err
	}
	if err := setRow(sales, 1, "Date", "Item Name", "Qty", "Price", "Total", "Profit"); err != nil {
		return nil, err
	}
	for i, sale := range bundle.Sales {
		err := setRow(sales, 2+i,
			sale.Date.Format("2006-01-02"),
			sale.ItemName,
			sale.QuantitySold,
			sale.ActualSellingPrice.InexactFloat64(),
			sale.TotalSale.InexactFloat64(),
			sale.Profit.InexactFloat64(),
		)
		if err != nil {
			return nil, err
		}
	}

	expenses := "Expenses"
	if _, err := f.NewSheet(expenses); err != nil {
		return nil, err
	}
	if err := setRow(expenses, 1, "Date", "Category", "Description", "Amount"); err != nil {
		return nil, err
	}
	for i, expense := range bundle.Expenses {
		err := setRow(expenses, 2+i,
			expense.Date.Format("2006-01-02"),
			expense.Category,
			expense.Description,
			expense.Amount.InexactFloat64(),
		)
		if err != nil {
			return nil, err
		}
	}

	return f.WriteToBuffer()
}

func PDF(bundle domain.ExportBundle) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	// Core fonts are cp1252; the title's accented characters need translating.
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(0, 10, tr(reportTitle))
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, "Date Range: "+dateRange(bundle))
	pdf.Ln(10)

	pdfTable(pdf, []string{"Metric", "Amount (KES)"}, [][]string{
		{"Total Sales", bundle.TotalSales.StringFixed(2)},
		{"Gross Profit", bundle.GrossProfit.StringFixed(2)},
		{"Total Expenses", bundle.TotalExpenses.StringFixed(2)},
		{"Net Profit", bundle.NetProfit.StringFixed(2)},
	}, []float64{60, 60})

	pdf.AddPage()
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 8, "Sales Details")
	pdf.Ln(10)
	salesRows := make([][]string, 0, len(bundle.Sales))
	for _, sale := range bundle.Sales {
		salesRows = append(salesRows, []string{
			sale.Date.Format("2006-01-02"),
			sale.ItemName,
			fmt.Sprintf("%d", sale.QuantitySold),
			sale.ActualSellingPrice.StringFixed(2),
			sale.TotalSale.StringFixed(2),
			sale.Profit.StringFixed(2),
		})
	}
	pdfTable(pdf, []string{"Date", "Item", "Qty", "Price", "Total", "Profit"}, salesRows,
		[]float64{25, 60, 15, 25, 30, 30})

	pdf.AddPage()
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 8, "Expenses Details")
	pdf.Ln(10)
	expenseRows := make([][]string, 0, len(bundle.Expenses))
	for _, expense := range bundle.Expenses {
		expenseRows = append(expenseRows, []string{
			expense.Date.Format("2006-01-02"),
			expense.Category,
			expense.Description,
			expense.Amount.StringFixed(2),
		})
	}
	pdfTable(pdf, []string{"Date", "Category", "Description", "Amount"}, expenseRows,
		[]float64{25, 30, 95, 30})

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func pdfTable(pdf *gofpdf.Fpdf, header []string, rows [][]string, widths []float64) {
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFont("Arial", "B", 9)
	for i, cell := range header {
		pdf.CellFormat(widths[i], 7, tr(cell), "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 9)
	for _, row := range rows {
		for i, cell := range row {
			pdf.CellFormat(widths[i], 6, tr(cell), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
}
