package importer

import (
	"fmt"
	"io"
	"strings"

	"pawnshop-service/internal/models"
)

const (
	moneyFormat  = "%.2f"
	marginFormat = "%.1f%%"
)

type column struct {
	header string
	format string
	value  func(*models.Item) any
}

var exportColumns = []column{
	{header: "Item ID", value: func(i *models.Item) any { return i.ItemID }},
	{header: "Date", value: func(i *models.Item) any { return i.TransactionDate.Format(DateLayout) }},
	{header: "Item Name", value: func(i *models.Item) any { return i.ItemName }},
	{header: "Category", value: func(i *models.Item) any { return string(i.Category) }},
	{header: "Brand", value: func(i *models.Item) any { return i.Brand }},
	{header: "Model", value: func(i *models.Item) any { return i.Model }},
	{header: "Description", value: func(i *models.Item) any { return i.Description }},
	{header: "Transaction Type", value: func(i *models.Item) any { return string(i.TransactionType) }},
	{header: "Purchase Price", format: moneyFormat, value: func(i *models.Item) any { return i.PurchasePrice }},
	{header: "Market Value", format: moneyFormat, value: func(i *models.Item) any { return optional(i.MarketValue) }},
	{header: "Suggested Loan", format: moneyFormat, value: func(i *models.Item) any { return optional(i.SuggestedLoanAmount) }},
	{header: "eBay Avg Price", format: moneyFormat, value: func(i *models.Item) any { return optional(i.EbayAveragePrice) }},
	{header: "Authenticity", value: func(i *models.Item) any { return string(i.AuthenticityStatus) }},
	{header: "Condition", value: func(i *models.Item) any { return string(i.Condition) }},
	{header: "Status", value: func(i *models.Item) any { return string(i.Status) }},
	{header: "Profit", format: moneyFormat, value: func(i *models.Item) any { return optional(i.Profit) }},
	{header: "Profit Margin", format: marginFormat, value: func(i *models.Item) any { return optional(i.ProfitMargin) }},
	{header: "AI Analysis", value: func(i *models.Item) any { return i.AIAnalysis }},
}

// Headers returns the export column headers in order
func Headers() []string {
	headers := make([]string, len(exportColumns))
	for i, col := range exportColumns {
		headers[i] = col.header
	}
	return headers
}

// WriteCSV writes the items as delimited text with a header row
func WriteCSV(w io.Writer, items []models.Item) error {
	if _, err := io.WriteString(w, strings.Join(Headers(), ",")+"\n"); err != nil {
		return fmt.Errorf("failed to write export header: %w", err)
	}

	for i := range items {
		if _, err := io.WriteString(w, strings.Join(csvRow(&items[i]), ",")+"\n"); err != nil {
			return fmt.Errorf("failed to write export row %d: %w", i+1, err)
		}
	}
	return nil
}

// ExportCSV renders the items as delimited text
func ExportCSV(items []models.Item) string {
	var sb strings.Builder
	_ = WriteCSV(&sb, items)
	return sb.String()
}

func csvRow(item *models.Item) []string {
	row := make([]string, len(exportColumns))
	for i, col := range exportColumns {
		switch v := col.value(item).(type) {
		case nil:
			row[i] = ""
		case float64:
			row[i] = fmt.Sprintf(col.format, v)
		case string:
			row[i] = EscapeField(v)
		}
	}
	return row
}

// EscapeField quotes a field that contains a delimiter, quote or line
// break, doubling any embedded quotes.
func EscapeField(s string) string {
	if !strings.ContainsAny(s, ",\"\r\n") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func optional(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
