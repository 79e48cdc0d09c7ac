package importer

import (
	"strings"
	"time"

	"pawnshop-service/internal/models"

	"github.com/shopspring/decimal"
)

// DateLayout is the MM/dd/yyyy format written by exports
const DateLayout = "01/02/2006"

// lenient form of DateLayout that also accepts single-digit month and day
const parseLayout = "1/2/2006"

const minFields = 4

// SplitRecords splits delimited text into records of trimmed fields.
// A quote toggles quoted mode, inside which commas and line breaks are
// literal and a doubled quote is an escaped quote. Blank lines are dropped.
func SplitRecords(text string) [][]string {
	var (
		records  [][]string
		fields   []string
		field    strings.Builder
		inQuotes bool
		touched  bool
	)

	endField := func() {
		fields = append(fields, strings.TrimSpace(field.String()))
		field.Reset()
	}
	endRecord := func() {
		if touched {
			endField()
			records = append(records, fields)
		}
		fields = nil
		field.Reset()
		touched = false
	}

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch {
		case c == '"':
			touched = true
			if inQuotes && i+1 < len(runes) && runes[i+1] == '"' {
				field.WriteRune('"')
				i++
				continue
			}
			inQuotes = !inQuotes
		case c == ',' && !inQuotes:
			touched = true
			endField()
		case (c == '\n' || c == '\r') && !inQuotes:
			endRecord()
		default:
			if c != ' ' && c != '\t' {
				touched = true
			}
			field.WriteRune(c)
		}
	}
	endRecord()

	return records
}

// SplitRow splits a single delimited line into trimmed fields
func SplitRow(line string) []string {
	records := SplitRecords(line)
	if len(records) == 0 {
		return nil
	}
	return records[0]
}

// ParseRow maps the fields of one record onto an ImportRow. It returns nil
// for a header row or a row with fewer than four fields.
func ParseRow(fields []string) *models.ImportRow {
	if len(fields) == 0 || strings.Contains(strings.ToLower(fields[0]), "ticket") {
		return nil
	}
	if len(fields) < minFields {
		return nil
	}

	row := &models.ImportRow{
		TicketNumber:    fields[0],
		Date:            parseDate(fields[1]),
		CustomerName:    fields[2],
		ItemDescription: fields[3],
	}
	if len(fields) > 4 {
		row.LoanAmount = ParseMoney(fields[4])
	}
	if len(fields) > 5 {
		row.InterestRate = parseAmount(strings.ReplaceAll(fields[5], "%", ""))
	}
	if len(fields) > 6 {
		row.DueDate = parseDate(fields[6])
	}
	if len(fields) > 7 {
		row.Status = fields[7]
	}

	return row
}

// ParseMoney strips currency symbols and thousands separators. Anything
// that is not a plain number after stripping yields nil.
func ParseMoney(s string) *float64 {
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	return parseAmount(s)
}

func parseAmount(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	v := d.InexactFloat64()
	return &v
}

func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	t, err := time.ParseInLocation(parseLayout, s, time.Local)
	if err != nil {
		return nil
	}
	return &t
}
