package importer

import (
	"time"

	"pawnshop-service/internal/models"
)

// ProgressFunc receives the 1-based row being processed and the row total
type ProgressFunc func(current, total int)

// Result is the outcome of parsing an import file
type Result struct {
	Items   []models.Item `json:"items"`
	Skipped int           `json:"skipped"`
	Total   int           `json:"total"`
}

// Parse converts delimited import text into new items. Header rows and
// rows with too few fields are skipped and counted, never reported as errors.
func Parse(text string, now time.Time, onProgress ProgressFunc) *Result {
	records := SplitRecords(text)
	result := &Result{
		Items: make([]models.Item, 0, len(records)),
		Total: len(records),
	}

	for i, fields := range records {
		if onProgress != nil {
			onProgress(i+1, len(records))
		}

		row := ParseRow(fields)
		if row == nil {
			result.Skipped++
			continue
		}
		result.Items = append(result.Items, ToItem(*row, now))
	}

	return result
}
