package importer

import (
	"fmt"
	"io"

	"pawnshop-service/internal/models"

	"github.com/xuri/excelize/v2"
)

const inventorySheet = "Inventory"

// built-in excelize number formats
const (
	numFmtMoney   = 4  // #,##0.00
	numFmtPercent = 10 // 0.00%
)

// WriteXLSX writes the items as a single-sheet workbook with the same
// columns as the delimited export.
func WriteXLSX(w io.Writer, items []models.Item) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", inventorySheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: numFmtMoney})
	if err != nil {
		return fmt.Errorf("failed to create money style: %w", err)
	}
	percentStyle, err := f.NewStyle(&excelize.Style{NumFmt: numFmtPercent})
	if err != nil {
		return fmt.Errorf("failed to create percent style: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for i, h := range Headers() {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(inventorySheet, cell, h)
		_ = f.SetCellStyle(inventorySheet, cell, cell, headerStyle)
	}

	for r := range items {
		rowNum := r + 2
		for c, col := range exportColumns {
			cell, _ := excelize.CoordinatesToCellName(c+1, rowNum)
			switch v := col.value(&items[r]).(type) {
			case nil:
				continue
			case float64:
				style := moneyStyle
				if col.format == marginFormat {
					v /= 100
					style = percentStyle
				}
				_ = f.SetCellValue(inventorySheet, cell, v)
				_ = f.SetCellStyle(inventorySheet, cell, cell, style)
			default:
				_ = f.SetCellValue(inventorySheet, cell, v)
			}
		}
	}

	_ = f.SetColWidth(inventorySheet, "A", "B", 12)
	_ = f.SetColWidth(inventorySheet, "C", "C", 32)
	_ = f.SetColWidth(inventorySheet, "D", "F", 16)
	_ = f.SetColWidth(inventorySheet, "G", "G", 48)
	_ = f.SetColWidth(inventorySheet, "H", "Q", 14)
	_ = f.SetColWidth(inventorySheet, "R", "R", 80)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
