// Package report builds the downloadable spreadsheet export of the consent
// ledger for administrators.
package report

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"consentbot/internal/models"
)

const sheetName = "Consents"

var header = []interface{}{"Timestamp", "User ID", "Username", "First name", "Last name", "Status"}

var columnWidths = []float64{20, 15, 25, 20, 20, 15}

// Workbook renders the events as an xlsx workbook, one row per event in the
// given order, and returns the file bytes
func Workbook(events []models.ConsentEvent) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	for i, width := range columnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve column: %w", err)
		}
		if err := f.SetColWidth(sheetName, col, col, width); err != nil {
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, event := range events {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve cell: %w", err)
		}
		row := []interface{}{
			event.Timestamp.Format("2006-01-02 15:04:05"),
			strconv.FormatInt(event.User.ID, 10),
			event.User.Username,
			event.User.FirstName,
			event.User.LastName,
			string(event.Status),
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}
