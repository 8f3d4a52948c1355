package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"consentbot/internal/models"
)

func TestWorkbook_RoundTrip(t *testing.T) {
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.Local)
	events := []models.ConsentEvent{
		{
			Timestamp: base,
			User:      models.User{ID: 42, Username: "ivan", FirstName: "Иван", LastName: "Петров"},
			Status:    models.StatusAgreed,
		},
		{
			Timestamp: base.Add(time.Hour),
			User:      models.User{ID: 7},
			Status:    models.StatusDeclined,
		},
	}

	out, err := Workbook(events)
	if err != nil {
		t.Fatalf("Workbook() error = %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output is not a readable workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		t.Fatalf("failed to read rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("workbook has %d rows, want header + 2", len(rows))
	}
	if rows[0][1] != "User ID" {
		t.Errorf("unexpected header: %v", rows[0])
	}
	if rows[1][1] != "42" || rows[1][5] != "Agreed" {
		t.Errorf("unexpected first data row: %v", rows[1])
	}
	if rows[2][1] != "7" || rows[2][5] != "Declined" {
		t.Errorf("unexpected second data row: %v", rows[2])
	}
	// Optional display fields default to empty cells, not a missing row
	if rows[1][3] != "Иван" {
		t.Errorf("first name not preserved: %v", rows[1])
	}
}

func TestWorkbook_Empty(t *testing.T) {
	out, err := Workbook(nil)
	if err != nil {
		t.Fatalf("Workbook() error = %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output is not a readable workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		t.Fatalf("failed to read rows: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("empty workbook has %d rows, want header only", len(rows))
	}
}
