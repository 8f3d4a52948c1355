// Package xlsx persists the consent ledger in a spreadsheet workbook, matching
// the layout operators already use: one "Consents" sheet with a fixed header
// row and one row per consent event.
package xlsx

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"

	"consentbot/internal/models"
	"consentbot/internal/storage"
)

const (
	sheetName       = "Consents"
	timestampLayout = "2006-01-02 15:04:05"
)

var headerRow = []interface{}{"Timestamp", "User ID", "Username", "First name", "Last name", "Status"}

var columnWidths = []float64{20, 15, 25, 20, 20, 15}

// XLSXLedger stores consent events in an .xlsx workbook on disk.
// The workbook is created with its header on first use.
type XLSXLedger struct {
	mu       sync.Mutex
	path     string
	strategy storage.Strategy
}

// NewXLSXLedger creates a ledger backed by the workbook at path
func NewXLSXLedger(path string, strategy storage.Strategy) *XLSXLedger {
	return &XLSXLedger{path: path, strategy: strategy}
}

// Initialize creates the workbook with its header row if it does not exist yet
func (l *XLSXLedger) Initialize(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.initIfNeeded()
}

func (l *XLSXLedger) initIfNeeded() error {
	if _, err := os.Stat(l.path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: failed to stat workbook: %v", storage.ErrStorage, err)
	}
	return l.writeWorkbook(nil)
}

// newWorkbook builds an empty workbook with the header row and column widths
func newWorkbook() (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(sheetName, "A1", &headerRow); err != nil {
		return nil, err
	}
	for i, width := range columnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(sheetName, col, col, width); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// writeWorkbook replaces the workbook on disk with a header plus the given rows
func (l *XLSXLedger) writeWorkbook(events []models.ConsentEvent) error {
	f, err := newWorkbook()
	if err != nil {
		return fmt.Errorf("%w: failed to build workbook: %v", storage.ErrStorage, err)
	}
	defer f.Close()

	for i, event := range events {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("%w: %v", storage.ErrStorage, err)
		}
		if err := f.SetSheetRow(sheetName, cell, eventRow(event)); err != nil {
			return fmt.Errorf("%w: failed to write row: %v", storage.ErrStorage, err)
		}
	}

	if err := f.SaveAs(l.path); err != nil {
		return fmt.Errorf("%w: failed to save workbook: %v", storage.ErrStorage, err)
	}
	return nil
}

func eventRow(event models.ConsentEvent) *[]interface{} {
	row := []interface{}{
		event.Timestamp.Format(timestampLayout),
		strconv.FormatInt(event.User.ID, 10),
		event.User.Username,
		event.User.FirstName,
		event.User.LastName,
		string(event.Status),
	}
	return &row
}

// loadRows reads all data rows from the workbook, skipping the header.
// A missing workbook yields no rows.
func (l *XLSXLedger) loadRows() ([][]string, error) {
	if _, err := os.Stat(l.path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	f, err := excelize.OpenFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open workbook: %v", storage.ErrStorage, err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read rows: %v", storage.ErrStorage, err)
	}
	if len(rows) <= 1 {
		return nil, nil
	}
	return rows[1:], nil
}

// parseRow converts a stored row back into an event.
// Returns false for malformed rows (bad user id, timestamp or status) so
// callers skip them instead of failing.
func parseRow(row []string) (models.ConsentEvent, bool) {
	if len(row) < 6 {
		return models.ConsentEvent{}, false
	}
	ts, err := time.ParseInLocation(timestampLayout, row[0], time.Local)
	if err != nil {
		return models.ConsentEvent{}, false
	}
	userID, err := strconv.ParseInt(row[1], 10, 64)
	if err != nil {
		return models.ConsentEvent{}, false
	}
	status, ok := models.ParseStatus(row[5])
	if !ok {
		return models.ConsentEvent{}, false
	}
	return models.ConsentEvent{
		Timestamp: ts,
		User: models.User{
			ID:        userID,
			Username:  row[2],
			FirstName: row[3],
			LastName:  row[4],
		},
		Status: status,
	}, true
}

// CurrentStatus returns the status of the last row for the user, or nil if none
func (l *XLSXLedger) CurrentStatus(ctx context.Context, userID int64) (*models.Status, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rows, err := l.loadRows()
	if err != nil {
		return nil, err
	}

	var current *models.Status
	for _, row := range rows {
		event, ok := parseRow(row)
		if !ok || event.User.ID != userID {
			continue
		}
		status := event.Status
		current = &status
	}
	return current, nil
}

// Record persists a new event, rewriting prior rows for the user away when the
// replace strategy is configured
func (l *XLSXLedger) Record(ctx context.Context, event models.ConsentEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.initIfNeeded(); err != nil {
		return err
	}

	rows, err := l.loadRows()
	if err != nil {
		return err
	}

	var kept []models.ConsentEvent
	for _, row := range rows {
		existing, ok := parseRow(row)
		if !ok {
			continue
		}
		if l.strategy == storage.StrategyReplace && existing.User.ID == event.User.ID {
			continue
		}
		kept = append(kept, existing)
	}
	kept = append(kept, event)

	return l.writeWorkbook(kept)
}

// Export returns events in ledger order, optionally filtered by a closed date interval
func (l *XLSXLedger) Export(ctx context.Context, filter *models.DateRange) ([]models.ConsentEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rows, err := l.loadRows()
	if err != nil {
		return nil, err
	}

	events := make([]models.ConsentEvent, 0, len(rows))
	for _, row := range rows {
		event, ok := parseRow(row)
		if !ok {
			continue
		}
		if filter != nil && !filter.Contains(event.Timestamp) {
			continue
		}
		events = append(events, event)
	}
	return events, nil
}

// Clear removes all rows, or only rows for one user when userID is non-nil.
// The header row is rewritten either way.
func (l *XLSXLedger) Clear(ctx context.Context, userID *int64) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rows, err := l.loadRows()
	if err != nil {
		return 0, err
	}

	removed := 0
	var kept []models.ConsentEvent
	for _, row := range rows {
		event, ok := parseRow(row)
		if !ok {
			removed++
			continue
		}
		if userID == nil || event.User.ID == *userID {
			removed++
			continue
		}
		kept = append(kept, event)
	}

	if err := l.writeWorkbook(kept); err != nil {
		return 0, err
	}
	return removed, nil
}

// Close does nothing, the workbook is not held open between operations
func (l *XLSXLedger) Close() error {
	return nil
}
