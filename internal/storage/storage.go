package storage

import (
	"context"
	"errors"

	"consentbot/internal/models"
)

// ErrStorage marks ledger I/O failures. Callers treat a wrapped ErrStorage as
// "the consent event was not recorded"; the storage layer never retries.
var ErrStorage = errors.New("ledger storage error")

// Strategy selects how Record persists a new event
type Strategy string

const (
	// StrategyAppend keeps full history; the current status is the last row per user
	StrategyAppend Strategy = "append"
	// StrategyReplace deletes prior rows for the user before inserting, so at
	// most one row per user exists at any time
	StrategyReplace Strategy = "replace"
)

// ParseStrategy validates a configured strategy string
func ParseStrategy(s string) (Strategy, bool) {
	switch Strategy(s) {
	case StrategyAppend, StrategyReplace:
		return Strategy(s), true
	}
	return "", false
}

// Ledger defines the interface for consent ledger operations
type Ledger interface {
	// CurrentStatus returns the status of the most recent row for the user,
	// or nil if the user has no prior record. Rows with malformed user id or
	// status cells are skipped, not reported as errors.
	CurrentStatus(ctx context.Context, userID int64) (*models.Status, error)

	// Record persists a new event according to the configured strategy.
	// The ledger header/schema is initialized before the first write.
	Record(ctx context.Context, event models.ConsentEvent) error

	// Export returns events optionally restricted to a closed date interval
	// (boundary timestamps included), in ledger order. Returns an empty slice
	// when nothing matches.
	Export(ctx context.Context, filter *models.DateRange) ([]models.ConsentEvent, error)

	// Clear removes all rows, or only rows for one user when userID is non-nil,
	// and returns the number of rows removed. The header schema survives a
	// full clear.
	Clear(ctx context.Context, userID *int64) (int, error)

	// Lifecycle
	Initialize(ctx context.Context) error
	Close() error
}
