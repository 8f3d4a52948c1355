package ch

import (
	"context"
	"crypto/tls"
	"fmt"

	"consentbot/internal/models"
	"consentbot/internal/storage"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// ClickHouseLedger stores consent events in a ClickHouse table.
// The schema is managed via goose migrations (see migrations/ directory).
type ClickHouseLedger struct {
	conn     clickhouse.Conn
	strategy storage.Strategy
}

// NewClickHouseLedger creates a new ClickHouse-backed ledger
func NewClickHouseLedger(host string, port int, database, user, password string, useTLS bool, strategy storage.Strategy) (*ClickHouseLedger, error) {
	addr := fmt.Sprintf("%s:%d", host, port)

	options := &clickhouse.Options{
		Addr:     []string{addr},
		Protocol: clickhouse.Native,
		Auth: clickhouse.Auth{
			Database: database,
			Username: user,
			Password: password,
		},
	}

	if useTLS {
		options.TLS = &tls.Config{
			InsecureSkipVerify: false,
		}
	}

	conn, err := clickhouse.Open(options)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to ClickHouse: %v", storage.ErrStorage, err)
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("%w: failed to ping ClickHouse: %v", storage.ErrStorage, err)
	}

	return &ClickHouseLedger{conn: conn, strategy: strategy}, nil
}

// Initialize is a no-op - the consents table is managed via migrations
func (db *ClickHouseLedger) Initialize(ctx context.Context) error {
	return nil
}

// CurrentStatus returns the status of the latest row for the user, or nil if none
func (db *ClickHouseLedger) CurrentStatus(ctx context.Context, userID int64) (*models.Status, error) {
	rows, err := db.conn.Query(ctx,
		`SELECT status FROM consents WHERE user_id = ? ORDER BY ts DESC LIMIT 1`, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query current status: %v", storage.ErrStorage, err)
	}
	defer rows.Close()

	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("%w: failed to scan status: %v", storage.ErrStorage, err)
		}
		status, ok := models.ParseStatus(raw)
		if !ok {
			// Unknown status value in an old row, treat as no record
			continue
		}
		return &status, nil
	}
	return nil, nil
}

// Record inserts a new consent event, replacing prior rows for the user when
// the replace strategy is configured
func (db *ClickHouseLedger) Record(ctx context.Context, event models.ConsentEvent) error {
	if db.strategy == storage.StrategyReplace {
		err := db.conn.Exec(ctx, `DELETE FROM consents WHERE user_id = ?`, event.User.ID)
		if err != nil {
			return fmt.Errorf("%w: failed to delete prior rows: %v", storage.ErrStorage, err)
		}
	}

	err := db.conn.Exec(ctx,
		`INSERT INTO consents (ts, user_id, username, first_name, last_name, status) VALUES (?, ?, ?, ?, ?, ?)`,
		event.Timestamp, event.User.ID, event.User.Username, event.User.FirstName, event.User.LastName, string(event.Status))
	if err != nil {
		return fmt.Errorf("%w: failed to record consent event: %v", storage.ErrStorage, err)
	}
	return nil
}

// Export returns consent events in ledger order, optionally filtered by a
// closed date interval
func (db *ClickHouseLedger) Export(ctx context.Context, filter *models.DateRange) ([]models.ConsentEvent, error) {
	query := `SELECT ts, user_id, username, first_name, last_name, status FROM consents`
	var args []interface{}
	if filter != nil {
		query += ` WHERE ts >= ? AND ts <= ?`
		args = append(args, filter.From, filter.To)
	}
	query += ` ORDER BY ts`

	rows, err := db.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to export consents: %v", storage.ErrStorage, err)
	}
	defer rows.Close()

	events := make([]models.ConsentEvent, 0)
	for rows.Next() {
		var event models.ConsentEvent
		var raw string
		if err := rows.Scan(&event.Timestamp, &event.User.ID, &event.User.Username,
			&event.User.FirstName, &event.User.LastName, &raw); err != nil {
			return nil, fmt.Errorf("%w: failed to scan consent event: %v", storage.ErrStorage, err)
		}
		status, ok := models.ParseStatus(raw)
		if !ok {
			continue
		}
		event.Status = status
		events = append(events, event)
	}
	return events, nil
}

// Clear removes all rows, or only rows for one user when userID is non-nil,
// and returns the number of rows removed
func (db *ClickHouseLedger) Clear(ctx context.Context, userID *int64) (int, error) {
	countQuery := `SELECT count() FROM consents`
	deleteQuery := `DELETE FROM consents`
	var args []interface{}
	if userID != nil {
		countQuery += ` WHERE user_id = ?`
		deleteQuery += ` WHERE user_id = ?`
		args = append(args, *userID)
	} else {
		deleteQuery += ` WHERE 1 = 1`
	}

	var count uint64
	if err := db.conn.QueryRow(ctx, countQuery, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: failed to count rows: %v", storage.ErrStorage, err)
	}

	if err := db.conn.Exec(ctx, deleteQuery, args...); err != nil {
		return 0, fmt.Errorf("%w: failed to clear consents: %v", storage.ErrStorage, err)
	}
	return int(count), nil
}

// Close closes the database connection
func (db *ClickHouseLedger) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}
