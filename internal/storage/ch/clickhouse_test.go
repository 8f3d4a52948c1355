package ch

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clickhouseTC "github.com/testcontainers/testcontainers-go/modules/clickhouse"

	"consentbot/internal/models"
	"consentbot/internal/storage"
)

// runMigrations manually creates the consents table for tests
func runMigrations(ctx context.Context, db *ClickHouseLedger) error {
	_ = db.conn.Exec(ctx, "DROP TABLE IF EXISTS consents")

	return db.conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS consents (
			ts DateTime,
			user_id Int64,
			username String,
			first_name String,
			last_name String,
			status String
		) ENGINE = MergeTree()
		ORDER BY (user_id, ts)
	`)
}

// setupTestLedger creates a test ClickHouse instance using testcontainers
func setupTestLedger(t *testing.T, strategy storage.Strategy) (*ClickHouseLedger, func()) {
	ctx := context.Background()

	container, err := clickhouseTC.Run(ctx,
		"clickhouse/clickhouse-server:latest",
		clickhouseTC.WithUsername("default"),
		clickhouseTC.WithPassword("testpassword"),
		clickhouseTC.WithDatabase("default"),
	)
	require.NoError(t, err, "failed to start ClickHouse container")

	host, err := container.Host(ctx)
	require.NoError(t, err)

	mappedPort, err := container.MappedPort(ctx, "9000/tcp")
	require.NoError(t, err)

	port, err := strconv.Atoi(mappedPort.Port())
	require.NoError(t, err)

	ledger, err := NewClickHouseLedger(host, port, "default", "default", "testpassword", false, strategy)
	require.NoError(t, err, "failed to connect to ClickHouse")

	require.NoError(t, runMigrations(ctx, ledger), "failed to run migrations")

	cleanup := func() {
		ledger.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}
	return ledger, cleanup
}

func makeEvent(ts time.Time, userID int64, status models.Status) models.ConsentEvent {
	return models.ConsentEvent{
		Timestamp: ts,
		User: models.User{
			ID:        userID,
			Username:  "user" + strconv.FormatInt(userID, 10),
			FirstName: "Иван",
			LastName:  "Петров",
		},
		Status: status,
	}
}

func TestClickHouseLedger_RecordAndCurrentStatus(t *testing.T) {
	ledger, cleanup := setupTestLedger(t, storage.StrategyAppend)
	defer cleanup()
	ctx := context.Background()

	status, err := ledger.CurrentStatus(ctx, 42)
	require.NoError(t, err)
	assert.Nil(t, status, "unknown user should have no status")

	base := time.Now().Truncate(time.Second)
	require.NoError(t, ledger.Record(ctx, makeEvent(base, 42, models.StatusDeclined)))
	require.NoError(t, ledger.Record(ctx, makeEvent(base.Add(time.Minute), 42, models.StatusAgreed)))

	status, err = ledger.CurrentStatus(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Equal(t, models.StatusAgreed, *status, "last row wins")
}

func TestClickHouseLedger_ExportAndDateRange(t *testing.T) {
	ledger, cleanup := setupTestLedger(t, storage.StrategyAppend)
	defer cleanup()
	ctx := context.Background()

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, ledger.Record(ctx, makeEvent(base.AddDate(0, 0, i), int64(i+1), models.StatusAgreed)))
	}

	events, err := ledger.Export(ctx, nil)
	require.NoError(t, err)
	require.Len(t, events, 5)

	filter := &models.DateRange{From: base.AddDate(0, 0, 1), To: base.AddDate(0, 0, 3)}
	events, err = ledger.Export(ctx, filter)
	require.NoError(t, err)
	require.Len(t, events, 3, "closed interval includes both boundaries")
	assert.Equal(t, int64(2), events[0].User.ID)
	assert.Equal(t, int64(4), events[2].User.ID)
}

func TestClickHouseLedger_ReplaceStrategy(t *testing.T) {
	ledger, cleanup := setupTestLedger(t, storage.StrategyReplace)
	defer cleanup()
	ctx := context.Background()

	base := time.Now().Truncate(time.Second)
	require.NoError(t, ledger.Record(ctx, makeEvent(base, 1, models.StatusDeclined)))
	require.NoError(t, ledger.Record(ctx, makeEvent(base.Add(time.Minute), 1, models.StatusAgreed)))

	events, err := ledger.Export(ctx, nil)
	require.NoError(t, err)
	require.Len(t, events, 1, "replace strategy keeps at most one row per user")
	assert.Equal(t, models.StatusAgreed, events[0].Status)
}

func TestClickHouseLedger_Clear(t *testing.T) {
	ledger, cleanup := setupTestLedger(t, storage.StrategyAppend)
	defer cleanup()
	ctx := context.Background()

	base := time.Now().Truncate(time.Second)
	require.NoError(t, ledger.Record(ctx, makeEvent(base, 42, models.StatusAgreed)))
	require.NoError(t, ledger.Record(ctx, makeEvent(base.Add(time.Minute), 42, models.StatusAgreed)))
	require.NoError(t, ledger.Record(ctx, makeEvent(base, 7, models.StatusDeclined)))

	userID := int64(42)
	removed, err := ledger.Clear(ctx, &userID)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	events, err := ledger.Export(ctx, nil)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, int64(7), events[0].User.ID)

	removed, err = ledger.Clear(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	events, err = ledger.Export(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, events)
}
