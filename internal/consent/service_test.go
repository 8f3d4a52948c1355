package consent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"go.uber.org/zap"

	"consentbot/internal/models"
	"consentbot/internal/storage"
	"consentbot/internal/storage/stubs"
)

// failingLedger reports a storage failure on every operation
type failingLedger struct{}

func (failingLedger) CurrentStatus(ctx context.Context, userID int64) (*models.Status, error) {
	return nil, fmt.Errorf("%w: disk on fire", storage.ErrStorage)
}

func (failingLedger) Record(ctx context.Context, event models.ConsentEvent) error {
	return fmt.Errorf("%w: disk on fire", storage.ErrStorage)
}

func (failingLedger) Export(ctx context.Context, filter *models.DateRange) ([]models.ConsentEvent, error) {
	return nil, fmt.Errorf("%w: disk on fire", storage.ErrStorage)
}

func (failingLedger) Clear(ctx context.Context, userID *int64) (int, error) {
	return 0, fmt.Errorf("%w: disk on fire", storage.ErrStorage)
}

func (failingLedger) Initialize(ctx context.Context) error { return nil }
func (failingLedger) Close() error                         { return nil }

func TestService_SubmitRecordsFirstChoice(t *testing.T) {
	ledger := stubs.NewMockLedger(storage.StrategyAppend)
	service := NewService(ledger, true, zap.NewNop())
	ctx := context.Background()

	user := models.User{ID: 42, FirstName: "Иван"}
	outcome, err := service.Submit(ctx, user, models.StatusAgreed)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if !outcome.Decision.Allowed {
		t.Fatalf("Submit() rejected, want allowed")
	}
	if outcome.Event.Status != models.StatusAgreed {
		t.Errorf("Submit() recorded status = %s, want %s", outcome.Event.Status, models.StatusAgreed)
	}

	events, err := ledger.Export(ctx, nil)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("Export() returned %d events, want 1", len(events))
	}
	if events[0].User.ID != 42 {
		t.Errorf("recorded user id = %d, want 42", events[0].User.ID)
	}
}

func TestService_AgreedIsTerminal(t *testing.T) {
	ledger := stubs.NewMockLedger(storage.StrategyAppend)
	service := NewService(ledger, true, zap.NewNop())
	ctx := context.Background()

	user := models.User{ID: 42}
	if _, err := service.Submit(ctx, user, models.StatusAgreed); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	outcome, err := service.Submit(ctx, user, models.StatusDeclined)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if outcome.Decision.Allowed {
		t.Fatal("expected rejected transition after Agreed")
	}
	if outcome.Decision.Reason != ReasonAlreadyAgreed {
		t.Errorf("reason = %s, want %s", outcome.Decision.Reason, ReasonAlreadyAgreed)
	}
	if outcome.Prior == nil || *outcome.Prior != models.StatusAgreed {
		t.Errorf("prior = %v, want Agreed", outcome.Prior)
	}

	// Ledger unchanged
	events, _ := ledger.Export(ctx, nil)
	if len(events) != 1 {
		t.Fatalf("ledger has %d events after rejection, want 1", len(events))
	}
}

func TestService_DeclinedMayReconsider(t *testing.T) {
	ledger := stubs.NewMockLedger(storage.StrategyAppend)
	service := NewService(ledger, true, zap.NewNop())
	ctx := context.Background()

	user := models.User{ID: 7}
	if _, err := service.Submit(ctx, user, models.StatusDeclined); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	outcome, err := service.Submit(ctx, user, models.StatusAgreed)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if !outcome.Decision.Allowed {
		t.Fatalf("Declined->Agreed rejected with allow_reconsider on: %s", outcome.Decision.Reason)
	}

	status, _ := ledger.CurrentStatus(ctx, 7)
	if status == nil || *status != models.StatusAgreed {
		t.Errorf("current status = %v, want Agreed", status)
	}
}

func TestService_ReconsiderDisabled(t *testing.T) {
	ledger := stubs.NewMockLedger(storage.StrategyAppend)
	service := NewService(ledger, false, zap.NewNop())
	ctx := context.Background()

	user := models.User{ID: 7}
	if _, err := service.Submit(ctx, user, models.StatusDeclined); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	outcome, err := service.Submit(ctx, user, models.StatusAgreed)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if outcome.Decision.Allowed {
		t.Fatal("Declined->Agreed allowed with allow_reconsider off")
	}
	if outcome.Decision.Reason != ReasonReconsiderDisabled {
		t.Errorf("reason = %s, want %s", outcome.Decision.Reason, ReasonReconsiderDisabled)
	}
}

func TestService_StorageFailureSurfaces(t *testing.T) {
	service := NewService(failingLedger{}, true, zap.NewNop())

	_, err := service.Submit(context.Background(), models.User{ID: 1}, models.StatusAgreed)
	if err == nil {
		t.Fatal("Submit() error = nil, want storage error")
	}
	if !errors.Is(err, storage.ErrStorage) {
		t.Errorf("Submit() error = %v, want wrapped ErrStorage", err)
	}
}

// Concurrent submissions from the same user must pass the state machine at
// most once: the read and write run inside one critical section.
func TestService_ConcurrentSameUserSubmissions(t *testing.T) {
	ledger := stubs.NewMockLedger(storage.StrategyAppend)
	service := NewService(ledger, true, zap.NewNop())
	ctx := context.Background()

	user := models.User{ID: 99}
	const workers = 16

	var wg sync.WaitGroup
	allowed := make(chan struct{}, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome, err := service.Submit(ctx, user, models.StatusAgreed)
			if err != nil {
				t.Errorf("Submit() error = %v", err)
				return
			}
			if outcome.Decision.Allowed {
				allowed <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(allowed)

	allowedCount := 0
	for range allowed {
		allowedCount++
	}
	if allowedCount != 1 {
		t.Errorf("%d submissions passed the state machine, want exactly 1", allowedCount)
	}

	events, _ := ledger.Export(ctx, nil)
	if len(events) != 1 {
		t.Errorf("ledger has %d rows, want 1", len(events))
	}
}
