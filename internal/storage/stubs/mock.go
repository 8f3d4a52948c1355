package stubs

import (
	"context"
	"sync"

	"consentbot/internal/models"
	"consentbot/internal/storage"
)

// MockLedger is an in-memory implementation of the Ledger interface for
// testing and local development
type MockLedger struct {
	mu       sync.RWMutex
	events   []models.ConsentEvent
	strategy storage.Strategy
}

// NewMockLedger creates a new in-memory ledger
func NewMockLedger(strategy storage.Strategy) *MockLedger {
	return &MockLedger{
		events:   make([]models.ConsentEvent, 0),
		strategy: strategy,
	}
}

// Initialize does nothing, the in-memory ledger starts empty
func (m *MockLedger) Initialize(ctx context.Context) error {
	return nil
}

// CurrentStatus returns the status of the last event for the user, or nil if none
func (m *MockLedger) CurrentStatus(ctx context.Context, userID int64) (*models.Status, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var current *models.Status
	for _, event := range m.events {
		if event.User.ID != userID {
			continue
		}
		status := event.Status
		current = &status
	}
	return current, nil
}

// Record appends a new event, dropping prior rows for the user first when the
// replace strategy is configured
func (m *MockLedger) Record(ctx context.Context, event models.ConsentEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.strategy == storage.StrategyReplace {
		kept := m.events[:0]
		for _, existing := range m.events {
			if existing.User.ID != event.User.ID {
				kept = append(kept, existing)
			}
		}
		m.events = kept
	}

	m.events = append(m.events, event)
	return nil
}

// Export returns events in insertion order, optionally filtered by a closed
// date interval
func (m *MockLedger) Export(ctx context.Context, filter *models.DateRange) ([]models.ConsentEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]models.ConsentEvent, 0, len(m.events))
	for _, event := range m.events {
		if filter != nil && !filter.Contains(event.Timestamp) {
			continue
		}
		events = append(events, event)
	}
	return events, nil
}

// Clear removes all events, or only events for one user when userID is non-nil
func (m *MockLedger) Clear(ctx context.Context, userID *int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if userID == nil {
		removed := len(m.events)
		m.events = m.events[:0]
		return removed, nil
	}

	removed := 0
	kept := m.events[:0]
	for _, event := range m.events {
		if event.User.ID == *userID {
			removed++
			continue
		}
		kept = append(kept, event)
	}
	m.events = kept
	return removed, nil
}

// Close does nothing for the in-memory ledger
func (m *MockLedger) Close() error {
	return nil
}
