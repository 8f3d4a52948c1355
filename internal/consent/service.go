package consent

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"consentbot/internal/models"
	"consentbot/internal/storage"
)

// Service records consent decisions against the ledger. A single mutex makes
// the status read and the subsequent write one critical section, so two
// concurrent submissions from the same user cannot both pass the state
// machine.
type Service struct {
	mu              sync.Mutex
	ledger          storage.Ledger
	allowReconsider bool
	logger          *zap.Logger
	now             func() time.Time
}

// NewService creates a consent service over the given ledger
func NewService(ledger storage.Ledger, allowReconsider bool, logger *zap.Logger) *Service {
	return &Service{
		ledger:          ledger,
		allowReconsider: allowReconsider,
		logger:          logger,
		now:             time.Now,
	}
}

// Outcome reports the result of a consent submission
type Outcome struct {
	Decision Decision
	// Event is the recorded event when the transition was allowed
	Event models.ConsentEvent
	// Prior is the user's existing status when the transition was rejected
	Prior *models.Status
}

// Submit evaluates and, if allowed, records a consent request. The status
// read, decision and write happen under one lock; document generation and
// notification belong outside it.
func (s *Service) Submit(ctx context.Context, user models.User, requested models.Status) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prior, err := s.ledger.CurrentStatus(ctx, user.ID)
	if err != nil {
		return Outcome{}, err
	}

	decision := Decide(prior, requested, s.allowReconsider)
	if !decision.Allowed {
		s.logger.Info("Consent transition rejected",
			zap.Int64("user_id", user.ID),
			zap.String("requested", string(requested)),
			zap.String("reason", string(decision.Reason)),
		)
		return Outcome{Decision: decision, Prior: prior}, nil
	}

	event := models.ConsentEvent{
		Timestamp: s.now().Truncate(time.Second),
		User:      user,
		Status:    decision.NewStatus,
	}
	if err := s.ledger.Record(ctx, event); err != nil {
		return Outcome{}, err
	}

	s.logger.Info("Consent recorded",
		zap.Int64("user_id", user.ID),
		zap.String("status", string(event.Status)),
	)
	return Outcome{Decision: decision, Event: event}, nil
}

// Export returns ledger events, optionally restricted to a date range
func (s *Service) Export(ctx context.Context, filter *models.DateRange) ([]models.ConsentEvent, error) {
	return s.ledger.Export(ctx, filter)
}

// Clear removes ledger rows for one user, or all rows when userID is nil
func (s *Service) Clear(ctx context.Context, userID *int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Clear(ctx, userID)
}
