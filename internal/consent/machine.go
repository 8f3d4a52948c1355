// Package consent implements the rules governing which consent transitions are
// allowed for a user, and the atomic read-then-write bookkeeping against the
// ledger.
package consent

import "consentbot/internal/models"

// RejectReason identifies why a requested transition was refused
type RejectReason string

const (
	// ReasonAlreadyAgreed - an Agreed status is terminal and immutable
	ReasonAlreadyAgreed RejectReason = "already_agreed"
	// ReasonAlreadyDeclined - re-declining is a no-op
	ReasonAlreadyDeclined RejectReason = "already_declined"
	// ReasonReconsiderDisabled - Declined users may not switch to Agreed when
	// reconsideration is turned off
	ReasonReconsiderDisabled RejectReason = "reconsider_disabled"
)

// Decision is the outcome of evaluating a requested transition
type Decision struct {
	Allowed   bool
	NewStatus models.Status // set when Allowed
	Reason    RejectReason  // set when rejected
}

// Decide evaluates a requested consent transition against the user's prior
// recorded status. prior is nil when the user has no record yet.
//
//	prior     requested  outcome
//	none      Agreed     allowed
//	none      Declined   allowed
//	Agreed    any        rejected (immutable)
//	Declined  Declined   rejected
//	Declined  Agreed     allowed iff allowReconsider
//
// Deterministic and side-effect free.
func Decide(prior *models.Status, requested models.Status, allowReconsider bool) Decision {
	if prior == nil {
		return Decision{Allowed: true, NewStatus: requested}
	}

	switch *prior {
	case models.StatusAgreed:
		return Decision{Reason: ReasonAlreadyAgreed}
	case models.StatusDeclined:
		if requested == models.StatusDeclined {
			return Decision{Reason: ReasonAlreadyDeclined}
		}
		if !allowReconsider {
			return Decision{Reason: ReasonReconsiderDisabled}
		}
		return Decision{Allowed: true, NewStatus: models.StatusAgreed}
	}

	// Unknown prior status in the ledger, treat like no record
	return Decision{Allowed: true, NewStatus: requested}
}
