package models

import "time"

// Status is the outcome of a consent decision
type Status string

const (
	StatusAgreed   Status = "Agreed"
	StatusDeclined Status = "Declined"
)

// ParseStatus converts a stored status cell back into a Status.
// Returns false for unknown values so callers can skip malformed rows.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusAgreed, StatusDeclined:
		return Status(s), true
	}
	return "", false
}

// User identifies the person giving or refusing consent.
// Display fields default to the empty string when Telegram does not provide them.
type User struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
}

// DisplayName returns "First Last" trimmed of missing parts
func (u User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.LastName
	}
}

// ConsentEvent is one row in the consent ledger
type ConsentEvent struct {
	Timestamp time.Time
	User      User
	Status    Status
}

// DateRange is a closed interval used to filter ledger exports.
// Both boundaries are inclusive.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside the range, boundaries included
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.From) && !t.After(r.To)
}
