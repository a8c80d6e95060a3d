package assistance

import (
	"errors"
	"time"
)

// CaseStatus is the lifecycle state of an assistance record.
type CaseStatus string

// Case statuses. A case opens, may move to in_progress, and closes;
// reopening a closed case is not allowed.
const (
	StatusOpen       CaseStatus = "open"
	StatusInProgress CaseStatus = "in_progress"
	StatusClosed     CaseStatus = "closed"
)

// ErrInvalidTransition signals a disallowed case status change.
var ErrInvalidTransition = errors.New("assistance: invalid status transition")

// ErrInvalidCase signals a case record that fails basic checks.
var ErrInvalidCase = errors.New("assistance: invalid case")

// Ficha is one assistance case record for an assisted person.
type Ficha struct {
	ID           int64      `json:"id"`
	AssistedName string     `json:"assisted_name"`
	Document     string     `json:"document,omitempty"`
	Description  string     `json:"description"`
	Status       CaseStatus `json:"status"`
	OpenedBy     int64      `json:"opened_by"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// CanTransition reports whether a case may move from one status to another.
func CanTransition(from, to CaseStatus) bool {
	switch from {
	case StatusOpen:
		return to == StatusInProgress || to == StatusClosed
	case StatusInProgress:
		return to == StatusClosed
	default:
		return false
	}
}
