package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// LeadStatus is the review workflow state of a lead. Transitions only move
// forward, never regress automatically.
type LeadStatus string

const (
	LeadStatusPending    LeadStatus = "PENDING"
	LeadStatusReachedOut LeadStatus = "REACHED_OUT"
)

// rank orders workflow states so status updates can be checked for
// forward-only movement.
func (s LeadStatus) rank() int {
	switch s {
	case LeadStatusPending:
		return 0
	case LeadStatusReachedOut:
		return 1
	default:
		return -1
	}
}

// IsValid reports whether s is a known workflow state.
func (s LeadStatus) IsValid() bool {
	return s.rank() >= 0
}

// CanTransitionTo reports whether moving from s to next is a forward
// transition.
func (s LeadStatus) CanTransitionTo(next LeadStatus) bool {
	return next.IsValid() && next.rank() > s.rank()
}

// Lead is the persisted applicant record. The UUID is the externally
// visible identifier, distinct from the serial row id.
type Lead struct {
	ID         int64      `json:"-"`
	UUID       uuid.UUID  `json:"id"`
	FirstName  string     `json:"firstName"`
	LastName   string     `json:"lastName"`
	Email      string     `json:"email"`
	ResumePath string     `json:"resumePath"`
	Status     LeadStatus `json:"status"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// FullName joins first and last name for notification rendering.
func (l *Lead) FullName() string {
	return strings.TrimSpace(l.FirstName + " " + l.LastName)
}
