package models

import "time"

// ReviewerRole distinguishes ordinary reviewers from administrators.
type ReviewerRole string

const (
	ReviewerRoleReviewer ReviewerRole = "REVIEWER"
	ReviewerRoleAdmin    ReviewerRole = "ADMIN"
)

// Reviewer is an account authorized to receive lead notices and manage
// submissions.
type Reviewer struct {
	ID        int64        `json:"id"`
	Email     string       `json:"email"`
	Role      ReviewerRole `json:"role"`
	Active    bool         `json:"active"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}
