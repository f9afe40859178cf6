package models

import (
	"time"

	"github.com/google/uuid"
)

// FailureStatus is the lifecycle state of a failed notification record.
// Resolution (successful resend or discard) deletes the row, so FAILED is
// the only state ever listed.
type FailureStatus string

const (
	FailureStatusFailed FailureStatus = "FAILED"
)

// FailedNotification is the durable record of a reviewer notice whose
// delivery retries were exhausted. Recipients preserves the originally
// attempted list in order; resend reuses it even if the reviewer directory
// has changed since.
type FailedNotification struct {
	ID           int64         `json:"id"`
	LeadID       int64         `json:"-"`
	LeadUUID     uuid.UUID     `json:"leadId"`
	LeadName     string        `json:"leadName"`
	LeadEmail    string        `json:"leadEmail"`
	Recipients   []string      `json:"recipients"`
	ErrorMessage string        `json:"errorMessage"`
	Status       FailureStatus `json:"status"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}
