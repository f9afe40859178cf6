// Package notify delivers applicant and reviewer emails with bounded retry.
package notify

import (
	"context"

	"github.com/google/uuid"
)

// Kind separates best-effort applicant confirmations from tracked reviewer
// notices.
type Kind string

const (
	KindConfirmation   Kind = "confirmation"
	KindReviewerNotice Kind = "reviewer_notice"
)

// Request is an ephemeral instruction to send one email to one recipient
// set. It is never persisted unless delivery exhausts retries.
type Request struct {
	Kind       Kind
	Recipients []string
	Subject    string
	Body       string
	LeadUUID   uuid.UUID
}

// Transport is the external mail-sending collaborator. It must be safe to
// call repeatedly with identical arguments; duplicate sends are an accepted
// risk of at-least-once retry. Implementations enforce their own per-attempt
// I/O timeout.
type Transport interface {
	Send(ctx context.Context, recipients []string, subject, body string) error
}
