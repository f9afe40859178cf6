// Package errors provides the standardized error taxonomy for the intake
// pipeline.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
	ErrCodeInvalidEmail      ErrorCode = "INVALID_EMAIL"
	ErrCodeInvalidDocument   ErrorCode = "INVALID_DOCUMENT"
	ErrCodeStorageFailed     ErrorCode = "STORAGE_ERROR"
	ErrCodeDeliveryFailed    ErrorCode = "DELIVERY_FAILED"
	ErrCodeNotFound          ErrorCode = "NOT_FOUND"
	ErrCodeNotInFailedState  ErrorCode = "NOT_IN_FAILED_STATE"
	ErrCodeInvalidTransition ErrorCode = "INVALID_STATUS_TRANSITION"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Retryable bool      `json:"retryable"`
	Timestamp time.Time `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// CodeOf extracts the ErrorCode from err, or "" if err is not a StandardError.
func CodeOf(err error) ErrorCode {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Code
	}
	return ""
}

// IsCode reports whether err carries the given error code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// NewRateLimitExceededError creates a non-retryable admission error.
// Callers should back off for the remainder of the window.
func NewRateLimitExceededError(clientID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRateLimitExceeded,
		Message:   "Too many submissions, please try again later",
		Details:   fmt.Sprintf("clientId: %s", clientID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidEmailError creates a non-retryable validation error.
func NewInvalidEmailError(reason string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidEmail,
		Message:   "Invalid email address",
		Details:   reason,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidDocumentError creates a non-retryable validation error. The
// reason is shown verbatim to the applicant.
func NewInvalidDocumentError(reason string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidDocument,
		Message:   reason,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewStorageError creates a retryable persistence error. The whole intake
// aborts, nothing is partially committed.
func NewStorageError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStorageFailed,
		Message:   "Storage operation failed",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewDeliveryFailedError creates an error for a notification whose retry
// budget is exhausted. The last attempt's error is carried in Details.
func NewDeliveryFailedError(kind string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDeliveryFailed,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("kind: %s, error: %s", kind, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewNotFoundError creates a non-retryable lookup error.
func NewNotFoundError(resource, id string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotFound,
		Message:   fmt.Sprintf("%s not found", resource),
		Details:   fmt.Sprintf("id: %s", id),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidTransitionError rejects backward movement in the review
// workflow.
func NewInvalidTransitionError(from, to string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidTransition,
		Message:   "Status may only move forward",
		Details:   fmt.Sprintf("from: %s, to: %s", from, to),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotInFailedStateError guards resend against double-resend races.
func NewNotInFailedStateError(id int64) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotInFailedState,
		Message:   "Record is not in failed state",
		Details:   fmt.Sprintf("id: %d", id),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}
