// Package validation checks applicant submissions before any side effects.
package validation

import (
	"strings"

	apperrors "lead-intake-service/internal/common/errors"
)

// Email reason strings, shown verbatim to the applicant.
const (
	ReasonEmailEmpty     = "Email address is required"
	ReasonEmailAtSign    = "Email address must contain exactly one @ with text on both sides"
	ReasonEmailDomainDot = "Email domain must contain a dot"
)

// ValidateEmail applies an intentionally simplified syntax check: non-empty,
// exactly one @ with non-empty local and domain parts, and at least one dot
// in the domain. This is weaker than full RFC 5322 validation on purpose;
// the mail transport is the final arbiter of deliverability.
func ValidateEmail(address string) error {
	address = strings.TrimSpace(address)
	if address == "" {
		return apperrors.NewInvalidEmailError(ReasonEmailEmpty)
	}

	parts := strings.Split(address, "@")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return apperrors.NewInvalidEmailError(ReasonEmailAtSign)
	}

	if !strings.Contains(parts[1], ".") {
		return apperrors.NewInvalidEmailError(ReasonEmailDomainDot)
	}

	return nil
}
