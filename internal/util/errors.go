// internal/util/errors.go
package util

import "errors"

// Common application-specific errors.
var (
	ErrNotFound       = errors.New("resource not found")
	ErrInvalidInput   = errors.New("invalid input provided")
	ErrDuplicateEntry = errors.New("duplicate entry")
	ErrConflict       = errors.New("conflicting state")

	ErrAccountNotFound = errors.New("account not found")
	ErrTopUpNotFound   = errors.New("transaction not found")
	ErrCardNotFound    = errors.New("card not found")

	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidSignature   = errors.New("invalid webhook signature")

	// ErrUpstream marks a failure of the payment processor; callers may retry.
	ErrUpstream = errors.New("payment processor unavailable")
	// ErrUnknownIntent is returned when a processor reference has no local top-up.
	ErrUnknownIntent = errors.New("unknown payment intent")
	ErrNotConfigured = errors.New("not configured")
)

// IsError reports whether any error in err's chain matches target.
func IsError(err, target error) bool {
	return errors.Is(err, target)
}
