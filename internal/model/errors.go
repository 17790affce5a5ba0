package model

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a referenced entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConcurrentChange is returned by a store when the state a batch was
// planned against changed before it could be applied.
var ErrConcurrentChange = errors.New("concurrent change")

// ValidationError rejects malformed input before any computation.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// InvariantViolation rejects an operation that would break an engine
// invariant. Nothing is applied when it is returned.
type InvariantViolation struct {
	Rule    string
	Message string
}

func (e InvariantViolation) Error() string {
	return fmt.Sprintf("invariant %s: %s", e.Rule, e.Message)
}

// Invariant rule names.
const (
	RuleReconciledImmutable = "reconciled-immutable"
	RuleStatusMonotonic     = "status-monotonic"
	RulePaymentGroup        = "payment-group"
)

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// IsInvariant reports whether err is an InvariantViolation.
func IsInvariant(err error) bool {
	var iv InvariantViolation
	return errors.As(err, &iv)
}
