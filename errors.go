package cascade

import (
	"errors"

	"github.com/xraph/cascade/rule"
)

// Sentinel errors returned by Cascade operations.
var (
	// ErrNoStore is returned when an Engine is created without a store.
	ErrNoStore = errors.New("cascade: store is required")

	// ErrRuleNotFound is returned when a rule cannot be found.
	ErrRuleNotFound = errors.New("cascade: rule not found")

	// ErrRuleInvalid is returned when a rule fails validation. It is the
	// same value as rule.ErrInvalid, re-exported for callers that only
	// import the root package.
	ErrRuleInvalid = rule.ErrInvalid

	// ErrJobNotFound is returned when a dispatch job cannot be found.
	ErrJobNotFound = errors.New("cascade: job not found")

	// ErrDLQNotFound is returned when a DLQ entry cannot be found.
	ErrDLQNotFound = errors.New("cascade: dlq entry not found")

	// ErrStoreClosed is returned when a store operation is attempted after the store is closed.
	ErrStoreClosed = errors.New("cascade: store is closed")
)
