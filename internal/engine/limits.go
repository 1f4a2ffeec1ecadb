package engine

import (
	"errors"
	"fmt"
)

// Limits bounds a fixpoint run. A zero field means unlimited.
//
// A rule set whose conclusions keep minting fresh existentials (a rule that
// feeds its own premise with a new blank node every pass) never reaches a
// fixpoint. The engine does not detect this; Limits turn it into an error.
type Limits struct {
	// MaxPasses is the maximum number of full passes over the rules.
	MaxPasses int

	// MaxFacts is the maximum size of the production store.
	MaxFacts int
}

// Limit names reported by LimitExceededError.
const (
	LimitPasses = "passes"
	LimitFacts  = "facts"
)

// limitEnforcer tracks passes and production size against Limits.
type limitEnforcer struct {
	limits Limits
	passes int
}

func newLimitEnforcer(l Limits) *limitEnforcer {
	return &limitEnforcer{limits: l}
}

// beginPass increments the pass counter and validates against MaxPasses.
func (e *limitEnforcer) beginPass() error {
	e.passes++
	if e.limits.MaxPasses > 0 && e.passes > e.limits.MaxPasses {
		return &LimitExceededError{Limit: LimitPasses, Value: e.passes, Max: e.limits.MaxPasses}
	}
	return nil
}

// checkFacts validates the production size against MaxFacts.
func (e *limitEnforcer) checkFacts(size int) error {
	if e.limits.MaxFacts > 0 && size > e.limits.MaxFacts {
		return &LimitExceededError{Limit: LimitFacts, Value: size, Max: e.limits.MaxFacts}
	}
	return nil
}

// LimitExceededError is returned when a run exceeds one of its Limits.
// The run is aborted and no production store is returned.
type LimitExceededError struct {
	Limit string // LimitPasses or LimitFacts
	Value int    // Observed value
	Max   int    // Configured maximum
}

// Error implements the error interface.
func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("%s: %s limit exceeded: %d > %d", ErrCodeLimitExceeded, e.Limit, e.Value, e.Max)
}

// IsLimitError returns true if the error is a LimitExceededError.
// Uses errors.As to handle wrapped errors.
func IsLimitError(err error) bool {
	var le *LimitExceededError
	return errors.As(err, &le)
}
