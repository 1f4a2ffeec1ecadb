package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents an error detected while compiling or running rules.
//
// Runtime errors include:
//   - Malformed term: a pattern position holds no usable term
//   - Unknown graph: an implication names an undefined graph label
//   - Unbound variable: an evaluator returned a row missing a premise variable
//
// RuntimeError includes structured fields for diagnostics.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// RuleID identifies the affected rule.
	RuleID string

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying cause, if any.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeMalformedTerm indicates a pattern term of no known kind.
	ErrCodeMalformedTerm RuntimeErrorCode = "MALFORMED_TERM"

	// ErrCodeUnknownGraph indicates an implication references a missing graph.
	ErrCodeUnknownGraph RuntimeErrorCode = "UNKNOWN_GRAPH"

	// ErrCodeUnboundVariable indicates a row lacks a premise query variable.
	ErrCodeUnboundVariable RuntimeErrorCode = "UNBOUND_VARIABLE"

	// ErrCodeLimitExceeded is the code reported for *LimitExceededError.
	ErrCodeLimitExceeded RuntimeErrorCode = "LIMIT_EXCEEDED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.RuleID != "" {
		msg = fmt.Sprintf("%s (rule=%s)", msg, e.RuleID)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// IsMalformedTermError returns true if the error is a malformed term error.
// Uses errors.As to handle wrapped errors.
func IsMalformedTermError(err error) bool {
	return hasCode(err, ErrCodeMalformedTerm)
}

// IsUnknownGraphError returns true if the error is an unknown graph error.
func IsUnknownGraphError(err error) bool {
	return hasCode(err, ErrCodeUnknownGraph)
}

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// ErrorCode returns the code of the first RuntimeError or LimitExceededError
// in err's chain, or "" when there is none.
func ErrorCode(err error) RuntimeErrorCode {
	var le *LimitExceededError
	if errors.As(err, &le) {
		return ErrCodeLimitExceeded
	}
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// NewUnknownGraphError creates a RuntimeError for a missing graph label.
func NewUnknownGraphError(ruleID, role, label string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeUnknownGraph,
		Message: fmt.Sprintf("%s graph %q is not defined", role, label),
		RuleID:  ruleID,
		Details: map[string]string{"role": role, "label": label},
	}
}
