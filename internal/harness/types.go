package harness

import "github.com/roach88/think/internal/ir"

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all assertions match.
	Pass bool `json:"pass"`

	// Production holds the derived quads, sorted canonically.
	Production []ir.Quad `json:"production"`

	// Passes is the number of fixpoint passes the run took.
	Passes int `json:"passes"`

	// Derived is the number of quads the run added.
	Derived int `json:"derived"`

	// RunError is the engine error message when the run aborted.
	RunError string `json:"run_error,omitempty"`

	// ErrorCode classifies RunError (e.g. LIMIT_EXCEEDED).
	ErrorCode string `json:"error_code,omitempty"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:       true,
		Production: []ir.Quad{},
		Errors:     []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
