package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/think/internal/ir"
	"github.com/roach88/think/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type       string    // Assertion type for categorization
	Expected   string    // Human-readable expected outcome
	Actual     string    // Human-readable actual outcome
	Production []ir.Quad // Production store for debugging context
}

// maxListed caps how many production quads an AssertionError prints.
const maxListed = 20

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Production) > 0 {
		fmt.Fprintf(&buf, "\nProduction (%d quads):\n", len(e.Production))
		for i, q := range e.Production {
			if i == maxListed {
				fmt.Fprintf(&buf, "  ... %d more\n", len(e.Production)-maxListed)
				break
			}
			fmt.Fprintf(&buf, "  %s\n", ir.EncodeQuad(q))
		}
	}

	return buf.String()
}

// parseQuad parses one N-Quads statement from an assertion.
func parseQuad(s string) (ir.Quad, error) {
	quads, err := store.ReadNQuads(strings.NewReader(s + "\n"))
	if err != nil {
		return ir.Quad{}, err
	}
	if len(quads) != 1 {
		return ir.Quad{}, fmt.Errorf("expected one quad, got %d", len(quads))
	}
	return quads[0], nil
}

// assertMembership checks that a quad is (contains) or is not (absent) in
// the production store.
func assertMembership(result *Result, production *store.Memory, assertion Assertion) error {
	q, err := parseQuad(assertion.Quad)
	if err != nil {
		return fmt.Errorf("%s: invalid quad %q: %w", assertion.Type, assertion.Quad, err)
	}

	want := assertion.Type == AssertContains
	if production.Has(q) == want {
		return nil
	}

	expected, actual := "quad present", "not found in production"
	if !want {
		expected, actual = "quad absent", "found in production"
	}
	return &AssertionError{
		Type:       assertion.Type,
		Expected:   fmt.Sprintf("%s: %s", expected, ir.EncodeQuad(q)),
		Actual:     actual,
		Production: result.Production,
	}
}

// assertCount checks the production store size.
func assertCount(result *Result, assertion Assertion) error {
	if len(result.Production) == assertion.Count {
		return nil
	}
	return &AssertionError{
		Type:       AssertCount,
		Expected:   fmt.Sprintf("%d quads", assertion.Count),
		Actual:     fmt.Sprintf("%d quads", len(result.Production)),
		Production: result.Production,
	}
}

// assertPasses checks how many fixpoint passes the run took.
func assertPasses(result *Result, assertion Assertion) error {
	if result.Passes == assertion.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertPasses,
		Expected: fmt.Sprintf("%d passes", assertion.Count),
		Actual:   fmt.Sprintf("%d passes", result.Passes),
	}
}

// assertError checks that the run aborted with the given error code.
func assertError(result *Result, assertion Assertion) error {
	if result.ErrorCode == assertion.Code {
		return nil
	}
	actual := "run reached its fixpoint"
	if result.RunError != "" {
		actual = fmt.Sprintf("code %q: %s", result.ErrorCode, result.RunError)
	}
	return &AssertionError{
		Type:     AssertError,
		Expected: fmt.Sprintf("run aborted with code %q", assertion.Code),
		Actual:   actual,
	}
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns one message per failed assertion.
//
// A run error fails the scenario unless some assertion expects an error.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	production := store.NewMemory(result.Production...)
	expectsError := false

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertContains, AssertAbsent:
			err = assertMembership(result, production, assertion)
		case AssertCount:
			err = assertCount(result, assertion)
		case AssertPasses:
			err = assertPasses(result, assertion)
		case AssertError:
			expectsError = true
			err = assertError(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	if result.RunError != "" && !expectsError {
		errors = append(errors, fmt.Sprintf("run failed: %s", result.RunError))
	}

	return errors
}
