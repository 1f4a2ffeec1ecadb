package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/think/internal/ir"
	"github.com/roach88/think/internal/testutil"
)

func sampleResult() *Result {
	result := NewResult()
	result.Production = []ir.Quad{
		testutil.Triple(testutil.IRI("a"), testutil.IRI("knows"), testutil.IRI("b")),
		testutil.Triple(testutil.IRI("a"), testutil.IRI("hasRole"), testutil.Blank("sk_0")),
	}
	result.Passes = 2
	return result
}

func TestEvaluateAssertions_Pass(t *testing.T) {
	errs := EvaluateAssertions(sampleResult(), []Assertion{
		{Type: AssertContains, Quad: "<http://example.org/a> <http://example.org/knows> <http://example.org/b> ."},
		{Type: AssertContains, Quad: "<http://example.org/a> <http://example.org/hasRole> _:sk_0 ."},
		{Type: AssertAbsent, Quad: "<http://example.org/b> <http://example.org/knows> <http://example.org/a> ."},
		{Type: AssertCount, Count: 2},
		{Type: AssertPasses, Count: 2},
	})
	assert.Empty(t, errs)
}

func TestEvaluateAssertions_Failures(t *testing.T) {
	tests := []struct {
		name      string
		assertion Assertion
		want      string
	}{
		{
			name:      "contains",
			assertion: Assertion{Type: AssertContains, Quad: "<http://example.org/b> <http://example.org/knows> <http://example.org/a> ."},
			want:      "not found in production",
		},
		{
			name:      "absent",
			assertion: Assertion{Type: AssertAbsent, Quad: "<http://example.org/a> <http://example.org/knows> <http://example.org/b> ."},
			want:      "found in production",
		},
		{
			name:      "count",
			assertion: Assertion{Type: AssertCount, Count: 3},
			want:      "Expected: 3 quads",
		},
		{
			name:      "passes",
			assertion: Assertion{Type: AssertPasses, Count: 1},
			want:      "Actual: 2 passes",
		},
		{
			name:      "error on successful run",
			assertion: Assertion{Type: AssertError, Code: "LIMIT_EXCEEDED"},
			want:      "run reached its fixpoint",
		},
		{
			name:      "invalid quad",
			assertion: Assertion{Type: AssertContains, Quad: "not n-quads"},
			want:      "invalid quad",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := EvaluateAssertions(sampleResult(), []Assertion{tt.assertion})
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0], tt.want)
		})
	}
}

func TestEvaluateAssertions_RunError(t *testing.T) {
	result := NewResult()
	result.RunError = "LIMIT_EXCEEDED: passes limit exceeded: 3 > 2"
	result.ErrorCode = "LIMIT_EXCEEDED"

	t.Run("expected", func(t *testing.T) {
		errs := EvaluateAssertions(result, []Assertion{{Type: AssertError, Code: "LIMIT_EXCEEDED"}})
		assert.Empty(t, errs)
	})

	t.Run("unexpected", func(t *testing.T) {
		errs := EvaluateAssertions(result, nil)
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0], "run failed")
	})

	t.Run("wrong code", func(t *testing.T) {
		errs := EvaluateAssertions(result, []Assertion{{Type: AssertError, Code: "MALFORMED_TERM"}})
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0], `code "LIMIT_EXCEEDED"`)
	})
}

func TestAssertionError_ListsProduction(t *testing.T) {
	err := &AssertionError{
		Type:       AssertCount,
		Expected:   "1 quads",
		Actual:     "2 quads",
		Production: sampleResult().Production,
	}
	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: count")
	assert.Contains(t, msg, "Production (2 quads):")
	assert.Contains(t, msg, "_:sk_0 .")
}
