package harness

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/think/internal/ir"
)

// Snapshot renders a result for golden comparison: one canonical quad per
// line in sorted order, followed by the run outcome.
//
// Minted identifiers are stable because each scenario run starts its own
// skolem counter.
func Snapshot(result *Result) []byte {
	var buf strings.Builder
	for _, q := range result.Production {
		buf.WriteString(ir.EncodeQuad(q))
		buf.WriteByte('\n')
	}
	if result.ErrorCode != "" {
		fmt.Fprintf(&buf, "# error: %s\n", result.ErrorCode)
	} else {
		fmt.Fprintf(&buf, "# passes: %d\n", result.Passes)
	}
	return []byte(buf.String())
}

// RunWithGolden executes a scenario and compares its production store
// against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario loading or compilation fails.
// Test failure (via goldie) occurs if the output doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, Snapshot(result))
}
