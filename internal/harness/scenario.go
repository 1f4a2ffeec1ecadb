package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario: rule files, optional fact
// files, run limits, and assertions on the resulting production store.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Rules lists CUE rule files (or directories) to compile and merge.
	// Paths are relative to the scenario file location.
	Rules []string `yaml:"rules"`

	// Facts lists N-Quads files loaded as the initial fact set, in
	// addition to any facts the rule files declare.
	Facts []string `yaml:"facts,omitempty"`

	// MaxPasses bounds the run (0 = unlimited).
	MaxPasses int `yaml:"max_passes,omitempty"`

	// MaxFacts bounds the production store (0 = unlimited).
	MaxFacts int `yaml:"max_facts,omitempty"`

	// Assertions validate the run outcome.
	// Supported types: contains, absent, count, passes, error
	Assertions []Assertion `yaml:"assertions"`

	// Backend selects where facts and production live: "memory" (default)
	// or "sqlite" (an in-memory SQLite database queried through SQL).
	Backend string `yaml:"backend,omitempty"`

	// RunID is an optional fixed run ID for log output.
	// If empty, defaults to "test-run-default".
	RunID string `yaml:"run_id,omitempty"`
}

// Assertion validates the production store or the run outcome.
type Assertion struct {
	// Type specifies the assertion type:
	// - "contains": quad is in the production store
	// - "absent": quad is not in the production store
	// - "count": production store has exactly Count quads
	// - "passes": run took exactly Count passes
	// - "error": run aborted with error code Code
	Type string `yaml:"type"`

	// Quad is one N-Quads statement (used by contains, absent).
	Quad string `yaml:"quad,omitempty"`

	// Count is the expected number (used by count, passes).
	Count int `yaml:"count,omitempty"`

	// Code is the expected engine error code (used by error).
	Code string `yaml:"code,omitempty"`
}

// Backend constants.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Assertion type constants.
const (
	AssertContains = "contains"
	AssertAbsent   = "absent"
	AssertCount    = "count"
	AssertPasses   = "passes"
	AssertError    = "error"
)

// LoadScenario reads and parses a scenario YAML file, resolving rule and
// fact paths relative to the scenario file's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving rule and fact paths relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	resolve := func(paths []string) {
		for i, p := range paths {
			if !filepath.IsAbs(p) && basePath != "" {
				paths[i] = filepath.Join(basePath, p)
			}
		}
	}
	resolve(scenario.Rules)
	resolve(scenario.Facts)

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Rules) == 0 {
		return fmt.Errorf("rules must list at least one rule file")
	}
	switch s.Backend {
	case "", BackendMemory, BackendSQLite:
	default:
		return fmt.Errorf("unknown backend %q", s.Backend)
	}
	if s.MaxPasses < 0 || s.MaxFacts < 0 {
		return fmt.Errorf("max_passes and max_facts must be non-negative")
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertContains, AssertAbsent:
		if a.Quad == "" {
			return fmt.Errorf("assertions[%d]: quad is required for %s", index, a.Type)
		}
	case AssertCount, AssertPasses:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertError:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for error", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
