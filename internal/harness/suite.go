package harness

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
)

// ScenarioNotFoundError is returned when a scenario directory holds no
// scenario files matching the filter.
type ScenarioNotFoundError struct {
	Dir    string
	Filter string
}

// Error implements the error interface.
func (e *ScenarioNotFoundError) Error() string {
	if e.Filter != "" {
		return fmt.Sprintf("no scenarios matching %q found in %s", e.Filter, e.Dir)
	}
	return fmt.Sprintf("no scenarios found in %s", e.Dir)
}

// FindScenarios returns every .yaml/.yml file under dir, sorted. A non-empty
// filter is a glob matched against the file name without extension.
func FindScenarios(dir, filter string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			ok, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter %q: %w", filter, err)
			}
			if !ok {
				return nil
			}
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, &ScenarioNotFoundError{Dir: dir, Filter: filter}
	}
	slices.Sort(paths)
	return paths, nil
}

// SuiteResult summarizes a batch of scenario runs.
type SuiteResult struct {
	Total    int               `json:"total"`
	Passed   int               `json:"passed"`
	Failed   int               `json:"failed"`
	Results  []ScenarioOutcome `json:"results"`
	Failures []ScenarioFailure `json:"failures,omitempty"`
}

// ScenarioOutcome is the per-scenario entry of a SuiteResult.
type ScenarioOutcome struct {
	Name   string  `json:"name"`
	Path   string  `json:"path"`
	Result *Result `json:"result,omitempty"`
}

// ScenarioFailure represents a failed scenario.
type ScenarioFailure struct {
	Name         string `json:"name,omitempty"`
	ScenarioPath string `json:"scenario_path"`
	Error        string `json:"error"`
}

// RunSuite loads and runs each scenario file in order.
//
// For each scenario:
// 1. Load the scenario (paths resolve from its directory)
// 2. Run it via harness.Run
// 3. Record pass/fail
//
// Returns an error only when ctx is cancelled; scenario failures are
// reported in the SuiteResult.
func RunSuite(ctx context.Context, paths []string) (*SuiteResult, error) {
	result := &SuiteResult{}

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Total++

		scenario, err := LoadScenario(path)
		if err != nil {
			result.fail(ScenarioFailure{
				ScenarioPath: path,
				Error:        fmt.Sprintf("failed to load scenario: %v", err),
			})
			continue
		}

		runResult, err := Run(scenario)
		if err != nil {
			result.fail(ScenarioFailure{
				Name:         scenario.Name,
				ScenarioPath: path,
				Error:        fmt.Sprintf("scenario execution failed: %v", err),
			})
			continue
		}

		result.Results = append(result.Results, ScenarioOutcome{
			Name:   scenario.Name,
			Path:   path,
			Result: runResult,
		})

		if !runResult.Pass {
			result.fail(ScenarioFailure{
				Name:         scenario.Name,
				ScenarioPath: path,
				Error:        fmt.Sprintf("scenario assertions failed: %s", strings.Join(runResult.Errors, "; ")),
			})
			continue
		}

		result.Passed++
	}

	return result, nil
}

func (r *SuiteResult) fail(f ScenarioFailure) {
	r.Failed++
	r.Failures = append(r.Failures, f)
}
