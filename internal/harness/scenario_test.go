package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	dir := t.TempDir()
	path := writeScenario(t, dir, `
name: test_scenario
description: "Test scenario for validation"
rules:
  - rules/person.cue
facts:
  - /abs/facts.nq
max_passes: 5
backend: sqlite
assertions:
  - type: contains
    quad: "<http://example.org/a> <http://example.org/p> <http://example.org/b> ."
  - type: passes
    count: 2
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, []string{filepath.Join(dir, "rules/person.cue")}, scenario.Rules)
	assert.Equal(t, []string{"/abs/facts.nq"}, scenario.Facts, "absolute paths are kept")
	assert.Equal(t, 5, scenario.MaxPasses)
	assert.Equal(t, BackendSQLite, scenario.Backend)
	require.Len(t, scenario.Assertions, 2)
	assert.Equal(t, AssertPasses, scenario.Assertions[1].Type)
	assert.Equal(t, 2, scenario.Assertions[1].Count)
}

func TestLoadScenario_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "unknown field",
			content: "name: x\nrules: [a.cue]\nassertion: []\n",
			wantErr: "failed to parse YAML",
		},
		{
			name:    "missing name",
			content: "rules: [a.cue]\n",
			wantErr: "name is required",
		},
		{
			name:    "missing rules",
			content: "name: x\n",
			wantErr: "rules must list at least one rule file",
		},
		{
			name:    "negative limit",
			content: "name: x\nrules: [a.cue]\nmax_passes: -1\n",
			wantErr: "must be non-negative",
		},
		{
			name:    "unknown backend",
			content: "name: x\nrules: [a.cue]\nbackend: postgres\n",
			wantErr: `unknown backend "postgres"`,
		},
		{
			name:    "contains without quad",
			content: "name: x\nrules: [a.cue]\nassertions: [{type: contains}]\n",
			wantErr: "assertions[0]: quad is required for contains",
		},
		{
			name:    "error without code",
			content: "name: x\nrules: [a.cue]\nassertions: [{type: error}]\n",
			wantErr: "assertions[0]: code is required for error",
		},
		{
			name:    "unknown assertion",
			content: "name: x\nrules: [a.cue]\nassertions: [{type: trace_contains}]\n",
			wantErr: `unknown assertion type "trace_contains"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeScenario(t, t.TempDir(), tt.content)
			_, err := LoadScenario(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenarioWithBasePath(t *testing.T) {
	dir := t.TempDir()
	path := writeScenario(t, dir, "name: x\nrules: [person.cue]\n")

	scenario, err := LoadScenarioWithBasePath(path, "/base")
	require.NoError(t, err)
	assert.Equal(t, []string{"/base/person.cue"}, scenario.Rules)
}
