package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeResponse(t *testing.T, data []byte) CLIResponse {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal(data, &resp))
	return resp
}

func TestOutputFormatter_JSON(t *testing.T) {
	tests := []struct {
		name       string
		write      func(f *OutputFormatter) error
		wantStatus string
		wantCode   string
	}{
		{
			name:       "success",
			write:      func(f *OutputFormatter) error { return f.Success(RunSummary{Passes: 2}) },
			wantStatus: "ok",
		},
		{
			name:       "error",
			write:      func(f *OutputFormatter) error { return f.Error(ErrCodeNotFound, "rules path not found", nil) },
			wantStatus: "error",
			wantCode:   ErrCodeNotFound,
		},
		{
			name: "error with details",
			write: func(f *OutputFormatter) error {
				return f.Error(ErrCodeInvalidRule, "undefined prefix", map[string]string{"field": "rule.r.premise"})
			},
			wantStatus: "error",
			wantCode:   ErrCodeInvalidRule,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			require.NoError(t, tt.write(&OutputFormatter{Format: "json", Writer: buf, RunID: "run-1"}))

			resp := decodeResponse(t, buf.Bytes())
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.Equal(t, "run-1", resp.RunID)
			if tt.wantCode == "" {
				assert.Nil(t, resp.Error)
				assert.NotNil(t, resp.Data)
				return
			}
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}

func TestOutputFormatter_Text(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, f.Success("3 quad(s)"))
	require.NoError(t, f.Error(ErrCodeFactsFailed, "facts/missing.nq: no such file", "ignored without --verbose"))

	assert.Equal(t, "3 quad(s)\nError [E008]: facts/missing.nq: no such file\n", buf.String())
}

func TestOutputFormatter_TextErrorVerbose(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: buf, Verbose: true}

	require.NoError(t, f.Error(ErrCodeInvalidRule, "undefined prefix", "rule.r.premise[0][1]"))
	assert.Contains(t, buf.String(), "Details: rule.r.premise[0][1]")
}

func TestOutputFormatter_Indented(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf, RunID: "run-7"}

	require.NoError(t, f.Indented(CLIResponse{Status: "ok", Data: RunsResult{}}))
	assert.True(t, strings.Contains(buf.String(), "\n  \"status\": \"ok\""), buf.String())
	assert.Equal(t, "run-7", decodeResponse(t, buf.Bytes()).RunID)
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	for _, verbose := range []bool{false, true} {
		t.Run(fmt.Sprintf("verbose=%v", verbose), func(t *testing.T) {
			out, diag := &bytes.Buffer{}, &bytes.Buffer{}
			f := &OutputFormatter{Format: "json", Writer: out, ErrWriter: diag, Verbose: verbose}

			f.VerboseLog("Loaded %s", "rules.cue")

			assert.Empty(t, out.String(), "diagnostics must not reach the result stream")
			if verbose {
				assert.Equal(t, "Loaded rules.cue\n", diag.String())
			} else {
				assert.Empty(t, diag.String())
			}
		})
	}
}

func TestOutputFormatter_ErrWriterFallback(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Writer: buf}
	assert.Same(t, buf, f.GetErrWriter())
}

func TestNewFormatter(t *testing.T) {
	out, diag := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(out)
	cmd.SetErr(diag)

	f := newFormatter(&RootOptions{Format: "json", Verbose: true}, cmd)
	assert.Equal(t, "json", f.Format)
	assert.True(t, f.Verbose)
	assert.Same(t, out, f.Writer)
	assert.Same(t, diag, f.ErrWriter)
}

func TestGetExitCode(t *testing.T) {
	cause := errors.New("database is locked")

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"plain error", cause, ExitFailure},
		{"exit error", NewExitError(ExitCommandError, "bad path"), ExitCommandError},
		{"wrapped exit error", fmt.Errorf("run: %w", WrapExitError(ExitFailure, "run aborted", cause)), ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestExitError_Unwrap(t *testing.T) {
	cause := errors.New("database is locked")
	err := WrapExitError(ExitCommandError, "failed to open database", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to open database: database is locked", err.Error())
	assert.Equal(t, "bad path", NewExitError(ExitCommandError, "bad path").Error())
}
