package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// Process exit codes.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // the command ran and its result is a failure: invalid rules, failed scenario, aborted run
	ExitCommandError = 2 // the command could not run: bad paths, unloadable rules, database errors
)

// ExitError carries the process exit code of a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// NewExitError returns an ExitError without an underlying cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError returns an ExitError wrapping err.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode maps a command error to the process exit code. nil is
// ExitSuccess; errors that carry no ExitError are ExitFailure.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// CLIResponse is the envelope of every --format json document.
type CLIResponse struct {
	Status string      `json:"status"` // "ok" | "error"
	Data   interface{} `json:"data,omitempty"`
	Error  *CLIError   `json:"error,omitempty"`
	RunID  string      `json:"run_id,omitempty"`
}

// CLIError is the error member of a CLIResponse.
type CLIError struct {
	Code    string      `json:"code"` // E0xx (cli), E1xx (rule-set validation) or an engine code
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// OutputFormatter writes command results as text or JSON. Results go to
// Writer; progress and summaries go to ErrWriter so that stdout stays a
// clean N-Quads or JSON document.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer
	Verbose   bool
	RunID     string
}

// newFormatter returns the formatter for cmd under the global flags.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// Success writes data: a JSON envelope, or data's default text form.
func (f *OutputFormatter) Success(data interface{}) error {
	if f.Format != "json" {
		_, err := fmt.Fprintln(f.Writer, data)
		return err
	}
	return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: data, RunID: f.RunID})
}

// Error writes one error. Details are printed in text mode only with
// --verbose.
func (f *OutputFormatter) Error(code, message string, details interface{}) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message, Details: details},
			RunID:  f.RunID,
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Indented writes resp as indented JSON; used for multi-error reports and
// listings that are read by people as often as by tools.
func (f *OutputFormatter) Indented(resp CLIResponse) error {
	if resp.RunID == "" {
		resp.RunID = f.RunID
	}
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

// VerboseLog writes a diagnostic line to ErrWriter when --verbose is set.
func (f *OutputFormatter) VerboseLog(format string, args ...interface{}) {
	if f.Verbose {
		fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
	}
}

// GetErrWriter returns ErrWriter, or Writer when no ErrWriter is set.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
