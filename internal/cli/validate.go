package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/think/internal/compiler"
	"github.com/roach88/think/internal/engine"
)

// ValidationIssue is one problem found in the rule files.
type ValidationIssue struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Pos     string `json:"pos,omitempty"` // file:line:col when known
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationIssue `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <rules>...",
		Short: "Validate rule files",
		Long: `Validate CUE rule files without running them.

Reports every compile error with its source position, then checks the
merged rule set: undefined graph labels, duplicate rule names, empty
conclusions and non-ground facts.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	issues, err := ValidatePaths(paths)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			return outputValidateError(formatter, loadErr.Code, loadErr.Message, nil)
		}
		return outputValidateError(formatter, ErrCodeGeneric, err.Error(), nil)
	}

	if len(issues) > 0 {
		return outputValidationErrors(formatter, issues)
	}

	return outputValidateSuccess(formatter)
}

// ValidatePaths loads the rule paths in collect-all mode and returns every
// problem found. The error is non-nil only when nothing could be loaded.
func ValidatePaths(paths []string) ([]ValidationIssue, error) {
	loadResult, loadErrors := LoadRuleSets(paths, LoadModeCollectAll)
	if loadResult == nil && len(loadErrors) > 0 {
		return nil, loadErrors[0]
	}

	var issues []ValidationIssue
	for _, err := range loadErrors {
		code, message := parseCompileError(err)
		issues = append(issues, ValidationIssue{
			Message: message,
			Code:    code,
			Pos:     errorPosition(err),
		})
	}

	ruleSetErrs := compiler.ValidateRuleSet(loadResult.RuleSet)
	for _, e := range ruleSetErrs {
		issues = append(issues, ValidationIssue{Field: e.Field, Message: e.Message, Code: e.Code})
	}

	// Translation errors (malformed terms) only surface when the rules are
	// built; unknown graphs were already reported above.
	if len(ruleSetErrs) == 0 {
		if _, err := engine.CompileRules(loadResult.RuleSet); err != nil {
			issues = append(issues, ValidationIssue{
				Message: err.Error(),
				Code:    string(engine.ErrorCode(err)),
			})
		}
	}

	return issues, nil
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter) error {
	if formatter.Format == "json" {
		result := ValidationResult{Valid: true}
		return formatter.Success(result)
	}

	fmt.Fprintln(formatter.Writer, "✓ All rules valid")
	return nil
}

// outputValidateError outputs a single validation error.
func outputValidateError(formatter *OutputFormatter, code, message string, details interface{}) error {
	_ = formatter.Error(code, message, details)
	// Validation errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []ValidationIssue) error {
	if formatter.Format == "json" {
		result := ValidationResult{
			Valid:  false,
			Errors: errs,
		}

		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		if err := formatter.Indented(response); err != nil {
			return err
		}

		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Pos != "" {
			fmt.Fprintln(formatter.Writer, err.Pos)
		}
		if err.Field != "" {
			fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
			continue
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", err.Code, err.Message)
	}

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
