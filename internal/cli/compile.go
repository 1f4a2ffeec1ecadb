package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/think/internal/compiler"
	"github.com/roach88/think/internal/engine"
	"github.com/roach88/think/internal/queryir"
	"github.com/roach88/think/internal/querysql"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
	SQL    bool   // include the SQLite form of each premise
}

// CompiledRule is the compiled form of one implication.
type CompiledRule struct {
	ID           string            `json:"id"`
	Premise      string            `json:"premise"`
	Conclusion   string            `json:"conclusion"`
	Vars         map[string]string `json:"vars"`
	Existentials []string          `json:"existentials,omitempty"`
	Warnings     []string          `json:"warnings,omitempty"`
	SQL          string            `json:"sql,omitempty"`
}

// CompilationResult holds the compiled rules and rule-set analysis.
type CompilationResult struct {
	Rules  []CompiledRule          `json:"rules"`
	Facts  int                     `json:"facts"`
	Cycles []compiler.CycleWarning `json:"cycles"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <rules>...",
		Short: "Compile rules and show their queries",
		Long: `Compile CUE rule files and print, for every rule, the premise query, the
conclusion template, the map from pattern labels to query variables, and
the existential labels that will be minted.

Structural warnings (cross products, empty premises) and recursive rule
cycles are reported but do not fail the command.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the compilation result as JSON to this file")
	cmd.Flags().BoolVar(&opts.SQL, "sql", false, "include the SQLite query of each premise")

	return cmd
}

func runCompile(opts *CompileOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	// Use shared loader with collect-all mode
	loadResult, loadErrors := LoadRuleSets(paths, LoadModeCollectAll)

	// Handle load errors (path not found, no files, etc.)
	if loadResult == nil && len(loadErrors) > 0 {
		var loadErr *LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return outputCompileError(formatter, loadErr.Code, loadErr.Message, nil)
		}
		return outputCompileError(formatter, ErrCodeGeneric, loadErrors[0].Error(), nil)
	}

	for _, file := range loadResult.Files {
		formatter.VerboseLog("Loaded %s", file)
	}

	// Handle compilation errors
	if len(loadErrors) > 0 {
		return outputCompileErrors(formatter, loadErrors)
	}

	rs := loadResult.RuleSet
	rules, err := engine.CompileRules(rs)
	if err != nil {
		return outputCompileError(formatter, string(engine.ErrorCode(err)), err.Error(), nil)
	}

	result := &CompilationResult{
		Rules:  make([]CompiledRule, len(rules)),
		Facts:  len(rs.Facts),
		Cycles: compiler.AnalyzeCycles(rs),
	}

	for i, rule := range rules {
		formatter.VerboseLog("Compiling rule: %s", rule.ID)

		compiled := CompiledRule{
			ID:           rule.ID,
			Premise:      rule.Premise.Text,
			Conclusion:   rule.Conclusion.Text,
			Vars:         rule.Premise.Vars,
			Existentials: compiler.ExistentialLabels(rs, rs.Implies[i]),
			Warnings:     queryir.Validate(rule.Premise.Query).Warnings,
		}
		if opts.SQL {
			// Table 1 stands in for the run's sources.
			sql, err := querysql.NewSQLCompiler(1).Compile(rule.Premise.Query)
			if err != nil {
				return outputCompileError(formatter, ErrCodeGeneric, fmt.Sprintf("rule %s: %v", rule.ID, err), nil)
			}
			compiled.SQL = sql.SQL
		}
		result.Rules[i] = compiled
	}

	// Write to file if --output specified
	if opts.Output != "" {
		if err := writeCompilationToFile(result, opts.Output); err != nil {
			return outputCompileError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
	}

	return outputCompileSuccess(formatter, result, opts.Output)
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled %d rule(s), %d fact(s)\n\n", len(result.Rules), result.Facts)

	for _, rule := range result.Rules {
		fmt.Fprintf(w, "Rule %s:\n", rule.ID)
		fmt.Fprintf(w, "  premise:    %s\n", rule.Premise)
		fmt.Fprintf(w, "  conclusion: %s\n", rule.Conclusion)

		labels := make([]string, 0, len(rule.Vars))
		for label := range rule.Vars {
			labels = append(labels, label)
		}
		slices.Sort(labels)
		for _, label := range labels {
			fmt.Fprintf(w, "  var %s → ?%s\n", label, rule.Vars[label])
		}
		for _, label := range rule.Existentials {
			fmt.Fprintf(w, "  mints %s\n", label)
		}
		for _, warning := range rule.Warnings {
			fmt.Fprintf(w, "  ⚠ %s\n", warning)
		}
		if rule.SQL != "" {
			fmt.Fprintf(w, "  sql: %s\n", rule.SQL)
		}
		fmt.Fprintln(w)
	}

	if len(result.Cycles) > 0 {
		fmt.Fprintln(w, "Cycles:")
		for _, c := range result.Cycles {
			fmt.Fprintf(w, "  [%s] %s\n", c.Level, c.Message)
		}
		fmt.Fprintln(w)
	}

	if outputFile != "" {
		fmt.Fprintf(w, "Wrote compilation result to %s\n", outputFile)
	}

	return nil
}

// outputCompileError outputs a single compilation error.
func outputCompileError(formatter *OutputFormatter, code, message string, details interface{}) error {
	_ = formatter.Error(code, message, details)
	// Compilation errors are command-level errors (exit code 2)
	return WrapExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message), nil)
}

// outputCompileErrors outputs multiple compilation errors.
func outputCompileErrors(formatter *OutputFormatter, errs []error) error {
	if formatter.Format == "json" {
		cliErrors := make([]CLIError, len(errs))
		for i, err := range errs {
			code, message := parseCompileError(err)
			cliErrors[i] = CLIError{
				Code:    code,
				Message: message,
			}
		}

		response := CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   cliErrors, // Include all errors in data
		}

		if err := formatter.Indented(response); err != nil {
			return err
		}

		// Compilation errors are command-level errors (exit code 2)
		return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Compilation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		code, message := parseCompileError(err)
		if pos := errorPosition(err); pos != "" {
			fmt.Fprintln(formatter.Writer, pos)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", code, message)
	}

	// Compilation errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
}

// parseCompileError extracts error code and message from an error.
func parseCompileError(err error) (string, string) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return MapFieldToErrorCode(compileErr.Field), compileErr.Message
	}
	return ErrCodeGeneric, err.Error()
}

// errorPosition formats the CUE source position of err as file:line:col,
// or "" when it has none.
func errorPosition(err error) string {
	var loadErr *LoadError
	if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d", loadErr.Pos.Filename(), loadErr.Pos.Line(), loadErr.Pos.Column())
	}
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) && compileErr.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d", compileErr.Pos.Filename(), compileErr.Pos.Line(), compileErr.Pos.Column())
	}
	return ""
}

// writeCompilationToFile writes the compilation result to a file as indented JSON.
func writeCompilationToFile(result *CompilationResult, filename string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	return nil
}
