package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/token"

	"github.com/roach88/think/internal/compiler"
	"github.com/roach88/think/internal/ir"
)

// LoadMode controls how errors are handled during rule loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the merged rule set of one or more rule paths.
type LoadResult struct {
	RuleSet   *ir.RuleSet
	Files     []string // CUE files read, in load order
	FileCount int      // Number of CUE files found
}

// LoadError represents an error that occurred during rule loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadRuleSet loads and compiles the rule file or directory at path.
// If mode is LoadModeFailFast, returns on first error.
// If mode is LoadModeCollectAll, compiles every rule and graph and collects
// all errors.
func LoadRuleSet(path string, mode LoadMode) (*LoadResult, []error) {
	return LoadRuleSets([]string{path}, mode)
}

// LoadRuleSets loads each path and merges the rule sets in argument order.
// A nil result means nothing could be loaded.
func LoadRuleSets(paths []string, mode LoadMode) (*LoadResult, []error) {
	ctx := cuecontext.New()
	result := &LoadResult{RuleSet: ir.NewRuleSet()}
	var errs []error

	for _, path := range paths {
		files, err := ruleFiles(path)
		if err != nil {
			return nil, []error{err}
		}
		result.Files = append(result.Files, files...)
		result.FileCount += len(files)

		value, err := compiler.LoadValue(ctx, path)
		if err != nil {
			return nil, []error{convertValueError(err)}
		}

		rs, compileErrs := compileValue(value, mode)
		errs = append(errs, compileErrs...)
		if len(compileErrs) > 0 && mode == LoadModeFailFast {
			return result, errs
		}

		if err := compiler.Merge(result.RuleSet, rs); err != nil {
			errs = append(errs, convertCompileError(err, "merge "+path))
			if mode == LoadModeFailFast {
				return result, errs
			}
		}
	}

	if len(result.RuleSet.Implies) == 0 && len(result.RuleSet.Facts) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: "no rules or facts found"})
	}

	return result, errs
}

// ruleFiles lists the CUE files behind path.
func ruleFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("rules path not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing rules path: %v", err)}
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	files, err := compiler.FindCUEFiles(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(files) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", path)}
	}
	return files, nil
}

// compileValue compiles one rule-file value section by section so that
// collect-all mode reports every broken rule, not just the first.
func compileValue(v cue.Value, mode LoadMode) (*ir.RuleSet, []error) {
	rs := ir.NewRuleSet()
	var errs []error

	fail := func(err error, context string) bool {
		errs = append(errs, convertCompileError(err, context))
		return mode == LoadModeFailFast
	}

	prefixes, err := compiler.CompilePrefixes(v)
	if err != nil {
		fail(err, "prefix")
		// Every term depends on the prefixes.
		return rs, errs
	}
	rs.Prefixes = prefixes

	facts, err := compiler.CompileFacts(v, prefixes)
	if err != nil && fail(err, "facts") {
		return rs, errs
	}
	rs.Facts = facts

	labels, values, err := compiler.RuleEntries(v)
	if err != nil && fail(err, "rule") {
		return rs, errs
	}
	for i, name := range labels {
		if err := compiler.AddRule(rs, name, values[i]); err != nil && fail(err, "rule."+name) {
			return rs, errs
		}
	}

	labels, values, err = compiler.GraphEntries(v)
	if err != nil && fail(err, "graph") {
		return rs, errs
	}
	for i, label := range labels {
		if err := compiler.AddGraph(rs, label, values[i]); err != nil && fail(err, "graph."+label) {
			return rs, errs
		}
	}

	implies, err := compiler.CompileImplies(v)
	if err != nil && fail(err, "implies") {
		return rs, errs
	}
	rs.Implies = append(rs.Implies, implies...)

	return rs, errs
}

// convertValueError converts a CUE load/build failure to a LoadError.
func convertValueError(err error) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{Code: ErrCodeBuildFailed, Message: compileErr.Message, Pos: compileErr.Pos}
	}
	return &LoadError{Code: ErrCodeLoadFailed, Message: err.Error()}
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: fmt.Sprintf("%s: %s", compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeFactsFailed = "E008" // N-Quads fact file error
	ErrCodeRunFailed   = "E009" // Engine run aborted
	ErrCodeDatabase    = "E010" // SQLite store error
	ErrCodeTestFailed  = "E011" // One or more scenarios failed

	// Rule file errors
	ErrCodeInvalidPrefix  = "E020" // Prefix is not a string IRI
	ErrCodeInvalidFact    = "E021" // Fact is malformed or not ground
	ErrCodeInvalidRule    = "E022" // Rule lacks premise/conclusion or has bad terms
	ErrCodeInvalidGraph   = "E023" // Graph pattern is malformed
	ErrCodeInvalidImplies = "E024" // Implication entry is malformed
	ErrCodeCUE            = "E025" // CUE evaluation error
)

// MapFieldToErrorCode maps a compiler error field to an error code.
// Fields look like "rule.person-role.premise" or "graph.g1[0][1]".
func MapFieldToErrorCode(field string) string {
	head, _, _ := strings.Cut(field, ".")
	head, _, _ = strings.Cut(head, "[")
	switch head {
	case "prefix":
		return ErrCodeInvalidPrefix
	case "facts":
		return ErrCodeInvalidFact
	case "rule":
		return ErrCodeInvalidRule
	case "graph":
		return ErrCodeInvalidGraph
	case "implies":
		return ErrCodeInvalidImplies
	case "cue":
		return ErrCodeCUE
	default:
		return ErrCodeGeneric
	}
}
