package compiler

import (
	"fmt"
	"slices"

	"github.com/roach88/think/internal/ir"
)

// Validation error codes (E100-E199)
const (
	ErrNilRuleSet        = "E100" // no rule set to validate
	ErrUnknownGraph      = "E101" // implication references an undefined graph label
	ErrDuplicateRuleName = "E102" // two implications share a name
	ErrEmptyConclusion   = "E103" // conclusion has no quads
	ErrMissingTerm       = "E104" // quad position holds no term
	ErrNonGroundFact     = "E105" // fact contains a variable
)

// ValidationError represents a rule-set validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// ValidateRuleSet checks a parsed rule set for problems the engine would
// reject or silently ignore. Returns all errors found (does not fail-fast).
//
// An empty premise is valid: the rule is unconditional and fires once per
// pass with an empty binding.
func ValidateRuleSet(rs *ir.RuleSet) []ValidationError {
	if rs == nil {
		return []ValidationError{{Field: "ruleset", Message: "rule set is nil", Code: ErrNilRuleSet}}
	}

	var errs []ValidationError

	names := make(map[string]int)
	for i, imp := range rs.Implies {
		field := fmt.Sprintf("implies[%d]", i)
		if imp.Name != "" {
			if prev, dup := names[imp.Name]; dup {
				errs = append(errs, ValidationError{
					Field:   field + ".name",
					Message: fmt.Sprintf("rule name %q already used by implies[%d]", imp.Name, prev),
					Code:    ErrDuplicateRuleName,
				})
			} else {
				names[imp.Name] = i
			}
		}

		for _, ref := range []struct{ key, label string }{
			{"premise", imp.Premise},
			{"conclusion", imp.Conclusion},
		} {
			if _, ok := rs.Graphs[ref.label]; !ok {
				errs = append(errs, ValidationError{
					Field:   field + "." + ref.key,
					Message: fmt.Sprintf("unknown graph label %q", ref.label),
					Code:    ErrUnknownGraph,
				})
			}
		}

		if statements, ok := rs.Graphs[imp.Conclusion]; ok && len(flatten(statements)) == 0 {
			errs = append(errs, ValidationError{
				Field:   field + ".conclusion",
				Message: fmt.Sprintf("rule %s derives nothing", imp.ID(i)),
				Code:    ErrEmptyConclusion,
			})
		}
	}

	for _, label := range sortedLabels(rs.Graphs) {
		for si, st := range rs.Graphs[label] {
			for qi, q := range st {
				if q.Subject == nil || q.Predicate == nil || q.Object == nil {
					errs = append(errs, ValidationError{
						Field:   fmt.Sprintf("graph.%s[%d][%d]", label, si, qi),
						Message: "quad has a missing term",
						Code:    ErrMissingTerm,
					})
				}
			}
		}
	}

	for i, q := range rs.Facts {
		for _, t := range q.Terms() {
			if t == nil {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("facts[%d]", i),
					Message: "fact has a missing term",
					Code:    ErrMissingTerm,
				})
				break
			}
			if t.Kind() == ir.KindVariable {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("facts[%d]", i),
					Message: fmt.Sprintf("fact contains variable %s", t),
					Code:    ErrNonGroundFact,
				})
				break
			}
		}
	}

	return errs
}

func sortedLabels(graphs map[string][]ir.Statement) []string {
	labels := make([]string, 0, len(graphs))
	for label := range graphs {
		labels = append(labels, label)
	}
	slices.Sort(labels)
	return labels
}
