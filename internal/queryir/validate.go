package queryir

import (
	"fmt"

	"github.com/roach88/think/internal/ir"
)

// ValidationResult contains the structural analysis of a query.
//
// Warnings never stop evaluation: every backend accepts any Select that
// Translate produces. They are surfaced by `think compile` to point at rules
// that are probably not what their author meant.
type ValidationResult struct {
	// Valid is true when no warnings were produced.
	Valid bool

	// Warnings lists the problems found, in pattern order.
	Warnings []string
}

// Validate checks a query for structural problems:
//  1. nil query or empty pattern (matches exactly one empty row)
//  2. nil positions, constants that are not IRIs or literals
//  3. empty variable names
//  4. patterns sharing no variable with earlier patterns (cross product)
//
// Validate is a pure function with no side effects.
func Validate(query Query) ValidationResult {
	v := &validator{
		warnings: []string{},
	}
	v.validateQuery(query)

	return ValidationResult{
		Valid:    len(v.warnings) == 0,
		Warnings: v.warnings,
	}
}

// validator accumulates warnings during traversal.
type validator struct {
	warnings []string
}

func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

func (v *validator) validateQuery(q Query) {
	switch query := q.(type) {
	case nil:
		v.addWarning("nil query")
	case *Select:
		if query == nil {
			v.addWarning("nil query")
			return
		}
		v.validateSelect(query)
	default:
		v.addWarning("unknown query type: %T", q)
	}
}

func (v *validator) validateSelect(sel *Select) {
	if len(sel.Patterns()) == 0 {
		v.addWarning("empty pattern - matches once with no bindings")
		return
	}

	seen := make(map[string]bool)
	n := 0
	for gi, g := range sel.Groups {
		if len(g.Patterns) == 0 {
			v.addWarning("statement %d has no patterns", gi)
		}
		for _, p := range g.Patterns {
			vars := v.validatePattern(n, p)
			if n > 0 && len(vars) > 0 && len(seen) > 0 && !sharesAny(seen, vars) {
				v.addWarning("pattern %d shares no variable with earlier patterns (cross product)", n)
			}
			for _, name := range vars {
				seen[name] = true
			}
			n++
		}
	}
}

// validatePattern checks each position and returns the pattern's variables.
func (v *validator) validatePattern(index int, p QuadPattern) []string {
	var vars []string
	for i, node := range p.Nodes() {
		pos := [3]string{"subject", "predicate", "object"}[i]
		switch n := node.(type) {
		case nil:
			v.addWarning("pattern %d: nil %s", index, pos)
		case Const:
			switch n.Term.(type) {
			case ir.NamedNode, ir.Literal:
			default:
				v.addWarning("pattern %d: %s constant must be an IRI or literal, got %T", index, pos, n.Term)
			}
		case Var:
			if n.Name == "" {
				v.addWarning("pattern %d: empty %s variable name", index, pos)
				continue
			}
			vars = append(vars, n.Name)
		}
	}
	return vars
}

func sharesAny(seen map[string]bool, vars []string) bool {
	for _, name := range vars {
		if seen[name] {
			return true
		}
	}
	return false
}
