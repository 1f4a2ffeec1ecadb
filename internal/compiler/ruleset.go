package compiler

import (
	"strings"

	"cuelang.org/go/cue"

	"github.com/roach88/think/internal/ir"
)

// Graph label suffixes for rules declared with the rule: form.
const (
	PremiseSuffix    = "#premise"
	ConclusionSuffix = "#conclusion"
)

// CompileRuleSet parses a CUE value into a RuleSet. It stops at the first
// error. Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The value is the root of a rule file:
//
//	prefix: { "": "http://example.org/" }
//	facts: [[":a", "a", ":Person"]]
//	rule: "person-role": {
//	    premise:    [["?x", "a", ":Person"]]
//	    conclusion: [["?x", ":hasRole", "_:b"]]
//	}
//	graph: g1: [["?x", ":knows", "?y"]]
//	graph: g2: [["?y", ":knows", "?x"]]
//	implies: [{premise: "g1", conclusion: "g2"}]
//
// Implications from rule: come first in declaration order, followed by the
// entries of implies:.
func CompileRuleSet(v cue.Value) (*ir.RuleSet, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	rs := ir.NewRuleSet()

	prefixes, err := CompilePrefixes(v)
	if err != nil {
		return nil, err
	}
	rs.Prefixes = prefixes

	rs.Facts, err = CompileFacts(v, prefixes)
	if err != nil {
		return nil, err
	}

	for _, entry := range fieldValues(v, "rule") {
		if entry.err != nil {
			return nil, entry.err
		}
		if err := AddRule(rs, entry.label, entry.value); err != nil {
			return nil, err
		}
	}

	for _, entry := range fieldValues(v, "graph") {
		if entry.err != nil {
			return nil, entry.err
		}
		if err := AddGraph(rs, entry.label, entry.value); err != nil {
			return nil, err
		}
	}

	implies, err := CompileImplies(v)
	if err != nil {
		return nil, err
	}
	rs.Implies = append(rs.Implies, implies...)

	return rs, nil
}

type fieldEntry struct {
	label string
	value cue.Value
	err   error
}

// fieldValues returns the fields of the struct at path in declaration order.
// A path that does not exist yields nothing.
func fieldValues(v cue.Value, path string) []fieldEntry {
	sv := v.LookupPath(cue.ParsePath(path))
	if !sv.Exists() {
		return nil
	}
	iter, err := sv.Fields()
	if err != nil {
		return []fieldEntry{{err: formatCUEError(err)}}
	}
	var out []fieldEntry
	for iter.Next() {
		out = append(out, fieldEntry{
			label: strings.Trim(iter.Selector().String(), `"`),
			value: iter.Value(),
		})
	}
	return out
}

// RuleEntries returns the labels and values of the rule: struct, for callers
// that compile rules one at a time (collect-all loading).
func RuleEntries(v cue.Value) ([]string, []cue.Value, error) {
	return entries(v, "rule")
}

// GraphEntries returns the labels and values of the graph: struct.
func GraphEntries(v cue.Value) ([]string, []cue.Value, error) {
	return entries(v, "graph")
}

func entries(v cue.Value, path string) ([]string, []cue.Value, error) {
	var labels []string
	var values []cue.Value
	for _, e := range fieldValues(v, path) {
		if e.err != nil {
			return nil, nil, e.err
		}
		labels = append(labels, e.label)
		values = append(values, e.value)
	}
	return labels, values, nil
}

// CompilePrefixes parses the optional prefix: struct.
func CompilePrefixes(v cue.Value) (map[string]string, error) {
	prefixes := make(map[string]string)
	for _, e := range fieldValues(v, "prefix") {
		if e.err != nil {
			return nil, e.err
		}
		ns, err := e.value.String()
		if err != nil {
			return nil, fieldError("prefix", e.value, "prefix %q must be a string IRI", e.label)
		}
		prefixes[e.label] = ns
	}
	return prefixes, nil
}

// CompileFacts parses the optional facts: list. Facts must be ground.
func CompileFacts(v cue.Value, prefixes map[string]string) ([]ir.Quad, error) {
	fv := v.LookupPath(cue.ParsePath("facts"))
	if !fv.Exists() {
		return nil, nil
	}
	statements, err := compileStatements(fv, prefixes, "facts")
	if err != nil {
		return nil, err
	}
	var quads []ir.Quad
	for _, st := range statements {
		for _, q := range st {
			for _, t := range q.Terms() {
				if _, ok := t.(ir.Variable); ok {
					return nil, fieldError("facts", fv, "fact %s contains variable %s", q, t)
				}
			}
			quads = append(quads, q)
		}
	}
	return quads, nil
}

// AddRule compiles one rule: entry into rs as two graphs and one implication.
func AddRule(rs *ir.RuleSet, name string, v cue.Value) error {
	field := "rule." + name
	if err := v.Err(); err != nil {
		return formatCUEError(err)
	}

	var parts [2][]ir.Statement
	for i, key := range []string{"premise", "conclusion"} {
		pv := v.LookupPath(cue.ParsePath(key))
		if !pv.Exists() {
			return fieldError(field+"."+key, v, "%s is required", key)
		}
		statements, err := compileStatements(pv, rs.Prefixes, field+"."+key)
		if err != nil {
			return err
		}
		parts[i] = statements
	}

	premise, conclusion := name+PremiseSuffix, name+ConclusionSuffix
	rs.Graphs[premise] = parts[0]
	rs.Graphs[conclusion] = parts[1]
	rs.Implies = append(rs.Implies, ir.Implication{Name: name, Premise: premise, Conclusion: conclusion})
	return nil
}

// AddGraph compiles one graph: entry into rs.
func AddGraph(rs *ir.RuleSet, label string, v cue.Value) error {
	statements, err := compileStatements(v, rs.Prefixes, "graph."+label)
	if err != nil {
		return err
	}
	rs.Graphs[label] = statements
	return nil
}

// CompileImplies parses the optional implies: list of
// {name?, premise, conclusion} edges.
func CompileImplies(v cue.Value) ([]ir.Implication, error) {
	iv := v.LookupPath(cue.ParsePath("implies"))
	if !iv.Exists() {
		return nil, nil
	}
	list, err := iv.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var out []ir.Implication
	for list.Next() {
		ev := list.Value()
		var imp ir.Implication
		for _, f := range []struct {
			key      string
			dst      *string
			required bool
		}{
			{"name", &imp.Name, false},
			{"premise", &imp.Premise, true},
			{"conclusion", &imp.Conclusion, true},
		} {
			fv := ev.LookupPath(cue.ParsePath(f.key))
			if !fv.Exists() {
				if f.required {
					return nil, fieldError("implies."+f.key, ev, "%s is required", f.key)
				}
				continue
			}
			s, err := fv.String()
			if err != nil {
				return nil, fieldError("implies."+f.key, fv, "%s must be a graph label string", f.key)
			}
			*f.dst = s
		}
		out = append(out, imp)
	}
	return out, nil
}

// compileStatements parses a pattern list. Each element is one statement:
// either a single [s, p, o] / [s, p, o, g] quad or a list of such quads.
func compileStatements(v cue.Value, prefixes map[string]string, field string) ([]ir.Statement, error) {
	list, err := v.List()
	if err != nil {
		return nil, fieldError(field, v, "must be a list of statements")
	}

	statements := []ir.Statement{}
	for list.Next() {
		ev := list.Value()
		items, err := listValues(ev)
		if err != nil {
			return nil, fieldError(field, ev, "statement must be a list")
		}

		var st ir.Statement
		if len(items) > 0 && items[0].IncompleteKind() == cue.ListKind {
			for _, qv := range items {
				q, err := compileQuad(qv, prefixes, field)
				if err != nil {
					return nil, err
				}
				st = append(st, q)
			}
		} else {
			q, err := compileQuad(ev, prefixes, field)
			if err != nil {
				return nil, err
			}
			st = ir.Statement{q}
		}
		statements = append(statements, st)
	}
	return statements, nil
}

func compileQuad(v cue.Value, prefixes map[string]string, field string) (ir.Quad, error) {
	items, err := listValues(v)
	if err != nil || (len(items) != 3 && len(items) != 4) {
		return ir.Quad{}, fieldError(field, v, "quad must be a list of 3 or 4 terms")
	}

	terms := make([]ir.Term, len(items))
	for i, item := range items {
		t, err := parseTermValue(item, prefixes, field)
		if err != nil {
			return ir.Quad{}, err
		}
		terms[i] = t
	}

	q := ir.NewQuad(terms[0], terms[1], terms[2])
	if len(terms) == 4 {
		q.Graph = terms[3]
	}
	return q, nil
}

func listValues(v cue.Value) ([]cue.Value, error) {
	list, err := v.List()
	if err != nil {
		return nil, err
	}
	var out []cue.Value
	for list.Next() {
		out = append(out, list.Value())
	}
	return out, nil
}
