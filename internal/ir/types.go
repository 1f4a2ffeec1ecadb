package ir

import (
	"fmt"
	"slices"
	"unicode/utf16"
)

// Quad is a subject/predicate/object fact, optionally scoped to a named graph.
// A nil Graph is the default graph.
//
// Quad is comparable: two quads are the same fact when all four components
// are structurally equal, which is what stores use for set semantics.
type Quad struct {
	Subject   Term `json:"subject"`
	Predicate Term `json:"predicate"`
	Object    Term `json:"object"`
	Graph     Term `json:"graph,omitempty"`
}

// NewQuad creates a default-graph quad.
func NewQuad(s, p, o Term) Quad {
	return Quad{Subject: s, Predicate: p, Object: o}
}

// InGraph returns a copy of q in graph g.
func (q Quad) InGraph(g Term) Quad {
	q.Graph = g
	return q
}

// Terms returns the subject, predicate, object and (if set) graph terms in order.
func (q Quad) Terms() []Term {
	if q.Graph == nil {
		return []Term{q.Subject, q.Predicate, q.Object}
	}
	return []Term{q.Subject, q.Predicate, q.Object, q.Graph}
}

// String renders the quad as one N-Quads line without the trailing newline.
func (q Quad) String() string {
	return EncodeQuad(q)
}

// Statement is an ordered group of quads produced from one source statement.
// A premise or conclusion pattern is a []Statement.
type Statement []Quad

// Implication is one "premise => conclusion" edge between two graph labels.
type Implication struct {
	Name       string `json:"name,omitempty"`
	Premise    string `json:"premise"`
	Conclusion string `json:"conclusion"`
}

// ID returns the implication's name, or "rule-N" for the i-th unnamed edge.
func (imp Implication) ID(i int) string {
	if imp.Name != "" {
		return imp.Name
	}
	return fmt.Sprintf("rule-%d", i)
}

// RuleSet is the parsed form of a rule source: statement patterns per graph
// label, the implication edges between labels (in declaration order), and any
// ground facts the source declares.
type RuleSet struct {
	Graphs   map[string][]Statement `json:"graphs"`
	Implies  []Implication          `json:"implies"`
	Facts    []Quad                 `json:"facts,omitempty"`
	Prefixes map[string]string      `json:"prefixes,omitempty"`
}

// NewRuleSet creates an empty RuleSet with initialized maps.
func NewRuleSet() *RuleSet {
	return &RuleSet{
		Graphs:   make(map[string][]Statement),
		Prefixes: make(map[string]string),
	}
}

// Binding is one solution row of a query: query variable name -> term.
type Binding map[string]Term

// Get returns the term bound to a query variable.
func (b Binding) Get(name string) (Term, bool) {
	t, ok := b[name]
	return t, ok
}

// SortedKeys returns variable names in RFC 8785 order (UTF-16 code units)
// so hashes and printed rows are deterministic.
func (b Binding) SortedKeys() []string {
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings using UTF-16 code unit ordering.
// Go's native string comparison orders by UTF-8 bytes, which differs for
// characters outside the BMP.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	minLen := min(len(a16), len(b16))
	for i := 0; i < minLen; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	default:
		return 0
	}
}
