package queryir

import (
	"github.com/roach88/think/internal/ir"
)

// Query represents an abstract query in the QueryIR.
//
// This is a sealed interface - only types in this package implement it.
type Query interface {
	queryNode() // Marker method - seals interface to this package
}

// Node is one position (subject, predicate or object) of a quad pattern.
//
// This is a sealed interface - only Const and Var implement it.
type Node interface {
	patternNode() // Marker method - seals interface to this package
}

// Const matches exactly one term. Term is always a NamedNode or Literal.
type Const struct {
	Term ir.Term
}

func (Const) patternNode() {}

// Var is a query variable. Name has no leading "?".
type Var struct {
	Name string
}

func (Var) patternNode() {}

// QuadPattern is one triple pattern. The graph position is not part of the
// pattern: it matches quads in every graph.
type QuadPattern struct {
	Subject   Node
	Predicate Node
	Object    Node
}

// Nodes returns the subject, predicate and object positions in order.
func (p QuadPattern) Nodes() [3]Node {
	return [3]Node{p.Subject, p.Predicate, p.Object}
}

// Group is the translation of one source statement.
// Groups only affect rendering; matching treats all patterns as one conjunction.
type Group struct {
	Patterns []QuadPattern
}

// Select is a SELECT * query over a basic graph pattern.
//
// Semantics:
//
//	SELECT * { <group 1 patterns> <group 2 patterns> ... }
//
// Produces one binding per distinct solution, keyed by query variable name.
type Select struct {
	Groups []Group
}

func (*Select) queryNode() {}

// Patterns returns every pattern of every group in order.
func (s *Select) Patterns() []QuadPattern {
	var out []QuadPattern
	for _, g := range s.Groups {
		out = append(out, g.Patterns...)
	}
	return out
}

// Vars returns the distinct query variables in order of first occurrence.
func (s *Select) Vars() []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range s.Patterns() {
		for _, n := range p.Nodes() {
			if v, ok := n.(Var); ok && !seen[v.Name] {
				seen[v.Name] = true
				out = append(out, v.Name)
			}
		}
	}
	return out
}

// VarMap maps a pattern-local blank node or variable label to the query
// variable name it was translated to.
type VarMap map[string]string
