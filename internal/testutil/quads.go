package testutil

import (
	"fmt"

	"github.com/roach88/think/internal/ir"
)

// NS is the namespace of IRI().
const NS = "http://example.org/"

// Type is rdf:type.
var Type = ir.NewNamedNode(ir.RDFType)

// IRI returns the named node NS+local.
func IRI(local string) ir.NamedNode {
	return ir.NewNamedNode(NS + local)
}

// Blank returns a blank node.
func Blank(id string) ir.BlankNode {
	return ir.NewBlankNode(id)
}

// Var returns a variable.
func Var(name string) ir.Variable {
	return ir.NewVariable(name)
}

// Lit returns a plain string literal.
func Lit(s string) ir.Literal {
	return ir.NewLiteral(s, "", "")
}

// Int returns an xsd:integer literal.
func Int(n int) ir.Literal {
	return ir.NewLiteral(fmt.Sprint(n), ir.XSDInteger, "")
}

// Triple returns a default-graph quad.
func Triple(s, p, o ir.Term) ir.Quad {
	return ir.NewQuad(s, p, o)
}

// Statements wraps each quad in its own statement.
func Statements(quads ...ir.Quad) []ir.Statement {
	out := make([]ir.Statement, len(quads))
	for i, q := range quads {
		out[i] = ir.Statement{q}
	}
	return out
}

// RuleSet builds a rule set from (premise, conclusion) pattern pairs. Rule i
// is named r<i> with graphs r<i>#premise and r<i>#conclusion.
func RuleSet(facts []ir.Quad, rules ...[2][]ir.Statement) *ir.RuleSet {
	rs := ir.NewRuleSet()
	rs.Facts = facts
	for i, r := range rules {
		name := fmt.Sprintf("r%d", i)
		premise, conclusion := name+"#premise", name+"#conclusion"
		rs.Graphs[premise] = r[0]
		rs.Graphs[conclusion] = r[1]
		rs.Implies = append(rs.Implies, ir.Implication{Name: name, Premise: premise, Conclusion: conclusion})
	}
	return rs
}

// Implies pairs a premise with a conclusion for RuleSet.
func Implies(premise, conclusion []ir.Statement) [2][]ir.Statement {
	return [2][]ir.Statement{premise, conclusion}
}

// Chain returns n edges node0 -p-> node1 -p-> ... -p-> node<n>.
func Chain(p ir.Term, n int) []ir.Quad {
	out := make([]ir.Quad, n)
	for i := range out {
		out[i] = Triple(IRI(fmt.Sprintf("node%d", i)), p, IRI(fmt.Sprintf("node%d", i+1)))
	}
	return out
}
