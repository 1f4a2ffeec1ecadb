package store

import "github.com/roach88/think/internal/ir"

// SkolemizeIRIs returns quads with every minted blank node (ir.IsSkolem)
// replaced by the IRI namespace+id. Other blank nodes are left alone.
func SkolemizeIRIs(quads []ir.Quad, namespace string) []ir.Quad {
	rewrite := func(t ir.Term) ir.Term {
		if ir.IsSkolem(t) {
			return ir.NewNamedNode(namespace + t.Value())
		}
		return t
	}
	out := make([]ir.Quad, len(quads))
	for i, q := range quads {
		out[i] = ir.Quad{
			Subject:   rewrite(q.Subject),
			Predicate: rewrite(q.Predicate),
			Object:    rewrite(q.Object),
			Graph:     rewrite(q.Graph),
		}
	}
	return out
}
