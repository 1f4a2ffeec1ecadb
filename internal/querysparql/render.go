// Package querysparql renders QueryIR as SPARQL text.
//
// The rendered text is the human-readable form of a compiled rule: it is what
// `think compile` prints and what the engine logs at debug level. Evaluation
// never parses it back.
package querysparql

import (
	"fmt"
	"strings"

	"github.com/roach88/think/internal/ir"
	"github.com/roach88/think/internal/queryir"
)

// Render produces "SELECT * {" + one line per group + "}".
// Patterns in a group are rendered "s p o." and joined by a single space.
func Render(q queryir.Query) (string, error) {
	sel, ok := q.(*queryir.Select)
	if !ok || sel == nil {
		return "", fmt.Errorf("render: unsupported query type: %T", q)
	}

	lines := make([]string, 0, len(sel.Groups))
	for gi, g := range sel.Groups {
		parts := make([]string, 0, len(g.Patterns))
		for pi, p := range g.Patterns {
			var b strings.Builder
			for i, n := range p.Nodes() {
				s, err := renderNode(n)
				if err != nil {
					return "", fmt.Errorf("render group %d pattern %d: %w", gi, pi, err)
				}
				if i > 0 {
					b.WriteByte(' ')
				}
				b.WriteString(s)
			}
			b.WriteByte('.')
			parts = append(parts, b.String())
		}
		lines = append(lines, strings.Join(parts, " "))
	}
	return "SELECT * {" + strings.Join(lines, "\n") + "}", nil
}

func renderNode(n queryir.Node) (string, error) {
	switch v := n.(type) {
	case queryir.Var:
		return "?" + v.Name, nil
	case queryir.Const:
		switch t := v.Term.(type) {
		case ir.NamedNode, ir.Literal:
			return ir.EncodeTerm(t), nil
		default:
			return "", fmt.Errorf("constant must be an IRI or literal, got %T", v.Term)
		}
	default:
		return "", fmt.Errorf("unsupported node type: %T", n)
	}
}
