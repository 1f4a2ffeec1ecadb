package queryir

import (
	"fmt"

	"github.com/roach88/think/internal/ir"
)

// VarPrefix is the prefix of minted query variable names.
const VarPrefix = "U_"

// MalformedTermError reports a pattern term that is none of the four term
// variants. Translation of the whole pattern fails; there is no retry.
type MalformedTermError struct {
	Statement int
	Quad      int
	Position  string
	Term      ir.Term
}

func (e *MalformedTermError) Error() string {
	return fmt.Sprintf("malformed %s term %#v in statement %d quad %d",
		e.Position, e.Term, e.Statement, e.Quad)
}

// Translate converts statement patterns into a Select.
//
// Named nodes and literals become constants. Blank nodes and variables are
// looked up in vars by label; unknown labels get a fresh query variable from
// a counter local to this call and are recorded in vars. A nil vars is
// allowed when the caller does not need the mapping.
func Translate(statements []ir.Statement, vars VarMap) (*Select, error) {
	if vars == nil {
		vars = make(VarMap)
	}
	next := 0
	node := func(t ir.Term) (Node, bool) {
		switch v := t.(type) {
		case ir.NamedNode, ir.Literal:
			return Const{Term: v}, true
		case ir.BlankNode, ir.Variable:
			label := v.Value()
			name, ok := vars[label]
			if !ok {
				name = fmt.Sprintf("%s%d", VarPrefix, next)
				next++
				vars[label] = name
			}
			return Var{Name: name}, true
		default:
			return nil, false
		}
	}

	sel := &Select{Groups: make([]Group, 0, len(statements))}
	for si, st := range statements {
		group := Group{Patterns: make([]QuadPattern, 0, len(st))}
		for qi, q := range st {
			terms := [3]ir.Term{q.Subject, q.Predicate, q.Object}
			var nodes [3]Node
			for i, pos := range [3]string{"subject", "predicate", "object"} {
				n, ok := node(terms[i])
				if !ok {
					return nil, &MalformedTermError{Statement: si, Quad: qi, Position: pos, Term: terms[i]}
				}
				nodes[i] = n
			}
			group.Patterns = append(group.Patterns, QuadPattern{
				Subject:   nodes[0],
				Predicate: nodes[1],
				Object:    nodes[2],
			})
		}
		sel.Groups = append(sel.Groups, group)
	}
	return sel, nil
}
