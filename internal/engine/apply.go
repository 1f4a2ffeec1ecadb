package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/think/internal/ir"
	"github.com/roach88/think/internal/queryir"
	"github.com/roach88/think/internal/store"
)

// Evaluator runs a rule's premise query against the union of sources.
// Implemented by queryexec.Memory and queryexec.SQL.
type Evaluator interface {
	Evaluate(ctx context.Context, q *queryir.Select, sources []store.Source) ([]ir.Binding, error)
}

// Bind cases reported in debug logs.
const (
	caseBound           = "premise"
	caseReusePersistent = "reuse-persistent"
	caseReuseCall       = "reuse-call"
	caseMint            = "mint"
	caseConstant        = "constant"
)

// Apply runs one rule once: it evaluates the premise against sources and
// instantiates the conclusion for every solution row.
//
// Conclusion terms are resolved in this order:
//   - a blank node or variable bound by the premise takes the row's value
//   - an existential already minted by an earlier application is reused,
//     unless the row binds a premise term to that same identifier
//   - an existential minted earlier in this call is reused
//   - otherwise a fresh identifier is minted from gen
//   - named nodes and literals are copied
//
// Identifiers minted in this call are recorded in rule.Conclusion.Skolems
// after all rows are processed. Zero rows returns an empty store without
// touching any map.
func Apply(ctx context.Context, ev Evaluator, sources []store.Source, rule *Rule, gen SkolemGenerator) (*store.Memory, error) {
	result := store.NewMemory()

	rows, err := ev.Evaluate(ctx, rule.Premise.Query, sources)
	if err != nil {
		return nil, fmt.Errorf("rule %s: evaluate premise: %w", rule.ID, err)
	}
	if len(rows) == 0 {
		return result, nil
	}

	a := &application{
		rule:    rule,
		gen:     gen,
		current: make(map[string]ir.BlankNode),
		debug:   slog.Default().Enabled(ctx, slog.LevelDebug),
	}

	for _, row := range rows {
		for _, st := range rule.Conclusion.Statements {
			for _, q := range st {
				derived, err := a.bindQuad(row, q)
				if err != nil {
					return nil, err
				}
				result.Insert(derived)
			}
		}
	}

	for label, id := range a.current {
		rule.Conclusion.Skolems[label] = id
	}
	return result, nil
}

// application is the state of one Apply call.
type application struct {
	rule    *Rule
	gen     SkolemGenerator
	current map[string]ir.BlankNode
	debug   bool
}

func (a *application) bindQuad(row ir.Binding, q ir.Quad) (ir.Quad, error) {
	var out ir.Quad
	var err error
	if out.Subject, err = a.bindTerm(row, q.Subject); err != nil {
		return ir.Quad{}, err
	}
	if out.Predicate, err = a.bindTerm(row, q.Predicate); err != nil {
		return ir.Quad{}, err
	}
	if out.Object, err = a.bindTerm(row, q.Object); err != nil {
		return ir.Quad{}, err
	}
	if q.Graph != nil {
		if out.Graph, err = a.bindTerm(row, q.Graph); err != nil {
			return ir.Quad{}, err
		}
	}
	return out, nil
}

func (a *application) bindTerm(row ir.Binding, t ir.Term) (ir.Term, error) {
	switch t.(type) {
	case ir.NamedNode, ir.Literal:
		a.log(caseConstant, t, t)
		return t, nil
	case ir.BlankNode, ir.Variable:
	default:
		return nil, &RuntimeError{
			Code:    ErrCodeMalformedTerm,
			Message: fmt.Sprintf("conclusion term %#v has no known kind", t),
			RuleID:  a.rule.ID,
		}
	}

	label := t.Value()

	if bound, ok, err := a.premiseValue(row, t); err != nil {
		return nil, err
	} else if ok {
		a.log(caseBound, t, bound)
		return bound, nil
	}

	if id, ok := a.rule.Conclusion.Skolems[label]; ok && !a.coreferent(row, id) {
		a.log(caseReusePersistent, t, id)
		return id, nil
	}

	if id, ok := a.current[label]; ok {
		a.log(caseReuseCall, t, id)
		return id, nil
	}

	id := a.gen.Next()
	a.current[label] = id
	a.log(caseMint, t, id)
	return id, nil
}

// premiseValue returns the row's value for t when t is a blank node or
// variable the premise binds.
func (a *application) premiseValue(row ir.Binding, t ir.Term) (ir.Term, bool, error) {
	if !ir.IsBlankNodeOrVariable(t) {
		return nil, false, nil
	}
	name, ok := a.rule.Premise.Vars[t.Value()]
	if !ok {
		return nil, false, nil
	}
	v, ok := row.Get(name)
	if !ok || v == nil {
		return nil, false, &RuntimeError{
			Code:    ErrCodeUnboundVariable,
			Message: fmt.Sprintf("row has no value for ?%s (label %s)", name, t.Value()),
			RuleID:  a.rule.ID,
		}
	}
	return v, true, nil
}

// coreferent reports whether the row binds some premise-bound position of
// the conclusion to a blank node or variable labelled like id. Reusing id
// would then conflate a premise value with an unrelated existential.
func (a *application) coreferent(row ir.Binding, id ir.BlankNode) bool {
	for _, st := range a.rule.Conclusion.Statements {
		for _, q := range st {
			for _, t := range [3]ir.Term{q.Subject, q.Predicate, q.Object} {
				bound, ok, err := a.premiseValue(row, t)
				if err != nil || !ok {
					continue
				}
				if ir.IsBlankNodeOrVariable(bound) && bound.Value() == id.Value() {
					return true
				}
			}
		}
	}
	return false
}

func (a *application) log(bindCase string, from, to ir.Term) {
	if !a.debug {
		return
	}
	slog.Debug("bind",
		"rule", a.rule.ID,
		"case", bindCase,
		"term", from.String(),
		"value", to.String(),
	)
}
