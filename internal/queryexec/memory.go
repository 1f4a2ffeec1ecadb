package queryexec

import (
	"context"
	"fmt"
	"iter"

	"github.com/roach88/think/internal/ir"
	"github.com/roach88/think/internal/queryir"
	"github.com/roach88/think/internal/store"
)

// Evaluator runs a select against the union of sources.
type Evaluator interface {
	Evaluate(ctx context.Context, q *queryir.Select, sources []store.Source) ([]ir.Binding, error)
}

// Memory evaluates patterns in order with a nested-loop join. It is
// stateless and safe for concurrent use.
type Memory struct{}

// NewMemory creates an in-memory evaluator.
func NewMemory() *Memory {
	return &Memory{}
}

// Evaluate implements Evaluator. Solutions are returned in discovery order
// (pattern order, then source order, then source iteration order) with
// duplicates removed by ir.BindingHash. An empty pattern yields one empty
// binding.
func (e *Memory) Evaluate(ctx context.Context, q *queryir.Select, sources []store.Source) ([]ir.Binding, error) {
	if q == nil {
		return nil, fmt.Errorf("evaluate: nil query")
	}
	patterns := q.Patterns()

	j := &join{
		ctx:      ctx,
		patterns: patterns,
		sources:  sources,
		seen:     make(map[string]bool),
	}
	if err := j.solve(0, ir.Binding{}); err != nil {
		return nil, err
	}
	if j.rows == nil {
		j.rows = []ir.Binding{}
	}
	return j.rows, nil
}

type join struct {
	ctx      context.Context
	patterns []queryir.QuadPattern
	sources  []store.Source
	seen     map[string]bool
	rows     []ir.Binding
}

func (j *join) solve(i int, b ir.Binding) error {
	if err := j.ctx.Err(); err != nil {
		return err
	}
	if i == len(j.patterns) {
		h := ir.BindingHash(b)
		if !j.seen[h] {
			j.seen[h] = true
			j.rows = append(j.rows, cloneBinding(b))
		}
		return nil
	}

	p := j.patterns[i]
	var bound [3]ir.Term
	for k, n := range p.Nodes() {
		t, err := resolve(n, b)
		if err != nil {
			return fmt.Errorf("pattern %d: %w", i, err)
		}
		bound[k] = t
	}

	for _, src := range j.sources {
		for q, err := range match(j.ctx, src, bound[0], bound[1], bound[2]) {
			if err != nil {
				return fmt.Errorf("pattern %d: %w", i, err)
			}
			next, ok := unify(p, q, b)
			if !ok {
				continue
			}
			if err := j.solve(i+1, next); err != nil {
				return err
			}
		}
	}
	return nil
}

// resolve returns the term a node is fixed to under b, or nil when the node
// is an unbound variable.
func resolve(n queryir.Node, b ir.Binding) (ir.Term, error) {
	switch v := n.(type) {
	case queryir.Const:
		if v.Term == nil {
			return nil, fmt.Errorf("constant with nil term")
		}
		return v.Term, nil
	case queryir.Var:
		return b[v.Name], nil
	default:
		return nil, fmt.Errorf("unsupported node type: %T", n)
	}
}

// unify extends b with the variables of p bound to the matching positions
// of q. It fails when a variable repeated within p meets different terms.
func unify(p queryir.QuadPattern, q ir.Quad, b ir.Binding) (ir.Binding, bool) {
	terms := [3]ir.Term{q.Subject, q.Predicate, q.Object}
	var next ir.Binding
	for k, n := range p.Nodes() {
		v, ok := n.(queryir.Var)
		if !ok {
			continue
		}
		cur := b
		if next != nil {
			cur = next
		}
		if existing, bound := cur[v.Name]; bound {
			if existing != terms[k] {
				return nil, false
			}
			continue
		}
		if next == nil {
			next = cloneBinding(b)
		}
		next[v.Name] = terms[k]
	}
	if next == nil {
		return b, true
	}
	return next, true
}

func match(ctx context.Context, src store.Source, s, p, o ir.Term) iter.Seq2[ir.Quad, error] {
	if m, ok := src.(store.Matcher); ok {
		return m.Match(ctx, s, p, o)
	}
	return func(yield func(ir.Quad, error) bool) {
		for q, err := range src.Quads(ctx) {
			if err != nil {
				yield(ir.Quad{}, err)
				return
			}
			if (s == nil || q.Subject == s) && (p == nil || q.Predicate == p) && (o == nil || q.Object == o) {
				if !yield(q, nil) {
					return
				}
			}
		}
	}
}

func cloneBinding(b ir.Binding) ir.Binding {
	out := make(ir.Binding, len(b)+2)
	for k, v := range b {
		out[k] = v
	}
	return out
}
