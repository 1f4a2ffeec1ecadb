package store

import (
	"context"
	"iter"

	"github.com/roach88/think/internal/ir"
)

// Memory is an in-process quad set with insertion-ordered iteration and
// per-position indexes. It is not safe for concurrent use.
type Memory struct {
	quads       []ir.Quad
	index       map[ir.Quad]int
	bySubject   map[ir.Term][]int
	byPredicate map[ir.Term][]int
	byObject    map[ir.Term][]int
}

// NewMemory creates a Memory holding the given quads (duplicates collapse).
func NewMemory(quads ...ir.Quad) *Memory {
	m := &Memory{
		index:       make(map[ir.Quad]int),
		bySubject:   make(map[ir.Term][]int),
		byPredicate: make(map[ir.Term][]int),
		byObject:    make(map[ir.Term][]int),
	}
	for _, q := range quads {
		m.Insert(q)
	}
	return m
}

// Insert adds q and reports whether it was new. It is Add without a context.
func (m *Memory) Insert(q ir.Quad) bool {
	if _, ok := m.index[q]; ok {
		return false
	}
	i := len(m.quads)
	m.quads = append(m.quads, q)
	m.index[q] = i
	m.bySubject[q.Subject] = append(m.bySubject[q.Subject], i)
	m.byPredicate[q.Predicate] = append(m.byPredicate[q.Predicate], i)
	m.byObject[q.Object] = append(m.byObject[q.Object], i)
	return true
}

// Size returns the number of quads.
func (m *Memory) Size() int {
	return len(m.quads)
}

// Has reports whether q is present.
func (m *Memory) Has(q ir.Quad) bool {
	_, ok := m.index[q]
	return ok
}

// All returns a copy of the quads in insertion order.
func (m *Memory) All() []ir.Quad {
	out := make([]ir.Quad, len(m.quads))
	copy(out, m.quads)
	return out
}

// Len implements Source.
func (m *Memory) Len(ctx context.Context) (int, error) {
	return len(m.quads), nil
}

// Quads implements Source. Quads added during iteration are not yielded.
func (m *Memory) Quads(ctx context.Context) iter.Seq2[ir.Quad, error] {
	snapshot := m.quads[:len(m.quads):len(m.quads)]
	return func(yield func(ir.Quad, error) bool) {
		for _, q := range snapshot {
			if !yield(q, nil) {
				return
			}
		}
	}
}

// Add implements Store.
func (m *Memory) Add(ctx context.Context, q ir.Quad) (bool, error) {
	return m.Insert(q), nil
}

// Merge implements Store.
func (m *Memory) Merge(ctx context.Context, src Source) (int, error) {
	added := 0
	for q, err := range src.Quads(ctx) {
		if err != nil {
			return added, err
		}
		if m.Insert(q) {
			added++
		}
	}
	return added, nil
}

// Match implements Matcher using the most selective bound position.
func (m *Memory) Match(ctx context.Context, s, p, o ir.Term) iter.Seq2[ir.Quad, error] {
	candidates, scanAll := m.candidates(s, p, o)
	snapshot := m.quads[:len(m.quads):len(m.quads)]
	return func(yield func(ir.Quad, error) bool) {
		if scanAll {
			for _, q := range snapshot {
				if matches(q, s, p, o) && !yield(q, nil) {
					return
				}
			}
			return
		}
		for _, i := range candidates {
			q := snapshot[i]
			if matches(q, s, p, o) && !yield(q, nil) {
				return
			}
		}
	}
}

// candidates returns the shortest posting list among the bound positions.
// scanAll is true when every position is a wildcard.
func (m *Memory) candidates(s, p, o ir.Term) (list []int, scanAll bool) {
	scanAll = true
	consider := func(t ir.Term, idx map[ir.Term][]int) {
		if t == nil {
			return
		}
		l := idx[t]
		if scanAll || len(l) < len(list) {
			list, scanAll = l, false
		}
	}
	consider(s, m.bySubject)
	consider(p, m.byPredicate)
	consider(o, m.byObject)
	return list, scanAll
}
