package store

import (
	"context"
	"iter"
	"slices"
	"strings"

	"github.com/roach88/think/internal/ir"
)

// Source is a readable set of quads.
type Source interface {
	// Len returns the number of distinct quads.
	Len(ctx context.Context) (int, error)

	// Quads yields every quad in a stable order. Iteration stops at the
	// first error, which is yielded with a zero quad.
	Quads(ctx context.Context) iter.Seq2[ir.Quad, error]
}

// Store is a Source that grows monotonically.
type Store interface {
	Source

	// Add inserts q and reports whether it was not already present.
	Add(ctx context.Context, q ir.Quad) (bool, error)

	// Merge adds every quad of src and returns how many were new.
	Merge(ctx context.Context, src Source) (int, error)
}

// Matcher is implemented by sources with index access. A nil term is a
// wildcard; the graph is never constrained.
type Matcher interface {
	Match(ctx context.Context, s, p, o ir.Term) iter.Seq2[ir.Quad, error]
}

// Collect reads every quad of src into a slice.
func Collect(ctx context.Context, src Source) ([]ir.Quad, error) {
	var out []ir.Quad
	for q, err := range src.Quads(ctx) {
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

// SortQuads orders quads by their canonical N-Quads line.
// Used wherever output must not depend on insertion order.
func SortQuads(quads []ir.Quad) {
	slices.SortFunc(quads, func(a, b ir.Quad) int {
		return strings.Compare(ir.EncodeQuad(a), ir.EncodeQuad(b))
	})
}

// matches reports whether q agrees with every non-nil pattern term.
func matches(q ir.Quad, s, p, o ir.Term) bool {
	return (s == nil || q.Subject == s) &&
		(p == nil || q.Predicate == p) &&
		(o == nil || q.Object == o)
}
