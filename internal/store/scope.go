package store

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/roach88/think/internal/ir"
)

// Loader loads input documents into stores. Blank node labels are
// scoped to their document: label x of the n-th document is stored as bn_x,
// so equal labels in two documents stay distinct and no input label can
// collide with a minted ir.SkolemPrefix identifier.
//
// Documents are numbered in load order starting at 0, so loading the same
// inputs in the same order twice yields the same labels. The zero Loader is
// ready to use; documents loaded into different stores share its numbering.
type Loader struct {
	next int
}

// LoadQuads merges one document's quads into dst and returns how many were
// new. An empty document still takes a number.
func (l *Loader) LoadQuads(ctx context.Context, dst Store, quads []ir.Quad) (int, error) {
	scoped := ScopeBlankNodes(quads, l.prefix())
	if len(scoped) == 0 {
		return 0, nil
	}
	return dst.Merge(ctx, NewMemory(scoped...))
}

// LoadFile reads an N-Quads file into dst as one document.
func (l *Loader) LoadFile(ctx context.Context, dst Store, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		l.next++
		return 0, fmt.Errorf("load %s: %w", path, err)
	}
	defer f.Close()

	quads, err := ReadNQuads(f)
	if err != nil {
		l.next++
		return 0, fmt.Errorf("load %s: %w", path, err)
	}
	n, err := l.LoadQuads(ctx, dst, quads)
	if err != nil {
		return 0, fmt.Errorf("load %s: %w", path, err)
	}
	return n, nil
}

func (l *Loader) prefix() string {
	p := "b" + strconv.Itoa(l.next) + "_"
	l.next++
	return p
}

// ScopeBlankNodes returns quads with every blank node label prefixed.
func ScopeBlankNodes(quads []ir.Quad, prefix string) []ir.Quad {
	rewrite := func(t ir.Term) ir.Term {
		if b, ok := t.(ir.BlankNode); ok {
			return ir.NewBlankNode(prefix + b.ID)
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
