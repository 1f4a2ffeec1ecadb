package testutil

import (
	"strconv"
	"sync"

	"github.com/roach88/think/internal/ir"
)

// DeterministicSkolems mints sk_0, sk_1, ... and can be reset for test reuse.
//
// Unlike engine.SkolemCounter, DeterministicSkolems records every identifier
// it hands out so tests can assert on minting order.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicSkolems struct {
	mu     sync.Mutex
	minted []ir.BlankNode
}

// NewDeterministicSkolems creates a generator whose first identifier is sk_0.
func NewDeterministicSkolems() *DeterministicSkolems {
	return &DeterministicSkolems{}
}

// Next mints the next identifier.
//
// Implements engine.SkolemGenerator.
func (g *DeterministicSkolems) Next() ir.BlankNode {
	g.mu.Lock()
	defer g.mu.Unlock()
	b := ir.NewBlankNode(ir.SkolemPrefix + strconv.Itoa(len(g.minted)))
	g.minted = append(g.minted, b)
	return b
}

// Minted returns the identifiers handed out so far, in order.
func (g *DeterministicSkolems) Minted() []ir.BlankNode {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]ir.BlankNode, len(g.minted))
	copy(out, g.minted)
	return out
}

// Reset restarts numbering at sk_0.
func (g *DeterministicSkolems) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.minted = nil
}
