package engine

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/roach88/think/internal/ir"
)

// SkolemGenerator mints fresh synthetic identifiers for existentials.
type SkolemGenerator interface {
	Next() ir.BlankNode
}

// SkolemCounter mints sk_0, sk_1, ... in order.
//
// Thread-safety: SkolemCounter is safe for concurrent use (atomic
// operations), although a run only calls Next from its own goroutine.
type SkolemCounter struct {
	n atomic.Int64
}

// NewSkolemCounter creates a counter starting at sk_0.
func NewSkolemCounter() *SkolemCounter {
	return &SkolemCounter{}
}

// NewSkolemCounterAt creates a counter whose next identifier is sk_<start>.
// Used to continue numbering over a production store from an earlier run.
func NewSkolemCounterAt(start int64) *SkolemCounter {
	c := &SkolemCounter{}
	c.n.Store(start)
	return c
}

// Next returns the next identifier and advances the counter.
func (c *SkolemCounter) Next() ir.BlankNode {
	n := c.n.Add(1) - 1
	return ir.NewBlankNode(ir.SkolemPrefix + strconv.FormatInt(n, 10))
}

// Minted returns how many identifiers have been handed out.
func (c *SkolemCounter) Minted() int64 {
	return c.n.Load()
}

// NextSkolemIndex returns one past the highest sk_N index used by quads, so
// NewSkolemCounterAt(NextSkolemIndex(q)) never collides with them.
func NextSkolemIndex(quads []ir.Quad) int64 {
	var next int64
	for _, q := range quads {
		for _, t := range q.Terms() {
			if !ir.IsSkolem(t) {
				continue
			}
			n, err := strconv.ParseInt(strings.TrimPrefix(t.Value(), ir.SkolemPrefix), 10, 64)
			if err == nil && n+1 > next {
				next = n + 1
			}
		}
	}
	return next
}

// SkolemNamespace builds a network-unique namespace for skolem IRIs:
//
//	<base>/.well-known/genid/<base64url(sha256(random))>#
//
// Each call returns a different namespace.
func SkolemNamespace(base string) (string, error) {
	var seed [32]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return "", fmt.Errorf("read random seed: %w", err)
	}
	sum := sha256.Sum256(seed[:])
	id := base64.RawURLEncoding.EncodeToString(sum[:])
	return strings.TrimSuffix(base, "/") + "/.well-known/genid/" + id + "#", nil
}
