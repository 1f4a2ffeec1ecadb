package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/think/internal/ir"
)

func TestLoaderLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "facts.nq")
	require.NoError(t, os.WriteFile(path, []byte(sampleNQuads), 0o644))

	m := NewMemory()
	var l Loader
	n, err := l.LoadFile(context.Background(), m, path)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.True(t, m.Has(ir.NewQuad(ir.NewBlankNode("b0_b0"), ex("knows"), ex("a")).InGraph(ex("g"))))

	_, err = l.LoadFile(context.Background(), m, filepath.Join(t.TempDir(), "missing.nq"))
	assert.Error(t, err)
}

func TestLoaderScopesBlankNodesPerDocument(t *testing.T) {
	ctx := context.Background()
	doc := []ir.Quad{ir.NewQuad(ir.NewBlankNode("x"), ex("name"), ir.NewLiteral("Bob", "", ""))}

	m, other := NewMemory(), NewMemory()
	var l Loader
	_, err := l.LoadQuads(ctx, m, nil)
	require.NoError(t, err)
	_, err = l.LoadQuads(ctx, m, doc)
	require.NoError(t, err)
	_, err = l.LoadQuads(ctx, m, doc)
	require.NoError(t, err)
	_, err = l.LoadQuads(ctx, other, doc)
	require.NoError(t, err)

	assert.ElementsMatch(t, []ir.Quad{
		ir.NewQuad(ir.NewBlankNode("b1_x"), ex("name"), ir.NewLiteral("Bob", "", "")),
		ir.NewQuad(ir.NewBlankNode("b2_x"), ex("name"), ir.NewLiteral("Bob", "", "")),
	}, m.All())
	assert.Equal(t, []ir.Quad{ir.NewQuad(ir.NewBlankNode("b3_x"), ex("name"), ir.NewLiteral("Bob", "", ""))}, other.All())
}

func TestLoaderNeverYieldsSkolemLabels(t *testing.T) {
	// Output of an earlier run fed back as facts.
	path := filepath.Join(t.TempDir(), "out.nq")
	require.NoError(t, os.WriteFile(path, []byte(
		"_:sk_0 <http://example.org/name> \"Bob\" .\n"), 0o644))

	m := NewMemory()
	var l Loader
	_, err := l.LoadFile(context.Background(), m, path)
	require.NoError(t, err)

	for _, q := range m.All() {
		for _, term := range q.Terms() {
			assert.False(t, ir.IsSkolem(term), "input label kept reserved prefix: %s", q)
		}
	}
	assert.True(t, m.Has(ir.NewQuad(ir.NewBlankNode("b0_sk_0"), ex("name"), ir.NewLiteral("Bob", "", ""))))
}
