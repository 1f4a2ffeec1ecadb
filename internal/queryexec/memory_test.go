package queryexec

import (
	"context"
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/think/internal/ir"
	"github.com/roach88/think/internal/queryir"
	"github.com/roach88/think/internal/store"
)

func ex(local string) ir.NamedNode {
	return ir.NewNamedNode("http://example.org/" + local)
}

func triple(s, p, o string) ir.Quad {
	return ir.NewQuad(ex(s), ex(p), ex(o))
}

func translate(t *testing.T, statements ...ir.Statement) *queryir.Select {
	t.Helper()
	sel, err := queryir.Translate(statements, nil)
	require.NoError(t, err)
	return sel
}

// plainSource hides the Matcher implementation of a Memory.
type plainSource struct{ m *store.Memory }

func (p plainSource) Len(ctx context.Context) (int, error) { return p.m.Len(ctx) }
func (p plainSource) Quads(ctx context.Context) iter.Seq2[ir.Quad, error] {
	return p.m.Quads(ctx)
}

var people = []ir.Quad{
	triple("a", "knows", "b"),
	triple("b", "knows", "c"),
	triple("c", "knows", "a"),
	triple("a", "type", "Person"),
	triple("b", "type", "Person"),
}

func TestMemory_SinglePattern(t *testing.T) {
	sel := translate(t, ir.Statement{ir.NewQuad(ir.NewVariable("x"), ex("type"), ex("Person"))})

	rows, err := NewMemory().Evaluate(context.Background(), sel, []store.Source{store.NewMemory(people...)})
	require.NoError(t, err)

	assert.Equal(t, []ir.Binding{{"U_0": ex("a")}, {"U_0": ex("b")}}, rows)
}

func TestMemory_Join(t *testing.T) {
	x, y, z := ir.NewVariable("x"), ir.NewVariable("y"), ir.NewVariable("z")
	sel := translate(t, ir.Statement{ir.NewQuad(x, ex("knows"), y), ir.NewQuad(y, ex("knows"), z)})

	rows, err := NewMemory().Evaluate(context.Background(), sel, []store.Source{store.NewMemory(people...)})
	require.NoError(t, err)

	require.Len(t, rows, 3)
	assert.Equal(t, ir.Binding{"U_0": ex("a"), "U_1": ex("b"), "U_2": ex("c")}, rows[0])
}

func TestMemory_RepeatedVariable(t *testing.T) {
	x := ir.NewVariable("x")
	src := store.NewMemory(triple("a", "same", "a"), triple("a", "same", "b"))
	sel := translate(t, ir.Statement{ir.NewQuad(x, ex("same"), x)})

	rows, err := NewMemory().Evaluate(context.Background(), sel, []store.Source{src})
	require.NoError(t, err)
	assert.Equal(t, []ir.Binding{{"U_0": ex("a")}}, rows)
}

func TestMemory_UnionOfSourcesDeduplicates(t *testing.T) {
	facts := store.NewMemory(triple("a", "type", "Person"))
	production := store.NewMemory(triple("a", "type", "Person"), triple("c", "type", "Person"))
	sel := translate(t, ir.Statement{ir.NewQuad(ir.NewVariable("x"), ex("type"), ex("Person"))})

	rows, err := NewMemory().Evaluate(context.Background(), sel, []store.Source{facts, production})
	require.NoError(t, err)
	assert.Equal(t, []ir.Binding{{"U_0": ex("a")}, {"U_0": ex("c")}}, rows)
}

func TestMemory_NonMatcherSource(t *testing.T) {
	sel := translate(t, ir.Statement{ir.NewQuad(ir.NewVariable("x"), ex("knows"), ex("a"))})

	rows, err := NewMemory().Evaluate(context.Background(), sel, []store.Source{plainSource{store.NewMemory(people...)}})
	require.NoError(t, err)
	assert.Equal(t, []ir.Binding{{"U_0": ex("c")}}, rows)
}

func TestMemory_NoRows(t *testing.T) {
	sel := translate(t, ir.Statement{ir.NewQuad(ir.NewVariable("x"), ex("missing"), ir.NewVariable("y"))})

	rows, err := NewMemory().Evaluate(context.Background(), sel, []store.Source{store.NewMemory(people...)})
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestMemory_EmptyPatternYieldsOneRow(t *testing.T) {
	rows, err := NewMemory().Evaluate(context.Background(), &queryir.Select{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []ir.Binding{{}}, rows)
}

func TestMemory_GroundPattern(t *testing.T) {
	src := []store.Source{store.NewMemory(people...)}

	rows, err := NewMemory().Evaluate(context.Background(), translate(t, ir.Statement{triple("a", "knows", "b")}), src)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	rows, err = NewMemory().Evaluate(context.Background(), translate(t, ir.Statement{triple("b", "knows", "a")}), src)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestMemory_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sel := translate(t, ir.Statement{ir.NewQuad(ir.NewVariable("x"), ex("knows"), ir.NewVariable("y"))})
	_, err := NewMemory().Evaluate(ctx, sel, []store.Source{store.NewMemory(people...)})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemory_NilQuery(t *testing.T) {
	_, err := NewMemory().Evaluate(context.Background(), nil, nil)
	assert.Error(t, err)
}
