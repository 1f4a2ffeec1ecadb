package querysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/think/internal/ir"
	"github.com/roach88/think/internal/queryir"
)

var (
	knows  = ir.NewNamedNode("http://example.org/knows")
	person = ir.NewNamedNode("http://example.org/Person")
	typ    = ir.NewNamedNode(ir.RDFType)
)

func translate(t *testing.T, statements ...ir.Statement) *queryir.Select {
	t.Helper()
	sel, err := queryir.Translate(statements, nil)
	require.NoError(t, err)
	return sel
}

func TestCompile_SinglePattern(t *testing.T) {
	compiler := NewSQLCompiler(1)
	sel := translate(t, ir.Statement{ir.NewQuad(ir.NewVariable("x"), typ, person)})

	c, err := compiler.Compile(sel)
	require.NoError(t, err)

	assert.Equal(t,
		`SELECT DISTINCT q0.subject AS "U_0" FROM quads q0 WHERE q0.table_id IN (?) AND q0.predicate = ? AND q0.object = ? ORDER BY "U_0" ASC COLLATE BINARY`,
		c.SQL)
	assert.Equal(t, []any{int64(1), ir.EncodeTerm(typ), ir.EncodeTerm(person)}, c.Params)
	assert.Equal(t, []string{"U_0"}, c.Vars)
}

func TestCompile_NoStringInterpolation(t *testing.T) {
	compiler := NewSQLCompiler(1)
	evil := ir.NewLiteral("'; DROP TABLE quads; --", "", "")
	sel := translate(t, ir.Statement{ir.NewQuad(ir.NewVariable("x"), knows, evil)})

	c, err := compiler.Compile(sel)
	require.NoError(t, err)

	assert.NotContains(t, c.SQL, "DROP TABLE")
	assert.Contains(t, c.Params, ir.EncodeTerm(evil))
}

func TestCompile_SharedVariablesJoin(t *testing.T) {
	compiler := NewSQLCompiler(1, 2)
	x, y := ir.NewVariable("x"), ir.NewVariable("y")
	sel := translate(t,
		ir.Statement{ir.NewQuad(x, knows, y)},
		ir.Statement{ir.NewQuad(y, knows, x)},
	)

	c, err := compiler.Compile(sel)
	require.NoError(t, err)

	assert.Contains(t, c.SQL, "FROM quads q0, quads q1")
	assert.Contains(t, c.SQL, "q0.table_id IN (?, ?)")
	assert.Contains(t, c.SQL, "q1.subject = q0.object")
	assert.Contains(t, c.SQL, "q1.object = q0.subject")
	assert.Equal(t, []string{"U_0", "U_1"}, c.Vars)
	assert.Len(t, c.Params, 2+1+2+1)
}

func TestCompile_RepeatedVariableInOnePattern(t *testing.T) {
	x := ir.NewVariable("x")
	c, err := NewSQLCompiler(1).Compile(translate(t, ir.Statement{ir.NewQuad(x, knows, x)}))
	require.NoError(t, err)
	assert.Contains(t, c.SQL, "q0.object = q0.subject")
	assert.Equal(t, []string{"U_0"}, c.Vars)
}

func TestCompile_OrderByMandatory(t *testing.T) {
	x, y := ir.NewVariable("x"), ir.NewVariable("y")
	for _, sel := range []*queryir.Select{
		translate(t, ir.Statement{ir.NewQuad(x, knows, y)}),
		translate(t, ir.Statement{ir.NewQuad(x, knows, y), ir.NewQuad(y, typ, person)}),
	} {
		c, err := NewSQLCompiler(1).Compile(sel)
		require.NoError(t, err)
		assert.Contains(t, c.SQL, "ORDER BY")
		assert.Contains(t, c.SQL, "COLLATE BINARY")
	}
}

func TestCompile_GroundPattern(t *testing.T) {
	c, err := NewSQLCompiler(1).Compile(translate(t, ir.Statement{ir.NewQuad(person, typ, person)}))
	require.NoError(t, err)
	assert.True(t, len(c.SQL) > 0)
	assert.Contains(t, c.SQL, "SELECT 1 FROM")
	assert.Contains(t, c.SQL, "LIMIT 1")
	assert.Empty(t, c.Vars)
}

func TestCompile_EmptyPattern(t *testing.T) {
	c, err := NewSQLCompiler().Compile(&queryir.Select{})
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", c.SQL)
}

func TestCompile_Errors(t *testing.T) {
	_, err := NewSQLCompiler(1).Compile(nil)
	assert.Error(t, err)

	_, err = NewSQLCompiler().Compile(translate(t, ir.Statement{ir.NewQuad(ir.NewVariable("x"), typ, person)}))
	assert.Error(t, err, "no tables")

	bad := &queryir.Select{Groups: []queryir.Group{{Patterns: []queryir.QuadPattern{
		{Subject: queryir.Const{Term: ir.NewBlankNode("b")}, Predicate: queryir.Const{Term: typ}, Object: queryir.Var{Name: "U_0"}},
	}}}}
	_, err = NewSQLCompiler(1).Compile(bad)
	assert.Error(t, err)
}
