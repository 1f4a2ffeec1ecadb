package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/think/internal/ir"
)

func TestValidate_JoinedPattern(t *testing.T) {
	sel := &Select{Groups: []Group{{Patterns: []QuadPattern{
		{Subject: Var{"U_0"}, Predicate: Const{knows}, Object: Var{"U_1"}},
		{Subject: Var{"U_1"}, Predicate: Const{typ}, Object: Const{person}},
	}}}}

	result := Validate(sel)

	assert.True(t, result.Valid)
	assert.Empty(t, result.Warnings)
}

func TestValidate_EmptyPattern(t *testing.T) {
	result := Validate(&Select{})

	assert.False(t, result.Valid)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "empty pattern")
}

func TestValidate_NilQuery(t *testing.T) {
	assert.False(t, Validate(nil).Valid)

	var sel *Select
	assert.False(t, Validate(sel).Valid)
}

func TestValidate_CrossProduct(t *testing.T) {
	sel := &Select{Groups: []Group{
		{Patterns: []QuadPattern{{Subject: Var{"U_0"}, Predicate: Const{typ}, Object: Const{person}}}},
		{Patterns: []QuadPattern{{Subject: Var{"U_1"}, Predicate: Const{typ}, Object: Const{person}}}},
	}}

	result := Validate(sel)

	assert.False(t, result.Valid)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "cross product")
}

func TestValidate_BadPositions(t *testing.T) {
	sel := &Select{Groups: []Group{{Patterns: []QuadPattern{
		{Subject: Var{""}, Predicate: nil, Object: Const{ir.NewBlankNode("b")}},
	}}}}

	result := Validate(sel)

	assert.False(t, result.Valid)
	assert.Len(t, result.Warnings, 3)
}

func TestValidate_TranslatedRuleIsValid(t *testing.T) {
	x := ir.NewVariable("x")
	sel, err := Translate([]ir.Statement{{ir.NewQuad(x, typ, person), ir.NewQuad(x, knows, ir.NewBlankNode("b"))}}, nil)
	require.NoError(t, err)

	assert.True(t, Validate(sel).Valid)
}
