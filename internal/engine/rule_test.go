package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/think/internal/ir"
	"github.com/roach88/think/internal/queryir"
	. "github.com/roach88/think/internal/testutil"
)

func personRoleRuleSet() *ir.RuleSet {
	return RuleSet(
		[]ir.Quad{Triple(IRI("a"), Type, IRI("Person"))},
		Implies(
			Statements(Triple(Var("x"), Type, IRI("Person"))),
			Statements(Triple(Var("x"), IRI("hasRole"), Blank("b"))),
		),
	)
}

func TestCompileRules_Basic(t *testing.T) {
	rules, err := CompileRules(personRoleRuleSet())
	require.NoError(t, err)
	require.Len(t, rules, 1)

	r := rules[0]
	assert.Equal(t, "r0", r.ID)
	assert.Equal(t, queryir.VarMap{"x": "U_0"}, r.Premise.Vars)
	assert.Equal(t, "SELECT * {?U_0 <"+ir.RDFType+"> <http://example.org/Person>.}", r.Premise.Text)
	assert.Equal(t, "SELECT * {?U_0 <http://example.org/hasRole> ?U_1.}", r.Conclusion.Text)
	assert.Empty(t, r.Conclusion.Skolems, "persistent map starts empty")
	assert.NotNil(t, r.Conclusion.Skolems)
}

func TestCompileRules_PreservesOrderAndNames(t *testing.T) {
	rs := personRoleRuleSet()
	rs.Graphs["g"] = Statements(Triple(Var("s"), IRI("p"), Var("o")))
	rs.Implies = append(rs.Implies, ir.Implication{Premise: "g", Conclusion: "g"})

	rules, err := CompileRules(rs)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "r0", rules[0].ID)
	assert.Equal(t, "rule-1", rules[1].ID)
}

func TestCompileRules_IndependentVarMaps(t *testing.T) {
	shared := Statements(Triple(Var("s"), IRI("p"), Var("o")))
	rules, err := CompileRules(RuleSet(nil, Implies(shared, shared), Implies(shared, shared)))
	require.NoError(t, err)

	rules[0].Premise.Vars["extra"] = "U_9"
	assert.NotContains(t, rules[1].Premise.Vars, "extra")
}

func TestCompileRules_UnknownGraph(t *testing.T) {
	rs := personRoleRuleSet()
	rs.Implies[0].Conclusion = "missing"

	_, err := CompileRules(rs)
	require.Error(t, err)
	assert.True(t, IsUnknownGraphError(err))
	assert.Equal(t, ErrCodeUnknownGraph, ErrorCode(err))
}

func TestCompileRules_MalformedTerm(t *testing.T) {
	rs := RuleSet(nil, Implies(
		Statements(ir.Quad{Subject: Var("x"), Predicate: IRI("p")}),
		Statements(Triple(Var("x"), IRI("q"), IRI("o"))),
	))

	_, err := CompileRules(rs)
	require.Error(t, err)
	assert.True(t, IsMalformedTermError(err))

	var mt *queryir.MalformedTermError
	require.ErrorAs(t, err, &mt)
	assert.Equal(t, "object", mt.Position)
}

func TestCompileRules_NilRuleSet(t *testing.T) {
	_, err := CompileRules(nil)
	assert.Error(t, err)
}

func TestSkolemMaps_RoundTripIntoFreshRules(t *testing.T) {
	rules, err := CompileRules(personRoleRuleSet())
	require.NoError(t, err)
	assert.Empty(t, SkolemMaps(rules))

	rules[0].Conclusion.Skolems["b"] = ir.NewBlankNode("sk_0")
	maps := SkolemMaps(rules)
	assert.Equal(t, map[string]map[string]ir.BlankNode{"r0": {"b": ir.NewBlankNode("sk_0")}}, maps)

	fresh, err := CompileRules(personRoleRuleSet())
	require.NoError(t, err)
	RestoreSkolems(fresh, maps)
	RestoreSkolems(fresh, map[string]map[string]ir.BlankNode{"gone": {"b": ir.NewBlankNode("sk_9")}})
	assert.Equal(t, map[string]ir.BlankNode{"b": ir.NewBlankNode("sk_0")}, fresh[0].Conclusion.Skolems)

	// The copy does not alias the rule's map.
	maps["r0"]["b"] = ir.NewBlankNode("sk_5")
	assert.Equal(t, ir.NewBlankNode("sk_0"), rules[0].Conclusion.Skolems["b"])
}
