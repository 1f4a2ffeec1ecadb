package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/think/internal/ir"
	"github.com/roach88/think/internal/queryexec"
	"github.com/roach88/think/internal/queryir"
	"github.com/roach88/think/internal/store"
	. "github.com/roach88/think/internal/testutil"
)

func compileOne(t *testing.T, premise, conclusion []ir.Statement) *Rule {
	t.Helper()
	rules, err := CompileRules(RuleSet(nil, Implies(premise, conclusion)))
	require.NoError(t, err)
	return rules[0]
}

func applyRule(t *testing.T, r *Rule, gen SkolemGenerator, sources ...store.Source) *store.Memory {
	t.Helper()
	out, err := Apply(context.Background(), queryexec.NewMemory(), sources, r, gen)
	require.NoError(t, err)
	return out
}

// countingEvaluator records calls and returns fixed rows.
type countingEvaluator struct {
	rows  []ir.Binding
	err   error
	calls int
}

func (e *countingEvaluator) Evaluate(context.Context, *queryir.Select, []store.Source) ([]ir.Binding, error) {
	e.calls++
	return e.rows, e.err
}

func TestApply_PremiseBoundAndMint(t *testing.T) {
	r := compileOne(t,
		Statements(Triple(Var("x"), Type, IRI("Person"))),
		Statements(Triple(Var("x"), IRI("hasRole"), Blank("b"))),
	)
	gen := NewDeterministicSkolems()

	out := applyRule(t, r, gen, store.NewMemory(Triple(IRI("a"), Type, IRI("Person"))))

	assert.Equal(t, []ir.Quad{Triple(IRI("a"), IRI("hasRole"), Blank("sk_0"))}, out.All())
	assert.Equal(t, map[string]ir.BlankNode{"b": Blank("sk_0")}, r.Conclusion.Skolems)
}

func TestApply_StableIdentityAcrossApplications(t *testing.T) {
	r := compileOne(t,
		Statements(Triple(Var("x"), Type, IRI("Person"))),
		Statements(Triple(Var("x"), IRI("hasRole"), Blank("b"))),
	)
	gen := NewDeterministicSkolems()
	facts := store.NewMemory(Triple(IRI("a"), Type, IRI("Person")))

	first := applyRule(t, r, gen, facts)
	second := applyRule(t, r, gen, facts)

	assert.Equal(t, first.All(), second.All())
	assert.Len(t, gen.Minted(), 1, "second application reuses sk_0")
}

func TestApply_SameLabelSharedAcrossRowsInOneCall(t *testing.T) {
	r := compileOne(t,
		Statements(Triple(Var("x"), Type, IRI("Person"))),
		Statements(Triple(Var("x"), IRI("memberOf"), Blank("club"))),
	)
	gen := NewDeterministicSkolems()
	facts := store.NewMemory(
		Triple(IRI("a"), Type, IRI("Person")),
		Triple(IRI("c"), Type, IRI("Person")),
	)

	out := applyRule(t, r, gen, facts)

	assert.ElementsMatch(t, []ir.Quad{
		Triple(IRI("a"), IRI("memberOf"), Blank("sk_0")),
		Triple(IRI("c"), IRI("memberOf"), Blank("sk_0")),
	}, out.All())
	assert.Len(t, gen.Minted(), 1)
}

func TestApply_DistinctLabelsGetDistinctIdentifiers(t *testing.T) {
	r := compileOne(t,
		Statements(Triple(Var("x"), Type, IRI("Person"))),
		[]ir.Statement{
			{Triple(Var("x"), IRI("parent"), Blank("p")), Triple(Blank("p"), IRI("parent"), Var("gp"))},
		},
	)
	gen := NewDeterministicSkolems()

	out := applyRule(t, r, gen, store.NewMemory(Triple(IRI("a"), Type, IRI("Person"))))

	assert.Equal(t, []ir.Quad{
		Triple(IRI("a"), IRI("parent"), Blank("sk_0")),
		Triple(Blank("sk_0"), IRI("parent"), Blank("sk_1")),
	}, out.All())
	assert.Equal(t, map[string]ir.BlankNode{"p": Blank("sk_0"), "gp": Blank("sk_1")}, r.Conclusion.Skolems)
}

func TestApply_FreshnessAcrossRules(t *testing.T) {
	premise := Statements(Triple(Var("x"), Type, IRI("Person")))
	rules, err := CompileRules(RuleSet(nil,
		Implies(premise, Statements(Triple(Var("x"), IRI("hasRole"), Blank("b")))),
		Implies(premise, Statements(Triple(Var("x"), IRI("hasBoss"), Blank("b")))),
	))
	require.NoError(t, err)
	gen := NewDeterministicSkolems()
	facts := store.NewMemory(Triple(IRI("a"), Type, IRI("Person")))

	applyRule(t, rules[0], gen, facts)
	applyRule(t, rules[1], gen, facts)

	assert.Equal(t, Blank("sk_0"), rules[0].Conclusion.Skolems["b"])
	assert.Equal(t, Blank("sk_1"), rules[1].Conclusion.Skolems["b"], "same label in another rule is a different existential")
}

func TestApply_EmptyPremiseResultShortCircuits(t *testing.T) {
	r := compileOne(t,
		Statements(Triple(Var("x"), Type, IRI("Person"))),
		Statements(Triple(Var("x"), IRI("hasRole"), Blank("b"))),
	)
	gen := NewDeterministicSkolems()
	ev := &countingEvaluator{rows: []ir.Binding{}}

	out, err := Apply(context.Background(), ev, nil, r, gen)
	require.NoError(t, err)

	assert.Equal(t, 0, out.Size())
	assert.Equal(t, 1, ev.calls)
	assert.Empty(t, gen.Minted())
	assert.Empty(t, r.Conclusion.Skolems)
}

func TestApply_UnconditionalRule(t *testing.T) {
	r := compileOne(t, nil, Statements(Triple(IRI("a"), Type, IRI("Thing"))))

	out := applyRule(t, r, NewDeterministicSkolems())

	assert.Equal(t, []ir.Quad{Triple(IRI("a"), Type, IRI("Thing"))}, out.All())
}

// Rule B mints an existential; rule C feeds that identifier back into B's
// premise. When B's row binds ?y to its own earlier identifier, the
// existential must not be forced onto that same value.
func TestApply_CoreferencePrecedence(t *testing.T) {
	rules, err := CompileRules(RuleSet(nil,
		Implies(
			Statements(Triple(Var("x"), IRI("p"), Var("y"))),
			Statements(Triple(Var("y"), IRI("q"), Blank("n"))),
		),
		Implies(
			Statements(Triple(Var("s"), IRI("q"), Var("o"))),
			Statements(Triple(IRI("e"), IRI("p"), Var("o"))),
		),
	))
	require.NoError(t, err)
	b, c := rules[0], rules[1]
	gen := NewDeterministicSkolems()

	facts := store.NewMemory(Triple(IRI("c"), IRI("p"), IRI("d")))
	production := store.NewMemory()

	first := applyRule(t, b, gen, facts, production)
	assert.Equal(t, []ir.Quad{Triple(IRI("d"), IRI("q"), Blank("sk_0"))}, first.All())
	_, err = production.Merge(context.Background(), first)
	require.NoError(t, err)

	fed := applyRule(t, c, gen, facts, production)
	assert.Equal(t, []ir.Quad{Triple(IRI("e"), IRI("p"), Blank("sk_0"))}, fed.All())
	_, err = production.Merge(context.Background(), fed)
	require.NoError(t, err)

	again := applyRule(t, b, gen, facts, production)
	assert.ElementsMatch(t, []ir.Quad{
		Triple(IRI("d"), IRI("q"), Blank("sk_0")),
		Triple(Blank("sk_0"), IRI("q"), Blank("sk_1")),
	}, again.All())
	assert.False(t, again.Has(Triple(Blank("sk_0"), IRI("q"), Blank("sk_0"))))
}

func TestApply_GraphTermIsBound(t *testing.T) {
	r := compileOne(t,
		Statements(Triple(Var("x"), Type, IRI("Person"))),
		Statements(Triple(Var("x"), IRI("seen"), IRI("yes")).InGraph(Var("x"))),
	)

	out := applyRule(t, r, NewDeterministicSkolems(), store.NewMemory(Triple(IRI("a"), Type, IRI("Person"))))

	assert.Equal(t, []ir.Quad{Triple(IRI("a"), IRI("seen"), IRI("yes")).InGraph(IRI("a"))}, out.All())
}

func TestApply_EvaluationErrorPropagates(t *testing.T) {
	r := compileOne(t, Statements(Triple(Var("x"), Type, IRI("Person"))), Statements(Triple(Var("x"), Type, IRI("Agent"))))
	cause := errors.New("backend down")

	_, err := Apply(context.Background(), &countingEvaluator{err: cause}, nil, r, NewDeterministicSkolems())
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "r0")
}

func TestApply_UnboundPremiseVariable(t *testing.T) {
	r := compileOne(t, Statements(Triple(Var("x"), Type, IRI("Person"))), Statements(Triple(Var("x"), Type, IRI("Agent"))))
	ev := &countingEvaluator{rows: []ir.Binding{{"U_9": IRI("a")}}}

	_, err := Apply(context.Background(), ev, nil, r, NewDeterministicSkolems())
	require.Error(t, err)
	assert.Equal(t, ErrCodeUnboundVariable, ErrorCode(err))
}
