package compiler

import (
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/think/internal/ir"
)

func compileSource(t *testing.T, src string) cue.Value {
	t.Helper()
	v := cuecontext.New().CompileString(src)
	require.NoError(t, v.Err())
	return v
}

func ex(local string) ir.NamedNode {
	return ir.NewNamedNode("http://example.org/" + local)
}

func TestCompileRuleSetBasic(t *testing.T) {
	v := compileSource(t, `
		prefix: ex: "http://example.org/"
		facts: [["ex:a", "a", "ex:Person"]]
		rule: "person-role": {
			premise:    [["?x", "a", "ex:Person"]]
			conclusion: [["?x", "ex:hasRole", "_:b"]]
		}
	`)

	rs, err := CompileRuleSet(v)
	require.NoError(t, err)

	assert.Equal(t, "http://example.org/", rs.Prefixes["ex"])
	require.Len(t, rs.Facts, 1)
	assert.Equal(t, ir.NewQuad(ex("a"), ir.NewNamedNode(ir.RDFType), ex("Person")), rs.Facts[0])

	require.Len(t, rs.Implies, 1)
	assert.Equal(t, ir.Implication{
		Name:       "person-role",
		Premise:    "person-role#premise",
		Conclusion: "person-role#conclusion",
	}, rs.Implies[0])

	premise := rs.Graphs["person-role#premise"]
	require.Len(t, premise, 1)
	assert.Equal(t, ir.Statement{ir.NewQuad(ir.NewVariable("x"), ir.NewNamedNode(ir.RDFType), ex("Person"))}, premise[0])

	conclusion := rs.Graphs["person-role#conclusion"]
	require.Len(t, conclusion, 1)
	assert.Equal(t, ir.NewBlankNode("b"), conclusion[0][0].Object)
}

func TestCompileRuleSetRawGraphsAndImplies(t *testing.T) {
	v := compileSource(t, `
		prefix: ex: "http://example.org/"
		graph: g1: [["?x", "ex:knows", "?y"]]
		graph: g2: [["?y", "ex:knows", "?x"]]
		implies: [{premise: "g1", conclusion: "g2"}]
	`)

	rs, err := CompileRuleSet(v)
	require.NoError(t, err)
	require.Len(t, rs.Implies, 1)
	assert.Equal(t, "", rs.Implies[0].Name)
	assert.Equal(t, "rule-0", rs.Implies[0].ID(0))
	assert.Contains(t, rs.Graphs, "g1")
	assert.Contains(t, rs.Graphs, "g2")
}

func TestCompileRuleSetRuleOrderBeforeImplies(t *testing.T) {
	v := compileSource(t, `
		prefix: ex: "http://example.org/"
		graph: p: [["?x", "ex:p", "?y"]]
		implies: [{name: "raw", premise: "p", conclusion: "p"}]
		rule: second: { premise: [["?x", "ex:q", "?y"]], conclusion: [["?x", "ex:r", "?y"]] }
		rule: first: { premise: [["?x", "ex:r", "?y"]], conclusion: [["?x", "ex:s", "?y"]] }
	`)

	rs, err := CompileRuleSet(v)
	require.NoError(t, err)

	var names []string
	for _, imp := range rs.Implies {
		names = append(names, imp.Name)
	}
	assert.Equal(t, []string{"second", "first", "raw"}, names)
}

func TestCompileRuleSetMultiQuadStatement(t *testing.T) {
	v := compileSource(t, `
		prefix: ex: "http://example.org/"
		rule: chain: {
			premise: [
				[["?x", "ex:p", "?y"], ["?y", "ex:p", "?z"]],
				["?z", "ex:name", "Bob"],
			]
			conclusion: [["?x", "ex:q", "?z", "ex:g"]]
		}
	`)

	rs, err := CompileRuleSet(v)
	require.NoError(t, err)

	premise := rs.Graphs["chain#premise"]
	require.Len(t, premise, 2)
	assert.Len(t, premise[0], 2)
	assert.Len(t, premise[1], 1)

	conclusion := rs.Graphs["chain#conclusion"]
	assert.Equal(t, ex("g"), conclusion[0][0].Graph)
}

func TestCompileRuleSetNativeLiterals(t *testing.T) {
	v := compileSource(t, `
		prefix: ex: "http://example.org/"
		facts: [
			["ex:a", "ex:age", 42],
			["ex:a", "ex:height", 1.5],
			["ex:a", "ex:active", true],
		]
	`)

	rs, err := CompileRuleSet(v)
	require.NoError(t, err)
	require.Len(t, rs.Facts, 3)
	assert.Equal(t, ir.NewLiteral("42", ir.XSDInteger, ""), rs.Facts[0].Object)
	assert.Equal(t, ir.NewLiteral("1.5", ir.XSDDecimal, ""), rs.Facts[1].Object)
	assert.Equal(t, ir.NewLiteral("true", ir.XSDBoolean, ""), rs.Facts[2].Object)
}

func TestCompileRuleSetEmptyPremise(t *testing.T) {
	v := compileSource(t, `
		prefix: ex: "http://example.org/"
		rule: axiom: { premise: [], conclusion: [["ex:a", "a", "ex:Thing"]] }
	`)

	rs, err := CompileRuleSet(v)
	require.NoError(t, err)
	assert.Empty(t, rs.Graphs["axiom#premise"])
	assert.NotNil(t, rs.Graphs["axiom#premise"])
}

func TestCompileRuleSetErrors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
	}{
		{"variable fact", `facts: [["?x", "a", "<urn:T>"]]`, "facts"},
		{"short quad", `facts: [["<urn:a>", "a"]]`, "facts"},
		{"bad term", `facts: [["<urn:a>", "a", "nope:T"]]`, "facts"},
		{"missing conclusion", `rule: r: premise: []`, "rule.r.conclusion"},
		{"missing premise label", `implies: [{conclusion: "g"}]`, "implies.premise"},
		{"non-string prefix", `prefix: ex: 1`, "prefix"},
		{"statement not list", `graph: g: ["<urn:a>"]`, "graph.g"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileRuleSet(compileSource(t, tt.src))
			require.Error(t, err)

			var ce *CompileError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestRuleEntriesPreserveOrder(t *testing.T) {
	v := compileSource(t, `
		rule: b: { premise: [], conclusion: [] }
		rule: a: { premise: [], conclusion: [] }
	`)

	labels, values, err := RuleEntries(v)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, labels)
	assert.Len(t, values, 2)
}
