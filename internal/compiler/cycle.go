package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/think/internal/ir"
)

// CycleWarning represents a potential derivation cycle between rules.
//
// Cycles are warnings, not errors, because recursive rules are normal in
// forward chaining (transitivity, symmetry). A cycle only threatens
// termination when a rule on it mints existentials.
type CycleWarning struct {
	Path    []string `json:"path"`    // Cycle path: ["rule-a", "rule-b", "rule-a"]
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // "warning" or "info"
}

// AnalyzeCycles builds the rule dependency graph and reports every strongly
// connected component as a potential cycle.
//
// Rule A depends-on-edge to rule B when some quad of A's conclusion unifies
// with some quad of B's premise: each of subject, predicate and object is
// either equal or a blank node / variable on at least one side.
//
// Cycles containing a rule with existential conclusion terms are reported at
// level "warning" (the fixpoint may never be reached); other cycles are
// "info". Unknown graph labels are skipped here and reported by
// ValidateRuleSet.
func AnalyzeCycles(rs *ir.RuleSet) []CycleWarning {
	if rs == nil || len(rs.Implies) == 0 {
		return []CycleWarning{}
	}

	graph, order := buildDependencyGraph(rs)
	sccs := tarjanSCC(graph, order)

	existential := make(map[string]bool)
	for i, imp := range rs.Implies {
		if len(ExistentialLabels(rs, imp)) > 0 {
			existential[imp.ID(i)] = true
		}
	}

	warnings := []CycleWarning{}
	for _, scc := range sccs {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], graph)) {
			warnings = append(warnings, cycleSCCToWarning(scc, graph, existential))
		}
	}
	return warnings
}

// ExistentialLabels returns the blank node and variable labels of imp's
// conclusion that its premise does not bind, in first-occurrence order.
func ExistentialLabels(rs *ir.RuleSet, imp ir.Implication) []string {
	bound := make(map[string]bool)
	for _, st := range rs.Graphs[imp.Premise] {
		for _, q := range st {
			for _, t := range q.Terms() {
				if ir.IsBlankNodeOrVariable(t) {
					bound[t.Value()] = true
				}
			}
		}
	}

	seen := make(map[string]bool)
	var out []string
	for _, st := range rs.Graphs[imp.Conclusion] {
		for _, q := range st {
			for _, t := range q.Terms() {
				if !ir.IsBlankNodeOrVariable(t) || bound[t.Value()] || seen[t.Value()] {
					continue
				}
				seen[t.Value()] = true
				out = append(out, t.Value())
			}
		}
	}
	return out
}

// dependencyGraph maps rule ID → IDs of rules its conclusion could feed.
type dependencyGraph map[string][]string

func buildDependencyGraph(rs *ir.RuleSet) (dependencyGraph, []string) {
	graph := make(dependencyGraph)
	order := make([]string, 0, len(rs.Implies))

	for i, from := range rs.Implies {
		fromID := from.ID(i)
		order = append(order, fromID)
		graph[fromID] = []string{}

		conclusion := flatten(rs.Graphs[from.Conclusion])
		for j, to := range rs.Implies {
			if feeds(conclusion, flatten(rs.Graphs[to.Premise])) {
				graph[fromID] = append(graph[fromID], to.ID(j))
			}
		}
	}
	return graph, order
}

func flatten(statements []ir.Statement) []ir.Quad {
	var out []ir.Quad
	for _, st := range statements {
		out = append(out, st...)
	}
	return out
}

func feeds(conclusion, premise []ir.Quad) bool {
	for _, c := range conclusion {
		for _, p := range premise {
			if unifiable(c.Subject, p.Subject) &&
				unifiable(c.Predicate, p.Predicate) &&
				unifiable(c.Object, p.Object) {
				return true
			}
		}
	}
	return false
}

func unifiable(a, b ir.Term) bool {
	if a == nil || b == nil {
		return false
	}
	return ir.IsBlankNodeOrVariable(a) || ir.IsBlankNodeOrVariable(b) || ir.Equal(a, b)
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node string, graph dependencyGraph) bool {
	for _, neighbor := range graph[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Roots are visited in order so results are deterministic.
//
// Single-node SCCs without self-loops are NOT cycles.
func tarjanSCC(graph dependencyGraph, order []string) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is a root node: pop the stack and emit an SCC
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, node := range order {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

func cycleSCCToWarning(scc []string, graph dependencyGraph, existential map[string]bool) CycleWarning {
	level := "info"
	for _, id := range scc {
		if existential[id] {
			level = "warning"
		}
	}

	var path []string
	if len(scc) == 1 {
		path = []string{scc[0], scc[0]}
	} else {
		path = reconstructCyclePath(scc, graph)
	}

	msg := fmt.Sprintf("Recursive rules: %s", strings.Join(path, " → "))
	if level == "warning" {
		msg += " (mints existentials, may not terminate)"
	}
	return CycleWarning{Path: path, Message: msg, Level: level}
}

// reconstructCyclePath builds a cycle path from an SCC: start at the first
// member, follow edges to other members until returning to the start.
func reconstructCyclePath(scc []string, graph dependencyGraph) []string {
	if len(scc) == 0 {
		return []string{}
	}

	sccSet := make(map[string]bool)
	for _, node := range scc {
		sccSet[node] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph[current] {
			if sccSet[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}

		if next == "" {
			break
		}

		path = append(path, next)

		if next == start {
			break
		}

		current = next
	}

	return path
}
