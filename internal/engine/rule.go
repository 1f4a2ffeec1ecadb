package engine

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/think/internal/ir"
	"github.com/roach88/think/internal/queryir"
	"github.com/roach88/think/internal/querysparql"
)

// Rule is one compiled implication.
//
// A Rule is compiled once before the fixpoint loop and mutated in place
// afterwards: Conclusion.Skolems grows as Apply mints identifiers.
type Rule struct {
	ID         string
	Premise    Premise
	Conclusion Conclusion
}

// Premise is the query side of a rule.
type Premise struct {
	Statements []ir.Statement
	Query      *queryir.Select
	Text       string

	// Vars maps a premise pattern label to its query variable name.
	Vars queryir.VarMap
}

// Conclusion is the template side of a rule.
type Conclusion struct {
	Statements []ir.Statement
	Text       string

	// Skolems maps a conclusion label to the identifier minted for it in an
	// earlier application. It persists across passes.
	Skolems map[string]ir.BlankNode
}

// CompileRules builds one Rule per implication of rs, in order.
//
// The premise is translated with a fresh variable map kept on the rule. The
// conclusion is translated with a throwaway map for its query text only; its
// persistent skolem map starts empty.
func CompileRules(rs *ir.RuleSet) ([]*Rule, error) {
	if rs == nil {
		return nil, fmt.Errorf("compile rules: nil rule set")
	}

	rules := make([]*Rule, 0, len(rs.Implies))
	for i, imp := range rs.Implies {
		id := imp.ID(i)

		premise, ok := rs.Graphs[imp.Premise]
		if !ok {
			return nil, NewUnknownGraphError(id, "premise", imp.Premise)
		}
		conclusion, ok := rs.Graphs[imp.Conclusion]
		if !ok {
			return nil, NewUnknownGraphError(id, "conclusion", imp.Conclusion)
		}

		vars := make(queryir.VarMap)
		query, err := queryir.Translate(premise, vars)
		if err != nil {
			return nil, wrapTranslateError(id, "premise", err)
		}
		premiseText, err := querysparql.Render(query)
		if err != nil {
			return nil, fmt.Errorf("rule %s: render premise: %w", id, err)
		}

		conclusionQuery, err := queryir.Translate(conclusion, nil)
		if err != nil {
			return nil, wrapTranslateError(id, "conclusion", err)
		}
		conclusionText, err := querysparql.Render(conclusionQuery)
		if err != nil {
			return nil, fmt.Errorf("rule %s: render conclusion: %w", id, err)
		}

		rules = append(rules, &Rule{
			ID: id,
			Premise: Premise{
				Statements: premise,
				Query:      query,
				Text:       premiseText,
				Vars:       vars,
			},
			Conclusion: Conclusion{
				Statements: conclusion,
				Text:       conclusionText,
				Skolems:    make(map[string]ir.BlankNode),
			},
		})

		slog.Debug("rule compiled",
			"rule", id,
			"premise", premiseText,
			"conclusion", conclusionText,
		)
	}
	return rules, nil
}

// SkolemMaps returns a copy of every rule's persistent skolem map, keyed by
// rule ID. Rules that minted nothing are omitted.
func SkolemMaps(rules []*Rule) map[string]map[string]ir.BlankNode {
	out := make(map[string]map[string]ir.BlankNode)
	for _, r := range rules {
		if len(r.Conclusion.Skolems) == 0 {
			continue
		}
		m := make(map[string]ir.BlankNode, len(r.Conclusion.Skolems))
		for label, id := range r.Conclusion.Skolems {
			m[label] = id
		}
		out[r.ID] = m
	}
	return out
}

// RestoreSkolems seeds the persistent skolem maps of rules from maps, keyed
// by rule ID, so a later run reuses identifiers minted by an earlier one.
// Entries for unknown rules are ignored.
func RestoreSkolems(rules []*Rule, maps map[string]map[string]ir.BlankNode) {
	for _, r := range rules {
		for label, id := range maps[r.ID] {
			r.Conclusion.Skolems[label] = id
		}
	}
}

func wrapTranslateError(ruleID, role string, err error) error {
	var mt *queryir.MalformedTermError
	if errors.As(err, &mt) {
		return &RuntimeError{
			Code:    ErrCodeMalformedTerm,
			Message: fmt.Sprintf("%s pattern has a malformed term", role),
			RuleID:  ruleID,
			Details: map[string]string{"role": role, "position": mt.Position},
			Err:     err,
		}
	}
	return fmt.Errorf("rule %s: translate %s: %w", ruleID, role, err)
}
