// Package engine implements the think forward-chaining rule engine.
//
// The engine turns implications between statement patterns into rules,
// applies them to a fact set and repeats until nothing new is derived.
//
// ARCHITECTURE:
//
// Rule Compiler (CompileRules):
// Each implication becomes a Rule. The premise is translated into a
// queryir.Select plus a map from pattern label to query variable; the
// conclusion keeps its statements as an instantiation template and an
// initially empty map of minted existentials.
//
// Rule Applicator (Apply):
//  1. Evaluate the premise query against the fact sources
//  2. For each solution row, instantiate every conclusion quad
//  3. Premise-bound labels take the row's value; unbound blank nodes and
//     variables are existentials and get skolem identifiers (sk_N)
//  4. Identifiers minted in this call are remembered on the Rule
//
// Fixpoint Driver (Engine.Run):
// Every pass applies all rules in declaration order, merging each result into
// the production store before the next rule runs. The loop ends after a pass
// that adds no quad.
//
// CRITICAL PATTERNS:
//
// Stable existentials:
// An existential reuses the identifier it was given in an earlier pass, so
// re-deriving a known conclusion produces the same quad and the loop
// terminates. A row that binds a premise term to that identifier forces a
// fresh one instead.
//
// Deterministic scheduling:
// Rules run in declaration order on a single goroutine. With the default
// evaluator and a fresh SkolemCounter, identical inputs produce identical
// production stores, skolem numbering included.
//
// Termination:
// Rules that mint a new existential every pass never reach a fixpoint. Use
// WithLimits to bound such runs.
package engine
