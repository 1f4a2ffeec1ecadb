// Package queryexec evaluates QueryIR selects against fact stores.
//
// Two evaluators share the Evaluator contract:
//   - Memory: backtracking conjunctive join over any store.Source, using
//     store.Matcher index lookups when available
//   - SQL: compiles the select with querysql when every source is a
//     store.Table of its database, falling back to another evaluator
//     otherwise
//
// Both return each distinct solution once, in a deterministic order.
package queryexec
