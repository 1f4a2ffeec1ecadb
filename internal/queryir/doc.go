// Package queryir provides the abstract query intermediate representation
// that rule patterns are translated into.
//
// QueryIR is the abstraction boundary between rule patterns and backend query
// engines (SPARQL text, SQL over the quads table, the in-memory join). A rule
// premise is translated once into a Select; every backend consumes the same
// Select.
//
// ARCHITECTURE:
//
//	[rule pattern] → [Translate] → [Query IR] → [querysparql.Render]
//	                                          → [querysql.Compile]
//	                                          → [queryexec.Memory]
//
// PORTABLE FRAGMENT:
//
// The fragment is a basic graph pattern:
//   - Select * over a conjunction of quad patterns
//   - Each pattern position is a constant (IRI or literal) or a variable
//   - Shared variables are equi-joins
//
// The fragment EXCLUDES filters, optionals, unions, aggregation and graph
// scoping. Patterns match quads in any graph.
//
// SEALED INTERFACES:
//
// Query and Node are sealed interfaces using the marker method pattern.
// Only types in this package implement them, so backends switch over them
// exhaustively:
//
//	switch n := node.(type) {
//	case Const:
//	    // match the term exactly
//	case Var:
//	    // bind or join
//	}
//
// QUERY VARIABLES:
//
// Translate mints query variables U_0, U_1, ... from a counter that starts at
// zero for every call. The same source label (blank node or variable) always
// maps to the same query variable within one call, which is what turns a
// shared label into a join.
package queryir
