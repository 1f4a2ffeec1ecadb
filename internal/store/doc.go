// Package store provides the fact stores the engine reads from and writes to.
//
// Every store is a set of quads (subject, predicate, object, graph) with
// insertion-ordered iteration:
//   - Memory: in-process quad set with subject/predicate/object indexes
//   - Table: a named quad set inside a SQLite database (DB)
//
// Both implement Store and Matcher. N-Quads files are read and written
// through github.com/cayleygraph/quad.
//
// # Critical Patterns
//
// Set semantics:
//   - Memory keys quads by value (ir.Quad is comparable)
//   - Table keys quads by ir.QuadID with UNIQUE(table_id, id)
//   - Add reports whether the quad was new; Merge reports how many were
//
// Deterministic iteration:
//   - Memory yields in insertion order
//   - Table queries use ORDER BY seq ASC, id ASC COLLATE BINARY
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Terms are stored in their ir.EncodeTerm form; the default graph is stored
// as the empty string.
package store
