// Package querysql compiles QueryIR basic graph patterns to parameterized
// SQL over the quads table of internal/store.
package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/think/internal/ir"
	"github.com/roach88/think/internal/queryir"
)

// SQLCompiler compiles QueryIR to parameterized SQL for SQLite.
//
// CRITICAL: ALL queries include ORDER BY for deterministic results.
// CRITICAL: All term values are parameterized (never interpolated).
type SQLCompiler struct {
	// TableIDs restricts every pattern to these quad tables (the union of
	// the query's sources). Must be set before compilation.
	TableIDs []int64
}

// NewSQLCompiler creates a new SQLCompiler over the given tables.
func NewSQLCompiler(tableIDs ...int64) *SQLCompiler {
	return &SQLCompiler{TableIDs: tableIDs}
}

// Compiled is the SQL form of one Select.
type Compiled struct {
	SQL    string
	Params []any

	// Vars lists the result columns in order; each column holds the
	// ir.EncodeTerm form of that query variable.
	Vars []string
}

// Compile converts a QueryIR query to parameterized SQL.
//
// Each quad pattern becomes one alias of the quads table. Constants become
// equality predicates on the encoded term, the first occurrence of a
// variable becomes its result column and every later occurrence an
// equi-join against it.
//
// MANDATORY: Every query includes ORDER BY over its result columns.
func (c *SQLCompiler) Compile(q queryir.Query) (Compiled, error) {
	if q == nil {
		return Compiled{}, fmt.Errorf("cannot compile nil query")
	}

	switch query := q.(type) {
	case *queryir.Select:
		if query == nil {
			return Compiled{}, fmt.Errorf("cannot compile nil query")
		}
		return c.compileSelect(query)
	default:
		return Compiled{}, fmt.Errorf("unsupported query type: %T", q)
	}
}

func (c *SQLCompiler) compileSelect(q *queryir.Select) (Compiled, error) {
	patterns := q.Patterns()
	if len(patterns) == 0 {
		// An empty pattern has exactly one solution: the empty binding.
		return Compiled{SQL: "SELECT 1"}, nil
	}
	if len(c.TableIDs) == 0 {
		return Compiled{}, fmt.Errorf("compile: no source tables")
	}

	var (
		from    []string
		where   []string
		params  []any
		columns []string
		vars    []string
	)
	firstSeen := make(map[string]string) // variable -> alias.column

	for i, p := range patterns {
		alias := fmt.Sprintf("q%d", i)
		from = append(from, "quads "+alias)

		where = append(where, fmt.Sprintf("%s.table_id IN (%s)", alias, placeholders(len(c.TableIDs))))
		for _, id := range c.TableIDs {
			params = append(params, id)
		}

		for j, node := range p.Nodes() {
			column := alias + "." + [3]string{"subject", "predicate", "object"}[j]
			switch n := node.(type) {
			case queryir.Const:
				switch n.Term.(type) {
				case ir.NamedNode, ir.Literal:
				default:
					return Compiled{}, fmt.Errorf("pattern %d: constant must be an IRI or literal, got %T", i, n.Term)
				}
				where = append(where, column+" = ?")
				params = append(params, ir.EncodeTerm(n.Term))
			case queryir.Var:
				if n.Name == "" {
					return Compiled{}, fmt.Errorf("pattern %d: empty variable name", i)
				}
				if prev, ok := firstSeen[n.Name]; ok {
					where = append(where, column+" = "+prev)
					continue
				}
				firstSeen[n.Name] = column
				columns = append(columns, column+" AS "+quoteIdent(n.Name))
				vars = append(vars, n.Name)
			default:
				return Compiled{}, fmt.Errorf("pattern %d: unsupported node type: %T", i, node)
			}
		}
	}

	var sb strings.Builder
	if len(columns) == 0 {
		// Ground pattern: one empty solution when every quad exists.
		sb.WriteString("SELECT 1")
	} else {
		sb.WriteString("SELECT DISTINCT ")
		sb.WriteString(strings.Join(columns, ", "))
	}
	sb.WriteString(" FROM ")
	sb.WriteString(strings.Join(from, ", "))
	sb.WriteString(" WHERE ")
	sb.WriteString(strings.Join(where, " AND "))
	sb.WriteString(" ")
	sb.WriteString(stableOrderKey(vars))

	return Compiled{SQL: sb.String(), Params: params, Vars: vars}, nil
}

// stableOrderKey returns the ORDER BY clause for a query.
// MANDATORY: Every query MUST call this function.
// Uses COLLATE BINARY for deterministic text ordering. A ground pattern has
// at most one row and gets LIMIT 1 instead.
func stableOrderKey(vars []string) string {
	if len(vars) == 0 {
		return "LIMIT 1"
	}
	keys := make([]string, len(vars))
	for i, v := range vars {
		keys[i] = quoteIdent(v) + " ASC COLLATE BINARY"
	}
	return "ORDER BY " + strings.Join(keys, ", ")
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// quoteIdent quotes a result column name.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
