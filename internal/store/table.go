package store

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/roach88/think/internal/ir"
)

// Table is a named quad set inside a DB.
//
// Query results are buffered before they are yielded, so callers may issue
// further queries on the same DB while iterating (the pool holds a single
// connection).
type Table struct {
	db   *DB
	id   int64
	name string
}

// Table returns the named quad table, creating it if needed.
func (s *DB) Table(ctx context.Context, name string) (*Table, error) {
	if name == "" {
		return nil, fmt.Errorf("table: empty name")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tables (name) VALUES (?)
		ON CONFLICT(name) DO NOTHING
	`, name)
	if err != nil {
		return nil, fmt.Errorf("table %q: create: %w", name, err)
	}

	var id int64
	if err := s.db.QueryRowContext(ctx, `SELECT id FROM tables WHERE name = ?`, name).Scan(&id); err != nil {
		return nil, fmt.Errorf("table %q: lookup: %w", name, err)
	}
	return &Table{db: s, id: id, name: name}, nil
}

// Tables lists table names in creation order.
func (s *DB) Tables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM tables ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}
	return names, nil
}

// ID returns the table's row id, used by the SQL evaluator.
func (t *Table) ID() int64 { return t.id }

// Name returns the table name.
func (t *Table) Name() string { return t.name }

// DB returns the database holding the table.
func (t *Table) DB() *DB { return t.db }

// Len implements Source.
func (t *Table) Len(ctx context.Context) (int, error) {
	var n int
	err := t.db.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM quads WHERE table_id = ?`, t.id).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", t.name, err)
	}
	return n, nil
}

// Quads implements Source in insertion order.
func (t *Table) Quads(ctx context.Context) iter.Seq2[ir.Quad, error] {
	return t.query(ctx, `
		SELECT subject, predicate, object, graph
		FROM quads
		WHERE table_id = ?
		ORDER BY seq ASC, id ASC COLLATE BINARY
	`, t.id)
}

// Match implements Matcher. Bound positions are compared on their encoded
// form, so the lookup uses the per-position indexes.
func (t *Table) Match(ctx context.Context, s, p, o ir.Term) iter.Seq2[ir.Quad, error] {
	where := []string{"table_id = ?"}
	args := []any{t.id}
	for _, c := range []struct {
		column string
		term   ir.Term
	}{{"subject", s}, {"predicate", p}, {"object", o}} {
		if c.term != nil {
			where = append(where, c.column+" = ?")
			args = append(args, ir.EncodeTerm(c.term))
		}
	}
	return t.query(ctx, `
		SELECT subject, predicate, object, graph
		FROM quads
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY seq ASC, id ASC COLLATE BINARY
	`, args...)
}

func (t *Table) query(ctx context.Context, query string, args ...any) iter.Seq2[ir.Quad, error] {
	return func(yield func(ir.Quad, error) bool) {
		quads, err := t.readQuads(ctx, query, args...)
		if err != nil {
			yield(ir.Quad{}, err)
			return
		}
		for _, q := range quads {
			if !yield(q, nil) {
				return
			}
		}
	}
}

func (t *Table) readQuads(ctx context.Context, query string, args ...any) ([]ir.Quad, error) {
	rows, err := t.db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", t.name, err)
	}
	defer rows.Close()

	var quads []ir.Quad
	for rows.Next() {
		q, err := scanQuad(rows)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", t.name, err)
		}
		quads = append(quads, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", t.name, err)
	}
	return quads, nil
}

// Add implements Store.
// Uses ON CONFLICT(table_id, id) DO NOTHING; a duplicate reports false.
func (t *Table) Add(ctx context.Context, q ir.Quad) (bool, error) {
	res, err := t.db.db.ExecContext(ctx, insertQuadSQL, quadArgs(t.id, q)...)
	if err != nil {
		return false, fmt.Errorf("add to %s: %w", t.name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("add to %s: rows affected: %w", t.name, err)
	}
	return n > 0, nil
}

// Merge implements Store inside one transaction. A Table of the same DB is
// copied with a single INSERT ... SELECT.
func (t *Table) Merge(ctx context.Context, src Source) (int, error) {
	if other, ok := src.(*Table); ok && other.db == t.db {
		return t.mergeTable(ctx, other)
	}

	quads, err := Collect(ctx, src)
	if err != nil {
		return 0, fmt.Errorf("merge into %s: read source: %w", t.name, err)
	}

	tx, err := t.db.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("merge into %s: begin tx: %w", t.name, err)
	}
	defer tx.Rollback() // No-op if committed

	stmt, err := tx.PrepareContext(ctx, insertQuadSQL)
	if err != nil {
		return 0, fmt.Errorf("merge into %s: prepare: %w", t.name, err)
	}
	defer stmt.Close()

	added := 0
	for _, q := range quads {
		res, err := stmt.ExecContext(ctx, quadArgs(t.id, q)...)
		if err != nil {
			return 0, fmt.Errorf("merge into %s: insert: %w", t.name, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("merge into %s: rows affected: %w", t.name, err)
		}
		added += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("merge into %s: commit: %w", t.name, err)
	}
	return added, nil
}

func (t *Table) mergeTable(ctx context.Context, other *Table) (int, error) {
	res, err := t.db.db.ExecContext(ctx, `
		INSERT INTO quads (table_id, id, subject, predicate, object, graph)
		SELECT ?, id, subject, predicate, object, graph
		FROM quads
		WHERE table_id = ?
		ORDER BY seq ASC
		ON CONFLICT(table_id, id) DO NOTHING
	`, t.id, other.id)
	if err != nil {
		return 0, fmt.Errorf("merge %s into %s: %w", other.name, t.name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("merge %s into %s: rows affected: %w", other.name, t.name, err)
	}
	return int(n), nil
}

const insertQuadSQL = `
	INSERT INTO quads (table_id, id, subject, predicate, object, graph)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(table_id, id) DO NOTHING
`

func quadArgs(tableID int64, q ir.Quad) []any {
	return []any{
		tableID,
		ir.QuadID(q),
		ir.EncodeTerm(q.Subject),
		ir.EncodeTerm(q.Predicate),
		ir.EncodeTerm(q.Object),
		ir.EncodeTerm(q.Graph),
	}
}

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanQuad decodes one (subject, predicate, object, graph) row.
func scanQuad(row scanner) (ir.Quad, error) {
	var s, p, o, g string
	if err := row.Scan(&s, &p, &o, &g); err != nil {
		return ir.Quad{}, fmt.Errorf("scan quad: %w", err)
	}
	return DecodeRow(s, p, o, g)
}

// DecodeRow decodes the four stored term columns of a quad.
func DecodeRow(s, p, o, g string) (ir.Quad, error) {
	var q ir.Quad
	for _, c := range []struct {
		dst  *ir.Term
		text string
	}{{&q.Subject, s}, {&q.Predicate, p}, {&q.Object, o}, {&q.Graph, g}} {
		t, err := ir.DecodeTerm(c.text)
		if err != nil {
			return ir.Quad{}, fmt.Errorf("decode stored term: %w", err)
		}
		*c.dst = t
	}
	return q, nil
}
