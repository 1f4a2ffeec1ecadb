package queryexec

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/roach88/think/internal/ir"
	"github.com/roach88/think/internal/queryir"
	"github.com/roach88/think/internal/querysparql"
	"github.com/roach88/think/internal/querysql"
	"github.com/roach88/think/internal/store"
)

// DefaultCacheSize is the number of compiled statements kept per SQL evaluator.
const DefaultCacheSize = 256

// SQL evaluates selects inside SQLite when every source is a table of DB.
// Compiled statements are prepared once and cached by query text and
// source tables; evicted statements are closed.
type SQL struct {
	db       *store.DB
	fallback Evaluator
	cache    *lru.Cache[string, *prepared]
}

type prepared struct {
	compiled querysql.Compiled
	stmt     *sql.Stmt
}

// SQLOption configures an SQL evaluator.
type SQLOption func(*sqlConfig)

type sqlConfig struct {
	cacheSize int
	fallback  Evaluator
}

// WithCacheSize sets the statement cache size.
func WithCacheSize(n int) SQLOption {
	return func(c *sqlConfig) { c.cacheSize = n }
}

// WithFallback sets the evaluator used for sources outside the database.
// Defaults to Memory.
func WithFallback(e Evaluator) SQLOption {
	return func(c *sqlConfig) { c.fallback = e }
}

// NewSQL creates an evaluator bound to db.
func NewSQL(db *store.DB, opts ...SQLOption) (*SQL, error) {
	cfg := sqlConfig{cacheSize: DefaultCacheSize, fallback: NewMemory()}
	for _, opt := range opts {
		opt(&cfg)
	}

	cache, err := lru.NewWithEvict(cfg.cacheSize, func(_ string, p *prepared) {
		p.stmt.Close()
	})
	if err != nil {
		return nil, fmt.Errorf("statement cache: %w", err)
	}
	return &SQL{db: db, fallback: cfg.fallback, cache: cache}, nil
}

// Close releases every cached statement.
func (e *SQL) Close() {
	e.cache.Purge()
}

// Evaluate implements Evaluator.
func (e *SQL) Evaluate(ctx context.Context, q *queryir.Select, sources []store.Source) ([]ir.Binding, error) {
	if q == nil {
		return nil, fmt.Errorf("evaluate: nil query")
	}
	ids, ok := e.tableIDs(sources)
	if !ok {
		slog.Debug("sql evaluator falling back", "sources", len(sources))
		return e.fallback.Evaluate(ctx, q, sources)
	}

	p, err := e.prepare(ctx, q, ids)
	if err != nil {
		return nil, err
	}

	rows, err := p.stmt.QueryContext(ctx, p.compiled.Params...)
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	defer rows.Close()

	out := []ir.Binding{}
	for rows.Next() {
		b, err := scanBinding(rows, p.compiled.Vars)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("evaluate: iterate rows: %w", err)
	}
	return out, nil
}

// tableIDs returns the table ids of sources when all belong to e.db.
// Duplicate tables are listed once.
func (e *SQL) tableIDs(sources []store.Source) ([]int64, bool) {
	if len(sources) == 0 {
		return nil, false
	}
	var ids []int64
	seen := make(map[int64]bool)
	for _, src := range sources {
		t, ok := src.(*store.Table)
		if !ok || t.DB() != e.db {
			return nil, false
		}
		if !seen[t.ID()] {
			seen[t.ID()] = true
			ids = append(ids, t.ID())
		}
	}
	return ids, true
}

func (e *SQL) prepare(ctx context.Context, q *queryir.Select, ids []int64) (*prepared, error) {
	text, err := querysparql.Render(q)
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	key := cacheKey(text, ids)
	if p, ok := e.cache.Get(key); ok {
		return p, nil
	}

	compiled, err := querysql.NewSQLCompiler(ids...).Compile(q)
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	stmt, err := e.db.SQL().PrepareContext(ctx, compiled.SQL)
	if err != nil {
		return nil, fmt.Errorf("evaluate: prepare: %w", err)
	}
	p := &prepared{compiled: compiled, stmt: stmt}
	e.cache.Add(key, p)
	slog.Debug("sql evaluator compiled query", "sql", compiled.SQL)
	return p, nil
}

func cacheKey(text string, ids []int64) string {
	var b strings.Builder
	b.WriteString(text)
	for _, id := range ids {
		b.WriteByte('|')
		b.WriteString(strconv.FormatInt(id, 10))
	}
	return b.String()
}

func scanBinding(rows *sql.Rows, vars []string) (ir.Binding, error) {
	if len(vars) == 0 {
		var one int
		if err := rows.Scan(&one); err != nil {
			return nil, fmt.Errorf("evaluate: scan: %w", err)
		}
		return ir.Binding{}, nil
	}

	cols := make([]string, len(vars))
	dest := make([]any, len(vars))
	for i := range cols {
		dest[i] = &cols[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, fmt.Errorf("evaluate: scan: %w", err)
	}

	b := make(ir.Binding, len(vars))
	for i, name := range vars {
		t, err := ir.DecodeTerm(cols[i])
		if err != nil {
			return nil, fmt.Errorf("evaluate: column %s: %w", name, err)
		}
		b[name] = t
	}
	return b, nil
}
