package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Run status values stored in runs.status.
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// Run records one engine run against a database.
// IDs are UUIDv7, so ordering by id is ordering by start.
type Run struct {
	ID              string `json:"id"`
	RulesHash       string `json:"rules_hash"`
	EngineVersion   string `json:"engine_version"`
	ProductionTable string `json:"production_table"`
	Status          string `json:"status"`
	Passes          int    `json:"passes"`
	Derived         int    `json:"derived"`
	Error           string `json:"error,omitempty"`
}

// BeginRun inserts a run record with status running.
// Uses ON CONFLICT(id) DO NOTHING for idempotency.
func (s *DB) BeginRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, rules_hash, engine_version, production_table, status)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, run.ID, run.RulesHash, run.EngineVersion, run.ProductionTable, RunRunning)
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	return nil
}

// FinishRun records the outcome of a run. runErr nil means completed.
func (s *DB) FinishRun(ctx context.Context, id string, passes, derived int, runErr error) error {
	status, msg := RunCompleted, ""
	if runErr != nil {
		status, msg = RunFailed, runErr.Error()
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, passes = ?, derived = ?, error = ?
		WHERE id = ?
	`, status, passes, derived, msg, id)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w", id, sql.ErrNoRows)
	}
	return nil
}

// ReadRun retrieves a single run by ID.
// Returns sql.ErrNoRows (wrapped) if not found.
func (s *DB) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, rules_hash, engine_version, production_table, status, passes, derived, error
		FROM runs
		WHERE id = ?
	`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("read run %s: %w", id, err)
	}
	return run, err
}

// ListRuns returns every run ordered by id (start order).
func (s *DB) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, rules_hash, engine_version, production_table, status, passes, derived, error
		FROM runs
		ORDER BY id ASC COLLATE BINARY
	`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

func scanRun(row scanner) (Run, error) {
	var r Run
	err := row.Scan(&r.ID, &r.RulesHash, &r.EngineVersion, &r.ProductionTable, &r.Status, &r.Passes, &r.Derived, &r.Error)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	return r, nil
}
