package store

import (
	"context"
	"fmt"

	"github.com/roach88/think/internal/ir"
)

// SkolemMaps maps a rule ID to the identifiers minted for its conclusion
// labels.
type SkolemMaps map[string]map[string]ir.BlankNode

// LoadSkolems returns the skolem maps saved for a production table under a
// rule set hash. A rule set that was never run yields an empty map.
func (s *DB) LoadSkolems(ctx context.Context, table, rulesHash string) (SkolemMaps, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT rule_id, label, skolem
		FROM skolems
		WHERE production_table = ? AND rules_hash = ?
	`, table, rulesHash)
	if err != nil {
		return nil, fmt.Errorf("load skolems: %w", err)
	}
	defer rows.Close()

	maps := SkolemMaps{}
	for rows.Next() {
		var ruleID, label, id string
		if err := rows.Scan(&ruleID, &label, &id); err != nil {
			return nil, fmt.Errorf("scan skolem: %w", err)
		}
		if maps[ruleID] == nil {
			maps[ruleID] = make(map[string]ir.BlankNode)
		}
		maps[ruleID][label] = ir.NewBlankNode(id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate skolems: %w", err)
	}
	return maps, nil
}

// SaveSkolems records maps for a production table and rule set hash in one
// transaction. A label already saved keeps its first identifier.
func (s *DB) SaveSkolems(ctx context.Context, table, rulesHash string, maps SkolemMaps) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save skolems: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO skolems (production_table, rules_hash, rule_id, label, skolem)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("save skolems: %w", err)
	}
	defer stmt.Close()

	for ruleID, m := range maps {
		for label, id := range m {
			if _, err := stmt.ExecContext(ctx, table, rulesHash, ruleID, label, id.ID); err != nil {
				return fmt.Errorf("save skolem %s/%s: %w", ruleID, label, err)
			}
		}
	}
	return tx.Commit()
}
