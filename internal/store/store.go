package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"net/url"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/think/internal/ir"
)

//go:embed schema.sql
var schemaSQL string

// migrations[i] upgrades a database from user_version i to i+1. schema.sql
// always describes version 0; every later change is a migration so that
// databases written by earlier releases keep opening.
var migrations = []func(*sql.Tx) error{
	// v1: (predicate, object) index for premises such as "?x a :Person".
	func(tx *sql.Tx) error {
		_, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_quads_predicate_object ON quads(table_id, predicate, object)`)
		return err
	},
	// v2: identifiers minted per rule conclusion label, so reruns against the
	// same production table reuse them.
	func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			CREATE TABLE IF NOT EXISTS skolems (
				production_table TEXT NOT NULL,
				rules_hash       TEXT NOT NULL,
				rule_id          TEXT NOT NULL,
				label            TEXT NOT NULL,
				skolem           TEXT NOT NULL,
				PRIMARY KEY (production_table, rules_hash, rule_id, label)
			)`)
		return err
	},
}

// connectionParams are applied by go-sqlite3 to every new connection.
var connectionParams = url.Values{
	"_journal_mode": {"WAL"},
	"_synchronous":  {"NORMAL"},
	"_busy_timeout": {"5000"},
	"_foreign_keys": {"on"},
}

// DB is a SQLite database holding named quad tables and run records.
type DB struct {
	db *sql.DB
}

// Open creates or opens the SQLite database at path (":memory:" for a
// private in-memory database) and brings its schema to ir.SchemaVersion.
// Opening an up-to-date database again is a no-op.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", dataSourceName(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: SQLite has a single writer, and an in-memory database
	// exists only on the connection that created it.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &DB{db: db}, nil
}

func dataSourceName(path string) string {
	return "file:" + path + "?" + connectionParams.Encode()
}

// migrate applies schema.sql and every pending migration in one transaction.
func migrate(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(schemaSQL); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}

	var version int
	if err := tx.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version > ir.SchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, ir.SchemaVersion)
	}
	for v := version; v < len(migrations); v++ {
		if err := migrations[v](tx); err != nil {
			return fmt.Errorf("migrate to v%d: %w", v+1, err)
		}
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", ir.SchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return tx.Commit()
}

// Close closes the database. Closing a zero DB is a no-op.
func (s *DB) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SQL returns the underlying connection pool for the SQL evaluator.
func (s *DB) SQL() *sql.DB {
	return s.db
}

// pragma returns the current value of a connection pragma.
func (s *DB) pragma(name string) (string, error) {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return "", fmt.Errorf("query %s: %w", name, err)
	}
	return value, nil
}
