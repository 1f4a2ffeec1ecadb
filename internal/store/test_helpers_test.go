package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/think/internal/ir"
)

// createTestDB creates a new database in a temp dir for testing.
func createTestDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func ex(local string) ir.NamedNode {
	return ir.NewNamedNode("http://example.org/" + local)
}

func triple(s, p, o string) ir.Quad {
	return ir.NewQuad(ex(s), ex(p), ex(o))
}
