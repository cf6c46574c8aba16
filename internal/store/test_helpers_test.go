package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/sparqlayers/internal/algebra"
	"github.com/roach88/sparqlayers/internal/engine"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestExecution creates a successful execution with minimal fields.
func createTestExecution(seq int64, nodeKey string) engine.Execution {
	return engine.Execution{
		Seq:      seq,
		NodeKey:  nodeKey,
		Kind:     algebra.KindBGP,
		Location: "http://localhost:8080/sparql",
		Query:    "SELECT * WHERE {\n  ?s ?p ?o .\n}",
		Status:   "ok",
		Bytes:    64,
	}
}
