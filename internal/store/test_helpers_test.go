package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/ldesmirror/internal/tree"
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

// memberTriple returns a tree:member record of collection.
func memberTriple(collection, member string) tree.Triple {
	return tree.T(tree.IRI(collection), tree.TreeMember, tree.IRI(member))
}

// modifiedTriple returns a dct:modified record for member.
func modifiedTriple(member string, at time.Time) tree.Triple {
	return tree.T(tree.IRI(member), tree.DCTModified, tree.TimeLiteral(at))
}
