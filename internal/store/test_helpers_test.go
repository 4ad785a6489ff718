package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/cardbook/internal/event"
)

// createTestStore opens a fresh journal in a temp dir.
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

// beginTestRun records a run with a placeholder catalog hash.
func beginTestRun(t *testing.T, s *Store, id string) {
	t.Helper()
	if err := s.BeginRun(context.Background(), Run{ID: id, CatalogHash: "test-hash"}); err != nil {
		t.Fatalf("BeginRun(%q) failed: %v", id, err)
	}
}

func stamped(e event.Event, seq int64) event.Event {
	e.Seq = seq
	return e
}
