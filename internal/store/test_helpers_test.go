package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/statecore/internal/ir"
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

// createTestHistory creates a history record with a small snapshot.
func createTestHistory(session string, seq int64, theme string) HistoryRecord {
	return HistoryRecord{
		Session:     session,
		Seq:         seq,
		RecordedAt:  time.UnixMilli(1_700_000_000_000 + seq),
		Label:       "State updated: ui",
		ChangedKeys: []string{"ui"},
		Snapshot: ir.Obj(
			ir.O("ui", ir.Obj(ir.O("theme", ir.IRString(theme)))),
			ir.O("user", ir.Obj(ir.O("isAuthenticated", ir.IRBool(false)))),
		),
	}
}
