package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/nimbusbot/nimbus/internal/nimbus/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestMigrationsApply(t *testing.T) {
	st := newTestStore(t)

	// All tables the application relies on must exist after New.
	for _, table := range []string{"sessions", "turns", "matrix_sync_state"} {
		var name string
		err := st.DB().QueryRow(
			`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}

func TestWriteAndReadTurns(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	entries := []struct {
		turnID   string
		routedAs string
		result   string
		errMsg   string
	}{
		{"turn-1", "act", "success", ""},
		{"turn-2", "resume:credential", "success", ""},
		{"turn-3", "act", "error", "list resources: boom"},
	}
	for _, e := range entries {
		if err := st.WriteTurn(ctx, e.turnID, "trace-x", "!room", "@user", e.routedAs, e.result, e.errMsg); err != nil {
			t.Fatalf("WriteTurn(%s): %v", e.turnID, err)
		}
	}

	got, err := st.RecentTurns(ctx, 2)
	if err != nil {
		t.Fatalf("RecentTurns: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d turns, want 2", len(got))
	}
	// Newest first.
	if got[0].TurnID != "turn-3" {
		t.Errorf("first entry = %s, want turn-3", got[0].TurnID)
	}
	if got[0].ErrorMessage.String != "list resources: boom" {
		t.Errorf("error message = %q", got[0].ErrorMessage.String)
	}
	if got[1].TurnID != "turn-2" {
		t.Errorf("second entry = %s, want turn-2", got[1].TurnID)
	}
}
