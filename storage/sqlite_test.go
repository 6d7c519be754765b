package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"sublet_monitor/identity"
	"sublet_monitor/models"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "monitor.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_SaveIsUnionOnly(t *testing.T) {
	store := newTestSQLite(t)
	ctx := context.Background()

	if err := store.Save(ctx, identity.NewSeenSet("a", "b")); err != nil {
		t.Fatalf("save: %v", err)
	}
	// a later save with a smaller set must not drop anything
	if err := store.Save(ctx, identity.NewSeenSet("b", "c")); err != nil {
		t.Fatalf("save: %v", err)
	}

	seen, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	got := seen.Sorted()
	if len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Fatalf("unexpected fingerprints %v", got)
	}
	if err := store.Validate(ctx); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestSQLiteStore_SaveLargeSet(t *testing.T) {
	store := newTestSQLite(t)
	ctx := context.Background()

	seen := identity.NewSeenSet()
	for i := 0; i < 1000; i++ {
		seen.Add(fmt.Sprintf("fp-%04d", i))
	}
	if err := store.Save(ctx, seen); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Len() != seen.Len() {
		t.Fatalf("loaded %d fingerprints, saved %d", loaded.Len(), seen.Len())
	}
}

func TestSQLiteStore_RunHistory(t *testing.T) {
	store := newTestSQLite(t)
	ctx := context.Background()

	last, err := store.LastCompletedRun(ctx)
	if err != nil || last != nil {
		t.Fatalf("expected no completed run, got %v, %v", last, err)
	}

	started := time.Now().UTC().Add(-time.Minute).Truncate(time.Second)
	run := &models.RunReport{ID: "run-1", StartedAt: started, Status: models.RunStatusRunning}
	if err := store.CreateRun(ctx, run); err != nil {
		t.Fatalf("create run: %v", err)
	}
	if err := store.Log(ctx, run.ID, models.LogLevelWarn, "guard fired"); err != nil {
		t.Fatalf("log: %v", err)
	}

	finished := started.Add(30 * time.Second)
	run.FinishedAt = &finished
	run.Status = models.RunStatusCompleted
	run.RowsFetched = 3
	run.NewListings = 1
	run.Notified = true
	run.StateSaved = true
	if err := store.UpdateRun(ctx, run); err != nil {
		t.Fatalf("update run: %v", err)
	}

	aborted := &models.RunReport{ID: "run-2", StartedAt: started.Add(time.Second), Status: models.RunStatusAborted}
	if err := store.CreateRun(ctx, aborted); err != nil {
		t.Fatalf("create run: %v", err)
	}

	last, err = store.LastCompletedRun(ctx)
	if err != nil {
		t.Fatalf("last completed: %v", err)
	}
	if last == nil || last.ID != "run-1" || last.NewListings != 1 || !last.StateSaved {
		t.Fatalf("unexpected last run %+v", last)
	}
	if last.Duration() != 30*time.Second {
		t.Fatalf("duration = %v", last.Duration())
	}

	runs, err := store.RecentRuns(ctx, 10)
	if err != nil {
		t.Fatalf("recent runs: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "run-2" {
		t.Fatalf("expected newest first, got %+v", runs)
	}

	logs, err := store.GetRunLogs(ctx, "run-1")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if len(logs) != 1 || logs[0].Level != models.LogLevelWarn || logs[0].Message != "guard fired" {
		t.Fatalf("unexpected logs %+v", logs)
	}
}
