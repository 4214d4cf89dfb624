// internal/ledger/ledger_test.go
package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/markb/sqlstep/internal/db"
)

func setupTestDB(t *testing.T) *db.DB {
	t.Helper()
	path := t.TempDir() + "/test.db"
	database, err := db.New(path)
	if err != nil {
		t.Fatalf("failed to create db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func TestCurrentVersionWithoutTable(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()

	// No EnsureTable: a pure status read on a fresh database is version 0.
	version, err := CurrentVersion(ctx, database)
	if err != nil {
		t.Fatalf("CurrentVersion() error: %v", err)
	}
	if version != 0 {
		t.Errorf("expected version 0, got %d", version)
	}

	entries, err := ListApplied(ctx, database)
	if err != nil {
		t.Fatalf("ListApplied() error: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no entries, got %d", len(entries))
	}
}

func TestEnsureTableIdempotent(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()

	if err := EnsureTable(ctx, database); err != nil {
		t.Fatalf("first EnsureTable() error: %v", err)
	}
	if err := EnsureTable(ctx, database); err != nil {
		t.Fatalf("second EnsureTable() error: %v", err)
	}
}

func TestRecordAndCurrentVersion(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()
	if err := EnsureTable(ctx, database); err != nil {
		t.Fatalf("EnsureTable() error: %v", err)
	}

	now := time.Now()
	for v := 1; v <= 3; v++ {
		err := Record(ctx, database, Entry{Version: v, Name: "step", AppliedAt: now})
		if err != nil {
			t.Fatalf("Record(%d) error: %v", v, err)
		}
	}

	version, err := CurrentVersion(ctx, database)
	if err != nil {
		t.Fatalf("CurrentVersion() error: %v", err)
	}
	if version != 3 {
		t.Errorf("expected version 3, got %d", version)
	}
}

func TestRecordDuplicateVersion(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()
	if err := EnsureTable(ctx, database); err != nil {
		t.Fatalf("EnsureTable() error: %v", err)
	}

	entry := Entry{Version: 1, Name: "init", AppliedAt: time.Now()}
	if err := Record(ctx, database, entry); err != nil {
		t.Fatalf("first Record() error: %v", err)
	}

	err := Record(ctx, database, entry)
	var dup *DuplicateVersionError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateVersionError, got %v", err)
	}
	if dup.Version != 1 {
		t.Errorf("expected version 1 in error, got %d", dup.Version)
	}
}

func TestRemoveAbsentVersionIsNoop(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()
	if err := EnsureTable(ctx, database); err != nil {
		t.Fatalf("EnsureTable() error: %v", err)
	}

	if err := Remove(ctx, database, 42); err != nil {
		t.Errorf("Remove() of absent version should be a no-op, got %v", err)
	}
}

func TestListAppliedOrderAndTimestamps(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()
	if err := EnsureTable(ctx, database); err != nil {
		t.Fatalf("EnsureTable() error: %v", err)
	}

	applied := time.UnixMilli(1700000000000)
	// Insert out of order; listing must come back ascending.
	for _, v := range []int{2, 1, 3} {
		err := Record(ctx, database, Entry{
			Version: v, Name: "step", Description: "d", AppliedAt: applied,
		})
		if err != nil {
			t.Fatalf("Record(%d) error: %v", v, err)
		}
	}

	entries, err := ListApplied(ctx, database)
	if err != nil {
		t.Fatalf("ListApplied() error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for i, e := range entries {
		if e.Version != i+1 {
			t.Errorf("position %d: expected version %d, got %d", i, i+1, e.Version)
		}
		if !e.AppliedAt.Equal(applied) {
			t.Errorf("version %d: expected applied at %v, got %v", e.Version, applied, e.AppliedAt)
		}
	}
}

func TestRunHistory(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()
	if err := EnsureTable(ctx, database); err != nil {
		t.Fatalf("EnsureTable() error: %v", err)
	}

	base := time.UnixMilli(1700000000000)
	runs := []Run{
		{ID: "run-1", Version: 1, Direction: "up", OK: true, RanAt: base},
		{ID: "run-2", Version: 2, Direction: "up", OK: false, Error: "syntax error", RanAt: base.Add(time.Second)},
	}
	for _, r := range runs {
		if err := RecordRun(ctx, database, r); err != nil {
			t.Fatalf("RecordRun(%s) error: %v", r.ID, err)
		}
	}

	got, err := ListRuns(ctx, database)
	if err != nil {
		t.Fatalf("ListRuns() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(got))
	}
	if got[0].ID != "run-1" || got[1].ID != "run-2" {
		t.Errorf("runs out of order: %s, %s", got[0].ID, got[1].ID)
	}
	if got[1].OK || got[1].Error != "syntax error" {
		t.Errorf("failed run not preserved: %+v", got[1])
	}
}
