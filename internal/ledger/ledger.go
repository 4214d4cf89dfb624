// Package ledger persists, inside the target database, the record of which
// migration versions are currently applied, plus an audit trail of attempted
// steps. The current version is always derived as MAX(version) over the
// migrations table; it is never stored separately.
package ledger

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/markb/sqlstep/internal/db"
)

const schema = `
CREATE TABLE IF NOT EXISTS migrations (
    version      INTEGER PRIMARY KEY,
    name         TEXT NOT NULL,
    description  TEXT,
    applied_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS migration_runs (
    id         TEXT PRIMARY KEY,
    version    INTEGER NOT NULL,
    direction  TEXT NOT NULL CHECK (direction IN ('up', 'down')),
    ok         INTEGER NOT NULL,
    error      TEXT,
    ran_at     TEXT NOT NULL
);
`

// Entry is one applied migration. AppliedAt is stored as a decimal string of
// epoch milliseconds to stay clear of numeric range issues in the store.
type Entry struct {
	Version     int
	Name        string
	Description string
	AppliedAt   time.Time
}

// Run is one attempted step, successful or not. Failed steps leave a row too;
// rows are written outside the step's transaction so a rollback does not
// erase them.
type Run struct {
	ID        string
	Version   int
	Direction string
	OK        bool
	Error     string
	RanAt     time.Time
}

// DuplicateVersionError reports an insert for a version already recorded.
// Correct sequencing never produces this, but an overwrite must not be
// silent.
type DuplicateVersionError struct {
	Version int
}

func (e *DuplicateVersionError) Error() string {
	return fmt.Sprintf("migration version %d already recorded", e.Version)
}

// EnsureTable idempotently creates the ledger tables.
func EnsureTable(ctx context.Context, q db.Querier) error {
	if _, err := q.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create ledger tables: %w", err)
	}
	return nil
}

// CurrentVersion returns the maximum applied version, or 0 when nothing has
// been applied yet. An absent ledger table also reads as version 0 so that
// pure status reads never have to create anything.
func CurrentVersion(ctx context.Context, q db.Querier) (int, error) {
	exists, err := tableExists(ctx, q, "migrations")
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, nil
	}

	var version int
	err = q.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM migrations`).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to read current version: %w", err)
	}
	return version, nil
}

// Record inserts one applied-migration entry.
func Record(ctx context.Context, q db.Querier, e Entry) error {
	var count int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM migrations WHERE version = ?`, e.Version).Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to check for version %d: %w", e.Version, err)
	}
	if count > 0 {
		return &DuplicateVersionError{Version: e.Version}
	}

	_, err = q.ExecContext(ctx,
		`INSERT INTO migrations (version, name, description, applied_at) VALUES (?, ?, ?, ?)`,
		e.Version, e.Name, e.Description, strconv.FormatInt(e.AppliedAt.UnixMilli(), 10))
	if err != nil {
		return fmt.Errorf("failed to record version %d: %w", e.Version, err)
	}
	return nil
}

// Remove deletes one entry. Removing an absent version is a no-op, not an
// error.
func Remove(ctx context.Context, q db.Querier, version int) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM migrations WHERE version = ?`, version); err != nil {
		return fmt.Errorf("failed to remove version %d: %w", version, err)
	}
	return nil
}

// ListApplied returns all applied entries, ascending by version.
func ListApplied(ctx context.Context, q db.Querier) ([]Entry, error) {
	exists, err := tableExists(ctx, q, "migrations")
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	rows, err := q.QueryContext(ctx, `
		SELECT version, name, COALESCE(description, ''), applied_at
		FROM migrations
		ORDER BY version ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list applied migrations: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var appliedAt string
		if err := rows.Scan(&e.Version, &e.Name, &e.Description, &appliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		ms, _ := strconv.ParseInt(appliedAt, 10, 64)
		e.AppliedAt = time.UnixMilli(ms)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// RecordRun appends one row to the audit trail.
func RecordRun(ctx context.Context, q db.Querier, r Run) error {
	ok := 0
	if r.OK {
		ok = 1
	}
	_, err := q.ExecContext(ctx,
		`INSERT INTO migration_runs (id, version, direction, ok, error, ran_at) VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.Version, r.Direction, ok, r.Error, strconv.FormatInt(r.RanAt.UnixMilli(), 10))
	if err != nil {
		return fmt.Errorf("failed to record run for version %d: %w", r.Version, err)
	}
	return nil
}

// ListRuns returns the audit trail, oldest first.
func ListRuns(ctx context.Context, q db.Querier) ([]Run, error) {
	exists, err := tableExists(ctx, q, "migration_runs")
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	rows, err := q.QueryContext(ctx, `
		SELECT id, version, direction, ok, COALESCE(error, ''), ran_at
		FROM migration_runs
		ORDER BY ran_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var ok int
		var ranAt string
		if err := rows.Scan(&r.ID, &r.Version, &r.Direction, &ok, &r.Error, &ranAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.OK = ok != 0
		ms, _ := strconv.ParseInt(ranAt, 10, 64)
		r.RanAt = time.UnixMilli(ms)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func tableExists(ctx context.Context, q db.Querier, name string) (bool, error) {
	var count int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check for table %s: %w", name, err)
	}
	return count > 0, nil
}
