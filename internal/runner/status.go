// internal/runner/status.go
package runner

import (
	"context"

	"github.com/markb/sqlstep/internal/ledger"
)

// Status is a read-only snapshot: where the database is, where the loaded
// set tops out, and the full applied list. After a partial run failure this
// is the way to see how far the run actually got.
type Status struct {
	Current int
	Latest  int
	Applied []ledger.Entry
}

// Status never mutates the store; on a fresh database with no ledger table
// it reports version 0 with an empty applied list.
func (r *Runner) Status(ctx context.Context) (Status, error) {
	set, err := r.source.Load()
	if err != nil {
		return Status{}, err
	}

	current, err := ledger.CurrentVersion(ctx, r.store)
	if err != nil {
		return Status{}, err
	}
	applied, err := ledger.ListApplied(ctx, r.store)
	if err != nil {
		return Status{}, err
	}

	latest := 0
	if len(set) > 0 {
		latest = set[len(set)-1].Version
	}
	return Status{Current: current, Latest: latest, Applied: applied}, nil
}

// History returns the audit trail of attempted steps, oldest first.
func (r *Runner) History(ctx context.Context) ([]ledger.Run, error) {
	return ledger.ListRuns(ctx, r.store)
}
