// Package runner plans and executes migration runs. It diffs the ledger's
// current version against a requested target and walks the gap one version at
// a time, strictly in order. Each step is one transaction covering the step's
// SQL and its ledger write; there is no outer transaction around a run, so a
// failure mid-run leaves earlier steps committed.
package runner

import (
	"context"
	"io/fs"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/markb/sqlstep/internal/db"
	"github.com/markb/sqlstep/internal/ledger"
	"github.com/markb/sqlstep/internal/migration"
)

const (
	directionUp   = "up"
	directionDown = "down"
)

// Target is where a run should land: an explicit version, or whatever the
// loaded set's highest version turns out to be.
type Target struct {
	latest  bool
	version int
}

func Latest() Target       { return Target{latest: true} }
func Version(n int) Target { return Target{version: n} }

// Source yields the migration set. One Load per run; the returned set is
// never re-read within a run.
type Source interface {
	Load() ([]migration.Migration, error)
}

type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

type Runner struct {
	store  db.Store
	source Source
	files  fs.FS
	logger Logger
	now    func() time.Time
}

func New(store db.Store, source Source, files fs.FS, logger Logger) *Runner {
	return &Runner{
		store:  store,
		source: source,
		files:  files,
		logger: logger,
		now:    time.Now,
	}
}

// MigrateTo moves the database to the target version. Load and validation
// failures abort before the ledger is touched. An out-of-range target is not
// bounds-checked up front; the walk fails at the first version it cannot
// find, leaving earlier steps of the same call committed.
func (r *Runner) MigrateTo(ctx context.Context, target Target) error {
	set, err := r.source.Load()
	if err != nil {
		return err
	}
	if err := migration.Validate(set, r.files); err != nil {
		return err
	}

	if err := ledger.EnsureTable(ctx, r.store); err != nil {
		return err
	}
	current, err := ledger.CurrentVersion(ctx, r.store)
	if err != nil {
		return err
	}

	goal := target.version
	if target.latest {
		goal = 0
		if len(set) > 0 {
			goal = set[len(set)-1].Version
		}
	}

	if current == goal {
		r.logger.Info("database already at target version", "version", current)
		return nil
	}

	byVersion := make(map[int]migration.Migration, len(set))
	for _, m := range set {
		byVersion[m.Version] = m
	}

	if current < goal {
		for v := current + 1; v <= goal; v++ {
			if err := r.step(ctx, byVersion, v, directionUp); err != nil {
				return err
			}
		}
	} else {
		for v := current; v > goal; v-- {
			if err := r.step(ctx, byVersion, v, directionDown); err != nil {
				return err
			}
		}
	}

	r.logger.Info("migration run complete", "version", goal)
	return nil
}

func (r *Runner) step(ctx context.Context, set map[int]migration.Migration, version int, direction string) error {
	m, ok := set[version]
	if !ok {
		return &StepError{Version: version, Kind: StepMissing}
	}

	script := m.Up
	if direction == directionDown {
		if !m.Reversible {
			return &StepError{Version: version, Kind: StepNotReversible}
		}
		if m.Down.IsZero() {
			return &StepError{Version: version, Kind: StepNoDownScript}
		}
		script = m.Down
	}

	// Lazy resolution: external files were existence-checked at validation,
	// but their bodies are read only now.
	body, err := script.Resolve(r.files)
	if err != nil {
		return &StepError{Version: version, Kind: StepExecFailed, Err: err}
	}
	if strings.TrimSpace(body) == "" {
		return &StepError{Version: version, Kind: StepEmptyScript}
	}

	err = r.store.Atomic(ctx, func(q db.Querier) error {
		if _, err := q.ExecContext(ctx, body); err != nil {
			return err
		}
		if direction == directionUp {
			return ledger.Record(ctx, q, ledger.Entry{
				Version:     version,
				Name:        m.Name,
				Description: m.Description,
				AppliedAt:   r.now(),
			})
		}
		return ledger.Remove(ctx, q, version)
	})
	r.audit(ctx, version, direction, err)

	if err != nil {
		r.logger.Error("migration step failed",
			"version", version, "name", m.Name, "direction", direction, "error", err)
		return &StepError{Version: version, Kind: StepExecFailed, Err: err}
	}

	r.logger.Info("migration step committed",
		"version", version, "name", m.Name, "direction", direction)
	return nil
}

// audit records the step attempt outside its transaction, so the trail
// survives a rollback. Best effort: a failed audit write is logged, never
// turned into a step failure.
func (r *Runner) audit(ctx context.Context, version int, direction string, stepErr error) {
	run := ledger.Run{
		ID:        uuid.NewString(),
		Version:   version,
		Direction: direction,
		OK:        stepErr == nil,
		RanAt:     r.now(),
	}
	if stepErr != nil {
		run.Error = stepErr.Error()
	}
	if err := ledger.RecordRun(ctx, r.store, run); err != nil {
		r.logger.Error("failed to record run history", "version", version, "error", err)
	}
}
