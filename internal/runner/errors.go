// internal/runner/errors.go
package runner

import "fmt"

// StepKind classifies why a single version's step could not run.
type StepKind int

const (
	// StepMissing: the walk needed a version absent from the loaded set,
	// e.g. the caller asked for a target beyond the known range.
	StepMissing StepKind = iota
	// StepNotReversible: a backward step through a migration whose metadata
	// forbids reversal, whether or not a down script exists.
	StepNotReversible
	// StepNoDownScript: a backward step through a migration with no down
	// script.
	StepNoDownScript
	// StepEmptyScript: the resolved SQL body was empty.
	StepEmptyScript
	// StepExecFailed: the store rejected the SQL or the ledger write failed;
	// that step's transaction rolled back in full.
	StepExecFailed
)

// StepError aborts the remaining steps of a run. Steps already committed by
// the same call stay committed; the ledger tells how far the run got.
type StepError struct {
	Version int
	Kind    StepKind
	Err     error
}

func (e *StepError) Error() string {
	switch e.Kind {
	case StepMissing:
		return fmt.Sprintf("no migration with version %d in the loaded set", e.Version)
	case StepNotReversible:
		return fmt.Sprintf("migration %d is not reversible", e.Version)
	case StepNoDownScript:
		return fmt.Sprintf("migration %d has no down script", e.Version)
	case StepEmptyScript:
		return fmt.Sprintf("migration %d resolved to an empty script", e.Version)
	case StepExecFailed:
		return fmt.Sprintf("migration %d failed: %v", e.Version, e.Err)
	default:
		return fmt.Sprintf("migration %d failed", e.Version)
	}
}

func (e *StepError) Unwrap() error { return e.Err }
