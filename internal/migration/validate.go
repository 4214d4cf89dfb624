// internal/migration/validate.go
package migration

import (
	"fmt"
	"io/fs"
)

// SequenceError reports a sorted migration set whose versions are not the
// dense sequence 1..N. Duplicates surface here too: the second copy of a
// version cannot match its expected position.
type SequenceError struct {
	Index    int // position in the sorted set
	Expected int
	Actual   int
}

func (e *SequenceError) Error() string {
	return fmt.Sprintf("migration sequence broken at position %d: expected version %d, got %d",
		e.Index, e.Expected, e.Actual)
}

// MissingFileError reports an external script reference that does not
// resolve to an existing file.
type MissingFileError struct {
	Version int
	Path    string
}

func (e *MissingFileError) Error() string {
	return fmt.Sprintf("migration %d references missing script file %s", e.Version, e.Path)
}

// Validate enforces the structural rules on a sorted migration set, failing
// on the first violation. Sequence density is checked first, then every
// external script reference is existence-checked. The reference check runs
// before anything executes so a multi-step run fails before mutating state
// rather than partway through.
func Validate(sorted []Migration, fsys fs.FS) error {
	for i, m := range sorted {
		if m.Version != i+1 {
			return &SequenceError{Index: i, Expected: i + 1, Actual: m.Version}
		}
	}
	for _, m := range sorted {
		if !m.Up.Precheck(fsys) {
			return &MissingFileError{Version: m.Version, Path: m.Up.File}
		}
		if !m.Down.Precheck(fsys) {
			return &MissingFileError{Version: m.Version, Path: m.Down.File}
		}
	}
	return nil
}
