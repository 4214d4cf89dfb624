// internal/migration/source.go
package migration

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"

	"gopkg.in/yaml.v3"
)

// ErrLoad marks a migration source that could not be read or parsed.
var ErrLoad = errors.New("failed to load migration source")

// Source reads a migration set from a YAML file: a top-level list of
// migration records.
type Source struct {
	fsys fs.FS
	path string
}

func NewSource(fsys fs.FS, path string) *Source {
	return &Source{fsys: fsys, path: path}
}

// Load reads and parses the migration set, returned sorted ascending by
// version. Declaration order in the source is not trusted. Duplicate
// versions are kept as-is; validation rejects them.
func (s *Source) Load() ([]Migration, error) {
	body, err := fs.ReadFile(s.fsys, s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}

	var migrations []Migration
	if err := yaml.Unmarshal(body, &migrations); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}
