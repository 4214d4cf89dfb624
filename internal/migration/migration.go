// Package migration defines the declarative migration set: versioned schema
// changes loaded from a YAML source, sorted, and validated before any of them
// execute. Script bodies referenced by file are resolved only when a step
// actually runs; validation just proves the reference exists.
package migration

import (
	"fmt"
	"io/fs"

	"gopkg.in/yaml.v3"
)

// Migration is one versioned schema change.
type Migration struct {
	Version     int    `yaml:"version"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Reversible  bool   `yaml:"reversible"`
	Up          Script `yaml:"up"`
	Down        Script `yaml:"down"`
}

// Script is one direction's SQL: inline text, or a reference to an external
// .sql file. In the source it is written either as a plain string or as
// {file: path}.
type Script struct {
	Text string
	File string
}

// IsZero reports whether no script was given for this direction.
func (s Script) IsZero() bool { return s.Text == "" && s.File == "" }

func (s *Script) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var text string
		if err := value.Decode(&text); err != nil {
			return err
		}
		s.Text = text
		return nil
	case yaml.MappingNode:
		var ref struct {
			File string `yaml:"file"`
		}
		if err := value.Decode(&ref); err != nil {
			return err
		}
		if ref.File == "" {
			return fmt.Errorf("script reference is missing the file field")
		}
		s.File = ref.File
		return nil
	default:
		return fmt.Errorf("script must be a SQL string or {file: path}")
	}
}

// Resolve returns the SQL text, reading the external file now if the script
// is a reference. Called once per step, at apply time.
func (s Script) Resolve(fsys fs.FS) (string, error) {
	if s.File == "" {
		return s.Text, nil
	}
	body, err := fs.ReadFile(fsys, s.File)
	if err != nil {
		return "", fmt.Errorf("failed to read script %s: %w", s.File, err)
	}
	return string(body), nil
}

// Precheck reports whether Resolve can succeed, without reading the body.
// Inline scripts always pass.
func (s Script) Precheck(fsys fs.FS) bool {
	if s.File == "" {
		return true
	}
	_, err := fs.Stat(fsys, s.File)
	return err == nil
}
