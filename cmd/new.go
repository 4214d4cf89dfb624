// cmd/new.go
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/markb/sqlstep/internal/migration"
)

var namePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

var newCmd = &cobra.Command{
	Use:   "new <name>",
	Short: "Scaffold the next migration",
	Long: `Append the next version's entry to the migration source and create its
up/down SQL file stubs next to it.

The name should be a short description using snake_case.

Examples:
  sqlstep new create_posts
  sqlstep new add_user_id_to_posts --source migrations.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		sourcePath, _ := cmd.Flags().GetString("source")

		if !namePattern.MatchString(name) {
			return fmt.Errorf("migration name must be lowercase alphanumeric with underscores, starting with a letter")
		}

		dir := filepath.Dir(sourcePath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create source directory: %w", err)
		}

		// Next version continues the existing sequence; a missing source
		// file just means this is migration 1.
		version := 1
		set, err := migration.NewSource(os.DirFS(dir), filepath.Base(sourcePath)).Load()
		switch {
		case err == nil:
			if len(set) > 0 {
				version = set[len(set)-1].Version + 1
			}
		case errors.Is(err, fs.ErrNotExist):
		default:
			return err
		}

		upFile := fmt.Sprintf("%04d_%s.up.sql", version, name)
		downFile := fmt.Sprintf("%04d_%s.down.sql", version, name)

		stub := fmt.Sprintf("-- Migration: %s (version %d)\n\n-- Write your SQL here\n\n", name, version)
		for _, f := range []string{upFile, downFile} {
			path := filepath.Join(dir, f)
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("refusing to overwrite %s", path)
			}
			if err := os.WriteFile(path, []byte(stub), 0644); err != nil {
				return fmt.Errorf("failed to create %s: %w", path, err)
			}
		}

		entry := fmt.Sprintf(
			"- version: %d\n  name: %s\n  description: \"\"\n  reversible: true\n  up: {file: %s}\n  down: {file: %s}\n",
			version, name, upFile, downFile)

		f, err := os.OpenFile(sourcePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("failed to open migration source: %w", err)
		}
		defer f.Close()
		if _, err := f.WriteString(entry); err != nil {
			return fmt.Errorf("failed to append to migration source: %w", err)
		}

		fmt.Printf("Created migration %d: %s\n", version, name)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(newCmd)
}
