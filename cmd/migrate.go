// cmd/migrate.go
package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/markb/sqlstep/internal/runner"
)

func runMigrate(cmd *cobra.Command, args []string) error {
	target := runner.Latest()
	if cmd.Flags().Changed("to") {
		to, _ := cmd.Flags().GetInt("to")
		if to < 0 {
			return fmt.Errorf("target version must be >= 0, got %d", to)
		}
		target = runner.Version(to)
	}

	// SQLSTEP_TARGET overrides the flags: "skip" turns the whole run into a
	// no-op, anything else pins the target version. Used to hold a
	// deployment at a known schema.
	switch override := os.Getenv("SQLSTEP_TARGET"); {
	case override == "skip":
		fmt.Println("Migrations skipped (SQLSTEP_TARGET=skip)")
		return nil
	case override != "":
		n, err := strconv.Atoi(override)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid SQLSTEP_TARGET %q: expected \"skip\" or a version number", override)
		}
		target = runner.Version(n)
	}

	r, database, err := buildRunner(cmd)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := r.MigrateTo(cmd.Context(), target); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	status, err := r.Status(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Printf("Database at version %d\n", status.Current)
	return nil
}
