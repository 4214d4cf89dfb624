package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/markb/sqlstep/internal/db"
	"github.com/markb/sqlstep/internal/log"
	"github.com/markb/sqlstep/internal/migration"
	"github.com/markb/sqlstep/internal/runner"
)

// Version information set via ldflags at build time
var (
	Version   = "dev"
	BuildTime = ""
	GitCommit = ""
)

var rootCmd = &cobra.Command{
	Use:   "sqlstep",
	Short: "Stepwise schema migrations for embedded SQL databases",
	Long: `sqlstep tracks versioned schema changes in a YAML source, applies pending
migrations forward or reverses applied ones, and runs every step in its own
transaction. Invoked with no subcommand it migrates to the latest version.`,
	Version:      Version,
	SilenceUsage: true,
	RunE:         runMigrate,
}

func init() {
	rootCmd.SetVersionTemplate("sqlstep version {{.Version}}\n")

	rootCmd.PersistentFlags().String("db", envOr("SQLSTEP_DB", "data.db"), "Database path")
	rootCmd.PersistentFlags().String("source", envOr("SQLSTEP_SOURCE", "migrations.yaml"), "Migration source file")
	rootCmd.PersistentFlags().String("log-level", envOr("SQLSTEP_LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", envOr("SQLSTEP_LOG_FORMAT", "text"), "Log format (text, json)")

	rootCmd.Flags().Int("to", 0, "Target version (0 reverts everything; default: latest)")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// buildRunner wires the store, source, and logger from the persistent flags.
// Script file references resolve relative to the source file's directory.
func buildRunner(cmd *cobra.Command) (*runner.Runner, *db.DB, error) {
	dbPath, _ := cmd.Flags().GetString("db")
	sourcePath, _ := cmd.Flags().GetString("source")
	level, _ := cmd.Flags().GetString("log-level")
	format, _ := cmd.Flags().GetString("log-format")

	database, err := db.New(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	dir := filepath.Dir(sourcePath)
	fsys := os.DirFS(dir)
	source := migration.NewSource(fsys, filepath.Base(sourcePath))
	logger := log.New(level, format)

	return runner.New(database, source, fsys, logger), database, nil
}
