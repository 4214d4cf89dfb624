// cmd/status.go
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current and pending migrations",
	Long: `Show the database's current version, the latest version in the migration
source, and every applied migration with its apply time. Read-only.

Examples:
  sqlstep status
  sqlstep status --db data.db --source migrations.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, database, err := buildRunner(cmd)
		if err != nil {
			return err
		}
		defer database.Close()

		status, err := r.Status(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to read status: %w", err)
		}

		fmt.Printf("Current version: %d\n", status.Current)
		fmt.Printf("Latest version:  %d\n\n", status.Latest)

		if len(status.Applied) == 0 {
			fmt.Println("No migrations applied")
		} else {
			fmt.Printf("%-8s %-30s %s\n", "VERSION", "NAME", "APPLIED")
			fmt.Println(strings.Repeat("-", 60))
			for _, e := range status.Applied {
				fmt.Printf("%-8d %-30s %s\n", e.Version, e.Name, e.AppliedAt.Format("2006-01-02 15:04"))
			}
		}

		if pending := status.Latest - status.Current; pending > 0 {
			fmt.Printf("\n%d migration(s) pending\n", pending)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
