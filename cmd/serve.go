// cmd/serve.go
package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/markb/sqlstep/internal/log"
	"github.com/markb/sqlstep/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a read-only HTTP status endpoint",
	Long: `Serve migration status over HTTP for dashboards and health checks.
The endpoints never plan or execute migrations.

  GET /healthz     liveness
  GET /v1/status   current/latest version and applied list
  GET /v1/history  audit trail of attempted steps

Examples:
  sqlstep serve
  sqlstep serve --addr :8089`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		level, _ := cmd.Flags().GetString("log-level")
		format, _ := cmd.Flags().GetString("log-format")

		r, database, err := buildRunner(cmd)
		if err != nil {
			return err
		}
		defer database.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		srv := server.New(r, log.New(level, format))
		if err := srv.Start(ctx, addr); err != nil {
			return fmt.Errorf("status server failed: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", envOr("SQLSTEP_ADDR", ":8089"), "Listen address")
}
