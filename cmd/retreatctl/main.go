// Command retreatctl is the operator CLI: schema migrations, staff accounts,
// registration exports and Kafka topic setup.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"retreat/internal/app"
	"retreat/internal/platform/config"
	"retreat/internal/platform/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "retreatctl",
		Short: "Operate the retreat registration service",
		Long: `retreatctl runs maintenance tasks against the same configuration as the server.

Configuration is read from the environment (DATABASE_URL, KAFKA_BROKERS, ...).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newMigrateCmd(), newAdminCmd(), newExportCmd(), newTopicsCmd())
	return root
}

// openApp builds the service graph with logs on stderr so command output on
// stdout stays machine-readable. Every command that opens the app works on
// Postgres data, so DATABASE_URL is required.
func openApp(cmd *cobra.Command) (*app.App, error) {
	cfg := config.FromEnv()
	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := logger.NewWithWriter(cmd.ErrOrStderr(), cfg.Server.Environment, cfg.Server.LogLevel)
	return app.New(cmd.Context(), cfg, log)
}
