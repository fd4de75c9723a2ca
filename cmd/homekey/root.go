package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/homekey/stage-tracker/internal/config"
	"github.com/homekey/stage-tracker/internal/store"
	"github.com/homekey/stage-tracker/pkg/observability"
)

func newRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:   "homekey",
		Short: "Stage tracker for buyer and seller real-estate workflows",
		Long: `homekey serves the stage and task API on top of the record store,
seeds task checklists and runs a terminal dashboard against the API.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadEnv(envFile)
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before configuration, ignored when missing")

	root.AddCommand(newServeCmd(), newSeedCmd(), newDashboardCmd())
	return root
}

// loadEnv loads a dotenv file without overriding variables already set
func loadEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// newLogger builds the process logger from configuration
func newLogger(cfg *config.Config, name string) observability.Logger {
	return observability.NewLoggerFromConfig(name, cfg.Observability.Logging)
}

// newStoreClient constructs a store client. It does not authenticate.
func newStoreClient(cfg store.Config, logger observability.Logger, metrics *observability.Metrics) (*store.Client, error) {
	return store.NewClient(cfg,
		store.WithLogger(logger.WithPrefix("store")),
		store.WithMetrics(metrics),
	)
}
