package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/homekey/stage-tracker/internal/config"
	"github.com/homekey/stage-tracker/internal/dashboard"
	"github.com/homekey/stage-tracker/internal/models"
	"github.com/homekey/stage-tracker/internal/tracker"
	"github.com/homekey/stage-tracker/pkg/observability"
)

func newDashboardCmd() *cobra.Command {
	var stageType string

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Track stage progress in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if stageType == "" {
				stageType = cfg.Tracker.DefaultType
			}
			st := models.StageType(stageType)
			if !st.Valid() {
				return fmt.Errorf("invalid --type %q: must be buyer or seller", stageType)
			}

			// The dashboard owns the terminal, so nothing is logged.
			logger := observability.NewNoopLogger()
			board := tracker.NewBoard(tracker.NewClient(cfg.Tracker, logger), st, logger)
			return dashboard.Run(cmd.Context(), board)
		},
	}
	cmd.Flags().StringVarP(&stageType, "type", "t", "", "stage type to show first: buyer or seller")
	return cmd
}
