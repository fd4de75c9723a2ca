package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/homekey/stage-tracker/internal/config"
	"github.com/homekey/stage-tracker/internal/repository"
	"github.com/homekey/stage-tracker/internal/seed"
)

func newSeedCmd() *cobra.Command {
	var (
		file           string
		authCollection string
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the task checklist of every stored stage",
		Long: `seed authenticates against the record store as a superuser, lists every
stage and creates one task per checklist entry matching the stage title.
Without --file the built-in buyer and seller checklist is used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			checklist, err := seed.LoadChecklist(file)
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			cfg.Store.AuthCollection = authCollection

			logger := newLogger(cfg, "homekey")
			client, err := newStoreClient(cfg.Store, logger, nil)
			if err != nil {
				return err
			}
			if err := client.Authenticate(cmd.Context()); err != nil {
				return err
			}

			seeder := seed.NewSeeder(repository.NewStageRepository(client), repository.NewTaskRepository(client), logger)
			res, err := seeder.Run(cmd.Context(), checklist)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %d tasks, %d failed, %d stages without checklist\n", res.Created, res.Failed, res.Skipped)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML checklist file (default: built-in checklist)")
	cmd.Flags().StringVar(&authCollection, "auth-collection", "_superusers", "store auth collection used to log in")
	return cmd
}
