package main

import (
	"fmt"

	"github.com/aescanero/dago-node-assistant/internal/storage/sqlite"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the team database and load sample data",
	Long: `Apply the schema migrations to DATABASE_PATH and load sample departments,
products, team members, features and incidents. Sample rows are only
inserted into an empty database.`,
	Args: cobra.NoArgs,
	RunE: runSeed,
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	store, err := sqlite.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	seeded, err := store.Seed(ctx)
	if err != nil {
		return err
	}
	version, err := store.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if seeded {
		fmt.Fprintf(out, "seeded %s (schema version %d)\n", store.Path(), version)
	} else {
		fmt.Fprintf(out, "%s already contains data (schema version %d)\n", store.Path(), version)
	}
	return nil
}
