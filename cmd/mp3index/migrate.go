package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mp3index/internal/config"
	"mp3index/internal/store"
)

func newMigrateCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var dryRun bool
	var inspect bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run or inspect database schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Storage.Backend == config.StorageBackendMemory {
				return fmt.Errorf("migrate requires the %s storage backend", config.StorageBackendSQLite)
			}

			if inspect || dryRun {
				plan, err := migrationPlan(cfg.DBPath)
				if err != nil {
					return fmt.Errorf("inspect migrations: %w", err)
				}

				if *jsonOutput {
					return writeJSON(plan)
				}

				_ = writePlain("Current version: %d\n", plan.CurrentVersion)
				_ = writePlain("Available version: %d\n", plan.AvailableVersion)
				if len(plan.Pending) == 0 {
					return writePlain("No pending migrations.\n")
				}
				_ = writePlain("Pending migrations: %d\n", len(plan.Pending))
				for _, m := range plan.Pending {
					_ = writePlain("  %d: %s\n", m.Version, m.Description)
				}
				return nil
			}

			// Open applies pending migrations, same as server start.
			st, err := store.Open(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			_ = st.Close()

			if *jsonOutput {
				plan, err := migrationPlan(cfg.DBPath)
				if err != nil {
					return err
				}
				return writeJSON(plan)
			}

			return writePlain("Migrations applied successfully.\n")
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show pending migrations without applying")
	cmd.Flags().BoolVar(&inspect, "inspect", false, "show migration status")

	return cmd
}

func migrationPlan(path string) (*store.MigrationStatus, error) {
	if path == "" {
		return nil, fmt.Errorf("db path is required")
	}
	db, err := store.OpenRaw(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return store.MigrationPlan(db)
}
