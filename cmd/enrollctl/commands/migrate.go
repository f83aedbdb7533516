package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmehra2102/course-enrollment/internal/config"
	enrollpg "github.com/dmehra2102/course-enrollment/internal/enrollment/infrastructure/postgres"
)

// migrate: apply the embedded Postgres schema.
func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Args:  cobra.NoArgs,
		Short: "Create the users, enrollment and outbox tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.StoreBackend != config.BackendPostgres {
				return fmt.Errorf("migrate needs the postgres backend, configured: %s", cfg.StoreBackend)
			}
			pool, err := enrollpg.Connect(cmd.Context(), cfg.DatabaseURL, 2)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := enrollpg.Migrate(cmd.Context(), pool); err != nil {
				return err
			}
			log.Info("schema applied")
			return nil
		},
	}
}
