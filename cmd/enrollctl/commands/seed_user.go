package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmehra2102/course-enrollment/internal/config"
	"github.com/dmehra2102/course-enrollment/internal/enrollment/domain"
	enrollmongo "github.com/dmehra2102/course-enrollment/internal/enrollment/infrastructure/mongo"
	enrollpg "github.com/dmehra2102/course-enrollment/internal/enrollment/infrastructure/postgres"
)

type userUpserter interface {
	UpsertUser(ctx context.Context, u domain.UserAccount) error
}

// seed-user <id>: create or update a user account in the configured store.
func seedUserCmd() *cobra.Command {
	var (
		email   string
		name    string
		courses []string
	)
	cmd := &cobra.Command{
		Use:   "seed-user <id>",
		Short: "Create or update a user account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u := domain.UserAccount{
				ID:              args[0],
				Email:           email,
				Name:            name,
				EnrolledCourses: courses,
				CreatedAt:       time.Now().UTC(),
			}

			ctx := cmd.Context()
			var store userUpserter
			switch cfg.StoreBackend {
			case config.BackendPostgres:
				pool, err := enrollpg.Connect(ctx, cfg.DatabaseURL, 2)
				if err != nil {
					return err
				}
				defer pool.Close()
				store = enrollpg.NewRepository(log, pool)
			case config.BackendMongo:
				client, err := enrollmongo.Connect(ctx, cfg.MongoURI)
				if err != nil {
					return err
				}
				defer func() { _ = client.Disconnect(context.Background()) }()
				store = enrollmongo.NewRepository(log, client.Database(cfg.MongoDatabase))
			default:
				return fmt.Errorf("seed-user needs a durable backend, configured: %s", cfg.StoreBackend)
			}

			if err := store.UpsertUser(ctx, u); err != nil {
				return err
			}
			log.Info("user seeded", "user_id", u.ID, "courses", len(u.EnrolledCourses))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringSliceVar(&courses, "course", nil, "course already owned (repeatable)")
	return cmd
}
