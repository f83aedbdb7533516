package commands

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dmehra2102/course-enrollment/internal/config"
	"github.com/dmehra2102/course-enrollment/pkg/logging"
)

var (
	configPath string
	secret     string

	cfg config.Config
	log *slog.Logger
)

func Execute() error {
	return newRoot().Execute()
}

func newRoot() *cobra.Command {
	root := &cobra.Command{
		Use:           "enrollctl",
		Short:         "Operate the course enrollment webhook service",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(configPath)
			if err != nil {
				return err
			}
			cfg = loaded
			if secret == "" {
				secret = cfg.WebhookSecret
			}
			log = logging.New(cfg.LogLevel)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", os.Getenv("CONFIG_PATH"), "service config file (yaml)")
	root.PersistentFlags().StringVar(&secret, "secret", "", "webhook secret (default $PAYSTACK_SECRET_KEY)")

	root.AddCommand(signCmd(), sendCmd(), migrateCmd(), seedUserCmd())
	return root
}
