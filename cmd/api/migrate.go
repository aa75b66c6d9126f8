package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xavierca1/ligue-leads/internal/infra/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the lead schema to the configured store",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		switch cfg.Store.Driver {
		case "sqlite":
			repo, err := database.OpenSQLite(ctx, cfg.Store.SQLitePath)
			if err != nil {
				return err
			}
			defer repo.Close()
		case "postgres", "":
			if cfg.Store.DatabaseURL == "" {
				return eris.New("migrate: DATABASE_URL is required")
			}
			if err := database.MigratePostgres(ctx, cfg.Store.DatabaseURL); err != nil {
				return err
			}
		default:
			return eris.Errorf("migrate: unknown store driver %q", cfg.Store.Driver)
		}

		zap.L().Info("lead schema applied", zap.String("driver", cfg.Store.Driver))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
