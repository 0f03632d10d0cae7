package main

import (
	"github.com/spf13/cobra"
	"github.com/yashrajoria/storefront-service/database"
	"go.uber.org/zap"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the orders schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = rt.logger.Sync() }()

			db, err := database.ConnectPostgres(rt.cfg.Postgres, rt.logger)
			if err != nil {
				return err
			}
			defer func() { _ = database.Close(db) }()

			if err := database.Migrate(db); err != nil {
				return err
			}
			rt.logger.Info("Orders schema migrated", zap.String("database", rt.cfg.Postgres.DB))
			return nil
		},
	}
}
