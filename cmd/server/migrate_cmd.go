package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/garyjia/event-approval/pkg/database"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := database.New(database.Config{
				Path:            a.cfg.Database.Path,
				MaxOpenConns:    a.cfg.Database.MaxOpenConns,
				MaxIdleConns:    a.cfg.Database.MaxIdleConns,
				ConnMaxLifetime: a.cfg.Database.ConnMaxLifetime,
			}, a.logger)
			if err != nil {
				return err
			}
			defer db.Close()

			migrator := database.NewMigrator(db, a.logger)
			applied, err := migrator.RunMigrations(database.EmbeddedMigrations())
			if err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
			versions, err := migrator.AppliedVersions()
			if err != nil {
				return err
			}

			a.logger.Info("Migrations complete",
				zap.Int("applied", applied),
				zap.Ints("versions", versions))
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s), schema at %d version(s)\n", applied, len(versions))
			return nil
		},
	}
}
