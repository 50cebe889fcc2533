package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/desp-aas/project-management/pkg/config"
	"github.com/desp-aas/project-management/pkg/database"
	"github.com/desp-aas/project-management/pkg/logger"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "migrate",
		Short:        "Manage the project management database schema",
		SilenceUsage: true,
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Create or update every table and index",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDB(cmd.Context(), func(db *gorm.DB) error {
					if err := runMigrations(db); err != nil {
						return fmt.Errorf("migration failed: %w", err)
					}
					logger.L().Info("migrations completed")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "check",
			Short: "Report tables that are missing from the database",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDB(cmd.Context(), func(db *gorm.DB) error {
					missing := missingTables(db)
					if len(missing) > 0 {
						return fmt.Errorf("missing tables: %v", missing)
					}
					logger.L().Info("schema is up to date")
					return nil
				})
			},
		},
	)
	return root
}

func withDB(ctx context.Context, fn func(*gorm.DB) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if _, err := logger.Init(cfg.LogLevel, cfg.LogFormat); err != nil {
		return err
	}
	defer logger.Sync()

	db, err := database.OpenPostgres(ctx, cfg.DatabaseURL, true)
	if err != nil {
		logger.L().Error("failed to connect to database", zap.Error(err))
		return err
	}
	return fn(db)
}
