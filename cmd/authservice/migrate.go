package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"authservice/internal/database"
	"authservice/internal/logger"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE:  runMigrate,
	}
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}

	ctx := cmd.Context()
	log := logger.Load(cfg.LogFormat, cmd.OutOrStdout())

	cmd.Println("Connecting to database...")
	db, err := database.LoadDB(ctx, cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	cmd.Println("Running migrations...")
	if err := database.Migrate(ctx, db, cfg.DBDriver, log); err != nil {
		return err
	}

	cmd.Println("Migrations completed successfully")
	return nil
}
