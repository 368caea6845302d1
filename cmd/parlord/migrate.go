package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arsalan507/SnookerParlorManagement-sub000/config"
	"github.com/arsalan507/SnookerParlorManagement-sub000/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate the schema and seed configured tables, then exit",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := setupLogger(cfg.Logging)

	gormDB, err := db.Init(&cfg.Database, logger)
	if err != nil {
		return err
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if err := db.Migrate(gormDB); err != nil {
		return err
	}
	seeded, err := db.SeedTables(cmd.Context(), gormDB, cfg.Venue.Tables)
	if err != nil {
		return err
	}

	logger.Info().Int64("seeded", seeded).Int("configured", len(cfg.Venue.Tables)).Msg("migration complete")
	return nil
}
