package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/frahmantamala/credify/internal/database"
	"github.com/spf13/cobra"
)

var (
	migrateCmd = &cobra.Command{
		RunE:  runMigration,
		Use:   "migrate",
		Short: "to run the embedded db migrations",
	}
	migrateVersionCmd = &cobra.Command{
		RunE:  runMigrationVersion,
		Use:   "version",
		Short: "print the latest applied migration",
	}
	migrateRollback bool
)

func init() {
	migrateCmd.Flags().BoolVarP(&migrateRollback, "rollback", "r", false, "to rollback the latest version of sql migration")
	migrateCmd.AddCommand(migrateVersionCmd)
}

func openDatabase() (*database.DB, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	return database.Open(cfg.Database)
}

func runMigration(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	db, err := openDatabase()
	if err != nil {
		log.Fatalf("goose: failed to open DB: %v\n", err)
	}
	defer db.Close()

	if migrateRollback {
		if err := db.Rollback(ctx); err != nil {
			log.Fatalf("goose down: %v", err)
		}
	} else if err := db.Migrate(ctx); err != nil {
		log.Fatalf("goose up: %v", err)
	}

	return printVersion(ctx, db)
}

func runMigrationVersion(_ *cobra.Command, _ []string) error {
	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()
	return printVersion(context.Background(), db)
}

func printVersion(ctx context.Context, db *database.DB) error {
	version, err := db.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	fmt.Println("schema version:", version)
	return nil
}
