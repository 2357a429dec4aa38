package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"plantdoctor/internal/logging"
	"plantdoctor/internal/repository"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Database schema migrations (up, down, version)",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd, func(ctx context.Context, db *repository.PostgresRepository, logger *zap.Logger) error {
			if err := repository.RunMigrations(ctx, db.DB().DB, logger); err != nil {
				return err
			}
			fmt.Println("✓ Schema is up to date")
			return nil
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down [steps]",
	Short: "Roll back migrations (default 1 step)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		steps, err := parseSteps(args)
		if err != nil {
			return err
		}
		return withDB(cmd, func(ctx context.Context, db *repository.PostgresRepository, logger *zap.Logger) error {
			if err := repository.RollbackMigrations(ctx, db.DB().DB, steps, logger); err != nil {
				return err
			}
			fmt.Printf("✓ Rolled back %d migration(s)\n", steps)
			return nil
		})
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the current schema version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd, func(ctx context.Context, db *repository.PostgresRepository, logger *zap.Logger) error {
			version, dirty, err := repository.MigrationVersion(ctx, db.DB().DB, logger)
			if err != nil {
				return err
			}
			fmt.Printf("Schema version: %d (dirty: %t)\n", version, dirty)
			return nil
		})
	},
}

func parseSteps(args []string) (int, error) {
	if len(args) == 0 {
		return 1, nil
	}
	steps, err := strconv.Atoi(args[0])
	if err != nil || steps <= 0 {
		return 0, fmt.Errorf("steps must be a positive integer, got %q", args[0])
	}
	return steps, nil
}

// withDB opens a bare connection without running migrations
func withDB(cmd *cobra.Command, fn func(ctx context.Context, db *repository.PostgresRepository, logger *zap.Logger) error) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	conn, err := repository.Connect(ctx, cfg.GetPostgreSQLDSN(), 2, 1)
	if err != nil {
		return fmt.Errorf("%w (dsn: %s)", err, logging.SanitizeConnectionString(cfg.GetPostgreSQLDSN()))
	}
	db := repository.NewPostgresRepository(conn)
	defer db.Close()

	return fn(ctx, db, logger)
}
