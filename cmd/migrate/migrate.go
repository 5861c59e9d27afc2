// Package migrate implements the database migration commands.
package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"github.com/Ib-dI/ylang-creations/cmd/internal/app"
	"github.com/Ib-dI/ylang-creations/migration/generator"
	"github.com/Ib-dI/ylang-creations/migration/migrator"
)

const (
	versionFlag   = "version"
	nameFlag      = "name"
	outputDirFlag = "output-dir"
)

var dbFlags = map[string]cobraflags.Flag{
	app.ConfigFlag: app.NewConfigFlag(),
}

var toFlags = map[string]cobraflags.Flag{
	app.ConfigFlag: app.NewConfigFlag(),
	versionFlag: &cobraflags.IntFlag{
		Name:  versionFlag,
		Value: -1,
		Usage: "Target migration version (required, 0 reverts everything)",
	},
}

var newFlags = map[string]cobraflags.Flag{
	nameFlag: &cobraflags.StringFlag{
		Name:  nameFlag,
		Value: "",
		Usage: "Name for the migration (required)",
	},
	outputDirFlag: &cobraflags.StringFlag{
		Name:  outputDirFlag,
		Value: "./migrations/sql",
		Usage: "Directory where migration files will be saved",
	},
}

// NewMigrateCommand returns the migrate command and its subcommands.
func NewMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate [up|down|to|status|new]",
		Short: "Manage the store database schema",
		Long: `Apply, revert or inspect the embedded store migrations, or scaffold a new one.

Examples:
  ylang migrate up                          # Apply all pending migrations
  ylang migrate down                        # Revert the last applied migration
  ylang migrate to --version 20250101000000 # Migrate up or down to a version
  ylang migrate status                      # Show the current version
  ylang migrate new --name add_gift_wrap    # Create empty up/down files`,
	}

	cmd.AddCommand(newDBCommand("up", "Apply all pending migrations", dbFlags, func(ctx context.Context, m *migrator.Migrator) error {
		return m.MigrateUp(ctx)
	}))
	cmd.AddCommand(newDBCommand("down", "Revert the last applied migration", dbFlags, func(ctx context.Context, m *migrator.Migrator) error {
		err := m.MigrateDown(ctx)
		if errors.Is(err, migrator.ErrNoPreviousMigration) {
			fmt.Println("Nothing to revert")
			return nil
		}
		return err
	}))
	cmd.AddCommand(newDBCommand("to", "Migrate up or down to a specific version", toFlags, func(ctx context.Context, m *migrator.Migrator) error {
		version := toFlags[versionFlag].GetInt()
		if version < 0 {
			return fmt.Errorf("--%s is required", versionFlag)
		}
		return m.MigrateTo(ctx, version)
	}))
	cmd.AddCommand(newDBCommand("status", "Show the migration status", dbFlags, printStatus))
	cmd.AddCommand(newNewCommand())
	return cmd
}

type migrateFunc func(ctx context.Context, m *migrator.Migrator) error

func newDBCommand(use, short string, flags map[string]cobraflags.Flag, fn migrateFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd.Context(), flags[app.ConfigFlag].GetString(), fn)
		},
	}
	cobraflags.RegisterMap(cmd, flags)
	return cmd
}

func withMigrator(ctx context.Context, configPath string, fn migrateFunc) error {
	cfg, err := app.LoadConfig(configPath)
	if err != nil {
		return err
	}
	logger := app.NewLogger(cfg.Log, os.Stderr)

	db, err := app.OpenDB(cfg.Database)
	if err != nil {
		return err
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			logger.Warn("Failed to close database", "error", err)
		}
	}(db)

	m, err := app.NewMigrator(db, logger.With("component", "migrator"))
	if err != nil {
		return err
	}
	return fn(ctx, m)
}

func printStatus(ctx context.Context, m *migrator.Migrator) error {
	status, err := m.GetMigrationStatus(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Current version: %d\n", status.CurrentVersion)
	fmt.Printf("Total migrations: %d\n", status.TotalMigrations)
	if !status.HasPendingChanges {
		fmt.Println("Database is up to date")
		return nil
	}

	pending := make([]string, len(status.PendingMigrations))
	for i, v := range status.PendingMigrations {
		pending[i] = fmt.Sprint(v)
	}
	fmt.Printf("Pending migrations (%d): %s\n", len(pending), strings.Join(pending, ", "))
	return nil
}

func newNewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Generate empty migration files for manual editing",
		Long: `Generate empty skeleton migration files with a timestamp version.

Both up and down files are created. Files written to the embedded migrations
directory are picked up on the next build.`,
		RunE: newCommand,
	}
	cobraflags.RegisterMap(cmd, newFlags)
	return cmd
}

func newCommand(_ *cobra.Command, _ []string) error {
	name := newFlags[nameFlag].GetString()
	outputDir := newFlags[outputDirFlag].GetString()

	if name == "" {
		return fmt.Errorf("--%s is required", nameFlag)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("error creating output directory: %w", err)
	}

	files, err := generator.GenerateEmptyMigration(generator.GenerateEmptyMigrationOptions{
		MigrationName: name,
		OutputDir:     outputDir,
	})
	if err != nil {
		return fmt.Errorf("error generating migration: %w", err)
	}

	fmt.Printf("Generated migration %d\n", files.Version)
	fmt.Printf("  up:   %s\n", files.UpFile)
	fmt.Printf("  down: %s\n", files.DownFile)
	return nil
}
