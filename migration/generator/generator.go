// Package generator scaffolds migration files for hand-written schema changes.
package generator

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Ib-dI/ylang-creations/migration/migrator"
)

// GenerateEmptyMigrationOptions contains options for empty migration generation
type GenerateEmptyMigrationOptions struct {
	// MigrationName is the human-readable name, e.g. "add gift wrapping"
	MigrationName string
	// OutputDir is the directory where migration files will be saved
	OutputDir string
	// Version overrides the timestamp-based version when non-zero
	Version int
}

// MigrationFiles represents the generated migration files
type MigrationFiles struct {
	UpFile   string // Path to the up migration file
	DownFile string // Path to the down migration file
	Version  int    // Migration version
}

// GenerateEmptyMigration writes a pair of skeleton up/down files ready for
// manual editing. If files for the chosen version already exist, the version
// is bumped until a free one is found.
func GenerateEmptyMigration(opts GenerateEmptyMigrationOptions) (*MigrationFiles, error) {
	if opts.MigrationName == "" {
		return nil, fmt.Errorf("migration name is required")
	}

	version := opts.Version
	if version == 0 {
		version = migrator.GetNextMigrationVersion()
	}

	now := time.Now().UTC().Format(time.RFC3339)
	upSQL := skeleton(opts.MigrationName, "UP", now)
	downSQL := skeleton(opts.MigrationName, "DOWN", now)

	return createMigrationFiles(opts.OutputDir, version, opts.MigrationName, upSQL, downSQL)
}

func skeleton(name, direction, generatedAt string) string {
	return fmt.Sprintf(`-- Migration: %s
-- Direction: %s
-- Generated: %s

-- Write your SQL statements here.
`, name, direction, generatedAt)
}

// createMigrationFiles creates the up and down migration files
func createMigrationFiles(outputDir string, version int, migrationName, upSQL, downSQL string) (*MigrationFiles, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	upFilePath := filepath.Join(outputDir, migrator.GenerateMigrationFileName(version, migrationName, migrator.DirectionUp))
	downFilePath := filepath.Join(outputDir, migrator.GenerateMigrationFileName(version, migrationName, migrator.DirectionDown))

	for fileExists(upFilePath) || fileExists(downFilePath) {
		version++
		upFilePath = filepath.Join(outputDir, migrator.GenerateMigrationFileName(version, migrationName, migrator.DirectionUp))
		downFilePath = filepath.Join(outputDir, migrator.GenerateMigrationFileName(version, migrationName, migrator.DirectionDown))
	}

	if err := os.WriteFile(upFilePath, []byte(upSQL), 0o644); err != nil { //nolint:gosec // migration files are not secret
		return nil, fmt.Errorf("failed to write up migration file: %w", err)
	}

	if err := os.WriteFile(downFilePath, []byte(downSQL), 0o644); err != nil { //nolint:gosec // migration files are not secret
		return nil, fmt.Errorf("failed to write down migration file: %w", err)
	}

	return &MigrationFiles{
		UpFile:   upFilePath,
		DownFile: downFilePath,
		Version:  version,
	}, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
