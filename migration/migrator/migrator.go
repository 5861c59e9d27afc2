// Package migrator applies versioned schema migrations to the store database.
package migrator

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"

	"github.com/Ib-dI/ylang-creations/dbschema"
)

// ErrNoPreviousMigration is returned by MigrateDown when nothing has been applied.
var ErrNoPreviousMigration = errors.New("no previous migrations exist")

// MigrationStatus represents the current state of migrations
type MigrationStatus struct {
	CurrentVersion    int   `json:"current_version"`
	PendingMigrations []int `json:"pending_migrations"`
	TotalMigrations   int   `json:"total_migrations"`
	HasPendingChanges bool  `json:"has_pending_changes"`
}

// Migrator handles database migrations
type Migrator struct {
	db                *sql.DB
	migrationProvider MigrationProvider
	initialized       bool
	logger            *slog.Logger
}

// NewFSMigrator creates a new migrator that loads migrations from a filesystem.
// Migration files follow the NNNNNNNNNN_description.up.sql / .down.sql convention;
// a version without both directions is rejected.
func NewFSMigrator(db *sql.DB, fsys fs.FS) (*Migrator, error) {
	provider, err := NewFSMigrationProvider(fsys)
	if err != nil {
		return nil, err
	}
	return NewMigrator(db, provider), nil
}

// NewMigrator creates a new migrator with the given database handle
func NewMigrator(db *sql.DB, provider MigrationProvider) *Migrator {
	return &Migrator{
		db:                db,
		migrationProvider: provider,
		logger:            slog.Default(),
	}
}

// WithLogger sets the logger for the migrator
func (m *Migrator) WithLogger(l *slog.Logger) *Migrator {
	tmp := *m
	tmp.logger = l
	return &tmp
}

// MigrationProvider returns the migration provider
func (m *Migrator) MigrationProvider() MigrationProvider {
	return m.migrationProvider
}

// Initialize creates the migrations table if it doesn't exist
func (m *Migrator) Initialize(ctx context.Context) error {
	if m.initialized {
		return nil
	}

	if _, err := m.db.ExecContext(ctx, migrationsSchemaSQL); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	m.initialized = true
	return nil
}

// GetCurrentVersion returns the current migration version from the database
func (m *Migrator) GetCurrentVersion(ctx context.Context) (int, error) {
	if err := m.Initialize(ctx); err != nil {
		return 0, fmt.Errorf("failed to initialize migrations table: %w", err)
	}

	var version int
	if err := m.db.QueryRowContext(ctx, getVersionSQL).Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get current version: %w", err)
	}

	return version, nil
}

// GetAppliedMigrations returns a list of applied migration versions
func (m *Migrator) GetAppliedMigrations(ctx context.Context) ([]int, error) {
	if err := m.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize migrations table: %w", err)
	}

	rows, err := m.db.QueryContext(ctx, appliedMigrationsSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	var applied []int
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied = append(applied, version)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating migration rows: %w", err)
	}

	return applied, nil
}

// GetPendingMigrations returns a list of pending migration versions
func (m *Migrator) GetPendingMigrations(ctx context.Context) ([]int, error) {
	currentVersion, err := m.GetCurrentVersion(ctx)
	if err != nil {
		return nil, err
	}
	return pendingVersions(m.migrationProvider.Migrations(), currentVersion), nil
}

// GetPreviousMigrationVersion finds the migration version that precedes the current one.
// Returns 0 when the current migration is the first one.
func (m *Migrator) GetPreviousMigrationVersion(ctx context.Context) (int, error) {
	currentVersion, err := m.GetCurrentVersion(ctx)
	if err != nil {
		return -1, fmt.Errorf("failed to get current version: %w", err)
	}

	if currentVersion == 0 {
		return -1, ErrNoPreviousMigration
	}

	return previousVersion(m.migrationProvider.Migrations(), currentVersion), nil
}

// GetMigrationStatus returns information about the current migration status
func (m *Migrator) GetMigrationStatus(ctx context.Context) (*MigrationStatus, error) {
	currentVersion, err := m.GetCurrentVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current version: %w", err)
	}

	migrations := m.migrationProvider.Migrations()
	pending := pendingVersions(migrations, currentVersion)

	return &MigrationStatus{
		CurrentVersion:    currentVersion,
		PendingMigrations: pending,
		TotalMigrations:   len(migrations),
		HasPendingChanges: len(pending) > 0,
	}, nil
}

// MigrateUp migrates the database up to the latest version
func (m *Migrator) MigrateUp(ctx context.Context) error {
	migrations := m.migrationProvider.Migrations()
	if len(migrations) == 0 {
		m.logger.Info("No migrations registered")
		return nil
	}
	return m.migrateUpTo(ctx, migrations[len(migrations)-1].Version)
}

// MigrateDown migrates the database down to the previous version
func (m *Migrator) MigrateDown(ctx context.Context) error {
	targetVersion, err := m.GetPreviousMigrationVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get previous version: %w", err)
	}

	return m.MigrateDownTo(ctx, targetVersion)
}

// MigrateDownTo migrates the database down to the specified target version
func (m *Migrator) MigrateDownTo(ctx context.Context, targetVersion int) error {
	currentVersion, err := m.GetCurrentVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	if targetVersion >= currentVersion {
		m.logger.Info("Already at or below target version", "targetVersion", targetVersion, "currentVersion", currentVersion)
		return nil
	}

	migrations := make([]*Migration, len(m.migrationProvider.Migrations()))
	copy(migrations, m.migrationProvider.Migrations())
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version > migrations[j].Version
	})

	m.logger.Info("Migrating down", "targetVersion", targetVersion, "currentVersion", currentVersion)

	for _, migration := range migrations {
		if migration.Version <= targetVersion || migration.Version > currentVersion {
			continue
		}

		m.logger.Info("Rolling back migration", "version", migration.Version, "description", migration.Description)

		err := dbschema.WithTx(ctx, m.db, func(tx *sql.Tx) error {
			if err := migration.Down(ctx, tx); err != nil {
				return fmt.Errorf("failed to revert migration %d: %w", migration.Version, err)
			}
			if _, err := tx.ExecContext(ctx, deleteMigrationSQL, migration.Version); err != nil {
				return fmt.Errorf("failed to record migration reversion %d: %w", migration.Version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}

		m.logger.Info("Rolled back migration", "version", migration.Version, "description", migration.Description)
	}

	m.logger.Info("Migrated down successfully", "targetVersion", targetVersion)
	return nil
}

// MigrateTo migrates the database to a specific version (up or down)
func (m *Migrator) MigrateTo(ctx context.Context, targetVersion int) error {
	currentVersion, err := m.GetCurrentVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	if targetVersion == currentVersion {
		m.logger.Info("Already at target version", "version", targetVersion)
		return nil
	}

	if targetVersion > currentVersion {
		return m.migrateUpTo(ctx, targetVersion)
	}

	return m.MigrateDownTo(ctx, targetVersion)
}

// migrateUpTo applies every migration newer than the current version and not
// newer than targetVersion, each in its own transaction.
func (m *Migrator) migrateUpTo(ctx context.Context, targetVersion int) error {
	currentVersion, err := m.GetCurrentVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	migrations := m.migrationProvider.Migrations()

	m.logger.Info("Migrating up", "currentVersion", currentVersion, "targetVersion", targetVersion, "totalMigrations", len(migrations))

	for _, migration := range migrations {
		if migration.Version <= currentVersion || migration.Version > targetVersion {
			continue
		}

		m.logger.Info("Applying migration", "version", migration.Version, "description", migration.Description)

		err := dbschema.WithTx(ctx, m.db, func(tx *sql.Tx) error {
			if err := migration.Up(ctx, tx); err != nil {
				return fmt.Errorf("failed to apply migration %d: %w", migration.Version, err)
			}
			if _, err := tx.ExecContext(ctx, recordMigrationSQL, migration.Version, migration.Description); err != nil {
				return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}

		m.logger.Info("Applied migration", "version", migration.Version, "description", migration.Description)
	}

	m.logger.Info("Migrated successfully", "targetVersion", targetVersion)
	return nil
}

func pendingVersions(migrations []*Migration, currentVersion int) []int {
	pending := make([]int, 0)
	for _, migration := range migrations {
		if migration.Version > currentVersion {
			pending = append(pending, migration.Version)
		}
	}
	sort.Ints(pending)
	return pending
}

func previousVersion(migrations []*Migration, currentVersion int) int {
	previous := 0
	for _, migration := range migrations {
		if migration.Version >= currentVersion {
			break
		}
		previous = migration.Version
	}
	return previous
}
