package migrator

import (
	"fmt"
	"io/fs"
	"maps"
	"slices"
)

// MigrationProvider lists the migrations known to a Migrator, sorted by
// version in ascending order.
type MigrationProvider interface {
	Migrations() []*Migration
}

// FSMigrationProvider loads SQL migrations from a filesystem, usually the
// one embedded by the migrations package. Subdirectories are scanned and
// files that do not match the naming convention are ignored.
type FSMigrationProvider struct {
	fsys       fs.FS
	migrations []*Migration
}

// NewFSMigrationProvider scans fsys for migration files and validates that every
// version has both an up and a down file.
func NewFSMigrationProvider(fsys fs.FS) (*FSMigrationProvider, error) {
	p := &FSMigrationProvider{fsys: fsys}
	if err := p.load(); err != nil {
		return nil, err
	}
	return p, nil
}

// Migrations implements MigrationProvider.
func (p *FSMigrationProvider) Migrations() []*Migration {
	return p.migrations
}

func (p *FSMigrationProvider) load() error {
	migrationsMap := make(map[int]*Migration)
	directions := make(map[int]int) // version -> bitmask of directions seen

	err := fs.WalkDir(p.fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		migrationFile, err := ParseMigrationFileName(d.Name())
		if err != nil {
			// README files and the like live next to the migrations.
			return nil
		}

		migration, exists := migrationsMap[migrationFile.Version]
		if !exists {
			migration = &Migration{
				Version:     migrationFile.Version,
				Description: migrationFile.Name,
				Up:          NoopMigrationFunc,
				Down:        NoopMigrationFunc,
			}
			migrationsMap[migrationFile.Version] = migration
		}

		switch migrationFile.Direction {
		case DirectionUp:
			migration.Up = MigrationFuncFromSQLFilename(path, p.fsys)
			directions[migrationFile.Version] |= 1
		case DirectionDown:
			migration.Down = MigrationFuncFromSQLFilename(path, p.fsys)
			directions[migrationFile.Version] |= 2
		default:
			return fmt.Errorf("invalid migration direction: %s", migrationFile.Direction)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to scan migrations directory: %w", err)
	}

	var incomplete []int
	for version, seen := range directions {
		if seen != 3 {
			incomplete = append(incomplete, version)
		}
	}
	if len(incomplete) > 0 {
		slices.Sort(incomplete)
		return fmt.Errorf("incomplete migrations found (missing up or down files): %v", incomplete)
	}

	p.migrations = slices.SortedFunc(maps.Values(migrationsMap), func(a, b *Migration) int {
		return a.Version - b.Version
	})
	return nil
}
