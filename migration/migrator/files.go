package migrator

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Migration directions encoded in file names.
const (
	DirectionUp   = "up"
	DirectionDown = "down"
)

var migrationFileRe = regexp.MustCompile(`^(\d+)_([a-zA-Z0-9_]+)\.(up|down)\.sql$`)

// MigrationFile describes a parsed migration file name.
type MigrationFile struct {
	Version   int
	Name      string
	Direction string
}

// ParseMigrationFileName parses names such as 0000000001_create_products.up.sql.
// The name part is converted to title case with underscores as spaces.
func ParseMigrationFileName(filename string) (*MigrationFile, error) {
	matches := migrationFileRe.FindStringSubmatch(filename)
	if matches == nil {
		return nil, fmt.Errorf("invalid migration filename format: %s", filename)
	}

	version, err := strconv.Atoi(matches[1])
	if err != nil {
		return nil, fmt.Errorf("invalid migration version in %s: %w", filename, err)
	}

	name := cases.Title(language.English).String(strings.ReplaceAll(matches[2], "_", " "))

	return &MigrationFile{
		Version:   version,
		Name:      name,
		Direction: matches[3],
	}, nil
}

var nonIdentRe = regexp.MustCompile(`[^a-z0-9]+`)

// GenerateMigrationFileName builds the file name for one direction of a migration.
func GenerateMigrationFileName(version int, description, direction string) string {
	name := nonIdentRe.ReplaceAllString(strings.ToLower(description), "_")
	name = strings.Trim(name, "_")
	if name == "" {
		name = "migration"
	}
	return fmt.Sprintf("%010d_%s.%s.sql", version, name, direction)
}

// GetNextMigrationVersion returns a timestamp-based version (YYYYMMDDHHMMSS, UTC).
func GetNextMigrationVersion() int {
	v, _ := strconv.Atoi(time.Now().UTC().Format("20060102150405"))
	return v
}
