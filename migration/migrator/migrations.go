package migrator

import (
	"context"
	_ "embed"
	"fmt"
	"io/fs"
	"strings"

	"github.com/Ib-dI/ylang-creations/dbschema"
)

//go:embed base/schema.sql
var migrationsSchemaSQL string

//go:embed base/get_version.sql
var getVersionSQL string

//go:embed base/record_migration.sql
var recordMigrationSQL string

//go:embed base/delete_migration.sql
var deleteMigrationSQL string

//go:embed base/applied_migrations.sql
var appliedMigrationsSQL string

// MigrationFunc applies one direction of a migration. The querier is the
// transaction the migrator opened for it.
type MigrationFunc func(context.Context, dbschema.Querier) error

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	Up          MigrationFunc
	Down        MigrationFunc
}

// MigrationFuncFromSQLFilename returns a migration function that reads SQL from a file
// in the provided filesystem and executes it statement by statement
func MigrationFuncFromSQLFilename(filename string, fsys fs.FS) MigrationFunc {
	return func(ctx context.Context, q dbschema.Querier) error {
		sql, err := fs.ReadFile(fsys, filename)
		if err != nil {
			return fmt.Errorf("failed to read migration file: %w", err)
		}
		return executeSQLStatements(ctx, q, string(sql))
	}
}

// NoopMigrationFunc is a no-op migration function
func NoopMigrationFunc(_ context.Context, _ dbschema.Querier) error {
	return nil
}

func executeSQLStatements(ctx context.Context, q dbschema.Querier, sql string) error {
	for _, stmt := range SplitSQLStatements(sql) {
		if _, err := q.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute SQL statement: %w\nSQL: %s", err, stmt)
		}
	}
	return nil
}

// SplitSQLStatements splits a SQL script into individual statements. Semicolons
// inside string literals, quoted identifiers, dollar-quoted bodies and comments
// do not terminate a statement. Comments are dropped and statements trimmed.
func SplitSQLStatements(sql string) []string {
	statements := make([]string, 0)
	var current strings.Builder

	flush := func() {
		stmt := strings.TrimSpace(current.String())
		if stmt != "" {
			statements = append(statements, stmt)
		}
		current.Reset()
	}

	for i := 0; i < len(sql); i++ {
		ch := sql[i]

		switch {
		case ch == '-' && i+1 < len(sql) && sql[i+1] == '-':
			for i < len(sql) && sql[i] != '\n' {
				i++
			}
			current.WriteByte('\n')

		case ch == '/' && i+1 < len(sql) && sql[i+1] == '*':
			end := strings.Index(sql[i+2:], "*/")
			if end < 0 {
				i = len(sql)
			} else {
				i += end + 3
			}
			current.WriteByte(' ')

		case ch == '\'' || ch == '"':
			j := i + 1
			for j < len(sql) {
				if sql[j] == ch {
					if j+1 < len(sql) && sql[j+1] == ch {
						j += 2
						continue
					}
					break
				}
				j++
			}
			if j >= len(sql) {
				j = len(sql) - 1
			}
			current.WriteString(sql[i : j+1])
			i = j

		case ch == '$':
			tag, ok := dollarTag(sql[i:])
			if !ok {
				current.WriteByte(ch)
				continue
			}
			end := strings.Index(sql[i+len(tag):], tag)
			if end < 0 {
				current.WriteString(sql[i:])
				i = len(sql)
				continue
			}
			stop := i + len(tag) + end + len(tag)
			current.WriteString(sql[i:stop])
			i = stop - 1

		case ch == ';':
			flush()

		default:
			current.WriteByte(ch)
		}
	}
	flush()

	return statements
}

// dollarTag returns the opening $tag$ at the start of s, if any.
func dollarTag(s string) (string, bool) {
	for j := 1; j < len(s); j++ {
		c := s[j]
		if c == '$' {
			return s[:j+1], true
		}
		if !(c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || j > 1 && c >= '0' && c <= '9') {
			return "", false
		}
	}
	return "", false
}
