// Package migrations embeds the store's schema migrations.
package migrations

import (
	"embed"
	"io/fs"

	"github.com/go-extras/go-kit/must"
)

//go:embed sql/*.sql
var files embed.FS

// FS returns the migration files rooted at their directory, ready for
// migrator.NewFSMigrator.
func FS() fs.FS {
	return must.Must(fs.Sub(files, "sql"))
}
