package migrator

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"testing/fstest"

	qt "github.com/frankban/quicktest"

	"github.com/Ib-dI/ylang-creations/dbschema"
)

func TestNoopMigrationFunc(t *testing.T) {
	c := qt.New(t)

	err := NoopMigrationFunc(context.Background(), nil)
	c.Assert(err, qt.IsNil)
}

// recordingQuerier captures executed statements.
type recordingQuerier struct {
	dbschema.Querier
	statements []string
	failOn     string
}

func (q *recordingQuerier) ExecContext(_ context.Context, query string, _ ...any) (sql.Result, error) {
	if query == q.failOn {
		return nil, errors.New("syntax error")
	}
	q.statements = append(q.statements, query)
	return nil, nil
}

func TestMigrationFuncFromSQLFilename(t *testing.T) {
	c := qt.New(t)

	fsys := fstest.MapFS{
		"0000000005_reviews.up.sql": {Data: []byte("CREATE TABLE reviews (id UUID PRIMARY KEY);\n-- rating index\nCREATE INDEX reviews_rating ON reviews (rating);")},
	}
	q := &recordingQuerier{}
	err := MigrationFuncFromSQLFilename("0000000005_reviews.up.sql", fsys)(context.Background(), q)
	c.Assert(err, qt.IsNil)
	c.Assert(q.statements, qt.DeepEquals, []string{
		"CREATE TABLE reviews (id UUID PRIMARY KEY)",
		"CREATE INDEX reviews_rating ON reviews (rating)",
	})

	q = &recordingQuerier{failOn: "CREATE INDEX reviews_rating ON reviews (rating)"}
	err = MigrationFuncFromSQLFilename("0000000005_reviews.up.sql", fsys)(context.Background(), q)
	c.Assert(err, qt.ErrorMatches, `(?s)failed to execute SQL statement: syntax error\nSQL: CREATE INDEX.*`)
	c.Assert(q.statements, qt.HasLen, 1)
}

func TestSplitSQLStatements(t *testing.T) {
	tests := []struct {
		name     string
		sql      string
		expected []string
	}{
		{
			name:     "single statement",
			sql:      "CREATE TABLE products (id UUID PRIMARY KEY);",
			expected: []string{"CREATE TABLE products (id UUID PRIMARY KEY)"},
		},
		{
			name: "multiple statements",
			sql:  "CREATE TABLE products (id UUID PRIMARY KEY); CREATE INDEX idx_products_id ON products(id);",
			expected: []string{
				"CREATE TABLE products (id UUID PRIMARY KEY)",
				"CREATE INDEX idx_products_id ON products(id)",
			},
		},
		{
			name: "statements with comments",
			sql:  "-- products\nCREATE TABLE products (id UUID PRIMARY KEY);\n/* index; */\nCREATE INDEX idx ON products(id);",
			expected: []string{
				"CREATE TABLE products (id UUID PRIMARY KEY)",
				"CREATE INDEX idx ON products(id)",
			},
		},
		{
			name:     "semicolon in string literal",
			sql:      "INSERT INTO settings (id, store) VALUES ('global', '{\"name\": \"a;b\"}');",
			expected: []string{"INSERT INTO settings (id, store) VALUES ('global', '{\"name\": \"a;b\"}')"},
		},
		{
			name:     "escaped quote in literal",
			sql:      "SELECT 'it''s; fine'; SELECT 1;",
			expected: []string{"SELECT 'it''s; fine'", "SELECT 1"},
		},
		{
			name: "dollar quoted function body",
			sql:  "CREATE FUNCTION touch() RETURNS trigger AS $$ BEGIN NEW.updated_at = now(); RETURN NEW; END; $$ LANGUAGE plpgsql; SELECT 1;",
			expected: []string{
				"CREATE FUNCTION touch() RETURNS trigger AS $$ BEGIN NEW.updated_at = now(); RETURN NEW; END; $$ LANGUAGE plpgsql",
				"SELECT 1",
			},
		},
		{
			name:     "positional parameters are not dollar quotes",
			sql:      "DELETE FROM schema_migrations WHERE version = $1;",
			expected: []string{"DELETE FROM schema_migrations WHERE version = $1"},
		},
		{
			name:     "empty SQL",
			sql:      "",
			expected: []string{},
		},
		{
			name:     "only comments",
			sql:      "-- This is a comment\n/* Another comment */",
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)
			c.Assert(SplitSQLStatements(tt.sql), qt.DeepEquals, tt.expected)
		})
	}
}

func TestMigrationFuncFromSQLFilename_FileNotFound(t *testing.T) {
	c := qt.New(t)

	migrationFunc := MigrationFuncFromSQLFilename("nonexistent.sql", fstest.MapFS{})
	c.Assert(migrationFunc, qt.IsNotNil)

	err := migrationFunc(context.Background(), nil)
	c.Assert(err, qt.ErrorMatches, "failed to read migration file: .*")
}

func TestPendingAndPreviousVersions(t *testing.T) {
	c := qt.New(t)

	migrations := []*Migration{
		{Version: 1}, {Version: 3}, {Version: 7},
	}

	c.Assert(pendingVersions(migrations, 0), qt.DeepEquals, []int{1, 3, 7})
	c.Assert(pendingVersions(migrations, 3), qt.DeepEquals, []int{7})
	c.Assert(pendingVersions(migrations, 7), qt.DeepEquals, []int{})

	c.Assert(previousVersion(migrations, 7), qt.Equals, 3)
	c.Assert(previousVersion(migrations, 1), qt.Equals, 0)
}
