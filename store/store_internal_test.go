package store

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestWhereBuilder(t *testing.T) {
	c := qt.New(t)

	var w whereBuilder
	c.Assert(w.String(), qt.Equals, "")

	w.add("category = ?", "doudous")
	w.add("(name ILIKE ? OR description ILIKE ?)", "%lin%", "%lin%")
	w.add("stock > 0")
	limit := w.arg(24)

	c.Assert(w.String(), qt.Equals, " WHERE category = $1 AND (name ILIKE $2 OR description ILIKE $3) AND stock > 0")
	c.Assert(limit, qt.Equals, "$4")
	c.Assert(w.args, qt.DeepEquals, []any{"doudous", "%lin%", "%lin%", 24})
}

func TestPageNormalize(t *testing.T) {
	tests := []struct {
		in, want Page
	}{
		{Page{}, Page{Limit: DefaultPageSize}},
		{Page{Limit: 10, Offset: 20}, Page{Limit: 10, Offset: 20}},
		{Page{Limit: 1000, Offset: -5}, Page{Limit: MaxPageSize}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%+v", tt.in), func(t *testing.T) {
			qt.Assert(t, tt.in.normalize(), qt.Equals, tt.want)
		})
	}
}

func TestEscapeLike(t *testing.T) {
	qt.Assert(t, escapeLike(`100%_coton\`), qt.Equals, `100\%\_coton\\`)
}

func TestErrorMapping(t *testing.T) {
	c := qt.New(t)

	err := notFound(sql.ErrNoRows, "product x")
	c.Assert(err, qt.ErrorIs, ErrNotFound)
	c.Assert(err, qt.ErrorMatches, "product x: not found")

	err = notFound(errors.New("boom"), "product x")
	c.Assert(errors.Is(err, ErrNotFound), qt.IsFalse)

	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "products_slug_key"}
	err = conflict(fmt.Errorf("exec: %w", pgErr), "failed to create product")
	c.Assert(err, qt.ErrorIs, ErrConflict)
	c.Assert(err, qt.ErrorMatches, `failed to create product: conflict \(products_slug_key\)`)

	err = conflict(&pgconn.PgError{Code: "23503"}, "failed to create product")
	c.Assert(errors.Is(err, ErrConflict), qt.IsFalse)
}

func TestJSONScan(t *testing.T) {
	c := qt.New(t)

	var m map[string]any
	c.Assert(jsonScan(nil, &m), qt.IsNil)
	c.Assert(m, qt.IsNil)

	c.Assert(jsonScan([]byte(`{"taille":"0-6 mois"}`), &m), qt.IsNil)
	c.Assert(m, qt.DeepEquals, map[string]any{"taille": "0-6 mois"})

	c.Assert(jsonScan([]byte(`{`), &m), qt.ErrorMatches, "failed to decode json column: .*")
}
