// Package dbschema opens and configures the PostgreSQL connection pool used by
// the store and the migrator.
package dbschema

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
)

const (
	// DefaultMaxConns keeps the pool small enough for a serverless database tier.
	DefaultMaxConns = 5

	poolMaxConnsParam = "pool_max_conns"
	poolMinConnsParam = "pool_min_conns"
)

// Options controls how Connect configures the pool.
type Options struct {
	MaxConns        int
	MinConns        int
	SSLMode         string
	ConnMaxLifetime time.Duration
	PingTimeout     time.Duration
}

// Option mutates Options.
type Option func(*Options)

// WithMaxConns caps the number of open connections.
func WithMaxConns(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.MaxConns = n
		}
	}
}

// WithSSLMode sets sslmode when the URL does not carry one.
func WithSSLMode(mode string) Option {
	return func(o *Options) {
		o.SSLMode = mode
	}
}

// WithConnMaxLifetime bounds how long a pooled connection is reused.
func WithConnMaxLifetime(d time.Duration) Option {
	return func(o *Options) {
		o.ConnMaxLifetime = d
	}
}

// Connect opens a pgx-backed *sql.DB for the given PostgreSQL URL and verifies
// it with a ping. Pool sizing given as pool_max_conns / pool_min_conns query
// parameters is honoured and removed from the DSN before it reaches the driver.
func Connect(dbURL string, opts ...Option) (*sql.DB, error) {
	o := Options{
		MaxConns:        DefaultMaxConns,
		ConnMaxLifetime: 30 * time.Minute,
		PingTimeout:     10 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}

	maxConns, minConns := poolParams(dbURL)
	if maxConns > 0 {
		o.MaxConns = maxConns
	}
	if minConns > 0 {
		o.MinConns = minConns
	}

	dsn := removePostgresPoolParams(dbURL)
	if o.SSLMode != "" {
		dsn = withDefaultSSLMode(dsn, o.SSLMode)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(o.MaxConns)
	idle := o.MinConns
	if idle <= 0 || idle > o.MaxConns {
		idle = o.MaxConns
	}
	db.SetMaxIdleConns(idle)
	db.SetConnMaxLifetime(o.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), o.PingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// poolParams extracts pool sizing from the URL query. Invalid values are ignored.
func poolParams(dbURL string) (maxConns, minConns int) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return 0, 0
	}
	q := u.Query()
	maxConns, _ = strconv.Atoi(q.Get(poolMaxConnsParam))
	minConns, _ = strconv.Atoi(q.Get(poolMinConnsParam))
	return maxConns, minConns
}

// removePostgresPoolParams strips pgxpool-only parameters that the stdlib
// driver would otherwise forward to the server as runtime parameters.
func removePostgresPoolParams(dbURL string) string {
	u, err := url.Parse(dbURL)
	if err != nil || u.RawQuery == "" {
		return dbURL
	}

	q := u.Query()
	q.Del(poolMaxConnsParam)
	q.Del(poolMinConnsParam)
	u.RawQuery = q.Encode()
	return u.String()
}

// withDefaultSSLMode adds sslmode to URL-style DSNs that do not specify it.
func withDefaultSSLMode(dsn, mode string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" {
		return dsn
	}
	q := u.Query()
	if q.Get("sslmode") != "" {
		return dsn
	}
	q.Set("sslmode", mode)
	u.RawQuery = q.Encode()
	return u.String()
}
