// Package app holds the wiring shared by the ylang commands.
package app

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/go-extras/cobraflags"

	"github.com/Ib-dI/ylang-creations/config"
	"github.com/Ib-dI/ylang-creations/dbschema"
	"github.com/Ib-dI/ylang-creations/migration/migrator"
	"github.com/Ib-dI/ylang-creations/migrations"
)

// ConfigFlag is the name of the configuration file flag.
const ConfigFlag = "config"

// NewConfigFlag returns the flag selecting the YAML configuration file.
func NewConfigFlag() cobraflags.Flag {
	return &cobraflags.StringFlag{
		Name:  ConfigFlag,
		Value: "",
		Usage: "Path to a YAML configuration file (environment variables YLANG_* override it)",
	}
}

// LoadConfig reads the configuration from path, the environment and the
// defaults.
func LoadConfig(path string) (*config.Config, error) {
	v, err := config.New(path)
	if err != nil {
		return nil, err
	}
	return config.Load(v)
}

// NewLogger builds the slog logger described by cfg.
func NewLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// OpenDB connects to the database described by cfg.
func OpenDB(cfg config.DatabaseConfig) (*sql.DB, error) {
	if cfg.URL == "" {
		return nil, errors.New("database.url is required")
	}
	db, err := dbschema.Connect(cfg.URL,
		dbschema.WithMaxConns(cfg.MaxConns),
		dbschema.WithSSLMode(cfg.SSLMode),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// NewMigrator returns a migrator over the embedded store migrations.
func NewMigrator(db *sql.DB, logger *slog.Logger) (*migrator.Migrator, error) {
	m, err := migrator.NewFSMigrator(db, migrations.FS())
	if err != nil {
		return nil, fmt.Errorf("failed to load migrations: %w", err)
	}
	return m.WithLogger(logger), nil
}
