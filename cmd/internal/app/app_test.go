package app_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/Ib-dI/ylang-creations/cmd/internal/app"
	"github.com/Ib-dI/ylang-creations/config"
)

func TestNewLogger(t *testing.T) {
	c := qt.New(t)

	var buf bytes.Buffer
	logger := app.NewLogger(config.LogConfig{Level: "warn", Format: "json"}, &buf)
	logger.Info("dropped")
	logger.Warn("kept", "order", "3f2a9c1e")

	var entry map[string]any
	c.Assert(json.Unmarshal(buf.Bytes(), &entry), qt.IsNil)
	c.Assert(entry["msg"], qt.Equals, "kept")
	c.Assert(entry["order"], qt.Equals, "3f2a9c1e")

	buf.Reset()
	logger = app.NewLogger(config.LogConfig{Level: "bogus", Format: "TEXT"}, &buf)
	logger.Debug("dropped")
	logger.Info("hello")
	c.Assert(buf.String(), qt.Matches, `time=.* level=INFO msg=hello\n`)
}

func TestLoadConfig(t *testing.T) {
	c := qt.New(t)

	path := filepath.Join(t.TempDir(), "ylang.yaml")
	c.Assert(os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o600), qt.IsNil)

	cfg, err := app.LoadConfig(path)
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.Log.Level, qt.Equals, "debug")

	_, err = app.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	c.Assert(err, qt.ErrorMatches, "failed to read config file .*")
}

func TestOpenDB_RequiresURL(t *testing.T) {
	c := qt.New(t)

	_, err := app.OpenDB(config.DatabaseConfig{MaxConns: 5})
	c.Assert(err, qt.ErrorMatches, "database.url is required")
}
