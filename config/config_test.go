package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/Ib-dI/ylang-creations/config"
)

func TestLoad_Defaults(t *testing.T) {
	c := qt.New(t)

	v, err := config.New("")
	c.Assert(err, qt.IsNil)

	cfg, err := config.Load(v)
	c.Assert(err, qt.IsNil)

	c.Assert(cfg.Server.Addr, qt.Equals, ":8080")
	c.Assert(cfg.Server.ReadTimeout, qt.Equals, 15*time.Second)
	c.Assert(cfg.Database.MaxConns, qt.Equals, 5)
	c.Assert(cfg.Stripe.Currency, qt.Equals, "eur")
	c.Assert(cfg.Stripe.AllowedCountries, qt.DeepEquals, []string{"FR", "BE", "CH", "LU", "MC"})
	c.Assert(cfg.Auth.AdminRole, qt.Equals, "admin")
	c.Assert(cfg.Catalog.EmbroiderySurcharge, qt.Equals, int64(1500))
	c.Assert(cfg.Catalog.Fabrics, qt.HasLen, 4)

	fabric, ok := cfg.Catalog.FabricByID("lin-lave")
	c.Assert(ok, qt.IsTrue)
	c.Assert(fabric.Price, qt.Equals, int64(800))

	_, ok = cfg.Catalog.FabricByID("soie")
	c.Assert(ok, qt.IsFalse)

	_, ok = cfg.Catalog.AccessoryByID("doudou")
	c.Assert(ok, qt.IsTrue)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	c := qt.New(t)

	t.Setenv("YLANG_DATABASE_URL", "postgres://shop@localhost/ylang")
	t.Setenv("YLANG_DATABASE_MAX_CONNS", "3")
	t.Setenv("YLANG_AUTH_JWT_SECRET", "s3cret")
	t.Setenv("YLANG_STRIPE_CURRENCY", "EUR")

	v, err := config.New("")
	c.Assert(err, qt.IsNil)
	cfg, err := config.Load(v)
	c.Assert(err, qt.IsNil)

	c.Assert(cfg.Database.URL, qt.Equals, "postgres://shop@localhost/ylang")
	c.Assert(cfg.Database.MaxConns, qt.Equals, 3)
	c.Assert(cfg.Auth.JWTSecret, qt.Equals, "s3cret")
	c.Assert(cfg.Stripe.Currency, qt.Equals, "eur")
}

func TestLoad_File(t *testing.T) {
	c := qt.New(t)

	path := filepath.Join(t.TempDir(), "ylang.yaml")
	err := os.WriteFile(path, []byte(`
server:
  addr: ":9090"
catalog:
  embroidery_surcharge: 2000
  fabrics:
    - id: soie
      name: Soie
      price: 2500
`), 0o600)
	c.Assert(err, qt.IsNil)

	v, err := config.New(path)
	c.Assert(err, qt.IsNil)
	cfg, err := config.Load(v)
	c.Assert(err, qt.IsNil)

	c.Assert(cfg.Server.Addr, qt.Equals, ":9090")
	c.Assert(cfg.Catalog.EmbroiderySurcharge, qt.Equals, int64(2000))
	c.Assert(cfg.Catalog.Fabrics, qt.DeepEquals, []config.Fabric{{ID: "soie", Name: "Soie", Price: 2500}})
	c.Assert(cfg.Catalog.AccessorySurcharge, qt.Equals, int64(1000))
}

func TestNew_MissingFile(t *testing.T) {
	c := qt.New(t)

	_, err := config.New(filepath.Join(t.TempDir(), "missing.yaml"))
	c.Assert(err, qt.ErrorMatches, "failed to read config file .*")
}

func TestValidate(t *testing.T) {
	c := qt.New(t)

	v, err := config.New("")
	c.Assert(err, qt.IsNil)
	cfg, err := config.Load(v)
	c.Assert(err, qt.IsNil)

	err = cfg.Validate()
	c.Assert(err, qt.ErrorMatches, `(?s).*database.url is required.*auth.jwt_secret is required.*stripe.secret_key is required.*`)

	cfg.Database.URL = "postgres://localhost/ylang"
	cfg.Auth.JWTSecret = "secret"
	cfg.Stripe.SecretKey = "sk_test_123"
	c.Assert(cfg.Validate(), qt.IsNil)
}
