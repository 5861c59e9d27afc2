// Package config loads the application configuration.
//
// Values are resolved by viper: YLANG_* environment variables first, then an
// optional YAML file, then the defaults registered by SetDefaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. YLANG_DATABASE_URL.
const EnvPrefix = "YLANG"

// Config is the root configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Stripe   StripeConfig   `mapstructure:"stripe"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Mail     MailConfig     `mapstructure:"mail"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	PublicURL    string        `mapstructure:"public_url"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// CookieSecure marks the cart cookie Secure; disable only for local HTTP.
	CookieSecure bool `mapstructure:"cookie_secure"`
	// AllowedOrigins lists the CORS origins; PublicURL is used when empty.
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig configures the PostgreSQL pool.
type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int    `mapstructure:"max_conns"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

// AuthConfig configures verification of the auth provider's session tokens.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
	Audience  string `mapstructure:"audience"`
	// AdminRole is the app_metadata.role value granting admin access.
	AdminRole string `mapstructure:"admin_role"`
	// CookieName is the session cookie read when no bearer token is sent.
	CookieName string `mapstructure:"cookie_name"`
}

// StripeConfig configures the payment processor.
type StripeConfig struct {
	SecretKey        string   `mapstructure:"secret_key"`
	WebhookSecret    string   `mapstructure:"webhook_secret"`
	Currency         string   `mapstructure:"currency"`
	AllowedCountries []string `mapstructure:"allowed_countries"`
	SuccessPath      string   `mapstructure:"success_path"`
	CancelPath       string   `mapstructure:"cancel_path"`
}

// StorageConfig configures the S3-compatible bucket holding product images.
type StorageConfig struct {
	Endpoint       string `mapstructure:"endpoint"`
	Region         string `mapstructure:"region"`
	Bucket         string `mapstructure:"bucket"`
	AccessKey      string `mapstructure:"access_key"`
	SecretKey      string `mapstructure:"secret_key"`
	PublicBaseURL  string `mapstructure:"public_base_url"`
	ForcePathStyle bool   `mapstructure:"force_path_style"`
	MaxUploadBytes int64  `mapstructure:"max_upload_bytes"`
}

// MailConfig configures transactional email.
type MailConfig struct {
	ResendAPIKey string `mapstructure:"resend_api_key"`
	From         string `mapstructure:"from"`
	AdminAddress string `mapstructure:"admin_address"`
}

// Fabric is a configurator fabric choice. Price is in cents.
type Fabric struct {
	ID    string `mapstructure:"id" json:"id"`
	Name  string `mapstructure:"name" json:"name"`
	Color string `mapstructure:"color" json:"color"`
	Price int64  `mapstructure:"price" json:"price"`
	Image string `mapstructure:"image" json:"image,omitempty"`
}

// Accessory is a configurator add-on.
type Accessory struct {
	ID   string `mapstructure:"id" json:"id"`
	Name string `mapstructure:"name" json:"name"`
}

// CatalogConfig holds configurator pricing. Amounts are in cents.
type CatalogConfig struct {
	EmbroiderySurcharge int64       `mapstructure:"embroidery_surcharge"`
	AccessorySurcharge  int64       `mapstructure:"accessory_surcharge"`
	Fabrics             []Fabric    `mapstructure:"fabrics"`
	Accessories         []Accessory `mapstructure:"accessories"`
}

// LogConfig configures slog output.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.public_url", "http://localhost:3000")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.cookie_secure", true)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.max_conns", 5)
	v.SetDefault("database.ssl_mode", "require")

	v.SetDefault("auth.admin_role", "admin")
	v.SetDefault("auth.audience", "authenticated")
	v.SetDefault("auth.cookie_name", "sb-access-token")

	v.SetDefault("stripe.currency", "eur")
	v.SetDefault("stripe.allowed_countries", []string{"FR", "BE", "CH", "LU", "MC"})
	v.SetDefault("stripe.success_path", "/checkout/success?session_id={CHECKOUT_SESSION_ID}")
	v.SetDefault("stripe.cancel_path", "/panier")

	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.bucket", "products")
	v.SetDefault("storage.force_path_style", true)
	v.SetDefault("storage.max_upload_bytes", 5<<20)

	v.SetDefault("mail.from", "Ylang Créations <commandes@ylang-creations.fr>")

	v.SetDefault("catalog.embroidery_surcharge", 1500)
	v.SetDefault("catalog.accessory_surcharge", 1000)
	v.SetDefault("catalog.fabrics", []map[string]any{
		{"id": "coton-bio", "name": "Coton bio", "color": "#f5efe6", "price": 0},
		{"id": "lin-lave", "name": "Lin lavé", "color": "#d8cbb8", "price": 800},
		{"id": "double-gaze", "name": "Double gaze", "color": "#e9d6d0", "price": 500},
		{"id": "velours", "name": "Velours côtelé", "color": "#8c6f5a", "price": 1200},
	})
	v.SetDefault("catalog.accessories", []map[string]any{
		{"id": "attache-tetine", "name": "Attache-tétine"},
		{"id": "doudou", "name": "Doudou assorti"},
		{"id": "pochette", "name": "Pochette de rangement"},
	})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// New returns a viper instance with defaults, environment binding and, when
// path is not empty, the YAML file at path.
func New(path string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	return v, nil
}

// Load decodes v into a Config.
func Load(v *viper.Viper) (*Config, error) {
	// AutomaticEnv only applies to keys viper already knows; bind the
	// secrets explicitly so they can come from the environment alone.
	for _, key := range []string{
		"database.url", "auth.jwt_secret", "auth.issuer",
		"stripe.secret_key", "stripe.webhook_secret",
		"storage.endpoint", "storage.access_key", "storage.secret_key", "storage.public_base_url",
		"mail.resend_api_key", "mail.admin_address",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	cfg.Stripe.Currency = strings.ToLower(cfg.Stripe.Currency)
	return &cfg, nil
}

// Validate reports missing settings required to run the HTTP server.
func (c *Config) Validate() error {
	var errs []error
	if c.Database.URL == "" {
		errs = append(errs, errors.New("database.url is required"))
	}
	if c.Database.MaxConns <= 0 {
		errs = append(errs, errors.New("database.max_conns must be positive"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required"))
	}
	if c.Stripe.SecretKey == "" {
		errs = append(errs, errors.New("stripe.secret_key is required"))
	}
	if len(c.Stripe.AllowedCountries) == 0 {
		errs = append(errs, errors.New("stripe.allowed_countries must not be empty"))
	}
	if c.Catalog.EmbroiderySurcharge < 0 || c.Catalog.AccessorySurcharge < 0 {
		errs = append(errs, errors.New("catalog surcharges must not be negative"))
	}
	return errors.Join(errs...)
}

// FabricByID looks up a configured fabric.
func (c CatalogConfig) FabricByID(id string) (Fabric, bool) {
	for _, f := range c.Fabrics {
		if f.ID == id {
			return f, true
		}
	}
	return Fabric{}, false
}

// AccessoryByID looks up a configured accessory.
func (c CatalogConfig) AccessoryByID(id string) (Accessory, bool) {
	for _, a := range c.Accessories {
		if a.ID == id {
			return a, true
		}
	}
	return Accessory{}, false
}
