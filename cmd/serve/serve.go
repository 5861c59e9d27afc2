// Package serve implements the command running the HTTP API.
package serve

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"github.com/Ib-dI/ylang-creations/api"
	"github.com/Ib-dI/ylang-creations/auth"
	"github.com/Ib-dI/ylang-creations/cart"
	"github.com/Ib-dI/ylang-creations/cmd/internal/app"
	"github.com/Ib-dI/ylang-creations/config"
	"github.com/Ib-dI/ylang-creations/configurator"
	"github.com/Ib-dI/ylang-creations/mailer"
	"github.com/Ib-dI/ylang-creations/payment"
	"github.com/Ib-dI/ylang-creations/storage"
	"github.com/Ib-dI/ylang-creations/store"
)

const migrateFlag = "migrate"

var serveFlags = map[string]cobraflags.Flag{
	app.ConfigFlag: app.NewConfigFlag(),
	migrateFlag: &cobraflags.BoolFlag{
		Name:  migrateFlag,
		Value: false,
		Usage: "Apply pending migrations before serving",
	},
}

// NewServeCommand returns the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the storefront and back-office API",
		Long: `Run the HTTP API serving the storefront (catalogue, cart, configurator,
checkout) and the admin back office.

The server stops gracefully on SIGINT or SIGTERM.`,
		RunE: serveCommand,
	}
	cobraflags.RegisterMap(cmd, serveFlags)
	return cmd
}

func serveCommand(cmd *cobra.Command, _ []string) error {
	cfg, err := app.LoadConfig(serveFlags[app.ConfigFlag].GetString())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	logger := app.NewLogger(cfg.Log, os.Stderr)
	slog.SetDefault(logger)
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := app.OpenDB(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if serveFlags[migrateFlag].GetBool() {
		m, err := app.NewMigrator(db, logger)
		if err != nil {
			return err
		}
		if err := m.MigrateUp(ctx); err != nil {
			return fmt.Errorf("failed to migrate: %w", err)
		}
	}

	server, err := newServer(ctx, cfg, store.New(db), logger)
	if err != nil {
		return err
	}
	return server.Run(ctx)
}

func newServer(ctx context.Context, cfg *config.Config, st *store.Store, logger *slog.Logger) (*api.Server, error) {
	var media storage.Media = storage.Disabled{}
	if cfg.Storage.Endpoint != "" || cfg.Storage.AccessKey != "" {
		bucket, err := storage.New(ctx, cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("failed to set up storage: %w", err)
		}
		media = bucket.WithLogger(logger.With("component", "storage"))
	} else {
		logger.Warn("Object storage not configured, uploads are disabled")
	}

	mail := mailer.New(cfg.Mail, st.Settings).WithLogger(logger.With("component", "mailer"))
	gateway := payment.NewStripe(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret)

	checkout := payment.NewCheckoutService(gateway, st.Products, st.Customers, st.Users, st.Orders,
		cfg.Stripe, cfg.Catalog, cfg.Server.PublicURL).WithLogger(logger.With("component", "checkout"))
	webhooks := payment.NewWebhookHandler(gateway, st.Orders, mail).
		WithLogger(logger.With("component", "webhook"))

	verifier := auth.NewVerifier(cfg.Auth)

	return api.NewServer(cfg.Server, api.Deps{
		Products:     st.Products,
		Orders:       st.Orders,
		Customers:    st.Customers,
		Users:        st.Users,
		Settings:     st.Settings,
		Reviews:      st.Reviews,
		Cart:         cart.NewService(st.States),
		Configurator: configurator.NewService(st.States, st.Products, cfg.Catalog),
		Checkout:     checkout,
		Webhooks:     webhooks,
		Media:        media,
		Shipping:     mail,
		Auth:         auth.NewMiddleware(verifier, cfg.Auth.CookieName).WithRoles(st.Users),
	}, logger), nil
}
