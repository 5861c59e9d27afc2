// Package api is the JSON HTTP surface of the store, served with gin.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/cors"

	"github.com/Ib-dI/ylang-creations/auth"
	"github.com/Ib-dI/ylang-creations/cart"
	"github.com/Ib-dI/ylang-creations/config"
	"github.com/Ib-dI/ylang-creations/configurator"
	"github.com/Ib-dI/ylang-creations/domain"
	"github.com/Ib-dI/ylang-creations/payment"
	"github.com/Ib-dI/ylang-creations/storage"
	"github.com/Ib-dI/ylang-creations/store"
)

// ProductStore is the product repository used by the handlers.
type ProductStore interface {
	List(ctx context.Context, f store.ProductFilter) (*store.ProductList, error)
	Categories(ctx context.Context) ([]string, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Product, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	Create(ctx context.Context, p *domain.Product) error
	Update(ctx context.Context, p *domain.Product) error
	SetImages(ctx context.Context, id uuid.UUID, images []string) (*domain.Product, error)
	Delete(ctx context.Context, id uuid.UUID) (*domain.Product, error)
}

// OrderStore is the order repository used by the handlers.
type OrderStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	GetBySessionID(ctx context.Context, sessionID string) (*domain.Order, error)
	List(ctx context.Context, f store.OrderFilter) (*store.OrderList, error)
	ListForUser(ctx context.Context, userID uuid.UUID) (*store.OrderList, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, next domain.OrderStatus) (*domain.Order, error)
	Stats(ctx context.Context) (*domain.OrderStats, error)
}

// CustomerStore resolves the customer record of a user.
type CustomerStore interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Customer, error)
}

// UserStore is the user mirror used by the handlers.
type UserStore interface {
	Upsert(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	List(ctx context.Context, f store.UserFilter) (*store.UserList, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role domain.Role) (*domain.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// SettingsStore holds the singleton settings document.
type SettingsStore interface {
	Get(ctx context.Context) (*domain.Settings, error)
	Save(ctx context.Context, s *domain.Settings) error
	Reset(ctx context.Context) (*domain.Settings, error)
}

// ReviewStore is the review repository used by the handlers.
type ReviewStore interface {
	ListForProduct(ctx context.Context, productID uuid.UUID) ([]domain.Review, error)
	List(ctx context.Context, page store.Page) ([]domain.Review, error)
	Upsert(ctx context.Context, rv *domain.Review) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Summary(ctx context.Context, productID uuid.UUID) (domain.RatingSummary, error)
}

// Checkout starts payments.
type Checkout interface {
	Checkout(ctx context.Context, sess *auth.Session, items []cart.Item) (*payment.CheckoutResult, error)
	CreatePaymentIntent(ctx context.Context, sess *auth.Session, items []cart.Item) (*payment.IntentResult, error)
}

// Webhooks applies payment processor notifications.
type Webhooks interface {
	Handle(ctx context.Context, payload []byte, signature string) (*payment.Event, error)
}

// ShippingNotifier is told when an order leaves the workshop.
type ShippingNotifier interface {
	OrderShipped(ctx context.Context, o *domain.Order) error
}

// Deps are the collaborators of the HTTP handlers.
type Deps struct {
	Products     ProductStore
	Orders       OrderStore
	Customers    CustomerStore
	Users        UserStore
	Settings     SettingsStore
	Reviews      ReviewStore
	Cart         *cart.Service
	Configurator *configurator.Service
	Checkout     Checkout
	Webhooks     Webhooks
	Media        storage.Media
	Shipping     ShippingNotifier
	Auth         *auth.Middleware
}

// Server routes HTTP requests to the store services.
type Server struct {
	deps    Deps
	cfg     config.ServerConfig
	router  *gin.Engine
	handler http.Handler
	logger  *slog.Logger
}

// NewServer builds the router. A nil Media disables uploads and a nil
// Shipping notifier skips shipping emails.
func NewServer(cfg config.ServerConfig, deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Media == nil {
		deps.Media = storage.Disabled{}
	}
	deps.Auth = deps.Auth.WithDeny(deny).WithLogger(logger)

	s := &Server{
		deps:   deps,
		cfg:    cfg,
		router: gin.New(),
		logger: logger,
	}
	s.router.Use(requestID(), accessLog(logger), gin.CustomRecovery(s.recover))
	s.routes()

	origins := cfg.AllowedOrigins
	if len(origins) == 0 && cfg.PublicURL != "" {
		origins = []string{cfg.PublicURL}
	}
	s.handler = cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "Accept-Language", requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader},
		AllowCredentials: true,
	}).Handler(s.router)

	return s
}

func (s *Server) routes() {
	r := s.router
	a := s.deps.Auth

	r.GET("/api/health", s.health)

	pub := r.Group("/api", a.Optional())
	{
		pub.GET("/products", s.listProducts)
		pub.GET("/products/categories", s.listCategories)
		pub.GET("/products/:slug", s.getProduct)
		pub.GET("/products/:slug/reviews", s.listReviews)
		pub.GET("/settings/public", s.publicSettings)

		pub.GET("/cart", s.getCart)
		pub.POST("/cart/items", s.addCartItem)
		pub.PATCH("/cart/items/:id", s.updateCartItem)
		pub.DELETE("/cart/items/:id", s.removeCartItem)
		pub.DELETE("/cart", s.clearCart)

		pub.GET("/wishlist", s.getWishlist)
		pub.POST("/wishlist/:id/toggle", s.toggleWishlist)
		pub.DELETE("/wishlist/:id", s.removeWishlistItem)

		cfg := pub.Group("/configurator")
		cfg.GET("", s.getConfigurator)
		cfg.GET("/fabrics", s.listFabrics)
		cfg.POST("/product", s.configuratorProduct)
		cfg.POST("/fabric", s.configuratorFabric)
		cfg.POST("/embroidery", s.configuratorEmbroidery)
		cfg.POST("/accessories", s.configuratorAccessories)
		cfg.POST("/next", s.configuratorNext)
		cfg.POST("/prev", s.configuratorPrev)
		cfg.POST("/goto", s.configuratorGoTo)
		cfg.POST("/reset", s.configuratorReset)
		cfg.POST("/cart", s.configuratorToCart)
	}

	r.POST("/api/webhooks/stripe", s.stripeWebhook)

	user := r.Group("/api", a.RequireUser())
	{
		user.POST("/products/:slug/reviews", s.upsertReview)
		user.POST("/checkout", s.checkout)
		user.POST("/checkout/payment-intent", s.paymentIntent)
		user.GET("/checkout/success", s.checkoutSuccess)
		user.GET("/auth/me", s.me)
		user.POST("/auth/sync", s.syncUser)
		user.GET("/orders", s.listMyOrders)
		user.GET("/orders/:id", s.getMyOrder)
	}

	admin := r.Group("/api/admin", a.RequireAdmin())
	{
		admin.GET("/stats", s.adminStats)

		admin.GET("/products", s.adminListProducts)
		admin.POST("/products", s.adminCreateProduct)
		admin.GET("/products/:id", s.adminGetProduct)
		admin.PUT("/products/:id", s.adminUpdateProduct)
		admin.DELETE("/products/:id", s.adminDeleteProduct)
		admin.POST("/products/:id/images", s.adminAddProductImages)
		admin.DELETE("/products/:id/images", s.adminRemoveProductImage)

		admin.GET("/orders", s.adminListOrders)
		admin.GET("/orders/:id", s.adminGetOrder)
		admin.PATCH("/orders/:id/status", s.adminUpdateOrderStatus)

		admin.GET("/users", s.adminListUsers)
		admin.PATCH("/users/:id/role", s.adminUpdateUserRole)
		admin.DELETE("/users/:id", s.adminDeleteUser)

		admin.GET("/settings", s.adminGetSettings)
		admin.PUT("/settings", s.adminSaveSettings)
		admin.POST("/settings/reset", s.adminResetSettings)

		admin.GET("/media", s.adminListMedia)
		admin.POST("/media", s.adminUploadMedia)
		admin.DELETE("/media", s.adminDeleteMedia)

		admin.GET("/reviews", s.adminListReviews)
		admin.DELETE("/reviews/:id", s.adminDeleteReview)
	}
}

// Handler returns the root handler, CORS included.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.handler,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info("Shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
