package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/Ib-dI/ylang-creations/auth"
	"github.com/Ib-dI/ylang-creations/cart"
	"github.com/Ib-dI/ylang-creations/config"
	"github.com/Ib-dI/ylang-creations/configurator"
	"github.com/Ib-dI/ylang-creations/domain"
	"github.com/Ib-dI/ylang-creations/store"
)

var (
	// ErrUnauthenticated is returned when checkout is attempted without a session.
	ErrUnauthenticated = errors.New("checkout requires an authenticated session")
	// ErrEmptyCart is returned when checkout is attempted with no items.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrInvalidItem is returned for items with a quantity out of range, an
	// unknown product or a configuration that cannot be priced.
	ErrInvalidItem = errors.New("invalid cart item")
	// ErrOutOfStock is returned when a catalogue product lacks stock.
	ErrOutOfStock = errors.New("product out of stock")
	// ErrCheckout wraps every failure of the processor or of the order store.
	ErrCheckout = errors.New("checkout failed")
)

// customPrefix marks cart items produced by the configurator.
const customPrefix = "custom-"

// Products resolves catalogue products.
type Products interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
}

// Customers stores the processor customer of each user.
type Customers interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Customer, error)
	Create(ctx context.Context, c *domain.Customer) error
}

// Users mirrors authenticated users locally.
type Users interface {
	Upsert(ctx context.Context, u *domain.User) error
}

// Orders persists orders. Orders are created before the processor is
// called; the processor reference is attached once known.
type Orders interface {
	Create(ctx context.Context, o *domain.Order) error
	AttachReference(ctx context.Context, id uuid.UUID, reference string) error
	Discard(ctx context.Context, id uuid.UUID) error
}

// CheckoutResult is returned to the storefront.
type CheckoutResult struct {
	OrderID   uuid.UUID `json:"orderId"`
	SessionID string    `json:"sessionId"`
	URL       string    `json:"url"`
}

// IntentResult is returned to the storefront for embedded payments.
type IntentResult struct {
	OrderID      uuid.UUID `json:"orderId"`
	ClientSecret string    `json:"clientSecret"`
	Amount       int64     `json:"amount"`
	Currency     string    `json:"currency"`
}

// CheckoutService turns carts into processor sessions and pending orders.
type CheckoutService struct {
	gateway   Gateway
	products  Products
	customers Customers
	users     Users
	orders    Orders
	cfg       config.StripeConfig
	catalog   config.CatalogConfig
	publicURL string
	logger    *slog.Logger
}

// NewCheckoutService creates a checkout service. catalog prices configured
// items. publicURL is the storefront origin used to build the success and
// cancel URLs.
func NewCheckoutService(gateway Gateway, products Products, customers Customers, users Users, orders Orders,
	cfg config.StripeConfig, catalog config.CatalogConfig, publicURL string) *CheckoutService {
	return &CheckoutService{
		gateway:   gateway,
		products:  products,
		customers: customers,
		users:     users,
		orders:    orders,
		cfg:       cfg,
		catalog:   catalog,
		publicURL: strings.TrimRight(publicURL, "/"),
		logger:    slog.Default(),
	}
}

// WithLogger sets the logger for the service.
func (s *CheckoutService) WithLogger(l *slog.Logger) *CheckoutService {
	tmp := *s
	tmp.logger = l
	return &tmp
}

// Checkout records a pending order for items and creates the hosted checkout
// session paying it. The caller and the cart are validated before any call
// to the processor, and the order exists before the session does, so an
// early notification always finds it.
func (s *CheckoutService) Checkout(ctx context.Context, sess *auth.Session, items []cart.Item) (*CheckoutResult, error) {
	order, lines, err := s.prepare(ctx, sess, items)
	if err != nil {
		return nil, err
	}
	customer, err := s.resolveCustomer(ctx, sess)
	if err != nil {
		return nil, err
	}
	order.CustomerID = &customer.ID
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCheckout, err)
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, CheckoutRequest{
		CustomerID:       customer.StripeCustomerID,
		Currency:         s.cfg.Currency,
		Items:            lines,
		AllowedCountries: s.cfg.AllowedCountries,
		SuccessURL:       s.absoluteURL(s.cfg.SuccessPath),
		CancelURL:        s.absoluteURL(s.cfg.CancelPath),
		OrderID:          order.ID,
	})
	if err != nil {
		s.discard(ctx, order.ID)
		return nil, fmt.Errorf("%w: %w", ErrCheckout, err)
	}

	order.StripeSessionID = session.ID
	if err := s.orders.AttachReference(ctx, order.ID, session.ID); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCheckout, err)
	}

	s.logger.Info("Created checkout session", "orderId", order.ID, "sessionId", session.ID, "total", order.TotalAmount)
	return &CheckoutResult{OrderID: order.ID, SessionID: session.ID, URL: session.URL}, nil
}

// CreatePaymentIntent records a pending order for items and starts the
// embedded payment for it.
func (s *CheckoutService) CreatePaymentIntent(ctx context.Context, sess *auth.Session, items []cart.Item) (*IntentResult, error) {
	order, _, err := s.prepare(ctx, sess, items)
	if err != nil {
		return nil, err
	}
	customer, err := s.resolveCustomer(ctx, sess)
	if err != nil {
		return nil, err
	}
	order.CustomerID = &customer.ID
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCheckout, err)
	}

	pi, err := s.gateway.CreatePaymentIntent(ctx, PaymentIntentRequest{
		CustomerID: customer.StripeCustomerID,
		Currency:   s.cfg.Currency,
		Amount:     order.TotalAmount,
		OrderID:    order.ID,
	})
	if err != nil {
		s.discard(ctx, order.ID)
		return nil, fmt.Errorf("%w: %w", ErrCheckout, err)
	}

	order.StripeSessionID = pi.ID
	if err := s.orders.AttachReference(ctx, order.ID, pi.ID); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCheckout, err)
	}

	s.logger.Info("Created payment intent", "orderId", order.ID, "paymentIntentId", pi.ID, "total", order.TotalAmount)
	return &IntentResult{OrderID: order.ID, ClientSecret: pi.ClientSecret, Amount: order.TotalAmount, Currency: s.cfg.Currency}, nil
}

// prepare validates the caller and the items and builds the pending order
// and processor lines. It makes no call to the processor.
func (s *CheckoutService) prepare(ctx context.Context, sess *auth.Session, items []cart.Item) (*domain.Order, []LineItem, error) {
	if sess == nil {
		return nil, nil, ErrUnauthenticated
	}
	if len(items) == 0 {
		return nil, nil, ErrEmptyCart
	}

	order := &domain.Order{
		ID:            uuid.New(),
		Status:        domain.OrderPending,
		Currency:      s.cfg.Currency,
		CustomerEmail: sess.Email,
		Items:         make([]domain.OrderItem, 0, len(items)),
	}
	lines := make([]LineItem, 0, len(items))

	for _, it := range items {
		line, err := s.priceItem(ctx, it)
		if err != nil {
			return nil, nil, err
		}
		order.Items = append(order.Items, line)
		lines = append(lines, LineItem{
			Name:       line.Name,
			UnitAmount: line.UnitPrice,
			Quantity:   int64(line.Quantity),
			Image:      line.Image,
		})
	}
	order.TotalAmount = domain.ItemsTotal(order.Items)
	return order, lines, nil
}

// priceItem converts a cart item to an order line in minor units. Every item
// must reference a known product. Catalogue products are priced from the
// database and configured items are repriced from their recorded
// configuration; the client price is never used.
func (s *CheckoutService) priceItem(ctx context.Context, it cart.Item) (domain.OrderItem, error) {
	if it.Quantity <= 0 || it.Quantity > cart.MaxQuantity {
		return domain.OrderItem{}, fmt.Errorf("%w: quantity %d for %s", ErrInvalidItem, it.Quantity, it.ID)
	}
	custom := strings.HasPrefix(it.ID, customPrefix) || it.Configuration != nil

	rawID := it.ProductID
	if rawID == "" && !custom {
		rawID = it.ID
	}
	productID, err := uuid.Parse(rawID)
	if err != nil {
		return domain.OrderItem{}, fmt.Errorf("%w: unknown product %q", ErrInvalidItem, rawID)
	}
	p, err := s.products.GetByID(ctx, productID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.OrderItem{}, fmt.Errorf("%w: unknown product %s", ErrInvalidItem, productID)
	}
	if err != nil {
		return domain.OrderItem{}, fmt.Errorf("%w: %w", ErrCheckout, err)
	}

	if custom {
		return s.priceConfigured(p, it)
	}

	if !p.InStock(it.Quantity) {
		return domain.OrderItem{}, fmt.Errorf("%w: %s", ErrOutOfStock, p.Slug)
	}
	return domain.OrderItem{
		ProductID: p.ID.String(),
		Name:      p.Name,
		UnitPrice: p.Price,
		Quantity:  it.Quantity,
		Image:     p.PrimaryImage(),
		Options:   it.Options,
	}, nil
}

// priceConfigured replays the recorded configuration of a custom item
// against the current catalogue. Made-to-order items are not stock bound.
func (s *CheckoutService) priceConfigured(p *domain.Product, it cart.Item) (domain.OrderItem, error) {
	if it.Configuration == nil {
		return domain.OrderItem{}, fmt.Errorf("%w: %s has no configuration", ErrInvalidItem, it.ID)
	}
	st, err := configurator.Restore(p, *it.Configuration, s.catalog)
	if err != nil {
		return domain.OrderItem{}, fmt.Errorf("%w: %w", ErrInvalidItem, err)
	}
	pricing := configurator.PricingFor(s.catalog)
	item, err := configurator.LineItem(st, pricing, s.catalog)
	if err != nil {
		return domain.OrderItem{}, fmt.Errorf("%w: %w", ErrInvalidItem, err)
	}
	return domain.OrderItem{
		ProductID: p.ID.String(),
		Name:      item.Name,
		UnitPrice: st.Price(pricing).Total,
		Quantity:  it.Quantity,
		Image:     item.Image,
		Options:   item.Options,
	}, nil
}

// resolveCustomer returns the processor customer of the session's user,
// creating it on first checkout.
func (s *CheckoutService) resolveCustomer(ctx context.Context, sess *auth.Session) (*domain.Customer, error) {
	c, err := s.customers.GetByUserID(ctx, sess.UserID)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %w", ErrCheckout, err)
	}

	// customers.user_id references the local user mirror.
	if err := s.users.Upsert(ctx, sess.User()); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCheckout, err)
	}
	stripeID, err := s.gateway.CreateCustomer(ctx, sess.Email, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCheckout, err)
	}
	c = &domain.Customer{UserID: sess.UserID, StripeCustomerID: stripeID}
	if err := s.customers.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCheckout, err)
	}
	s.logger.Info("Created processor customer", "userId", sess.UserID, "customerId", stripeID)
	return c, nil
}

// discard removes the pending order of a failed processor call. The order
// holds no reference yet, so no notification can concern it.
func (s *CheckoutService) discard(ctx context.Context, id uuid.UUID) {
	if err := s.orders.Discard(ctx, id); err != nil {
		s.logger.Warn("Failed to discard pending order", "orderId", id, "error", err)
	}
}

func (s *CheckoutService) absoluteURL(path string) string {
	if u, err := url.Parse(path); err == nil && u.IsAbs() {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return s.publicURL + path
}
