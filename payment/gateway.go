// Package payment orchestrates checkout against the payment processor and
// applies its webhook notifications to orders.
package payment

import (
	"context"

	"github.com/google/uuid"

	"github.com/Ib-dI/ylang-creations/domain"
)

// LineItem is one processor line. UnitAmount is in minor units.
type LineItem struct {
	Name       string
	UnitAmount int64
	Quantity   int64
	Image      string
}

// CheckoutRequest describes a hosted checkout session.
type CheckoutRequest struct {
	CustomerID       string
	Currency         string
	Items            []LineItem
	AllowedCountries []string
	SuccessURL       string
	CancelURL        string
	OrderID          uuid.UUID
}

// CheckoutSession is the created hosted session.
type CheckoutSession struct {
	ID  string
	URL string
}

// PaymentIntentRequest describes an embedded payment.
type PaymentIntentRequest struct {
	CustomerID string
	Currency   string
	Amount     int64
	OrderID    uuid.UUID
}

// PaymentIntent is the created intent.
type PaymentIntent struct {
	ID           string
	ClientSecret string
	Amount       int64
	Currency     string
}

// EventKind classifies webhook events the store reacts to.
type EventKind int

const (
	EventIgnored EventKind = iota
	// EventPaid means the payment for Reference succeeded.
	EventPaid
	// EventAbandoned means Reference expired or failed without payment.
	EventAbandoned
)

// Event is a verified webhook notification.
type Event struct {
	ID   string
	Type string
	Kind EventKind
	// Reference is the checkout session or payment intent id.
	Reference string
	// OrderID is the order recorded on the session or intent, if any.
	OrderID         uuid.UUID
	CustomerEmail   string
	ShippingAddress *domain.Address
}

// Gateway is the payment processor.
type Gateway interface {
	CreateCustomer(ctx context.Context, email string, userID uuid.UUID) (string, error)
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	CreatePaymentIntent(ctx context.Context, req PaymentIntentRequest) (*PaymentIntent, error)
	// ParseWebhook verifies signature over payload and decodes the event.
	ParseWebhook(payload []byte, signature string) (*Event, error)
}
