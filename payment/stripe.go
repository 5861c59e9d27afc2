package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/Ib-dI/ylang-creations/domain"
)

// ErrInvalidSignature is returned for webhook payloads failing verification.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// Stripe implements Gateway with the Stripe API.
type Stripe struct {
	api           *client.API
	webhookSecret string
}

var _ Gateway = (*Stripe)(nil)

// NewStripe creates a Stripe gateway.
func NewStripe(secretKey, webhookSecret string) *Stripe {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &Stripe{api: api, webhookSecret: webhookSecret}
}

// CreateCustomer implements Gateway.
func (s *Stripe) CreateCustomer(ctx context.Context, email string, userID uuid.UUID) (string, error) {
	params := &stripe.CustomerParams{Email: stripe.String(email)}
	params.Context = ctx
	params.AddMetadata("user_id", userID.String())

	c, err := s.api.Customers.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create stripe customer: %w", err)
	}
	return c.ID, nil
}

// CreateCheckoutSession implements Gateway.
func (s *Stripe) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	items := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.Items))
	for _, it := range req.Items {
		product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(it.Name),
		}
		if it.Image != "" {
			product.Images = stripe.StringSlice([]string{it.Image})
		}
		items = append(items, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(req.Currency),
				UnitAmount:  stripe.Int64(it.UnitAmount),
				ProductData: product,
			},
			Quantity: stripe.Int64(it.Quantity),
		})
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		Customer:          stripe.String(req.CustomerID),
		LineItems:         items,
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(req.OrderID.String()),
		ShippingAddressCollection: &stripe.CheckoutSessionShippingAddressCollectionParams{
			AllowedCountries: stripe.StringSlice(req.AllowedCountries),
		},
	}
	params.Context = ctx
	params.AddMetadata("order_id", req.OrderID.String())

	sess, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create stripe checkout session: %w", err)
	}
	return &CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

// CreatePaymentIntent implements Gateway.
func (s *Stripe) CreatePaymentIntent(ctx context.Context, req PaymentIntentRequest) (*PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.Amount),
		Currency: stripe.String(req.Currency),
		Customer: stripe.String(req.CustomerID),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata("order_id", req.OrderID.String())

	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create stripe payment intent: %w", err)
	}
	return &PaymentIntent{ID: pi.ID, ClientSecret: pi.ClientSecret, Amount: pi.Amount, Currency: string(pi.Currency)}, nil
}

// ParseWebhook implements Gateway.
func (s *Stripe) ParseWebhook(payload []byte, signature string) (*Event, error) {
	evt, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}
	return decodeEvent(evt)
}

func decodeEvent(evt stripe.Event) (*Event, error) {
	out := &Event{ID: evt.ID, Type: string(evt.Type)}

	switch evt.Type {
	case stripe.EventTypeCheckoutSessionCompleted,
		stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded,
		stripe.EventTypeCheckoutSessionExpired,
		stripe.EventTypeCheckoutSessionAsyncPaymentFailed:
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(evt.Data.Raw, &sess); err != nil {
			return nil, fmt.Errorf("failed to decode checkout session: %w", err)
		}
		out.Reference = sess.ID
		out.OrderID = orderIDFrom(sess.Metadata, sess.ClientReferenceID)
		switch evt.Type {
		case stripe.EventTypeCheckoutSessionCompleted:
			// Delayed payment methods complete unpaid; they are confirmed
			// by checkout.session.async_payment_succeeded.
			if sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid {
				return out, nil
			}
			out.Kind = EventPaid
		case stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
			out.Kind = EventPaid
		default:
			out.Kind = EventAbandoned
		}
		if sess.CustomerDetails != nil {
			out.CustomerEmail = sess.CustomerDetails.Email
		}
		if sess.ShippingDetails != nil && sess.ShippingDetails.Address != nil {
			out.ShippingAddress = convertAddress(sess.ShippingDetails.Name, sess.ShippingDetails.Address)
		} else if sess.CustomerDetails != nil && sess.CustomerDetails.Address != nil {
			out.ShippingAddress = convertAddress(sess.CustomerDetails.Name, sess.CustomerDetails.Address)
		}

	// A failed payment intent may still be retried by the customer, so only
	// cancellation abandons it.
	case stripe.EventTypePaymentIntentSucceeded,
		stripe.EventTypePaymentIntentCanceled:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(evt.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("failed to decode payment intent: %w", err)
		}
		out.Reference = pi.ID
		out.OrderID = orderIDFrom(pi.Metadata, "")
		out.CustomerEmail = pi.ReceiptEmail
		if evt.Type == stripe.EventTypePaymentIntentSucceeded {
			out.Kind = EventPaid
		} else {
			out.Kind = EventAbandoned
		}
		if pi.Shipping != nil && pi.Shipping.Address != nil {
			out.ShippingAddress = convertAddress(pi.Shipping.Name, pi.Shipping.Address)
		}
	}
	return out, nil
}

// orderIDFrom reads the order id set at creation. Sessions created elsewhere
// yield uuid.Nil and are matched by reference.
func orderIDFrom(metadata map[string]string, clientReference string) uuid.UUID {
	for _, raw := range []string{metadata["order_id"], clientReference} {
		if id, err := uuid.Parse(raw); err == nil {
			return id
		}
	}
	return uuid.Nil
}

func convertAddress(name string, a *stripe.Address) *domain.Address {
	return &domain.Address{
		Name:       name,
		Line1:      a.Line1,
		Line2:      a.Line2,
		PostalCode: a.PostalCode,
		City:       a.City,
		Country:    a.Country,
	}
}
