package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Ib-dI/ylang-creations/domain"
	"github.com/Ib-dI/ylang-creations/store"
)

// OrderEvents applies payment outcomes to orders.
type OrderEvents interface {
	MarkPaid(ctx context.Context, ref store.PaymentRef, p store.Payment) (*domain.Order, bool, error)
	CancelPending(ctx context.Context, ref store.PaymentRef) (bool, error)
}

// Notifier is told about newly confirmed orders.
type Notifier interface {
	OrderConfirmed(ctx context.Context, o *domain.Order) error
}

// WebhookHandler verifies processor notifications and applies them.
type WebhookHandler struct {
	gateway  Gateway
	orders   OrderEvents
	notifier Notifier
	logger   *slog.Logger
}

// NewWebhookHandler creates a webhook handler. notifier may be nil.
func NewWebhookHandler(gateway Gateway, orders OrderEvents, notifier Notifier) *WebhookHandler {
	return &WebhookHandler{
		gateway:  gateway,
		orders:   orders,
		notifier: notifier,
		logger:   slog.Default(),
	}
}

// WithLogger sets the logger for the handler.
func (h *WebhookHandler) WithLogger(l *slog.Logger) *WebhookHandler {
	tmp := *h
	tmp.logger = l
	return &tmp
}

// Handle verifies and applies one notification. Invalid signatures yield
// ErrInvalidSignature. Replayed notifications are acknowledged without
// repeating their effects.
func (h *WebhookHandler) Handle(ctx context.Context, payload []byte, signature string) (*Event, error) {
	evt, err := h.gateway.ParseWebhook(payload, signature)
	if err != nil {
		return nil, err
	}

	ref := store.PaymentRef{OrderID: evt.OrderID, Reference: evt.Reference}
	switch evt.Kind {
	case EventPaid:
		order, changed, err := h.orders.MarkPaid(ctx, ref, store.Payment{
			CustomerEmail:   evt.CustomerEmail,
			ShippingAddress: evt.ShippingAddress,
		})
		if errors.Is(err, store.ErrNotFound) {
			h.logger.Warn("No order for paid reference", "eventId", evt.ID, "reference", evt.Reference)
			return evt, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to confirm order for %s: %w", evt.Reference, err)
		}
		if !changed {
			h.logger.Info("Order already confirmed", "eventId", evt.ID, "orderId", order.ID)
			return evt, nil
		}
		h.logger.Info("Order confirmed", "eventId", evt.ID, "orderId", order.ID, "total", order.TotalAmount)
		if h.notifier != nil {
			// The order is committed; a mail failure must not make the
			// processor redeliver.
			if err := h.notifier.OrderConfirmed(ctx, order); err != nil {
				h.logger.Error("Failed to send order notifications", "orderId", order.ID, "error", err)
			}
		}

	case EventAbandoned:
		cancelled, err := h.orders.CancelPending(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("failed to cancel order for %s: %w", evt.Reference, err)
		}
		h.logger.Info("Checkout abandoned", "eventId", evt.ID, "reference", evt.Reference, "cancelled", cancelled)

	default:
		h.logger.Debug("Ignoring webhook event", "eventId", evt.ID, "type", evt.Type)
	}
	return evt, nil
}
