package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Ib-dI/ylang-creations/auth"
	"github.com/Ib-dI/ylang-creations/domain"
	"github.com/Ib-dI/ylang-creations/i18n"
	"github.com/Ib-dI/ylang-creations/payment"
	"github.com/Ib-dI/ylang-creations/store"
)

// maxWebhookBytes bounds webhook payloads.
const maxWebhookBytes = 64 << 10

func (s *Server) checkout(c *gin.Context) {
	sess, _ := auth.SessionFrom(c)
	ctx := c.Request.Context()

	ct, err := s.deps.Cart.Get(ctx, s.visitorKey(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	res, err := s.deps.Checkout.Checkout(ctx, sess, ct.Items)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) paymentIntent(c *gin.Context) {
	sess, _ := auth.SessionFrom(c)
	ctx := c.Request.Context()

	ct, err := s.deps.Cart.Get(ctx, s.visitorKey(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	res, err := s.deps.Checkout.CreatePaymentIntent(ctx, sess, ct.Items)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type successQuery struct {
	SessionID string `form:"session_id" json:"session_id" binding:"required,max=255"`
}

// checkoutSuccess returns the order behind a completed checkout session and
// empties the visitor's cart.
func (s *Server) checkoutSuccess(c *gin.Context) {
	var q successQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		invalid(c, err)
		return
	}
	sess, _ := auth.SessionFrom(c)
	ctx := c.Request.Context()

	order, err := s.deps.Orders.GetBySessionID(ctx, q.SessionID)
	if err != nil {
		s.fail(c, err)
		return
	}
	ok, err := s.owns(ctx, sess, order)
	if err != nil {
		s.fail(c, err)
		return
	}
	if !ok {
		abort(c, http.StatusNotFound, i18n.ErrNotFound)
		return
	}
	if err := s.deps.Cart.Clear(ctx, s.visitorKey(c)); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// stripeWebhook answers 400 to forged notifications and 500 to failures the
// processor should redeliver.
func (s *Server) stripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBytes))
	if err != nil {
		invalid(c, err)
		return
	}
	evt, err := s.deps.Webhooks.Handle(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			s.logger.Warn("Rejected webhook", "error", err)
		}
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true, "type": evt.Type})
}

// owns reports whether the session may see order: admins see every order,
// customers their own.
func (s *Server) owns(ctx context.Context, sess *auth.Session, order *domain.Order) (bool, error) {
	if sess.IsAdmin() {
		return true, nil
	}
	if order.CustomerID != nil {
		cust, err := s.deps.Customers.GetByUserID(ctx, sess.UserID)
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return cust.ID == *order.CustomerID, nil
	}
	return order.CustomerEmail != "" && strings.EqualFold(order.CustomerEmail, sess.Email), nil
}
