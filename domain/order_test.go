package domain_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/Ib-dI/ylang-creations/domain"
)

func TestOrderStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to domain.OrderStatus
		allowed  bool
	}{
		{domain.OrderPending, domain.OrderConfirmed, true},
		{domain.OrderPending, domain.OrderCancelled, true},
		{domain.OrderPending, domain.OrderShipped, false},
		{domain.OrderConfirmed, domain.OrderInProduction, true},
		{domain.OrderInProduction, domain.OrderShipped, true},
		{domain.OrderShipped, domain.OrderDelivered, true},
		{domain.OrderShipped, domain.OrderCancelled, false},
		{domain.OrderDelivered, domain.OrderCancelled, false},
		{domain.OrderCancelled, domain.OrderPending, false},
		{domain.OrderConfirmed, domain.OrderConfirmed, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			c := qt.New(t)
			c.Assert(tt.from.CanTransitionTo(tt.to), qt.Equals, tt.allowed)
		})
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	c := qt.New(t)

	c.Assert(domain.OrderDelivered.Terminal(), qt.IsTrue)
	c.Assert(domain.OrderCancelled.Terminal(), qt.IsTrue)
	c.Assert(domain.OrderPending.Terminal(), qt.IsFalse)
}

func TestParseOrderStatus(t *testing.T) {
	c := qt.New(t)

	s, err := domain.ParseOrderStatus("in_production")
	c.Assert(err, qt.IsNil)
	c.Assert(s, qt.Equals, domain.OrderInProduction)

	_, err = domain.ParseOrderStatus("lost")
	c.Assert(err, qt.ErrorMatches, `unknown order status "lost"`)
}

func TestItemsTotal(t *testing.T) {
	c := qt.New(t)

	items := []domain.OrderItem{
		{Name: "Gigoteuse", UnitPrice: 4590, Quantity: 2},
		{Name: "Bavoir", UnitPrice: 1200, Quantity: 1},
	}
	c.Assert(domain.ItemsTotal(items), qt.Equals, int64(10380))
	c.Assert(domain.ItemsTotal(nil), qt.Equals, int64(0))
}

func TestToMinorUnits(t *testing.T) {
	c := qt.New(t)

	c.Assert(domain.ToMinorUnits(45.9), qt.Equals, int64(4590))
	c.Assert(domain.ToMinorUnits(0.1+0.2), qt.Equals, int64(30))
	c.Assert(domain.ToMajorUnits(4590), qt.Equals, 45.9)
}
