package domain

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderPending      OrderStatus = "pending"
	OrderConfirmed    OrderStatus = "confirmed"
	OrderInProduction OrderStatus = "in_production"
	OrderShipped      OrderStatus = "shipped"
	OrderDelivered    OrderStatus = "delivered"
	OrderCancelled    OrderStatus = "cancelled"
)

// OrderStatuses lists every status in lifecycle order.
var OrderStatuses = []OrderStatus{
	OrderPending,
	OrderConfirmed,
	OrderInProduction,
	OrderShipped,
	OrderDelivered,
	OrderCancelled,
}

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:      {OrderConfirmed, OrderCancelled},
	OrderConfirmed:    {OrderInProduction, OrderCancelled},
	OrderInProduction: {OrderShipped, OrderCancelled},
	OrderShipped:      {OrderDelivered},
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	return slices.Contains(OrderStatuses, s)
}

// Terminal reports whether no transition leaves s.
func (s OrderStatus) Terminal() bool {
	return len(orderTransitions[s]) == 0
}

// CanTransitionTo reports whether an order in status s may move to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	return slices.Contains(orderTransitions[s], next)
}

// ParseOrderStatus validates a raw status string.
func ParseOrderStatus(raw string) (OrderStatus, error) {
	s := OrderStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown order status %q", raw)
	}
	return s, nil
}

// OrderItem is a snapshot of one purchased line. UnitPrice is in cents.
type OrderItem struct {
	ProductID string            `json:"productId"`
	Name      string            `json:"name"`
	UnitPrice int64             `json:"unitPrice"`
	Quantity  int               `json:"quantity"`
	Image     string            `json:"image,omitempty"`
	Options   map[string]string `json:"options,omitempty"`
}

// Subtotal returns UnitPrice × Quantity.
func (i OrderItem) Subtotal() int64 {
	return i.UnitPrice * int64(i.Quantity)
}

// Address is a postal address captured by the hosted checkout.
type Address struct {
	Name       string `json:"name,omitempty"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	PostalCode string `json:"postalCode"`
	City       string `json:"city"`
	Country    string `json:"country"`
}

// Order is a customer purchase.
type Order struct {
	ID              uuid.UUID   `json:"id"`
	CustomerID      *uuid.UUID  `json:"customerId,omitempty"`
	Status          OrderStatus `json:"status"`
	Items           []OrderItem `json:"items"`
	TotalAmount     int64       `json:"totalAmount"`
	Currency        string      `json:"currency"`
	StripeSessionID string      `json:"stripeSessionId,omitempty"`
	CustomerEmail   string      `json:"customerEmail"`
	ShippingAddress *Address    `json:"shippingAddress,omitempty"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

// ItemsTotal sums the line subtotals.
func ItemsTotal(items []OrderItem) int64 {
	var total int64
	for _, it := range items {
		total += it.Subtotal()
	}
	return total
}

// OrderStats summarises orders for the admin dashboard.
type OrderStats struct {
	ByStatus      map[OrderStatus]int `json:"byStatus"`
	TotalOrders   int                 `json:"totalOrders"`
	Revenue       int64               `json:"revenue"`
	ProductCount  int                 `json:"productCount"`
	CustomerCount int                 `json:"customerCount"`
}
