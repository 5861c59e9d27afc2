package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/Ib-dI/ylang-creations/domain"
)

// Customers links users to payment processor customers.
type Customers struct {
	db *sql.DB
}

// NewCustomers creates a customer repository.
func NewCustomers(db *sql.DB) *Customers {
	return &Customers{db: db}
}

// GetByUserID returns the customer record of user id.
func (r *Customers) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Customer, error) {
	var c domain.Customer
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, stripe_customer_id, created_at FROM customers WHERE user_id = $1`, userID,
	).Scan(&c.ID, &c.UserID, &c.StripeCustomerID, &c.CreatedAt)
	if err != nil {
		return nil, notFound(err, "customer for user "+userID.String())
	}
	return &c, nil
}

// Create inserts c. A second record for the same user yields ErrConflict.
func (r *Customers) Create(ctx context.Context, c *domain.Customer) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO customers (id, user_id, stripe_customer_id) VALUES ($1, $2, $3)
		RETURNING created_at`,
		c.ID, c.UserID, c.StripeCustomerID,
	).Scan(&c.CreatedAt)
	if err != nil {
		return conflict(err, "failed to create customer")
	}
	return nil
}
