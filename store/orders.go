package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/Ib-dI/ylang-creations/dbschema"
	"github.com/Ib-dI/ylang-creations/domain"
)

// OrderFilter narrows Orders.List.
type OrderFilter struct {
	Status     domain.OrderStatus
	CustomerID *uuid.UUID
	Email      string
	Page
}

// OrderList is one page of orders with the unpaged total.
type OrderList struct {
	Orders []domain.Order `json:"orders"`
	Total  int            `json:"total"`
}

// PaymentRef identifies the order a processor notification is about. OrderID
// comes from the session metadata and is preferred; Reference is the session
// or payment intent id.
type PaymentRef struct {
	OrderID   uuid.UUID
	Reference string
}

func (ref PaymentRef) where() (string, any) {
	if ref.OrderID != uuid.Nil {
		return "id", ref.OrderID
	}
	return "stripe_session_id", ref.Reference
}

// Payment carries what the payment processor reports for a completed session.
type Payment struct {
	CustomerEmail   string
	ShippingAddress *domain.Address
}

// Orders is the order repository.
type Orders struct {
	db *sql.DB
}

// NewOrders creates an order repository.
func NewOrders(db *sql.DB) *Orders {
	return &Orders{db: db}
}

const orderColumns = `id, customer_id, status, items, total_amount, currency,
	COALESCE(stripe_session_id, ''), customer_email, shipping_address, created_at, updated_at`

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		o          domain.Order
		customerID uuid.NullUUID
		status     string
		items      []byte
		address    []byte
	)
	dest := []any{&o.ID, &customerID, &status, &items, &o.TotalAmount, &o.Currency,
		&o.StripeSessionID, &o.CustomerEmail, &address, &o.CreatedAt, &o.UpdatedAt}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if customerID.Valid {
		o.CustomerID = &customerID.UUID
	}
	o.Status = domain.OrderStatus(status)
	if err := jsonScan(items, &o.Items); err != nil {
		return nil, err
	}
	if o.Items == nil {
		o.Items = []domain.OrderItem{}
	}
	if len(address) > 0 && string(address) != "null" {
		o.ShippingAddress = &domain.Address{}
		if err := jsonScan(address, o.ShippingAddress); err != nil {
			return nil, err
		}
	}
	return &o, nil
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullableUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func addressValue(a *domain.Address) (sql.NullString, error) {
	if a == nil {
		return sql.NullString{}, nil
	}
	raw, err := jsonValue(a)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: raw, Valid: true}, nil
}

// Create inserts o. A new order always starts pending.
func (r *Orders) Create(ctx context.Context, o *domain.Order) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.Status == "" {
		o.Status = domain.OrderPending
	}
	if o.Items == nil {
		o.Items = []domain.OrderItem{}
	}
	items, err := jsonValue(o.Items)
	if err != nil {
		return err
	}
	address, err := addressValue(o.ShippingAddress)
	if err != nil {
		return err
	}
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO orders (id, customer_id, status, items, total_amount, currency, stripe_session_id, customer_email, shipping_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`,
		o.ID, nullableUUID(o.CustomerID), string(o.Status), items, o.TotalAmount, o.Currency,
		nullableString(o.StripeSessionID), o.CustomerEmail, address,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return conflict(err, "failed to create order")
	}
	return nil
}

// AttachReference records the processor session or payment intent of a
// pending order. It is a no-op when the webhook already recorded it.
func (r *Orders) AttachReference(ctx context.Context, id uuid.UUID, reference string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders SET stripe_session_id = $2, updated_at = now()
		WHERE id = $1 AND (stripe_session_id IS NULL OR stripe_session_id = $2)`,
		id, reference)
	if err != nil {
		return conflict(err, "failed to attach reference to order "+id.String())
	}
	return mustAffect(res, "order "+id.String()+" without reference")
}

// Discard deletes a pending order that never reached the processor.
func (r *Orders) Discard(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM orders WHERE id = $1 AND status = $2 AND stripe_session_id IS NULL`,
		id, string(domain.OrderPending))
	if err != nil {
		return fmt.Errorf("failed to discard order %s: %w", id, err)
	}
	return nil
}

// GetByID returns order id.
func (r *Orders) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "order "+id.String())
	}
	return o, nil
}

// GetBySessionID returns the order created for a checkout session.
func (r *Orders) GetBySessionID(ctx context.Context, sessionID string) (*domain.Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE stripe_session_id = $1`, sessionID))
	if err != nil {
		return nil, notFound(err, "order for session "+sessionID)
	}
	return o, nil
}

// List returns orders matching f, newest first.
func (r *Orders) List(ctx context.Context, f OrderFilter) (*OrderList, error) {
	var w whereBuilder
	if f.Status != "" {
		w.add("status = ?", string(f.Status))
	}
	if f.CustomerID != nil {
		w.add("customer_id = ?", *f.CustomerID)
	}
	if f.Email != "" {
		w.add("customer_email ILIKE ?", "%"+escapeLike(f.Email)+"%")
	}
	page := f.Page.normalize()
	total, err := w.count(ctx, r.db, "orders")
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + orderColumns + ` FROM orders` + w.String() +
		` ORDER BY created_at DESC, id LIMIT ` + w.arg(page.Limit) + ` OFFSET ` + w.arg(page.Offset)
	list, err := r.list(ctx, query, w.args...)
	if err != nil {
		return nil, err
	}
	list.Total = total
	return list, nil
}

// ListForUser returns the orders placed by user id, newest first.
func (r *Orders) ListForUser(ctx context.Context, userID uuid.UUID) (*OrderList, error) {
	list, err := r.list(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE customer_id = (SELECT id FROM customers WHERE user_id = $1)
		ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, err
	}
	list.Total = len(list.Orders)
	return list, nil
}

func (r *Orders) list(ctx context.Context, query string, args ...any) (*OrderList, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	list := &OrderList{Orders: []domain.Order{}}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		list.Orders = append(list.Orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order rows: %w", err)
	}
	return list, nil
}

func lockOrder(ctx context.Context, tx *sql.Tx, where string, arg any) (*domain.Order, error) {
	o, err := scanOrder(tx.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE `+where+` = $1 FOR UPDATE`, arg))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("order %v", arg))
	}
	return o, nil
}

func setStatus(ctx context.Context, tx *sql.Tx, o *domain.Order, next domain.OrderStatus) error {
	err := tx.QueryRowContext(ctx,
		`UPDATE orders SET status = $2, updated_at = now() WHERE id = $1 RETURNING updated_at`,
		o.ID, string(next)).Scan(&o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update status of order %s: %w", o.ID, err)
	}
	o.Status = next
	return nil
}

// UpdateStatus moves order id to next. Moves not permitted by the order
// lifecycle yield ErrInvalidTransition.
func (r *Orders) UpdateStatus(ctx context.Context, id uuid.UUID, next domain.OrderStatus) (*domain.Order, error) {
	var order *domain.Order
	err := dbschema.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		o, err := lockOrder(ctx, tx, "id", id)
		if err != nil {
			return err
		}
		if !o.Status.CanTransitionTo(next) {
			return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, o.Status, next)
		}
		if err := setStatus(ctx, tx, o, next); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// MarkPaid confirms the pending order of a completed payment and decrements
// the stock of its products. It reports false when the order was already past
// pending, so repeated notifications change nothing.
func (r *Orders) MarkPaid(ctx context.Context, ref PaymentRef, p Payment) (*domain.Order, bool, error) {
	var (
		order   *domain.Order
		changed bool
	)
	err := dbschema.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		column, arg := ref.where()
		o, err := lockOrder(ctx, tx, column, arg)
		if err != nil {
			return err
		}
		order = o
		if o.Status != domain.OrderPending {
			return nil
		}

		if p.CustomerEmail != "" {
			o.CustomerEmail = p.CustomerEmail
		}
		if p.ShippingAddress != nil {
			o.ShippingAddress = p.ShippingAddress
		}
		address, err := addressValue(o.ShippingAddress)
		if err != nil {
			return err
		}
		// The notification may arrive before checkout attached the reference.
		if o.StripeSessionID == "" {
			o.StripeSessionID = ref.Reference
		}
		err = tx.QueryRowContext(ctx, `
			UPDATE orders SET status = $2, customer_email = $3, shipping_address = $4,
				stripe_session_id = $5, updated_at = now()
			WHERE id = $1 RETURNING updated_at`,
			o.ID, string(domain.OrderConfirmed), o.CustomerEmail, address,
			nullableString(o.StripeSessionID)).Scan(&o.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to confirm order %s: %w", o.ID, err)
		}
		o.Status = domain.OrderConfirmed

		for _, item := range o.Items {
			productID, err := uuid.Parse(item.ProductID)
			if err != nil {
				continue
			}
			// Products deleted since checkout are skipped.
			if _, err := tx.ExecContext(ctx,
				`UPDATE products SET stock = GREATEST(stock - $2, 0), updated_at = now() WHERE id = $1`,
				productID, item.Quantity); err != nil {
				return fmt.Errorf("failed to decrement stock of product %s: %w", productID, err)
			}
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return order, changed, nil
}

// CancelPending cancels the order of an expired checkout session. It reports
// false when the order was no longer pending.
func (r *Orders) CancelPending(ctx context.Context, ref PaymentRef) (bool, error) {
	column, arg := ref.where()
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders SET status = $2, updated_at = now()
		WHERE `+column+` = $1 AND status = $3`,
		arg, string(domain.OrderCancelled), string(domain.OrderPending))
	if err != nil {
		return false, fmt.Errorf("failed to cancel order %v: %w", arg, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

// Stats aggregates orders for the admin dashboard. Revenue counts every
// order that was paid and not cancelled.
func (r *Orders) Stats(ctx context.Context) (*domain.OrderStats, error) {
	stats := &domain.OrderStats{ByStatus: make(map[domain.OrderStatus]int, len(domain.OrderStatuses))}
	for _, s := range domain.OrderStatuses {
		stats.ByStatus[s] = 0
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT status, count(*), COALESCE(sum(total_amount), 0)
		FROM orders GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to query order stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status string
			count  int
			amount int64
		)
		if err := rows.Scan(&status, &count, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan order stats: %w", err)
		}
		s := domain.OrderStatus(status)
		stats.ByStatus[s] = count
		stats.TotalOrders += count
		if s != domain.OrderPending && s != domain.OrderCancelled {
			stats.Revenue += amount
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order stats: %w", err)
	}

	err = r.db.QueryRowContext(ctx, `
		SELECT (SELECT count(*) FROM products), (SELECT count(*) FROM customers)`,
	).Scan(&stats.ProductCount, &stats.CustomerCount)
	if err != nil {
		return nil, fmt.Errorf("failed to count products and customers: %w", err)
	}
	return stats, nil
}
