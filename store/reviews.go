package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Ib-dI/ylang-creations/dbschema"
	"github.com/Ib-dI/ylang-creations/domain"
)

// Reviews is the product review repository.
type Reviews struct {
	db *sql.DB
}

// NewReviews creates a review repository.
func NewReviews(db *sql.DB) *Reviews {
	return &Reviews{db: db}
}

const reviewSelect = `
	SELECT r.id, r.product_id, r.user_id, COALESCE(NULLIF(u.full_name, ''), split_part(u.email, '@', 1), ''),
	       r.rating, r.comment, r.created_at, r.updated_at
	FROM reviews r
	LEFT JOIN users u ON u.id = r.user_id`

func scanReview(row rowScanner) (*domain.Review, error) {
	var rv domain.Review
	err := row.Scan(&rv.ID, &rv.ProductID, &rv.UserID, &rv.Author, &rv.Rating, &rv.Comment, &rv.CreatedAt, &rv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &rv, nil
}

func (r *Reviews) query(ctx context.Context, query string, args ...any) ([]domain.Review, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reviews: %w", err)
	}
	defer rows.Close()

	reviews := []domain.Review{}
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, *rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating review rows: %w", err)
	}
	return reviews, nil
}

// ListForProduct returns the reviews of a product, newest first.
func (r *Reviews) ListForProduct(ctx context.Context, productID uuid.UUID) ([]domain.Review, error) {
	return r.query(ctx, reviewSelect+` WHERE r.product_id = $1 ORDER BY r.created_at DESC, r.id`, productID)
}

// List returns the most recent reviews across products.
func (r *Reviews) List(ctx context.Context, page Page) ([]domain.Review, error) {
	page = page.normalize()
	return r.query(ctx, reviewSelect+` ORDER BY r.created_at DESC, r.id LIMIT $1 OFFSET $2`, page.Limit, page.Offset)
}

// Upsert stores rv as the review of rv.UserID for rv.ProductID, replacing
// the user's earlier review of that product if any. It reports whether a
// new review was created.
func (r *Reviews) Upsert(ctx context.Context, rv *domain.Review) (bool, error) {
	var created bool
	err := dbschema.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		// Serialises concurrent writers for the same (user, product) pair.
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`,
			rv.UserID.String()+"/"+rv.ProductID.String()); err != nil {
			return fmt.Errorf("failed to lock review: %w", err)
		}

		var existing uuid.UUID
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM reviews WHERE user_id = $1 AND product_id = $2 ORDER BY created_at LIMIT 1`,
			rv.UserID, rv.ProductID).Scan(&existing)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			if rv.ID == uuid.Nil {
				rv.ID = uuid.New()
			}
			err = tx.QueryRowContext(ctx, `
				INSERT INTO reviews (id, product_id, user_id, rating, comment)
				VALUES ($1, $2, $3, $4, $5)
				RETURNING created_at, updated_at`,
				rv.ID, rv.ProductID, rv.UserID, rv.Rating, rv.Comment,
			).Scan(&rv.CreatedAt, &rv.UpdatedAt)
			if err != nil {
				return fmt.Errorf("failed to insert review: %w", err)
			}
			created = true
		case err != nil:
			return fmt.Errorf("failed to look up review: %w", err)
		default:
			rv.ID = existing
			err = tx.QueryRowContext(ctx, `
				UPDATE reviews SET rating = $2, comment = $3, updated_at = now()
				WHERE id = $1
				RETURNING created_at, updated_at`,
				rv.ID, rv.Rating, rv.Comment,
			).Scan(&rv.CreatedAt, &rv.UpdatedAt)
			if err != nil {
				return fmt.Errorf("failed to update review: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

// Delete removes review id.
func (r *Reviews) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete review %s: %w", id, err)
	}
	return mustAffect(res, "review "+id.String())
}

// Summary returns the review count and average rating of a product.
func (r *Reviews) Summary(ctx context.Context, productID uuid.UUID) (domain.RatingSummary, error) {
	var s domain.RatingSummary
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*), COALESCE(round(avg(rating)::numeric, 1), 0)::float8 FROM reviews WHERE product_id = $1`,
		productID).Scan(&s.Count, &s.Average)
	if err != nil {
		return s, fmt.Errorf("failed to summarise reviews: %w", err)
	}
	return s, nil
}
