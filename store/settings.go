package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Ib-dI/ylang-creations/dbschema"
	"github.com/Ib-dI/ylang-creations/domain"
)

// Settings stores the singleton settings row.
type Settings struct {
	db *sql.DB
}

// NewSettings creates a settings repository.
func NewSettings(db *sql.DB) *Settings {
	return &Settings{db: db}
}

// Get returns the stored settings, or the defaults when none were saved.
func (r *Settings) Get(ctx context.Context) (*domain.Settings, error) {
	var (
		slides, testimonials, templates, info []byte
		s                                     = domain.DefaultSettings()
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT hero_slides, testimonials, templates, store, updated_at
		FROM settings WHERE id = $1`, domain.SettingsID,
	).Scan(&slides, &testimonials, &templates, &info, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	for _, col := range []struct {
		raw []byte
		dst any
	}{
		{slides, &s.HeroSlides},
		{testimonials, &s.Testimonials},
		{templates, &s.Templates},
		{info, &s.Store},
	} {
		if err := jsonScan(col.raw, col.dst); err != nil {
			return nil, err
		}
	}
	if s.HeroSlides == nil {
		s.HeroSlides = []domain.HeroSlide{}
	}
	if s.Testimonials == nil {
		s.Testimonials = []domain.Testimonial{}
	}
	fillTemplateDefaults(&s.Templates)
	return s, nil
}

// fillTemplateDefaults restores templates an older row does not carry.
func fillTemplateDefaults(t *domain.EmailTemplates) {
	def := domain.DefaultSettings().Templates
	if t.OrderConfirmation.Subject == "" {
		t.OrderConfirmation = def.OrderConfirmation
	}
	if t.AdminNotification.Subject == "" {
		t.AdminNotification = def.AdminNotification
	}
	if t.OrderShipped.Subject == "" {
		t.OrderShipped = def.OrderShipped
	}
}

// Save writes s to the singleton row, inserting it the first time and
// updating that same row afterwards.
func (r *Settings) Save(ctx context.Context, s *domain.Settings) error {
	return save(ctx, r.db, s)
}

func save(ctx context.Context, q dbschema.Querier, s *domain.Settings) error {
	args := []any{domain.SettingsID}
	for _, v := range []any{s.HeroSlides, s.Testimonials, s.Templates, s.Store} {
		raw, err := jsonValue(v)
		if err != nil {
			return err
		}
		args = append(args, raw)
	}
	err := q.QueryRowContext(ctx, `
		INSERT INTO settings (id, hero_slides, testimonials, templates, store)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET hero_slides = EXCLUDED.hero_slides,
		    testimonials = EXCLUDED.testimonials,
		    templates = EXCLUDED.templates,
		    store = EXCLUDED.store,
		    updated_at = now()
		RETURNING updated_at`, args...,
	).Scan(&s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// Reset replaces the stored settings with the defaults in one transaction.
func (r *Settings) Reset(ctx context.Context) (*domain.Settings, error) {
	s := domain.DefaultSettings()
	err := dbschema.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM settings`); err != nil {
			return fmt.Errorf("failed to clear settings: %w", err)
		}
		return save(ctx, tx, s)
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}
