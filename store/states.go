package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Ib-dI/ylang-creations/clientstate"
)

// States persists visitor state documents. It implements clientstate.Store.
type States struct {
	db *sql.DB
}

var _ clientstate.Store = (*States)(nil)

// NewStates creates a state repository.
func NewStates(db *sql.DB) *States {
	return &States{db: db}
}

// Load implements clientstate.Store.
func (r *States) Load(ctx context.Context, key string, kind clientstate.Kind, dst any) (bool, error) {
	var raw []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT payload FROM client_states WHERE key = $1 AND kind = $2`, key, string(kind)).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load %s state: %w", kind, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("failed to decode %s state: %w", kind, err)
	}
	return true, nil
}

// Save implements clientstate.Store.
func (r *States) Save(ctx context.Context, key string, kind clientstate.Kind, v any) error {
	payload, err := jsonValue(v)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO client_states (key, kind, payload) VALUES ($1, $2, $3)
		ON CONFLICT (key, kind) DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()`,
		key, string(kind), payload)
	if err != nil {
		return fmt.Errorf("failed to save %s state: %w", kind, err)
	}
	return nil
}

// Delete implements clientstate.Store.
func (r *States) Delete(ctx context.Context, key string, kind clientstate.Kind) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM client_states WHERE key = $1 AND kind = $2`, key, string(kind)); err != nil {
		return fmt.Errorf("failed to delete %s state: %w", kind, err)
	}
	return nil
}

// Prune deletes documents untouched since before days ago.
func (r *States) Prune(ctx context.Context, days int) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM client_states WHERE updated_at < now() - make_interval(days => $1)`, days)
	if err != nil {
		return 0, fmt.Errorf("failed to prune client states: %w", err)
	}
	return res.RowsAffected()
}
