package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Ib-dI/ylang-creations/domain"
)

// UserFilter narrows Users.List.
type UserFilter struct {
	Role   domain.Role
	Search string
	Page
}

// UserList is one page of users with the unpaged total.
type UserList struct {
	Users []domain.User `json:"users"`
	Total int           `json:"total"`
}

// Users mirrors the auth provider's users.
type Users struct {
	db *sql.DB
}

// NewUsers creates a user repository.
func NewUsers(db *sql.DB) *Users {
	return &Users{db: db}
}

const userColumns = `id, email, role, full_name, avatar_url, created_at, updated_at`

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		u    domain.User
		role string
	)
	dest := []any{&u.ID, &u.Email, &role, &u.FullName, &u.AvatarURL, &u.CreatedAt, &u.UpdatedAt}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	u.Role = domain.Role(role)
	return &u, nil
}

// Upsert inserts u or refreshes the mirrored profile of an existing user.
// The role is taken from u only on insert; later changes go through UpdateRole.
func (r *Users) Upsert(ctx context.Context, u *domain.User) error {
	if u.Role == "" {
		u.Role = domain.RoleCustomer
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO users (id, email, role, full_name, avatar_url)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET email = EXCLUDED.email,
		    full_name = CASE WHEN EXCLUDED.full_name <> '' THEN EXCLUDED.full_name ELSE users.full_name END,
		    avatar_url = CASE WHEN EXCLUDED.avatar_url <> '' THEN EXCLUDED.avatar_url ELSE users.avatar_url END,
		    updated_at = now()
		RETURNING `+userColumns,
		u.ID, u.Email, string(u.Role), u.FullName, u.AvatarURL)
	got, err := scanUser(row)
	if err != nil {
		return conflict(err, "failed to upsert user")
	}
	*u = *got
	return nil
}

// GetByID returns user id.
func (r *Users) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "user "+id.String())
	}
	return u, nil
}

// List returns users matching f, newest first.
func (r *Users) List(ctx context.Context, f UserFilter) (*UserList, error) {
	var w whereBuilder
	if f.Role != "" {
		w.add("role = ?", string(f.Role))
	}
	if f.Search != "" {
		pattern := "%" + escapeLike(f.Search) + "%"
		w.add("(email ILIKE ? OR full_name ILIKE ?)", pattern, pattern)
	}
	page := f.Page.normalize()
	total, err := w.count(ctx, r.db, "users")
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + userColumns + ` FROM users` + w.String() +
		` ORDER BY created_at DESC, id LIMIT ` + w.arg(page.Limit) + ` OFFSET ` + w.arg(page.Offset)

	rows, err := r.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	list := &UserList{Users: []domain.User{}, Total: total}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		list.Users = append(list.Users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}
	return list, nil
}

// RoleOf returns the role recorded for user id. ok is false when the user
// is not mirrored.
func (r *Users) RoleOf(ctx context.Context, id uuid.UUID) (domain.Role, bool, error) {
	var role string
	err := r.db.QueryRowContext(ctx, `SELECT role FROM users WHERE id = $1`, id).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get role of user %s: %w", id, err)
	}
	return domain.Role(role), true, nil
}

// UpdateRole sets the role of user id.
func (r *Users) UpdateRole(ctx context.Context, id uuid.UUID, role domain.Role) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		`UPDATE users SET role = $2, updated_at = now() WHERE id = $1 RETURNING `+userColumns,
		id, string(role)))
	if err != nil {
		return nil, notFound(err, "user "+id.String())
	}
	return u, nil
}

// Delete removes user id. Their customer record and reviews go with it;
// their orders are kept without a customer.
func (r *Users) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user %s: %w", id, err)
	}
	return mustAffect(res, "user "+id.String())
}
