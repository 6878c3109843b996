package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-sms/meridian-sms/internal/authz"
	"github.com/meridian-sms/meridian-sms/internal/shared"
)

// Repository provides PostgreSQL backed persistence for accounts.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns all accounts with their roles, newest first.
func (r *Repository) List(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT u.id, u.email, u.full_name, u.is_active, u.created_at,
		       COALESCE(array_agg(ur.role) FILTER (WHERE ur.role IS NOT NULL), '{}')
		FROM users u
		LEFT JOIN user_roles ur ON ur.user_id = u.id
		GROUP BY u.id
		ORDER BY u.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []User
	for rows.Next() {
		var u User
		var roles []string
		if err := rows.Scan(&u.ID, &u.Email, &u.FullName, &u.IsActive, &u.CreatedAt, &roles); err != nil {
			return nil, err
		}
		for _, raw := range roles {
			u.Roles = append(u.Roles, authz.Role(raw))
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Get fetches one account with its roles.
func (r *Repository) Get(ctx context.Context, id int64) (User, error) {
	var u User
	var roles []string
	err := r.pool.QueryRow(ctx, `
		SELECT u.id, u.email, u.full_name, u.is_active, u.created_at,
		       COALESCE(array_agg(ur.role) FILTER (WHERE ur.role IS NOT NULL), '{}')
		FROM users u
		LEFT JOIN user_roles ur ON ur.user_id = u.id
		WHERE u.id = $1
		GROUP BY u.id`, id).
		Scan(&u.ID, &u.Email, &u.FullName, &u.IsActive, &u.CreatedAt, &roles)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, err
	}
	for _, raw := range roles {
		u.Roles = append(u.Roles, authz.Role(raw))
	}
	return u, nil
}

// Create inserts an account.
func (r *Repository) Create(ctx context.Context, email, fullName, passwordHash string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (email, full_name, password_hash, is_active, created_at)
		VALUES (lower($1), $2, $3, TRUE, NOW()) RETURNING id`,
		email, fullName, passwordHash).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, shared.ErrDuplicate
		}
		return 0, err
	}
	return id, nil
}

// SetActive flips the account's active flag.
func (r *Repository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET is_active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// GrantRole adds a coarse role to an account.
func (r *Repository) GrantRole(ctx context.Context, userID int64, role authz.Role) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_roles (user_id, role) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, userID, string(role))
	return err
}

// RevokeRole removes a coarse role from an account.
func (r *Repository) RevokeRole(ctx context.Context, userID int64, role authz.Role) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM user_roles WHERE user_id = $1 AND role = $2`, userID, string(role))
	return err
}
