package invites

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-sms/meridian-sms/internal/platform/db"
	"github.com/meridian-sms/meridian-sms/internal/shared"
)

// Repository provides PostgreSQL backed persistence for invites.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns invites newest first.
func (r *Repository) List(ctx context.Context) ([]Invite, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, email, role, token, status, invited_by, expires_at, created_at
		FROM invites ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Invite
	for rows.Next() {
		var inv Invite
		if err := rows.Scan(&inv.ID, &inv.Email, &inv.Role, &inv.Token, &inv.Status, &inv.InvitedBy, &inv.ExpiresAt, &inv.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// Create inserts a pending invite. Only one pending invite may exist per
// email; the partial unique index backs that.
func (r *Repository) Create(ctx context.Context, inv Invite) (Invite, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO invites (email, role, token, status, invited_by, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW()) RETURNING id, created_at`,
		inv.Email, inv.Role, inv.Token, StatusPending, inv.InvitedBy, inv.ExpiresAt).
		Scan(&inv.ID, &inv.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Invite{}, shared.ErrDuplicate
		}
		return Invite{}, err
	}
	inv.Status = StatusPending
	return inv, nil
}

// FindByToken fetches an invite by its token.
func (r *Repository) FindByToken(ctx context.Context, token string) (Invite, error) {
	var inv Invite
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, role, token, status, invited_by, expires_at, created_at
		FROM invites WHERE token = $1`, token).
		Scan(&inv.ID, &inv.Email, &inv.Role, &inv.Token, &inv.Status, &inv.InvitedBy, &inv.ExpiresAt, &inv.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invite{}, shared.ErrNotFound
		}
		return Invite{}, err
	}
	return inv, nil
}

// Revoke marks a pending invite revoked.
func (r *Repository) Revoke(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE invites SET status = $2 WHERE id = $1 AND status = $3`,
		id, StatusRevoked, StatusPending)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Accept creates the user account, grants the invited role and marks the
// invite accepted, all in one transaction. Repeatable read keeps the
// pending-status check and the user insert consistent under races.
func (r *Repository) Accept(ctx context.Context, inv Invite, fullName, passwordHash string) (int64, error) {
	var userID int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO users (email, full_name, password_hash, is_active, created_at)
			VALUES (lower($1), $2, $3, TRUE, NOW()) RETURNING id`,
			inv.Email, fullName, passwordHash).Scan(&userID)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return shared.ErrDuplicate
			}
			return err
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO user_roles (user_id, role) VALUES ($1, $2)
			ON CONFLICT DO NOTHING`, userID, inv.Role); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `
			UPDATE invites SET status = $2 WHERE id = $1 AND status = $3`,
			inv.ID, StatusAccepted, StatusPending)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return userID, nil
}
