package staff

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-sms/meridian-sms/internal/shared"
)

// Repository provides PostgreSQL backed persistence for staff.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns all staff members ordered by name, roles included.
func (r *Repository) List(ctx context.Context) ([]Member, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, staff_no, first_name, last_name, email, phone, is_active, created_at, updated_at
		FROM staff ORDER BY last_name, first_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var members []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.ID, &m.UserID, &m.StaffNo, &m.FirstName, &m.LastName, &m.Email, &m.Phone, &m.IsActive, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range members {
		roles, err := r.rolesFor(ctx, members[i].ID)
		if err != nil {
			return nil, err
		}
		members[i].StaffRoles = roles
	}
	return members, nil
}

// Get fetches one staff member with their named roles.
func (r *Repository) Get(ctx context.Context, id int64) (Member, error) {
	var m Member
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, staff_no, first_name, last_name, email, phone, is_active, created_at, updated_at
		FROM staff WHERE id = $1`, id).
		Scan(&m.ID, &m.UserID, &m.StaffNo, &m.FirstName, &m.LastName, &m.Email, &m.Phone, &m.IsActive, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Member{}, shared.ErrNotFound
		}
		return Member{}, err
	}
	roles, err := r.rolesFor(ctx, m.ID)
	if err != nil {
		return Member{}, err
	}
	m.StaffRoles = roles
	return m, nil
}

// Create inserts a staff row.
func (r *Repository) Create(ctx context.Context, m Member) (Member, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO staff (user_id, staff_no, first_name, last_name, email, phone, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE, NOW(), NOW())
		RETURNING id, is_active, created_at, updated_at`,
		m.UserID, m.StaffNo, m.FirstName, m.LastName, m.Email, m.Phone).
		Scan(&m.ID, &m.IsActive, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return Member{}, mapConstraint(err)
	}
	return m, nil
}

// Update rewrites the editable fields.
func (r *Repository) Update(ctx context.Context, m Member) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE staff SET first_name = $2, last_name = $3, email = $4, phone = $5, is_active = $6, updated_at = NOW()
		WHERE id = $1`,
		m.ID, m.FirstName, m.LastName, m.Email, m.Phone, m.IsActive)
	if err != nil {
		return mapConstraint(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListRoles returns every named staff role.
func (r *Repository) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM staff_roles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// AssignRole attaches a named role to a staff member.
func (r *Repository) AssignRole(ctx context.Context, staffID, roleID int64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO staff_role_assignments (staff_id, staff_role_id, created_at)
		VALUES ($1, $2, NOW()) ON CONFLICT DO NOTHING`, staffID, roleID)
	return err
}

// RemoveRole detaches a named role from a staff member.
func (r *Repository) RemoveRole(ctx context.Context, staffID, roleID int64) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM staff_role_assignments WHERE staff_id = $1 AND staff_role_id = $2`, staffID, roleID)
	return err
}

func (r *Repository) rolesFor(ctx context.Context, staffID int64) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT sr.id, sr.name
		FROM staff_roles sr
		JOIN staff_role_assignments a ON a.staff_role_id = sr.id
		WHERE a.staff_id = $1 ORDER BY sr.name`, staffID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func mapConstraint(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return shared.ErrDuplicate
	}
	return err
}
