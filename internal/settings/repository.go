package settings

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-sms/meridian-sms/internal/shared"
)

// Repository provides PostgreSQL backed persistence for settings.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Profile loads the school profile row.
func (r *Repository) Profile(ctx context.Context) (SchoolProfile, error) {
	var p SchoolProfile
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, motto, address, phone, email, logo_url, updated_at
		FROM school_profile ORDER BY id LIMIT 1`).
		Scan(&p.ID, &p.Name, &p.Motto, &p.Address, &p.Phone, &p.Email, &p.LogoURL, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SchoolProfile{}, shared.ErrNotFound
		}
		return SchoolProfile{}, err
	}
	return p, nil
}

// SaveProfile upserts the school profile row.
func (r *Repository) SaveProfile(ctx context.Context, p SchoolProfile) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO school_profile (id, name, motto, address, phone, email, logo_url, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, motto = EXCLUDED.motto, address = EXCLUDED.address,
			phone = EXCLUDED.phone, email = EXCLUDED.email, logo_url = EXCLUDED.logo_url,
			updated_at = NOW()`,
		p.Name, p.Motto, p.Address, p.Phone, p.Email, p.LogoURL)
	return err
}

// Terms lists terms newest session first.
func (r *Repository) Terms(ctx context.Context) ([]Term, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, session, name, start_date, end_date, status, created_at
		FROM academic_terms ORDER BY start_date DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Term
	for rows.Next() {
		var t Term
		if err := rows.Scan(&t.ID, &t.Session, &t.Name, &t.StartDate, &t.EndDate, &t.Status, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Term fetches one term.
func (r *Repository) Term(ctx context.Context, id int64) (Term, error) {
	var t Term
	err := r.pool.QueryRow(ctx, `
		SELECT id, session, name, start_date, end_date, status, created_at
		FROM academic_terms WHERE id = $1`, id).
		Scan(&t.ID, &t.Session, &t.Name, &t.StartDate, &t.EndDate, &t.Status, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Term{}, shared.ErrNotFound
		}
		return Term{}, err
	}
	return t, nil
}

// ActiveTerm fetches the currently active term.
func (r *Repository) ActiveTerm(ctx context.Context) (Term, error) {
	var t Term
	err := r.pool.QueryRow(ctx, `
		SELECT id, session, name, start_date, end_date, status, created_at
		FROM academic_terms WHERE status = $1 ORDER BY start_date DESC LIMIT 1`,
		shared.TermStatusActive).
		Scan(&t.ID, &t.Session, &t.Name, &t.StartDate, &t.EndDate, &t.Status, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Term{}, shared.ErrNotFound
		}
		return Term{}, err
	}
	return t, nil
}

// CreateTerm inserts a term in UPCOMING status.
func (r *Repository) CreateTerm(ctx context.Context, t Term) (Term, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO academic_terms (session, name, start_date, end_date, status, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW()) RETURNING id, created_at`,
		t.Session, t.Name, t.StartDate, t.EndDate, shared.TermStatusUpcoming).
		Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return Term{}, mapConstraint(err)
	}
	t.Status = shared.TermStatusUpcoming
	return t, nil
}

// SetTermStatus transitions a term. Activating a term archives the previous
// active one in the same transaction so at most one term is active.
func (r *Repository) SetTermStatus(ctx context.Context, id int64, status string) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if status == shared.TermStatusActive {
			if _, err := tx.Exec(ctx, `
				UPDATE academic_terms SET status = $1 WHERE status = $2 AND id <> $3`,
				shared.TermStatusArchived, shared.TermStatusActive, id); err != nil {
				return err
			}
		}
		tag, err := tx.Exec(ctx, `UPDATE academic_terms SET status = $2 WHERE id = $1`, id, status)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// Subjects lists the subject catalogue.
func (r *Repository) Subjects(ctx context.Context) ([]Subject, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, code FROM subjects ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Subject
	for rows.Next() {
		var s Subject
		if err := rows.Scan(&s.ID, &s.Name, &s.Code); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// CreateSubject inserts a subject.
func (r *Repository) CreateSubject(ctx context.Context, s Subject) (Subject, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO subjects (name, code) VALUES ($1, $2) RETURNING id`,
		s.Name, s.Code).Scan(&s.ID)
	if err != nil {
		return Subject{}, mapConstraint(err)
	}
	return s, nil
}

// DeleteSubject removes a subject. Subjects referenced by assessments or
// timetable slots are protected by foreign keys.
func (r *Repository) DeleteSubject(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM subjects WHERE id = $1`, id)
	if err != nil {
		return mapConstraint(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ErrSubjectInUse indicates a subject still referenced by assessments or
// timetable slots.
var ErrSubjectInUse = errors.New("subject is in use")

func mapConstraint(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return shared.ErrDuplicate
		case "23503":
			return ErrSubjectInUse
		}
	}
	return err
}
