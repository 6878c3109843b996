// Package classes manages class/section records and their form-teacher link.
package classes

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-sms/meridian-sms/internal/shared"
)

// Class is one class/section, e.g. "JSS 2B".
type Class struct {
	ID              int64
	Name            string
	Level           string
	FormTeacherID   *int64
	FormTeacherName *string
	StudentCount    int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type SaveClassRequest struct {
	Name          string `validate:"required,max=100"`
	Level         string `validate:"required,max=50"`
	FormTeacherID *int64 `validate:"omitempty,gt=0"`
}

// Repository provides PostgreSQL backed persistence for classes.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const classColumns = `
	c.id, c.name, c.level, c.form_teacher_id, st.first_name || ' ' || st.last_name,
	(SELECT COUNT(*) FROM students s WHERE s.class_id = c.id AND s.is_active),
	c.created_at, c.updated_at`

// List returns all classes ordered by level then name.
func (r *Repository) List(ctx context.Context) ([]Class, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+classColumns+`
		FROM classes c LEFT JOIN staff st ON st.id = c.form_teacher_id
		ORDER BY c.level, c.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Class
	for rows.Next() {
		var c Class
		if err := rows.Scan(&c.ID, &c.Name, &c.Level, &c.FormTeacherID, &c.FormTeacherName, &c.StudentCount, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Get fetches one class.
func (r *Repository) Get(ctx context.Context, id int64) (Class, error) {
	var c Class
	err := r.pool.QueryRow(ctx, `
		SELECT `+classColumns+`
		FROM classes c LEFT JOIN staff st ON st.id = c.form_teacher_id
		WHERE c.id = $1`, id).
		Scan(&c.ID, &c.Name, &c.Level, &c.FormTeacherID, &c.FormTeacherName, &c.StudentCount, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Class{}, shared.ErrNotFound
		}
		return Class{}, err
	}
	return c, nil
}

// Create inserts a class row.
func (r *Repository) Create(ctx context.Context, c Class) (Class, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO classes (name, level, form_teacher_id, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW()) RETURNING id, created_at, updated_at`,
		c.Name, c.Level, c.FormTeacherID).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Class{}, shared.ErrDuplicate
		}
		return Class{}, err
	}
	return c, nil
}

// Update rewrites a class row.
func (r *Repository) Update(ctx context.Context, c Class) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE classes SET name = $2, level = $3, form_teacher_id = $4, updated_at = NOW()
		WHERE id = $1`, c.ID, c.Name, c.Level, c.FormTeacherID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Service wraps class business rules.
type Service struct {
	repo     *Repository
	validate *validator.Validate
}

// NewService constructs a Service.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo, validate: validator.New()}
}

// List returns all classes.
func (s *Service) List(ctx context.Context) ([]Class, error) {
	return s.repo.List(ctx)
}

// Get fetches one class.
func (s *Service) Get(ctx context.Context, id int64) (Class, error) {
	return s.repo.Get(ctx, id)
}

// Create adds a class.
func (s *Service) Create(ctx context.Context, req SaveClassRequest) (Class, error) {
	if err := s.validate.Struct(req); err != nil {
		return Class{}, err
	}
	return s.repo.Create(ctx, Class{
		Name:          strings.TrimSpace(req.Name),
		Level:         strings.TrimSpace(req.Level),
		FormTeacherID: req.FormTeacherID,
	})
}

// Update edits a class.
func (s *Service) Update(ctx context.Context, id int64, req SaveClassRequest) (Class, error) {
	if err := s.validate.Struct(req); err != nil {
		return Class{}, err
	}
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Class{}, err
	}
	current.Name = strings.TrimSpace(req.Name)
	current.Level = strings.TrimSpace(req.Level)
	current.FormTeacherID = req.FormTeacherID
	if err := s.repo.Update(ctx, current); err != nil {
		return Class{}, err
	}
	return s.repo.Get(ctx, id)
}
