package students

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-sms/meridian-sms/internal/shared"
)

// Repository provides PostgreSQL backed persistence for students.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const studentColumns = `
	s.id, s.admission_no, s.first_name, s.last_name, s.class_id, c.name,
	s.guardian_name, s.guardian_phone, s.date_of_birth, s.gender,
	s.is_active, s.created_at, s.updated_at`

// List returns students matching the filter plus the unpaged total.
func (r *Repository) List(ctx context.Context, req ListStudentsRequest) ([]Student, int, error) {
	where := "WHERE 1=1"
	args := []any{}
	idx := 1
	if req.ClassID != nil {
		where += fmt.Sprintf(" AND s.class_id = $%d", idx)
		args = append(args, *req.ClassID)
		idx++
	}
	if req.IsActive != nil {
		where += fmt.Sprintf(" AND s.is_active = $%d", idx)
		args = append(args, *req.IsActive)
		idx++
	}
	if req.Search != nil && *req.Search != "" {
		where += fmt.Sprintf(" AND (s.first_name ILIKE $%d OR s.last_name ILIKE $%d OR s.admission_no ILIKE $%d)", idx, idx, idx)
		args = append(args, "%"+*req.Search+"%")
		idx++
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM students s " + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := "SELECT " + studentColumns + " FROM students s LEFT JOIN classes c ON c.id = s.class_id " + where +
		fmt.Sprintf(" ORDER BY s.last_name, s.first_name LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Student
	for rows.Next() {
		var s Student
		if err := rows.Scan(&s.ID, &s.AdmissionNo, &s.FirstName, &s.LastName, &s.ClassID, &s.ClassName,
			&s.GuardianName, &s.GuardianPhone, &s.DateOfBirth, &s.Gender,
			&s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Get fetches a single student by ID.
func (r *Repository) Get(ctx context.Context, id int64) (Student, error) {
	var s Student
	err := r.pool.QueryRow(ctx, "SELECT "+studentColumns+" FROM students s LEFT JOIN classes c ON c.id = s.class_id WHERE s.id = $1", id).
		Scan(&s.ID, &s.AdmissionNo, &s.FirstName, &s.LastName, &s.ClassID, &s.ClassName,
			&s.GuardianName, &s.GuardianPhone, &s.DateOfBirth, &s.Gender,
			&s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Student{}, shared.ErrNotFound
		}
		return Student{}, err
	}
	return s, nil
}

// Create inserts a new student row.
func (r *Repository) Create(ctx context.Context, s Student) (Student, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO students (admission_no, first_name, last_name, class_id, guardian_name, guardian_phone, date_of_birth, gender, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE, NOW(), NOW())
		RETURNING id, is_active, created_at, updated_at`,
		s.AdmissionNo, s.FirstName, s.LastName, s.ClassID, s.GuardianName, s.GuardianPhone, s.DateOfBirth, s.Gender).
		Scan(&s.ID, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return Student{}, mapConstraint(err)
	}
	return s, nil
}

// Update applies the non-nil fields and returns the fresh row.
func (r *Repository) Update(ctx context.Context, id int64, s Student) (Student, error) {
	_, err := r.pool.Exec(ctx, `
		UPDATE students
		SET first_name = $2, last_name = $3, class_id = $4, guardian_name = $5,
		    guardian_phone = $6, date_of_birth = $7, gender = $8, is_active = $9, updated_at = NOW()
		WHERE id = $1`,
		id, s.FirstName, s.LastName, s.ClassID, s.GuardianName, s.GuardianPhone, s.DateOfBirth, s.Gender, s.IsActive)
	if err != nil {
		return Student{}, mapConstraint(err)
	}
	return r.Get(ctx, id)
}

// mapConstraint converts unique violations into the shared duplicate error.
func mapConstraint(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return shared.ErrDuplicate
	}
	return err
}
