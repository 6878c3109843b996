// Package assessments manages the graded components of a term: exams,
// tests and assignments, each with a maximum score and a weight.
package assessments

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-sms/meridian-sms/internal/shared"
)

// Assessment is one graded component.
type Assessment struct {
	ID          int64
	TermID      int64
	ClassID     int64
	SubjectID   int64
	ClassName   string
	SubjectName string
	Title       string
	Kind        string
	MaxScore    int
	Weight      int
	HeldOn      *time.Time
	CreatedAt   time.Time
}

// SaveAssessmentRequest carries an assessment create or edit.
type SaveAssessmentRequest struct {
	TermID    int64  `validate:"required,gt=0"`
	ClassID   int64  `validate:"required,gt=0"`
	SubjectID int64  `validate:"required,gt=0"`
	Title     string `validate:"required,max=150"`
	Kind      string `validate:"required,oneof=exam test assignment"`
	MaxScore  int    `validate:"required,gt=0,lte=1000"`
	Weight    int    `validate:"required,gt=0,lte=100"`
	HeldOn    string `validate:"omitempty,datetime=2006-01-02"`
}

// Repository provides PostgreSQL backed persistence for assessments.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const assessmentColumns = `
	a.id, a.term_id, a.class_id, a.subject_id, c.name, s.name,
	a.title, a.kind, a.max_score, a.weight, a.held_on, a.created_at`

const assessmentJoins = `
	FROM assessments a
	JOIN classes c ON c.id = a.class_id
	JOIN subjects s ON s.id = a.subject_id`

// ListByTerm returns assessments for a term, optionally filtered by class.
func (r *Repository) ListByTerm(ctx context.Context, termID int64, classID int64) ([]Assessment, error) {
	query := `SELECT ` + assessmentColumns + assessmentJoins + ` WHERE a.term_id = $1`
	args := []any{termID}
	if classID != 0 {
		query += ` AND a.class_id = $2`
		args = append(args, classID)
	}
	query += ` ORDER BY c.name, s.name, a.held_on NULLS LAST`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAssessments(rows)
}

// Get fetches one assessment.
func (r *Repository) Get(ctx context.Context, id int64) (Assessment, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+assessmentColumns+assessmentJoins+` WHERE a.id = $1`, id)
	if err != nil {
		return Assessment{}, err
	}
	defer rows.Close()
	list, err := scanAssessments(rows)
	if err != nil {
		return Assessment{}, err
	}
	if len(list) == 0 {
		return Assessment{}, shared.ErrNotFound
	}
	return list[0], nil
}

// Create inserts an assessment.
func (r *Repository) Create(ctx context.Context, a Assessment) (Assessment, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO assessments (term_id, class_id, subject_id, title, kind, max_score, weight, held_on, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW()) RETURNING id, created_at`,
		a.TermID, a.ClassID, a.SubjectID, a.Title, a.Kind, a.MaxScore, a.Weight, a.HeldOn).
		Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return Assessment{}, mapConstraint(err)
	}
	return a, nil
}

// Update rewrites an assessment.
func (r *Repository) Update(ctx context.Context, a Assessment) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE assessments SET term_id = $2, class_id = $3, subject_id = $4,
		       title = $5, kind = $6, max_score = $7, weight = $8, held_on = $9
		WHERE id = $1`,
		a.ID, a.TermID, a.ClassID, a.SubjectID, a.Title, a.Kind, a.MaxScore, a.Weight, a.HeldOn)
	if err != nil {
		return mapConstraint(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes an assessment with no recorded scores.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM assessments WHERE id = $1`, id)
	if err != nil {
		return mapConstraint(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// TermWeight sums the weights already defined for a class and subject in a
// term, excluding one assessment when editing.
func (r *Repository) TermWeight(ctx context.Context, termID, classID, subjectID, excludeID int64) (int, error) {
	var total int
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(weight), 0) FROM assessments
		WHERE term_id = $1 AND class_id = $2 AND subject_id = $3 AND id <> $4`,
		termID, classID, subjectID, excludeID).Scan(&total)
	return total, err
}

func scanAssessments(rows pgx.Rows) ([]Assessment, error) {
	var out []Assessment
	for rows.Next() {
		var a Assessment
		if err := rows.Scan(&a.ID, &a.TermID, &a.ClassID, &a.SubjectID, &a.ClassName, &a.SubjectName,
			&a.Title, &a.Kind, &a.MaxScore, &a.Weight, &a.HeldOn, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ErrHasScores indicates an assessment that already has recorded scores.
var ErrHasScores = errors.New("assessment already has scores")

// ErrWeightExceeded indicates the weights for a class/subject/term would
// pass 100.
var ErrWeightExceeded = errors.New("combined assessment weight exceeds 100")

func mapConstraint(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return shared.ErrDuplicate
		case "23503":
			return ErrHasScores
		}
	}
	return err
}

// Service wraps assessment business rules.
type Service struct {
	repo     *Repository
	audit    *shared.AuditLogger
	validate *validator.Validate
}

// NewService constructs a Service.
func NewService(repo *Repository, audit *shared.AuditLogger) *Service {
	return &Service{repo: repo, audit: audit, validate: validator.New()}
}

// ListByTerm returns assessments for a term and optional class filter.
func (s *Service) ListByTerm(ctx context.Context, termID, classID int64) ([]Assessment, error) {
	return s.repo.ListByTerm(ctx, termID, classID)
}

// Get fetches one assessment.
func (s *Service) Get(ctx context.Context, id int64) (Assessment, error) {
	return s.repo.Get(ctx, id)
}

// Create validates weights and inserts an assessment.
func (s *Service) Create(ctx context.Context, req SaveAssessmentRequest, actorID int64) (Assessment, error) {
	a, err := s.prepare(ctx, req, 0)
	if err != nil {
		return Assessment{}, err
	}
	created, err := s.repo.Create(ctx, a)
	if err != nil {
		return Assessment{}, err
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID: actorID, Action: "assessment.create", Entity: "assessment",
		EntityID: strconv.FormatInt(created.ID, 10),
		Meta:     map[string]any{"title": created.Title, "term_id": created.TermID},
	})
	return created, nil
}

// Update validates weights and rewrites an assessment.
func (s *Service) Update(ctx context.Context, id int64, req SaveAssessmentRequest, actorID int64) error {
	a, err := s.prepare(ctx, req, id)
	if err != nil {
		return err
	}
	a.ID = id
	if err := s.repo.Update(ctx, a); err != nil {
		return err
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID: actorID, Action: "assessment.update", Entity: "assessment",
		EntityID: strconv.FormatInt(id, 10),
	})
	return nil
}

// Delete removes an assessment without scores.
func (s *Service) Delete(ctx context.Context, id int64, actorID int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID: actorID, Action: "assessment.delete", Entity: "assessment",
		EntityID: strconv.FormatInt(id, 10),
	})
	return nil
}

func (s *Service) prepare(ctx context.Context, req SaveAssessmentRequest, excludeID int64) (Assessment, error) {
	if err := s.validate.Struct(req); err != nil {
		return Assessment{}, err
	}
	existing, err := s.repo.TermWeight(ctx, req.TermID, req.ClassID, req.SubjectID, excludeID)
	if err != nil {
		return Assessment{}, err
	}
	if existing+req.Weight > 100 {
		return Assessment{}, ErrWeightExceeded
	}
	a := Assessment{
		TermID:    req.TermID,
		ClassID:   req.ClassID,
		SubjectID: req.SubjectID,
		Title:     strings.TrimSpace(req.Title),
		Kind:      req.Kind,
		MaxScore:  req.MaxScore,
		Weight:    req.Weight,
	}
	if req.HeldOn != "" {
		held, err := time.Parse("2006-01-02", req.HeldOn)
		if err == nil {
			a.HeldOn = &held
		}
	}
	return a, nil
}
