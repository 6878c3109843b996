package gradebook

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-sms/meridian-sms/internal/shared"
)

// Repository provides PostgreSQL backed persistence for scores.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Sheet loads the score sheet for an assessment: every active student of
// the assessment's class with their score if graded.
func (r *Repository) Sheet(ctx context.Context, assessmentID int64) ([]SheetRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT s.id, s.admission_no, s.first_name || ' ' || s.last_name, sc.score
		FROM assessments a
		JOIN students s ON s.class_id = a.class_id AND s.is_active
		LEFT JOIN scores sc ON sc.assessment_id = a.id AND sc.student_id = s.id
		WHERE a.id = $1
		ORDER BY s.last_name, s.first_name`, assessmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SheetRow
	for rows.Next() {
		var row SheetRow
		if err := rows.Scan(&row.StudentID, &row.AdmissionNo, &row.FullName, &row.Score); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// SaveScores upserts a batch of scores in one transaction.
func (r *Repository) SaveScores(ctx context.Context, assessmentID, gradedBy int64, scores map[int64]float64) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		for studentID, score := range scores {
			_, err := tx.Exec(ctx, `
				INSERT INTO scores (assessment_id, student_id, score, graded_by, graded_at)
				VALUES ($1, $2, $3, $4, NOW())
				ON CONFLICT (assessment_id, student_id)
				DO UPDATE SET score = EXCLUDED.score, graded_by = EXCLUDED.graded_by, graded_at = NOW()`,
				assessmentID, studentID, score, gradedBy)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// MaxScore returns the maximum score of an assessment.
func (r *Repository) MaxScore(ctx context.Context, assessmentID int64) (int, error) {
	var max int
	err := r.pool.QueryRow(ctx, `SELECT max_score FROM assessments WHERE id = $1`, assessmentID).Scan(&max)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, shared.ErrNotFound
		}
		return 0, err
	}
	return max, nil
}

// TermResults aggregates a student's weighted standing per subject for a
// term, counting only graded assessments.
func (r *Repository) TermResults(ctx context.Context, studentID, termID int64) ([]ResultLine, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT sub.id, sub.name,
		       SUM(sc.score / a.max_score * a.weight),
		       SUM(a.weight)
		FROM scores sc
		JOIN assessments a ON a.id = sc.assessment_id
		JOIN subjects sub ON sub.id = a.subject_id
		WHERE sc.student_id = $1 AND a.term_id = $2
		GROUP BY sub.id, sub.name
		ORDER BY sub.name`, studentID, termID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ResultLine
	for rows.Next() {
		var line ResultLine
		if err := rows.Scan(&line.SubjectID, &line.SubjectName, &line.WeightedScore, &line.GradedWeight); err != nil {
			return nil, err
		}
		line.Grade = GradeFor(line.Percent())
		out = append(out, line)
	}
	return out, rows.Err()
}

// StudentForUser resolves the student record linked to a user account.
func (r *Repository) StudentForUser(ctx context.Context, userID int64) (int64, string, error) {
	var id int64
	var name string
	err := r.pool.QueryRow(ctx, `
		SELECT s.id, s.first_name || ' ' || s.last_name
		FROM students s
		WHERE s.user_id = $1 OR s.id IN (
			SELECT pg.student_id FROM parent_guardians pg WHERE pg.user_id = $1
		)
		ORDER BY s.id LIMIT 1`, userID).Scan(&id, &name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, "", shared.ErrNotFound
		}
		return 0, "", err
	}
	return id, name, nil
}
