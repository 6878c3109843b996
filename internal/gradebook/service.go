package gradebook

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/meridian-sms/meridian-sms/internal/shared"
)

// ErrScoreOutOfRange indicates a score beyond the assessment maximum.
var ErrScoreOutOfRange = errors.New("score exceeds the assessment maximum")

// Service wraps gradebook business rules.
type Service struct {
	repo  *Repository
	audit *shared.AuditLogger
}

// NewService constructs a Service.
func NewService(repo *Repository, audit *shared.AuditLogger) *Service {
	return &Service{repo: repo, audit: audit}
}

// Sheet loads the score sheet for an assessment.
func (s *Service) Sheet(ctx context.Context, assessmentID int64) ([]SheetRow, error) {
	return s.repo.Sheet(ctx, assessmentID)
}

// RecordScores validates each score against the assessment maximum and
// persists the batch.
func (s *Service) RecordScores(ctx context.Context, assessmentID int64, scores map[int64]float64, gradedBy int64) error {
	if len(scores) == 0 {
		return fmt.Errorf("no scores submitted")
	}
	max, err := s.repo.MaxScore(ctx, assessmentID)
	if err != nil {
		return err
	}
	for studentID, score := range scores {
		if score < 0 || score > float64(max) {
			return fmt.Errorf("%w: student %d scored %.1f of %d", ErrScoreOutOfRange, studentID, score, max)
		}
	}
	if err := s.repo.SaveScores(ctx, assessmentID, gradedBy, scores); err != nil {
		return err
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  gradedBy,
		Action:   "gradebook.record",
		Entity:   "assessment",
		EntityID: strconv.FormatInt(assessmentID, 10),
		Meta:     map[string]any{"scores": len(scores)},
	})
	return nil
}

// TermResults aggregates a student's results for a term.
func (s *Service) TermResults(ctx context.Context, studentID, termID int64) ([]ResultLine, error) {
	return s.repo.TermResults(ctx, studentID, termID)
}

// StudentForUser resolves which student an account may view results for,
// covering both student logins and parent logins.
func (s *Service) StudentForUser(ctx context.Context, userID int64) (int64, string, error) {
	return s.repo.StudentForUser(ctx, userID)
}
