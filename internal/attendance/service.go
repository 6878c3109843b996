package attendance

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"

	"github.com/meridian-sms/meridian-sms/internal/shared"
)

// ErrRegisterLocked indicates another submission for the same class and day
// is in flight.
var ErrRegisterLocked = errors.New("register is being saved by someone else")

const registerLockTTL = 30 * time.Second

// Store is the persistence surface the service needs.
type Store interface {
	Register(ctx context.Context, classID int64, date time.Time) ([]RegisterRow, error)
	SaveRegister(ctx context.Context, classID int64, date time.Time, recordedBy int64, entries []Record) error
	StudentSummary(ctx context.Context, studentID int64, from, to time.Time) (Summary, error)
	StudentHistory(ctx context.Context, studentID int64, limit int) ([]Record, error)
}

// Service wraps attendance business rules.
type Service struct {
	repo        Store
	redis       *redis.Client
	idempotency *shared.IdempotencyStore
	audit       *shared.AuditLogger
	validate    *validator.Validate
}

// NewService constructs a Service.
func NewService(repo Store, rdb *redis.Client, idem *shared.IdempotencyStore, audit *shared.AuditLogger) *Service {
	return &Service{repo: repo, redis: rdb, idempotency: idem, audit: audit, validate: validator.New()}
}

// Register loads the register for a class and day.
func (s *Service) Register(ctx context.Context, classID int64, date time.Time) ([]RegisterRow, error) {
	return s.repo.Register(ctx, classID, date)
}

// RecordRegister validates and persists a full register submission. A short
// redis lock serialises concurrent submissions for the same class and day,
// and an optional idempotency key absorbs double-posted forms.
func (s *Service) RecordRegister(ctx context.Context, req RecordRegisterRequest, recordedBy int64) error {
	if err := s.validate.Struct(req); err != nil {
		return err
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return fmt.Errorf("parse register date: %w", err)
	}

	lockKey := shared.AttendanceLockKey(req.ClassID, req.Date)
	ok, err := s.redis.SetNX(ctx, lockKey, recordedBy, registerLockTTL).Result()
	if err != nil {
		return fmt.Errorf("acquire register lock: %w", err)
	}
	if !ok {
		return ErrRegisterLocked
	}
	defer s.redis.Del(context.WithoutCancel(ctx), lockKey)

	if req.IdempotencyKey != "" {
		if err := s.idempotency.CheckAndInsert(ctx, req.IdempotencyKey, "attendance"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return nil
			}
			return err
		}
	}

	records := make([]Record, 0, len(req.Entries))
	for _, e := range req.Entries {
		rec := Record{StudentID: e.StudentID, Status: Status(e.Status)}
		if e.Note != "" {
			note := e.Note
			rec.Note = &note
		}
		records = append(records, rec)
	}
	if err := s.repo.SaveRegister(ctx, req.ClassID, date, recordedBy, records); err != nil {
		if req.IdempotencyKey != "" {
			_ = s.idempotency.Delete(context.WithoutCancel(ctx), req.IdempotencyKey)
		}
		return err
	}

	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  recordedBy,
		Action:   "attendance.record",
		Entity:   "class",
		EntityID: strconv.FormatInt(req.ClassID, 10),
		Meta:     map[string]any{"date": req.Date, "entries": len(records)},
	})
	return nil
}

// StudentSummary aggregates a student's attendance between from and to.
func (s *Service) StudentSummary(ctx context.Context, studentID int64, from, to time.Time) (Summary, error) {
	return s.repo.StudentSummary(ctx, studentID, from, to)
}

// StudentHistory returns a student's recent records.
func (s *Service) StudentHistory(ctx context.Context, studentID int64, limit int) ([]Record, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.StudentHistory(ctx, studentID, limit)
}
