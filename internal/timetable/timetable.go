// Package timetable manages the weekly lesson grid per class.
package timetable

import (
	"context"
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-sms/meridian-sms/internal/shared"
)

// Days in teaching order. Day numbers are 1-based Monday..Friday.
var Days = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}

// PeriodsPerDay is the number of teaching periods in a school day.
const PeriodsPerDay = 8

// Slot is one lesson in the weekly grid.
type Slot struct {
	ID          int64
	ClassID     int64
	Day         int
	Period      int
	SubjectID   int64
	SubjectName string
	TeacherID   int64
	TeacherName string
}

// DayName returns the weekday label for a slot.
func (s Slot) DayName() string {
	if s.Day < 1 || s.Day > len(Days) {
		return ""
	}
	return Days[s.Day-1]
}

// CreateSlotRequest carries a new lesson.
type CreateSlotRequest struct {
	ClassID   int64 `validate:"required,gt=0"`
	Day       int   `validate:"required,gte=1,lte=5"`
	Period    int   `validate:"required,gte=1,lte=8"`
	SubjectID int64 `validate:"required,gt=0"`
	TeacherID int64 `validate:"required,gt=0"`
}

// ErrSlotTaken indicates the class already has a lesson in that period.
var ErrSlotTaken = errors.New("class already has a lesson in that period")

// ErrTeacherBusy indicates the teacher is already booked elsewhere.
var ErrTeacherBusy = errors.New("teacher is already booked in that period")

// Repository provides PostgreSQL backed persistence for timetable slots.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ClassWeek loads a class's slots ordered for grid rendering.
func (r *Repository) ClassWeek(ctx context.Context, classID int64) ([]Slot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT t.id, t.class_id, t.day, t.period, t.subject_id, sub.name,
		       t.teacher_id, st.first_name || ' ' || st.last_name
		FROM timetable_slots t
		JOIN subjects sub ON sub.id = t.subject_id
		JOIN staff st ON st.id = t.teacher_id
		WHERE t.class_id = $1
		ORDER BY t.day, t.period`, classID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Slot
	for rows.Next() {
		var s Slot
		if err := rows.Scan(&s.ID, &s.ClassID, &s.Day, &s.Period, &s.SubjectID, &s.SubjectName, &s.TeacherID, &s.TeacherName); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// TeacherWeek loads a teacher's slots across all classes.
func (r *Repository) TeacherWeek(ctx context.Context, teacherID int64) ([]Slot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT t.id, t.class_id, t.day, t.period, t.subject_id, sub.name,
		       t.teacher_id, c.name
		FROM timetable_slots t
		JOIN subjects sub ON sub.id = t.subject_id
		JOIN classes c ON c.id = t.class_id
		WHERE t.teacher_id = $1
		ORDER BY t.day, t.period`, teacherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Slot
	for rows.Next() {
		var s Slot
		// TeacherName carries the class label on this projection.
		if err := rows.Scan(&s.ID, &s.ClassID, &s.Day, &s.Period, &s.SubjectID, &s.SubjectName, &s.TeacherID, &s.TeacherName); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// TeacherBusy reports whether a teacher already teaches in the given period.
func (r *Repository) TeacherBusy(ctx context.Context, teacherID int64, day, period int) (bool, error) {
	var busy bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM timetable_slots
			WHERE teacher_id = $1 AND day = $2 AND period = $3
		)`, teacherID, day, period).Scan(&busy)
	return busy, err
}

// CreateSlot inserts a lesson. The unique index on (class_id, day, period)
// backs the slot-taken check.
func (r *Repository) CreateSlot(ctx context.Context, s Slot) (Slot, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO timetable_slots (class_id, day, period, subject_id, teacher_id)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		s.ClassID, s.Day, s.Period, s.SubjectID, s.TeacherID).Scan(&s.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Slot{}, ErrSlotTaken
		}
		return Slot{}, err
	}
	return s, nil
}

// DeleteSlot removes a lesson.
func (r *Repository) DeleteSlot(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM timetable_slots WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Service wraps timetable business rules.
type Service struct {
	repo     *Repository
	audit    *shared.AuditLogger
	validate *validator.Validate
}

// NewService constructs a Service.
func NewService(repo *Repository, audit *shared.AuditLogger) *Service {
	return &Service{repo: repo, audit: audit, validate: validator.New()}
}

// ClassWeek loads a class's weekly grid.
func (s *Service) ClassWeek(ctx context.Context, classID int64) ([]Slot, error) {
	return s.repo.ClassWeek(ctx, classID)
}

// TeacherWeek loads a teacher's weekly grid.
func (s *Service) TeacherWeek(ctx context.Context, teacherID int64) ([]Slot, error) {
	return s.repo.TeacherWeek(ctx, teacherID)
}

// CreateSlot validates, checks clashes and inserts a lesson.
func (s *Service) CreateSlot(ctx context.Context, req CreateSlotRequest, actorID int64) (Slot, error) {
	if err := s.validate.Struct(req); err != nil {
		return Slot{}, err
	}
	busy, err := s.repo.TeacherBusy(ctx, req.TeacherID, req.Day, req.Period)
	if err != nil {
		return Slot{}, err
	}
	if busy {
		return Slot{}, ErrTeacherBusy
	}
	slot, err := s.repo.CreateSlot(ctx, Slot{
		ClassID:   req.ClassID,
		Day:       req.Day,
		Period:    req.Period,
		SubjectID: req.SubjectID,
		TeacherID: req.TeacherID,
	})
	if err != nil {
		return Slot{}, err
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID: actorID, Action: "timetable.slot.create", Entity: "timetable_slot",
		EntityID: strconv.FormatInt(slot.ID, 10),
		Meta:     map[string]any{"class_id": slot.ClassID, "day": slot.Day, "period": slot.Period},
	})
	return slot, nil
}

// DeleteSlot removes a lesson.
func (s *Service) DeleteSlot(ctx context.Context, id int64, actorID int64) error {
	if err := s.repo.DeleteSlot(ctx, id); err != nil {
		return err
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID: actorID, Action: "timetable.slot.delete", Entity: "timetable_slot",
		EntityID: strconv.FormatInt(id, 10),
	})
	return nil
}
