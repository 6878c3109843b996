package students

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/meridian-sms/meridian-sms/internal/shared"
)

// Service wraps student business rules.
type Service struct {
	repo     *Repository
	audit    *shared.AuditLogger
	validate *validator.Validate
}

// NewService constructs a Service.
func NewService(repo *Repository, audit *shared.AuditLogger) *Service {
	return &Service{repo: repo, audit: audit, validate: validator.New()}
}

// List returns students matching the filter.
func (s *Service) List(ctx context.Context, req ListStudentsRequest) ([]Student, int, error) {
	if req.Limit <= 0 {
		req.Limit = 50
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, req)
}

// Get fetches a student by ID.
func (s *Service) Get(ctx context.Context, id int64) (Student, error) {
	return s.repo.Get(ctx, id)
}

// Create enrolls a new student.
func (s *Service) Create(ctx context.Context, req CreateStudentRequest, actorID int64) (Student, error) {
	if err := s.validate.Struct(req); err != nil {
		return Student{}, err
	}
	student := Student{
		AdmissionNo:   strings.TrimSpace(req.AdmissionNo),
		FirstName:     strings.TrimSpace(req.FirstName),
		LastName:      strings.TrimSpace(req.LastName),
		ClassID:       req.ClassID,
		GuardianName:  req.GuardianName,
		GuardianPhone: req.GuardianPhone,
		Gender:        req.Gender,
	}
	if req.DateOfBirth != nil {
		dob, err := time.Parse("2006-01-02", *req.DateOfBirth)
		if err != nil {
			return Student{}, err
		}
		student.DateOfBirth = &dob
	}
	created, err := s.repo.Create(ctx, student)
	if err != nil {
		return Student{}, err
	}
	s.recordAudit(ctx, actorID, "student.create", created.ID)
	return created, nil
}

// Update edits an existing student.
func (s *Service) Update(ctx context.Context, id int64, req UpdateStudentRequest, actorID int64) (Student, error) {
	if err := s.validate.Struct(req); err != nil {
		return Student{}, err
	}
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Student{}, err
	}
	if req.FirstName != nil {
		current.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		current.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.ClassID != nil {
		current.ClassID = req.ClassID
	}
	if req.GuardianName != nil {
		current.GuardianName = req.GuardianName
	}
	if req.GuardianPhone != nil {
		current.GuardianPhone = req.GuardianPhone
	}
	if req.DateOfBirth != nil {
		dob, err := time.Parse("2006-01-02", *req.DateOfBirth)
		if err != nil {
			return Student{}, err
		}
		current.DateOfBirth = &dob
	}
	if req.Gender != nil {
		current.Gender = req.Gender
	}
	if req.IsActive != nil {
		current.IsActive = *req.IsActive
	}
	updated, err := s.repo.Update(ctx, id, current)
	if err != nil {
		return Student{}, err
	}
	s.recordAudit(ctx, actorID, "student.update", id)
	return updated, nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, studentID int64) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "student",
		EntityID: strconv.FormatInt(studentID, 10),
	})
}
