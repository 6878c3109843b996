package staff

import (
	"context"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/meridian-sms/meridian-sms/internal/shared"
)

type CreateStaffRequest struct {
	StaffNo   string  `validate:"required,max=30"`
	FirstName string  `validate:"required,max=100"`
	LastName  string  `validate:"required,max=100"`
	Email     string  `validate:"required,email"`
	Phone     *string `validate:"omitempty,max=50"`
	UserID    *int64  `validate:"omitempty,gt=0"`
}

type UpdateStaffRequest struct {
	FirstName *string `validate:"omitempty,max=100"`
	LastName  *string `validate:"omitempty,max=100"`
	Email     *string `validate:"omitempty,email"`
	Phone     *string `validate:"omitempty,max=50"`
	IsActive  *bool
}

// Service wraps staff business rules.
type Service struct {
	repo     *Repository
	audit    *shared.AuditLogger
	validate *validator.Validate
}

// NewService constructs a Service.
func NewService(repo *Repository, audit *shared.AuditLogger) *Service {
	return &Service{repo: repo, audit: audit, validate: validator.New()}
}

// List returns all staff members.
func (s *Service) List(ctx context.Context) ([]Member, error) {
	return s.repo.List(ctx)
}

// Get fetches a staff member by ID.
func (s *Service) Get(ctx context.Context, id int64) (Member, error) {
	return s.repo.Get(ctx, id)
}

// Create registers a staff member.
func (s *Service) Create(ctx context.Context, req CreateStaffRequest, actorID int64) (Member, error) {
	if err := s.validate.Struct(req); err != nil {
		return Member{}, err
	}
	member, err := s.repo.Create(ctx, Member{
		UserID:    req.UserID,
		StaffNo:   strings.TrimSpace(req.StaffNo),
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Email:     strings.TrimSpace(req.Email),
		Phone:     req.Phone,
	})
	if err != nil {
		return Member{}, err
	}
	s.recordAudit(ctx, actorID, "staff.create", member.ID)
	return member, nil
}

// Update edits a staff member.
func (s *Service) Update(ctx context.Context, id int64, req UpdateStaffRequest, actorID int64) (Member, error) {
	if err := s.validate.Struct(req); err != nil {
		return Member{}, err
	}
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Member{}, err
	}
	if req.FirstName != nil {
		current.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		current.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Email != nil {
		current.Email = strings.TrimSpace(*req.Email)
	}
	if req.Phone != nil {
		current.Phone = req.Phone
	}
	if req.IsActive != nil {
		current.IsActive = *req.IsActive
	}
	if err := s.repo.Update(ctx, current); err != nil {
		return Member{}, err
	}
	s.recordAudit(ctx, actorID, "staff.update", id)
	return s.repo.Get(ctx, id)
}

// ListRoles returns the named staff roles.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// AssignRole attaches a named staff role. Staff-role membership always hangs
// off a staff record, never directly off a user account.
func (s *Service) AssignRole(ctx context.Context, staffID, roleID, actorID int64) error {
	if _, err := s.repo.Get(ctx, staffID); err != nil {
		return err
	}
	if err := s.repo.AssignRole(ctx, staffID, roleID); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "staff.role.assign", staffID)
	return nil
}

// RemoveRole detaches a named staff role.
func (s *Service) RemoveRole(ctx context.Context, staffID, roleID, actorID int64) error {
	if err := s.repo.RemoveRole(ctx, staffID, roleID); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "staff.role.remove", staffID)
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, staffID int64) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "staff",
		EntityID: strconv.FormatInt(staffID, 10),
	})
}
