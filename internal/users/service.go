package users

import (
	"context"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-sms/meridian-sms/internal/authz"
	"github.com/meridian-sms/meridian-sms/internal/shared"
)

// CreateUserRequest carries a new account.
type CreateUserRequest struct {
	Email    string `validate:"required,email"`
	FullName string `validate:"required,max=200"`
	Password string `validate:"required,min=8,max=72"`
	Role     string `validate:"required"`
}

// Service wraps account management. Role changes invalidate the permission
// snapshot so guards pick them up on the next request.
type Service struct {
	repo      *Repository
	snapshots *authz.SnapshotCache
	audit     *shared.AuditLogger
	validate  *validator.Validate
}

// NewService constructs a Service.
func NewService(repo *Repository, snapshots *authz.SnapshotCache, audit *shared.AuditLogger) *Service {
	return &Service{repo: repo, snapshots: snapshots, audit: audit, validate: validator.New()}
}

// List returns all accounts.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// Get fetches one account.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	return s.repo.Get(ctx, id)
}

// Create adds an account with one initial role.
func (s *Service) Create(ctx context.Context, req CreateUserRequest, actorID int64) (int64, error) {
	if err := s.validate.Struct(req); err != nil {
		return 0, err
	}
	role, err := authz.ParseRole(req.Role)
	if err != nil {
		return 0, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return 0, err
	}
	id, err := s.repo.Create(ctx, strings.TrimSpace(req.Email), strings.TrimSpace(req.FullName), string(hash))
	if err != nil {
		return 0, err
	}
	if err := s.repo.GrantRole(ctx, id, role); err != nil {
		return 0, err
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID: actorID, Action: "user.create", Entity: "user",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     map[string]any{"role": string(role)},
	})
	return id, nil
}

// SetActive enables or disables an account.
func (s *Service) SetActive(ctx context.Context, id int64, active bool, actorID int64) error {
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return err
	}
	s.snapshots.Invalidate(id)
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID: actorID, Action: "user.set_active", Entity: "user",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     map[string]any{"active": active},
	})
	return nil
}

// GrantRole adds a role to an account.
func (s *Service) GrantRole(ctx context.Context, userID int64, rawRole string, actorID int64) error {
	role, err := authz.ParseRole(rawRole)
	if err != nil {
		return err
	}
	if err := s.repo.GrantRole(ctx, userID, role); err != nil {
		return err
	}
	s.snapshots.Invalidate(userID)
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID: actorID, Action: "user.role.grant", Entity: "user",
		EntityID: strconv.FormatInt(userID, 10),
		Meta:     map[string]any{"role": string(role)},
	})
	return nil
}

// RevokeRole removes a role from an account.
func (s *Service) RevokeRole(ctx context.Context, userID int64, rawRole string, actorID int64) error {
	role, err := authz.ParseRole(rawRole)
	if err != nil {
		return err
	}
	if err := s.repo.RevokeRole(ctx, userID, role); err != nil {
		return err
	}
	s.snapshots.Invalidate(userID)
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID: actorID, Action: "user.role.revoke", Entity: "user",
		EntityID: strconv.FormatInt(userID, 10),
		Meta:     map[string]any{"role": string(role)},
	})
	return nil
}
