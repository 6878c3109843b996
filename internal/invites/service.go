package invites

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-sms/meridian-sms/internal/authz"
	"github.com/meridian-sms/meridian-sms/internal/shared"
	"github.com/meridian-sms/meridian-sms/jobs"
)

// ErrInviteUnusable indicates an expired, revoked or already accepted token.
var ErrInviteUnusable = errors.New("invite is no longer usable")

// Mailer is the outbound email surface the service needs.
type Mailer interface {
	EnqueueSendEmail(ctx context.Context, payload jobs.SendEmailPayload) error
}

// CreateInviteRequest carries a new invite.
type CreateInviteRequest struct {
	Email string `validate:"required,email"`
	Role  string `validate:"required"`
}

// AcceptInviteRequest carries the acceptance form.
type AcceptInviteRequest struct {
	Token    string `validate:"required"`
	FullName string `validate:"required,max=200"`
	Password string `validate:"required,min=8,max=72"`
}

// Service wraps invite business rules.
type Service struct {
	repo     *Repository
	mailer   Mailer
	baseURL  string
	audit    *shared.AuditLogger
	validate *validator.Validate
	now      func() time.Time
}

// NewService constructs a Service. baseURL is the externally reachable
// origin used in invite links.
func NewService(repo *Repository, mailer Mailer, baseURL string, audit *shared.AuditLogger) *Service {
	return &Service{
		repo:     repo,
		mailer:   mailer,
		baseURL:  strings.TrimRight(baseURL, "/"),
		audit:    audit,
		validate: validator.New(),
		now:      time.Now,
	}
}

// List returns all invites.
func (s *Service) List(ctx context.Context) ([]Invite, error) {
	return s.repo.List(ctx)
}

// Create validates the role, stores a pending invite and enqueues the
// invitation email.
func (s *Service) Create(ctx context.Context, req CreateInviteRequest, invitedBy int64) (Invite, error) {
	if err := s.validate.Struct(req); err != nil {
		return Invite{}, err
	}
	role, err := authz.ParseRole(req.Role)
	if err != nil {
		return Invite{}, err
	}
	inv, err := s.repo.Create(ctx, Invite{
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		Role:      string(role),
		Token:     uuid.NewString(),
		InvitedBy: invitedBy,
		ExpiresAt: s.now().Add(InviteTTL),
	})
	if err != nil {
		return Invite{}, err
	}

	link := s.baseURL + "/invites/accept?token=" + inv.Token
	if err := s.mailer.EnqueueSendEmail(ctx, jobs.SendEmailPayload{
		To:      inv.Email,
		Subject: "You have been invited to Meridian",
		Body: fmt.Sprintf("You have been invited to join as %s.\n\nAccept your invite: %s\n\nThe link expires in 7 days.",
			inv.Role, link),
	}); err != nil {
		// The invite row stands; the admin can resend from the list.
		return inv, fmt.Errorf("enqueue invite email: %w", err)
	}

	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID: invitedBy, Action: "invite.create", Entity: "invite",
		EntityID: strconv.FormatInt(inv.ID, 10),
		Meta:     map[string]any{"email": inv.Email, "role": inv.Role},
	})
	return inv, nil
}

// Lookup fetches an invite by token and checks it is still usable.
func (s *Service) Lookup(ctx context.Context, token string) (Invite, error) {
	inv, err := s.repo.FindByToken(ctx, token)
	if err != nil {
		return Invite{}, err
	}
	if !inv.Usable(s.now()) {
		return Invite{}, ErrInviteUnusable
	}
	return inv, nil
}

// Accept turns a usable invite into an active account with the invited role.
func (s *Service) Accept(ctx context.Context, req AcceptInviteRequest) (int64, error) {
	if err := s.validate.Struct(req); err != nil {
		return 0, err
	}
	inv, err := s.Lookup(ctx, req.Token)
	if err != nil {
		return 0, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return 0, err
	}
	userID, err := s.repo.Accept(ctx, inv, strings.TrimSpace(req.FullName), string(hash))
	if err != nil {
		return 0, err
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID: userID, Action: "invite.accept", Entity: "invite",
		EntityID: strconv.FormatInt(inv.ID, 10),
	})
	return userID, nil
}

// Revoke withdraws a pending invite.
func (s *Service) Revoke(ctx context.Context, id int64, actorID int64) error {
	if err := s.repo.Revoke(ctx, id); err != nil {
		return err
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID: actorID, Action: "invite.revoke", Entity: "invite",
		EntityID: strconv.FormatInt(id, 10),
	})
	return nil
}
