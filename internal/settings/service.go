package settings

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/meridian-sms/meridian-sms/internal/shared"
)

// SaveProfileRequest carries a school profile edit.
type SaveProfileRequest struct {
	Name    string `validate:"required,max=200"`
	Motto   string `validate:"max=200"`
	Address string `validate:"max=500"`
	Phone   string `validate:"max=30"`
	Email   string `validate:"omitempty,email"`
	LogoURL string `validate:"omitempty,url"`
}

// CreateTermRequest carries a new academic term.
type CreateTermRequest struct {
	Session   string `validate:"required,max=20"`
	Name      string `validate:"required,max=50"`
	StartDate string `validate:"required,datetime=2006-01-02"`
	EndDate   string `validate:"required,datetime=2006-01-02"`
}

// Service wraps settings business rules.
type Service struct {
	repo     *Repository
	audit    *shared.AuditLogger
	validate *validator.Validate
}

// NewService constructs a Service.
func NewService(repo *Repository, audit *shared.AuditLogger) *Service {
	return &Service{repo: repo, audit: audit, validate: validator.New()}
}

// Profile loads the school profile. A missing row yields an empty profile so
// the settings page works on a fresh install.
func (s *Service) Profile(ctx context.Context) (SchoolProfile, error) {
	p, err := s.repo.Profile(ctx)
	if errors.Is(err, shared.ErrNotFound) {
		return SchoolProfile{Name: ""}, nil
	}
	return p, err
}

// SaveProfile validates and writes the school profile.
func (s *Service) SaveProfile(ctx context.Context, req SaveProfileRequest, actorID int64) error {
	if err := s.validate.Struct(req); err != nil {
		return err
	}
	p := SchoolProfile{Name: strings.TrimSpace(req.Name)}
	setOptional(&p.Motto, req.Motto)
	setOptional(&p.Address, req.Address)
	setOptional(&p.Phone, req.Phone)
	setOptional(&p.Email, req.Email)
	setOptional(&p.LogoURL, req.LogoURL)
	if err := s.repo.SaveProfile(ctx, p); err != nil {
		return err
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID: actorID, Action: "settings.profile.save", Entity: "school_profile", EntityID: "1",
	})
	return nil
}

// Terms lists all terms.
func (s *Service) Terms(ctx context.Context) ([]Term, error) {
	return s.repo.Terms(ctx)
}

// Term fetches one term.
func (s *Service) Term(ctx context.Context, id int64) (Term, error) {
	return s.repo.Term(ctx, id)
}

// ActiveTerm returns the active term, or shared.ErrNotFound when none is set.
func (s *Service) ActiveTerm(ctx context.Context) (Term, error) {
	return s.repo.ActiveTerm(ctx)
}

// CreateTerm validates dates and inserts an upcoming term.
func (s *Service) CreateTerm(ctx context.Context, req CreateTermRequest, actorID int64) (Term, error) {
	if err := s.validate.Struct(req); err != nil {
		return Term{}, err
	}
	start, _ := time.Parse("2006-01-02", req.StartDate)
	end, _ := time.Parse("2006-01-02", req.EndDate)
	if !end.After(start) {
		return Term{}, fmt.Errorf("term end date must follow the start date")
	}
	term, err := s.repo.CreateTerm(ctx, Term{
		Session:   strings.TrimSpace(req.Session),
		Name:      strings.TrimSpace(req.Name),
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		return Term{}, err
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID: actorID, Action: "settings.term.create", Entity: "term",
		EntityID: strconv.FormatInt(term.ID, 10),
		Meta:     map[string]any{"session": term.Session, "name": term.Name},
	})
	return term, nil
}

// TransitionTerm moves a term between statuses, enforcing the allowed
// direction. Reopening an archived term requires override.
func (s *Service) TransitionTerm(ctx context.Context, id int64, target string, override bool, actorID int64) error {
	term, err := s.repo.Term(ctx, id)
	if err != nil {
		return err
	}
	if err := shared.ValidateTermTransition(term.Status, target, override); err != nil {
		return err
	}
	if err := s.repo.SetTermStatus(ctx, id, target); err != nil {
		return err
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID: actorID, Action: "settings.term.transition", Entity: "term",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     map[string]any{"from": term.Status, "to": target, "override": override},
	})
	return nil
}

// Subjects lists the subject catalogue.
func (s *Service) Subjects(ctx context.Context) ([]Subject, error) {
	return s.repo.Subjects(ctx)
}

// CreateSubject adds a subject to the catalogue.
func (s *Service) CreateSubject(ctx context.Context, name, code string, actorID int64) (Subject, error) {
	name = strings.TrimSpace(name)
	code = strings.ToUpper(strings.TrimSpace(code))
	if name == "" || code == "" {
		return Subject{}, fmt.Errorf("subject name and code are required")
	}
	subject, err := s.repo.CreateSubject(ctx, Subject{Name: name, Code: code})
	if err != nil {
		return Subject{}, err
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID: actorID, Action: "settings.subject.create", Entity: "subject",
		EntityID: strconv.FormatInt(subject.ID, 10),
	})
	return subject, nil
}

// DeleteSubject removes a subject if nothing references it.
func (s *Service) DeleteSubject(ctx context.Context, id int64, actorID int64) error {
	if err := s.repo.DeleteSubject(ctx, id); err != nil {
		return err
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID: actorID, Action: "settings.subject.delete", Entity: "subject",
		EntityID: strconv.FormatInt(id, 10),
	})
	return nil
}

func setOptional(dst **string, v string) {
	v = strings.TrimSpace(v)
	if v != "" {
		*dst = &v
	}
}
