package fees

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/meridian-sms/meridian-sms/internal/shared"
)

// CreateFeeItemRequest carries a new charge.
type CreateFeeItemRequest struct {
	TermID  int64  `validate:"required,gt=0"`
	ClassID int64  `validate:"required,gt=0"`
	Title   string `validate:"required,max=150"`
	// Amount is in kobo.
	Amount int64 `validate:"required,gt=0"`
}

// RecordPaymentRequest carries money received.
type RecordPaymentRequest struct {
	StudentID int64  `validate:"required,gt=0"`
	Amount    int64  `validate:"required,gt=0"`
	Method    string `validate:"required,oneof=cash transfer pos cheque"`
	Reference string `validate:"max=100"`
	// IdempotencyKey absorbs double-posted receipts.
	IdempotencyKey string `validate:"omitempty,max=128"`
}

// Service wraps fee business rules.
type Service struct {
	repo        *Repository
	idempotency *shared.IdempotencyStore
	audit       *shared.AuditLogger
	validate    *validator.Validate
}

// NewService constructs a Service.
func NewService(repo *Repository, idem *shared.IdempotencyStore, audit *shared.AuditLogger) *Service {
	return &Service{repo: repo, idempotency: idem, audit: audit, validate: validator.New()}
}

// FeeItems lists charges for a term and optional class.
func (s *Service) FeeItems(ctx context.Context, termID, classID int64) ([]FeeItem, error) {
	return s.repo.FeeItems(ctx, termID, classID)
}

// CreateFeeItem validates and inserts a charge.
func (s *Service) CreateFeeItem(ctx context.Context, req CreateFeeItemRequest, actorID int64) (FeeItem, error) {
	if err := s.validate.Struct(req); err != nil {
		return FeeItem{}, err
	}
	item, err := s.repo.CreateFeeItem(ctx, FeeItem{
		TermID:  req.TermID,
		ClassID: req.ClassID,
		Title:   strings.TrimSpace(req.Title),
		Amount:  req.Amount,
	})
	if err != nil {
		return FeeItem{}, err
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID: actorID, Action: "fees.item.create", Entity: "fee_item",
		EntityID: strconv.FormatInt(item.ID, 10),
		Meta:     map[string]any{"title": item.Title, "amount_kobo": item.Amount},
	})
	return item, nil
}

// DeleteFeeItem removes a charge.
func (s *Service) DeleteFeeItem(ctx context.Context, id int64, actorID int64) error {
	if err := s.repo.DeleteFeeItem(ctx, id); err != nil {
		return err
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID: actorID, Action: "fees.item.delete", Entity: "fee_item",
		EntityID: strconv.FormatInt(id, 10),
	})
	return nil
}

// RecordPayment validates and posts a payment. Replays with the same
// idempotency key succeed without posting twice.
func (s *Service) RecordPayment(ctx context.Context, req RecordPaymentRequest, receivedBy int64) (Payment, error) {
	if err := s.validate.Struct(req); err != nil {
		return Payment{}, err
	}
	if req.IdempotencyKey != "" {
		if err := s.idempotency.CheckAndInsert(ctx, req.IdempotencyKey, "fees"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return Payment{}, nil
			}
			return Payment{}, err
		}
	}
	p := Payment{
		StudentID:  req.StudentID,
		Amount:     req.Amount,
		Method:     req.Method,
		ReceivedBy: receivedBy,
	}
	if ref := strings.TrimSpace(req.Reference); ref != "" {
		p.Reference = &ref
	}
	posted, err := s.repo.RecordPayment(ctx, p)
	if err != nil {
		if req.IdempotencyKey != "" {
			_ = s.idempotency.Delete(context.WithoutCancel(ctx), req.IdempotencyKey)
		}
		return Payment{}, err
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID: receivedBy, Action: "fees.payment.record", Entity: "student",
		EntityID: strconv.FormatInt(req.StudentID, 10),
		Meta:     map[string]any{"amount_kobo": req.Amount, "method": req.Method},
	})
	return posted, nil
}

// StudentLedger loads a student's charges and payments for a term.
func (s *Service) StudentLedger(ctx context.Context, studentID, termID int64) (Ledger, error) {
	return s.repo.StudentLedger(ctx, studentID, termID)
}

// Debtors lists students still owing for a term.
func (s *Service) Debtors(ctx context.Context, termID int64) ([]Ledger, error) {
	return s.repo.Debtors(ctx, termID)
}
