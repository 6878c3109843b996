// Package idcards issues student identity cards and renders them to PDF.
package idcards

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-sms/meridian-sms/internal/settings"
	"github.com/meridian-sms/meridian-sms/internal/shared"
	"github.com/meridian-sms/meridian-sms/internal/students"
	"github.com/meridian-sms/meridian-sms/report"
)

// CardValidity is how long an issued card stays valid.
const CardValidity = 365 * 24 * time.Hour

// IssuedCard is one issue record. Reissuing supersedes the earlier card.
type IssuedCard struct {
	ID        int64
	StudentID int64
	CardNo    string
	IssuedBy  int64
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Repository provides PostgreSQL backed persistence for issued cards.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Current returns the latest card issued to a student.
func (r *Repository) Current(ctx context.Context, studentID int64) (IssuedCard, error) {
	var c IssuedCard
	err := r.pool.QueryRow(ctx, `
		SELECT id, student_id, card_no, issued_by, issued_at, expires_at
		FROM issued_cards WHERE student_id = $1
		ORDER BY issued_at DESC LIMIT 1`, studentID).
		Scan(&c.ID, &c.StudentID, &c.CardNo, &c.IssuedBy, &c.IssuedAt, &c.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return IssuedCard{}, shared.ErrNotFound
		}
		return IssuedCard{}, err
	}
	return c, nil
}

// Issue inserts an issue record.
func (r *Repository) Issue(ctx context.Context, c IssuedCard) (IssuedCard, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO issued_cards (student_id, card_no, issued_by, issued_at, expires_at)
		VALUES ($1, $2, $3, NOW(), $4) RETURNING id, issued_at`,
		c.StudentID, c.CardNo, c.IssuedBy, c.ExpiresAt).Scan(&c.ID, &c.IssuedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return IssuedCard{}, shared.ErrDuplicate
		}
		return IssuedCard{}, err
	}
	return c, nil
}

// ClassStatus lists a class's students with their latest card, if any.
type ClassStatusRow struct {
	Student students.Student
	Card    *IssuedCard
}

// ClassStatus loads issue status for every active student in a class.
func (r *Repository) ClassStatus(ctx context.Context, classID int64) ([]ClassStatusRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT s.id, s.admission_no, s.first_name, s.last_name,
		       ic.id, ic.card_no, ic.issued_at, ic.expires_at
		FROM students s
		LEFT JOIN LATERAL (
			SELECT id, card_no, issued_at, expires_at
			FROM issued_cards WHERE student_id = s.id
			ORDER BY issued_at DESC LIMIT 1
		) ic ON TRUE
		WHERE s.class_id = $1 AND s.is_active
		ORDER BY s.last_name, s.first_name`, classID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ClassStatusRow
	for rows.Next() {
		var row ClassStatusRow
		var cardID *int64
		var cardNo *string
		var issuedAt, expiresAt *time.Time
		if err := rows.Scan(&row.Student.ID, &row.Student.AdmissionNo,
			&row.Student.FirstName, &row.Student.LastName,
			&cardID, &cardNo, &issuedAt, &expiresAt); err != nil {
			return nil, err
		}
		if cardID != nil {
			row.Card = &IssuedCard{ID: *cardID, StudentID: row.Student.ID, CardNo: *cardNo, IssuedAt: *issuedAt, ExpiresAt: *expiresAt}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Service wraps card issuing and rendering.
type Service struct {
	repo     *Repository
	students *students.Service
	settings *settings.Service
	pdf      *report.Client
	audit    *shared.AuditLogger
	tmpl     *template.Template
}

// NewService constructs a Service.
func NewService(repo *Repository, studentSvc *students.Service, settingsSvc *settings.Service, pdf *report.Client, audit *shared.AuditLogger) (*Service, error) {
	tmpl, err := template.New("idcard").Parse(cardHTML)
	if err != nil {
		return nil, err
	}
	return &Service{repo: repo, students: studentSvc, settings: settingsSvc, pdf: pdf, audit: audit, tmpl: tmpl}, nil
}

// ClassStatus loads issue status for a class.
func (s *Service) ClassStatus(ctx context.Context, classID int64) ([]ClassStatusRow, error) {
	return s.repo.ClassStatus(ctx, classID)
}

// Issue records a new card for a student. The card number derives from the
// admission number and issue year.
func (s *Service) Issue(ctx context.Context, studentID, issuedBy int64) (IssuedCard, error) {
	student, err := s.students.Get(ctx, studentID)
	if err != nil {
		return IssuedCard{}, err
	}
	now := time.Now()
	card, err := s.repo.Issue(ctx, IssuedCard{
		StudentID: studentID,
		CardNo:    fmt.Sprintf("%s-%d", student.AdmissionNo, now.Year()),
		IssuedBy:  issuedBy,
		ExpiresAt: now.Add(CardValidity),
	})
	if err != nil {
		return IssuedCard{}, err
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID: issuedBy, Action: "idcard.issue", Entity: "student",
		EntityID: strconv.FormatInt(studentID, 10),
		Meta:     map[string]any{"card_no": card.CardNo},
	})
	return card, nil
}

// RenderPDF renders the student's current card through Gotenberg.
func (s *Service) RenderPDF(ctx context.Context, studentID int64) ([]byte, error) {
	card, err := s.repo.Current(ctx, studentID)
	if err != nil {
		return nil, err
	}
	student, err := s.students.Get(ctx, studentID)
	if err != nil {
		return nil, err
	}
	profile, err := s.settings.Profile(ctx)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	err = s.tmpl.Execute(&buf, struct {
		School  settings.SchoolProfile
		Student students.Student
		Card    IssuedCard
	}{profile, student, card})
	if err != nil {
		return nil, fmt.Errorf("render card html: %w", err)
	}
	return s.pdf.RenderHTML(ctx, buf.String())
}

const cardHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
@page { size: 85.6mm 54mm; margin: 0; }
body { font-family: Helvetica, Arial, sans-serif; margin: 0; }
.card { width: 85.6mm; height: 54mm; box-sizing: border-box; padding: 5mm;
        border: 0.5mm solid #1a3c6e; }
.school { font-size: 10pt; font-weight: bold; color: #1a3c6e; margin: 0; }
.name { font-size: 12pt; margin: 4mm 0 1mm; }
.line { font-size: 8pt; color: #444; margin: 0.5mm 0; }
</style>
</head>
<body>
<div class="card">
<p class="school">{{.School.Name}}</p>
<p class="name">{{.Student.FullName}}</p>
<p class="line">Admission No: {{.Student.AdmissionNo}}</p>
<p class="line">Card No: {{.Card.CardNo}}</p>
<p class="line">Issued: {{.Card.IssuedAt.Format "Jan 2006"}} &middot; Expires: {{.Card.ExpiresAt.Format "Jan 2006"}}</p>
</div>
</body>
</html>`
