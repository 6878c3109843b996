// Package reports assembles term report cards and renders them to PDF.
package reports

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/meridian-sms/meridian-sms/internal/attendance"
	"github.com/meridian-sms/meridian-sms/internal/fees"
	"github.com/meridian-sms/meridian-sms/internal/gradebook"
	"github.com/meridian-sms/meridian-sms/internal/settings"
	"github.com/meridian-sms/meridian-sms/internal/students"
	"github.com/meridian-sms/meridian-sms/report"
)

// Card is everything printed on one student's term report.
type Card struct {
	School     settings.SchoolProfile
	Student    students.Student
	Term       settings.Term
	Results    []gradebook.ResultLine
	Attendance attendance.Summary
	FeeBalance string
	IssuedAt   time.Time
}

// Builder assembles and renders report cards. Concurrent requests for the
// same card collapse onto one render.
type Builder struct {
	students   *students.Service
	settings   *settings.Service
	gradebook  *gradebook.Service
	attendance *attendance.Service
	fees       *fees.Service
	pdf        *report.Client
	group      singleflight.Group
	tmpl       *template.Template
}

// NewBuilder constructs a Builder.
func NewBuilder(studentSvc *students.Service, settingsSvc *settings.Service, gradebookSvc *gradebook.Service, attendanceSvc *attendance.Service, feesSvc *fees.Service, pdf *report.Client) (*Builder, error) {
	tmpl, err := template.New("card").Parse(cardHTML)
	if err != nil {
		return nil, err
	}
	return &Builder{
		students:   studentSvc,
		settings:   settingsSvc,
		gradebook:  gradebookSvc,
		attendance: attendanceSvc,
		fees:       feesSvc,
		pdf:        pdf,
		tmpl:       tmpl,
	}, nil
}

// Build gathers the card's sections concurrently.
func (b *Builder) Build(ctx context.Context, studentID, termID int64) (Card, error) {
	term, err := b.settings.Term(ctx, termID)
	if err != nil {
		return Card{}, fmt.Errorf("load term: %w", err)
	}

	var card Card
	card.Term = term
	card.IssuedAt = time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		student, err := b.students.Get(gctx, studentID)
		if err != nil {
			return fmt.Errorf("load student: %w", err)
		}
		card.Student = student
		return nil
	})
	g.Go(func() error {
		profile, err := b.settings.Profile(gctx)
		if err != nil {
			return fmt.Errorf("load school profile: %w", err)
		}
		card.School = profile
		return nil
	})
	g.Go(func() error {
		results, err := b.gradebook.TermResults(gctx, studentID, termID)
		if err != nil {
			return fmt.Errorf("load results: %w", err)
		}
		card.Results = results
		return nil
	})
	g.Go(func() error {
		summary, err := b.attendance.StudentSummary(gctx, studentID, term.StartDate, term.EndDate)
		if err != nil {
			return fmt.Errorf("load attendance: %w", err)
		}
		card.Attendance = summary
		return nil
	})
	g.Go(func() error {
		ledger, err := b.fees.StudentLedger(gctx, studentID, termID)
		if err != nil {
			return fmt.Errorf("load fee ledger: %w", err)
		}
		card.FeeBalance = fees.FormatAmount(ledger.Balance())
		return nil
	})
	if err := g.Wait(); err != nil {
		return Card{}, err
	}
	return card, nil
}

// RenderPDF builds the card and converts it through Gotenberg.
func (b *Builder) RenderPDF(ctx context.Context, studentID, termID int64) ([]byte, error) {
	key := fmt.Sprintf("card:%d:%d", studentID, termID)
	out, err, _ := b.group.Do(key, func() (any, error) {
		card, err := b.Build(ctx, studentID, termID)
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if err := b.tmpl.Execute(&buf, card); err != nil {
			return nil, fmt.Errorf("render card html: %w", err)
		}
		return b.pdf.RenderHTML(ctx, buf.String())
	})
	if err != nil {
		return nil, err
	}
	return out.([]byte), nil
}

const cardHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
body { font-family: Georgia, serif; margin: 40px; color: #222; }
h1 { margin-bottom: 0; } .muted { color: #777; }
table { width: 100%; border-collapse: collapse; margin-top: 16px; }
th, td { border: 1px solid #bbb; padding: 6px 10px; text-align: left; }
th { background: #f0f0f0; }
.grade { font-weight: bold; text-align: center; }
.footer { margin-top: 32px; font-size: 12px; color: #777; }
</style>
</head>
<body>
<h1>{{.School.Name}}</h1>
<p class="muted">{{if .School.Motto}}{{.School.Motto}}{{end}}</p>
<h2>{{.Term.Session}} &middot; {{.Term.Name}} Report</h2>
<p><strong>{{.Student.FullName}}</strong> &mdash; Admission No. {{.Student.AdmissionNo}}</p>
<table>
<tr><th>Subject</th><th>Score (%)</th><th class="grade">Grade</th></tr>
{{range .Results}}
<tr><td>{{.SubjectName}}</td><td>{{printf "%.1f" .Percent}}</td><td class="grade">{{.Grade}}</td></tr>
{{else}}
<tr><td colspan="3">No results recorded this term.</td></tr>
{{end}}
</table>
<table>
<tr><th>Present</th><th>Absent</th><th>Late</th><th>Excused</th><th>Fees Outstanding</th></tr>
<tr><td>{{.Attendance.Present}}</td><td>{{.Attendance.Absent}}</td><td>{{.Attendance.Late}}</td><td>{{.Attendance.Excused}}</td><td>{{.FeeBalance}}</td></tr>
</table>
<p class="footer">Issued {{.IssuedAt.Format "2 January 2006"}}.</p>
</body>
</html>`
