package dashboard

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/meridian-sms/meridian-sms/internal/fees"
	"github.com/meridian-sms/meridian-sms/internal/settings"
	"github.com/meridian-sms/meridian-sms/internal/shared"
)

// Service assembles dashboard data. The admin snapshot fans its queries out
// concurrently since each hits a different table.
type Service struct {
	repo     *Repository
	settings *settings.Service
}

// NewService constructs a Service.
func NewService(repo *Repository, settingsSvc *settings.Service) *Service {
	return &Service{repo: repo, settings: settingsSvc}
}

// AdminSnapshot gathers the school-wide numbers for the staff home screen.
func (s *Service) AdminSnapshot(ctx context.Context) (AdminStats, string, error) {
	var (
		stats AdminStats
		term  settings.Term
	)
	term, err := s.settings.ActiveTerm(ctx)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return AdminStats{}, "", err
	}

	today := time.Now().Truncate(24 * time.Hour)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { stats.Students, err = s.repo.CountStudents(gctx); return })
	g.Go(func() (err error) { stats.Staff, err = s.repo.CountStaff(gctx); return })
	g.Go(func() (err error) { stats.ClassesTotal, err = s.repo.CountClasses(gctx); return })
	g.Go(func() (err error) { stats.RegistersRecorded, err = s.repo.RegistersRecorded(gctx, today); return })
	g.Go(func() (err error) { stats.PendingInvites, err = s.repo.PendingInvites(gctx); return })
	if term.ID != 0 {
		g.Go(func() (err error) { stats.OutstandingKobo, err = s.repo.Outstanding(gctx, term.ID); return })
	}
	if err := g.Wait(); err != nil {
		return AdminStats{}, "", err
	}
	stats.Classes = stats.ClassesTotal
	return stats, fees.FormatAmount(stats.OutstandingKobo), nil
}

// TeacherToday summarises the teacher's day.
func (s *Service) TeacherToday(ctx context.Context, userID int64) (TeacherToday, error) {
	return s.repo.TeacherToday(ctx, userID, schoolWeekday(time.Now()))
}

// StudentToday summarises the linked student's term.
func (s *Service) StudentToday(ctx context.Context, userID int64) (StudentToday, error) {
	term, err := s.settings.ActiveTerm(ctx)
	from := time.Now().AddDate(0, -3, 0)
	if err == nil {
		from = term.StartDate
	} else if !errors.Is(err, shared.ErrNotFound) {
		return StudentToday{}, err
	}
	return s.repo.StudentToday(ctx, userID, from, schoolWeekday(time.Now()))
}

// schoolWeekday maps time.Weekday to the timetable's 1-based Monday..Friday
// numbering; weekends return 0, which matches no slots.
func schoolWeekday(t time.Time) int {
	wd := t.Weekday()
	if wd == time.Saturday || wd == time.Sunday {
		return 0
	}
	return int(wd)
}
