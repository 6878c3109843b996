package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/meridian-sms/meridian-sms/internal/jobs"
)

// AttendanceReminderJob emails form teachers whose class register is still
// empty for the day. The scheduler fires it mid-morning on school days.
type AttendanceReminderJob struct {
	Pool    *pgxpool.Pool
	Mailer  *Client
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewAttendanceReminderJob initialises the reminder handler.
func NewAttendanceReminderJob(pool *pgxpool.Pool, mailer *Client, logger *slog.Logger, metrics *jobmetrics.Metrics) *AttendanceReminderJob {
	return &AttendanceReminderJob{
		Pool:    pool,
		Mailer:  mailer,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

type reminderTarget struct {
	className string
	email     string
}

// Handle executes the reminder scan.
func (j *AttendanceReminderJob) Handle(ctx context.Context, _ *asynq.Task) error {
	if j == nil || j.Pool == nil || j.Mailer == nil {
		return errors.New("attendance reminder: handler not configured")
	}
	now := j.clock()
	if wd := now.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return nil
	}

	tracker := j.Metrics.Track(TaskTypeAttendanceReminder)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	targets, err := j.pending(ctx, now)
	if err != nil {
		resultErr = err
		j.logger().Error("reminder scan failed", slog.Any("error", err))
		return resultErr
	}

	sent := 0
	for _, t := range targets {
		if t.email == "" {
			continue
		}
		err := j.Mailer.EnqueueSendEmail(ctx, SendEmailPayload{
			To:      t.email,
			Subject: "Attendance register pending: " + t.className,
			Body:    "The attendance register for " + t.className + " has not been recorded today. Please record it before noon.",
		})
		if err != nil {
			j.logger().Warn("enqueue reminder", slog.String("class", t.className), slog.Any("error", err))
			continue
		}
		sent++
	}

	j.logger().Info("attendance reminders sent",
		slog.Int("classes_pending", len(targets)),
		slog.Int("emails", sent),
	)
	return resultErr
}

func (j *AttendanceReminderJob) pending(ctx context.Context, now time.Time) ([]reminderTarget, error) {
	rows, err := j.Pool.Query(ctx, `
		SELECT c.name, COALESCE(st.email, '')
		FROM classes c
		LEFT JOIN staff st ON st.id = c.form_teacher_id
		WHERE NOT EXISTS (
			SELECT 1 FROM attendance_records a
			WHERE a.class_id = c.id AND a.date = $1
		)
		ORDER BY c.name`, now.Truncate(24*time.Hour))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []reminderTarget
	for rows.Next() {
		var t reminderTarget
		if err := rows.Scan(&t.className, &t.email); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (j *AttendanceReminderJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
