package attendance

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence for attendance records.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Register loads the register rows for a class and day. Every active student
// of the class appears, whether or not a record exists yet.
func (r *Repository) Register(ctx context.Context, classID int64, date time.Time) ([]RegisterRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT s.id, s.admission_no, s.first_name || ' ' || s.last_name,
		       COALESCE(a.status, ''), COALESCE(a.note, ''), a.id IS NOT NULL
		FROM students s
		LEFT JOIN attendance_records a
		  ON a.student_id = s.id AND a.date = $2
		WHERE s.class_id = $1 AND s.is_active
		ORDER BY s.last_name, s.first_name`, classID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RegisterRow
	for rows.Next() {
		var row RegisterRow
		var status string
		if err := rows.Scan(&row.StudentID, &row.AdmissionNo, &row.FullName, &status, &row.Note, &row.Recorded); err != nil {
			return nil, err
		}
		row.Status = Status(status)
		out = append(out, row)
	}
	return out, rows.Err()
}

// SaveRegister upserts a batch of records in one transaction. Re-submitting a
// register for the same day overwrites the earlier statuses.
func (r *Repository) SaveRegister(ctx context.Context, classID int64, date time.Time, recordedBy int64, entries []Record) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		for _, e := range entries {
			_, err := tx.Exec(ctx, `
				INSERT INTO attendance_records (student_id, class_id, date, status, note, recorded_by, recorded_at)
				VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, NOW())
				ON CONFLICT (student_id, date)
				DO UPDATE SET status = EXCLUDED.status, note = EXCLUDED.note,
				              recorded_by = EXCLUDED.recorded_by, recorded_at = NOW()`,
				e.StudentID, classID, date, string(e.Status), derefNote(e.Note), recordedBy)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// StudentSummary aggregates one student's records between from and to inclusive.
func (r *Repository) StudentSummary(ctx context.Context, studentID int64, from, to time.Time) (Summary, error) {
	var s Summary
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FILTER (WHERE status = 'present'),
		       COUNT(*) FILTER (WHERE status = 'absent'),
		       COUNT(*) FILTER (WHERE status = 'late'),
		       COUNT(*) FILTER (WHERE status = 'excused')
		FROM attendance_records
		WHERE student_id = $1 AND date BETWEEN $2 AND $3`,
		studentID, from, to).
		Scan(&s.Present, &s.Absent, &s.Late, &s.Excused)
	return s, err
}

// StudentHistory returns a student's records newest first.
func (r *Repository) StudentHistory(ctx context.Context, studentID int64, limit int) ([]Record, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, student_id, class_id, date, status, note, recorded_by, recorded_at
		FROM attendance_records
		WHERE student_id = $1
		ORDER BY date DESC
		LIMIT $2`, studentID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		var rec Record
		var status string
		if err := rows.Scan(&rec.ID, &rec.StudentID, &rec.ClassID, &rec.Date, &status, &rec.Note, &rec.RecordedBy, &rec.RecordedAt); err != nil {
			return nil, err
		}
		rec.Status = Status(status)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// UnrecordedClasses lists class IDs that have no records for the given day.
// The reminder job uses it to nudge form teachers.
func (r *Repository) UnrecordedClasses(ctx context.Context, date time.Time) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT c.id FROM classes c
		WHERE NOT EXISTS (
			SELECT 1 FROM attendance_records a WHERE a.class_id = c.id AND a.date = $1
		)
		ORDER BY c.id`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func derefNote(n *string) string {
	if n == nil {
		return ""
	}
	return *n
}
