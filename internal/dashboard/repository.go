// Package dashboard renders the landing screens for each audience.
package dashboard

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AdminStats is the school-wide snapshot on the staff home screen.
type AdminStats struct {
	Students          int
	Staff             int
	Classes           int
	ClassesTotal      int
	RegistersRecorded int
	PendingInvites    int
	OutstandingKobo   int64
}

// TeacherToday is a teacher's day at a glance.
type TeacherToday struct {
	Lessons     int
	FormClasses []string
}

// StudentToday is a pupil's (or their parent's) day at a glance.
type StudentToday struct {
	StudentName string
	ClassName   string
	PresentDays int
	AbsentDays  int
	LessonsLeft int
}

// Repository answers the aggregate queries behind the dashboards.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CountStudents counts active students.
func (r *Repository) CountStudents(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM students WHERE is_active`).Scan(&n)
	return n, err
}

// CountStaff counts active staff.
func (r *Repository) CountStaff(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM staff WHERE is_active`).Scan(&n)
	return n, err
}

// CountClasses counts classes.
func (r *Repository) CountClasses(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM classes`).Scan(&n)
	return n, err
}

// RegistersRecorded counts classes with an attendance record for the day.
func (r *Repository) RegistersRecorded(ctx context.Context, date time.Time) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(DISTINCT class_id) FROM attendance_records WHERE date = $1`, date).Scan(&n)
	return n, err
}

// PendingInvites counts unexpired pending invites.
func (r *Repository) PendingInvites(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM invites WHERE status = 'pending' AND expires_at > NOW()`).Scan(&n)
	return n, err
}

// Outstanding sums unpaid fees across active students for a term.
func (r *Repository) Outstanding(ctx context.Context, termID int64) (int64, error) {
	var kobo int64
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(GREATEST(charged - paid, 0)), 0) FROM (
			SELECT s.id,
			       COALESCE((SELECT SUM(f.amount_kobo) FROM fee_items f
			                 WHERE f.class_id = s.class_id AND f.term_id = $1), 0) AS charged,
			       COALESCE((SELECT SUM(p.amount_kobo) FROM fee_payments p
			                 WHERE p.student_id = s.id), 0) AS paid
			FROM students s WHERE s.is_active
		) balances`, termID).Scan(&kobo)
	return kobo, err
}

// TeacherToday summarises today's teaching load for the staff member linked
// to a user account.
func (r *Repository) TeacherToday(ctx context.Context, userID int64, weekday int) (TeacherToday, error) {
	var t TeacherToday
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM timetable_slots ts
		JOIN staff st ON st.id = ts.teacher_id
		WHERE st.user_id = $1 AND ts.day = $2`, userID, weekday).Scan(&t.Lessons)
	if err != nil {
		return TeacherToday{}, err
	}
	rows, err := r.pool.Query(ctx, `
		SELECT c.name FROM classes c
		JOIN staff st ON st.id = c.form_teacher_id
		WHERE st.user_id = $1 ORDER BY c.name`, userID)
	if err != nil {
		return TeacherToday{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return TeacherToday{}, err
		}
		t.FormClasses = append(t.FormClasses, name)
	}
	return t, rows.Err()
}

// StudentToday summarises the linked student's term so far.
func (r *Repository) StudentToday(ctx context.Context, userID int64, from time.Time, weekday int) (StudentToday, error) {
	var s StudentToday
	var classID int64
	err := r.pool.QueryRow(ctx, `
		SELECT st.first_name || ' ' || st.last_name, COALESCE(c.name, ''), COALESCE(st.class_id, 0)
		FROM students st
		LEFT JOIN classes c ON c.id = st.class_id
		WHERE st.user_id = $1 OR st.id IN (
			SELECT pg.student_id FROM parent_guardians pg WHERE pg.user_id = $1
		)
		ORDER BY st.id LIMIT 1`, userID).
		Scan(&s.StudentName, &s.ClassName, &classID)
	if err != nil {
		return StudentToday{}, err
	}

	err = r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FILTER (WHERE a.status = 'present'),
		       COUNT(*) FILTER (WHERE a.status = 'absent')
		FROM attendance_records a
		JOIN students st ON st.id = a.student_id
		WHERE (st.user_id = $1 OR st.id IN (
			SELECT pg.student_id FROM parent_guardians pg WHERE pg.user_id = $1
		)) AND a.date >= $2`, userID, from).
		Scan(&s.PresentDays, &s.AbsentDays)
	if err != nil {
		return StudentToday{}, err
	}

	if classID != 0 {
		err = r.pool.QueryRow(ctx, `
			SELECT COUNT(*) FROM timetable_slots WHERE class_id = $1 AND day = $2`,
			classID, weekday).Scan(&s.LessonsLeft)
		if err != nil {
			return StudentToday{}, err
		}
	}
	return s, nil
}
