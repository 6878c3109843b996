// Package attendance handles daily class registers and per-student history.
package attendance

import "time"

// Status is the recorded state of one student for one day.
type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
	StatusLate    Status = "late"
	StatusExcused Status = "excused"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusLate, StatusExcused:
		return true
	}
	return false
}

// Record is one student's attendance for one day.
type Record struct {
	ID         int64
	StudentID  int64
	ClassID    int64
	Date       time.Time
	Status     Status
	Note       *string
	RecordedBy int64
	RecordedAt time.Time
}

// RegisterRow pairs a student with their (possibly absent) record for the
// register screen.
type RegisterRow struct {
	StudentID   int64
	AdmissionNo string
	FullName    string
	Status      Status
	Note        string
	Recorded    bool
}

// Summary aggregates a student's history over a date range.
type Summary struct {
	Present int
	Absent  int
	Late    int
	Excused int
}

// Total returns the number of recorded days.
func (s Summary) Total() int {
	return s.Present + s.Absent + s.Late + s.Excused
}
