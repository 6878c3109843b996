package students

import "time"

// Student is one enrolled pupil.
type Student struct {
	ID            int64
	AdmissionNo   string
	FirstName     string
	LastName      string
	ClassID       *int64
	ClassName     *string
	GuardianName  *string
	GuardianPhone *string
	DateOfBirth   *time.Time
	Gender        *string
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// FullName joins the name parts for display.
func (s Student) FullName() string {
	return s.FirstName + " " + s.LastName
}
