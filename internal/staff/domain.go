package staff

import "time"

// Member is one staff record. StaffRoles carries the named designations
// (Principal, HOD, Form Master, ...) that guards check alongside coarse
// account roles.
type Member struct {
	ID         int64
	UserID     *int64
	StaffNo    string
	FirstName  string
	LastName   string
	Email      string
	Phone      *string
	IsActive   bool
	StaffRoles []Role
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Role is a named staff designation.
type Role struct {
	ID   int64
	Name string
}

// FullName joins the name parts for display.
func (m Member) FullName() string {
	return m.FirstName + " " + m.LastName
}
