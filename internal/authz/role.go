package authz

import (
	"fmt"
	"strings"
)

// Role is a coarse access category assigned to a user account.
type Role string

// The closed set of coarse roles. Accounts may hold any number of them.
const (
	RolePrincipal        Role = "principal"
	RoleVicePrincipal    Role = "vice_principal"
	RoleHOD              Role = "hod"
	RoleExamOfficer      Role = "exam_officer"
	RoleFormMaster       Role = "form_master"
	RoleSubjectTeacher   Role = "subject_teacher"
	RoleAssistantTeacher Role = "assistant_teacher"
	RoleAdmin            Role = "admin"
	RoleStaff            Role = "staff"
	RoleTeacher          Role = "teacher"
	RoleStudent          Role = "student"
	RoleParent           Role = "parent"
)

// StaffRole is a named staff designation (e.g. "Principal", "HOD") kept on
// the staff record. It is an independent axis from Role: guards may check
// either or both.
type StaffRole string

// AllRoles lists every valid coarse role.
func AllRoles() []Role {
	return []Role{
		RolePrincipal,
		RoleVicePrincipal,
		RoleHOD,
		RoleExamOfficer,
		RoleFormMaster,
		RoleSubjectTeacher,
		RoleAssistantTeacher,
		RoleAdmin,
		RoleStaff,
		RoleTeacher,
		RoleStudent,
		RoleParent,
	}
}

var validRoles = func() map[Role]struct{} {
	set := make(map[Role]struct{})
	for _, r := range AllRoles() {
		set[r] = struct{}{}
	}
	return set
}()

// ParseRole converts a stored role string into a Role. Unknown strings are
// rejected at the store boundary instead of flowing into guard checks.
func ParseRole(raw string) (Role, error) {
	r := Role(strings.TrimSpace(strings.ToLower(raw)))
	if _, ok := validRoles[r]; !ok {
		return "", fmt.Errorf("authz: %w: %q", ErrUnknownRole, raw)
	}
	return r, nil
}

// ParseRoles converts a slice of stored role strings, failing on the first
// unknown value.
func ParseRoles(raw []string) ([]Role, error) {
	roles := make([]Role, 0, len(raw))
	for _, s := range raw {
		r, err := ParseRole(s)
		if err != nil {
			return nil, err
		}
		roles = append(roles, r)
	}
	return roles, nil
}
