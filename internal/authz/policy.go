package authz

import "fmt"

// RolePermissions is the single place access policy lives. Permissions are
// only ever derived from this table, so changing a role's capabilities here
// changes every guard and every navigation entry at once.
//
// The table is total: every role has an entry, possibly empty. Note teacher
// deliberately lacks timetable.manage and gradebook.view; manage implies view
// by convention and view is not granted separately.
var RolePermissions = map[Role][]Permission{
	RoleAdmin: AllPermissions(),
	RolePrincipal: {
		PermDashboardView,
		PermStudentsManage,
		PermTeachersManage,
		PermClassesManage,
		PermAttendanceView,
		PermAttendanceRecord,
		PermGradebookView,
		PermGradebookManage,
		PermAssessmentsManage,
		PermFeesManage,
		PermTimetableView,
		PermTimetableManage,
		PermReportsView,
		PermSettingsManage,
		PermInvitesManage,
		PermIDCardsView,
		PermIDCardsManage,
	},
	RoleVicePrincipal: {
		PermDashboardView,
		PermStudentsManage,
		PermTeachersManage,
		PermClassesManage,
		PermAttendanceView,
		PermGradebookView,
		PermAssessmentsManage,
		PermTimetableView,
		PermTimetableManage,
		PermReportsView,
		PermIDCardsView,
	},
	RoleHOD: {
		PermDashboardView,
		PermAttendanceView,
		PermGradebookView,
		PermGradebookManage,
		PermAssessmentsManage,
		PermTimetableView,
		PermReportsView,
	},
	RoleExamOfficer: {
		PermDashboardView,
		PermGradebookView,
		PermGradebookManage,
		PermAssessmentsManage,
		PermReportsView,
	},
	RoleFormMaster: {
		PermDashboardView,
		PermAttendanceView,
		PermAttendanceRecord,
		PermGradebookView,
		PermTimetableView,
		PermIDCardsView,
	},
	RoleSubjectTeacher: {
		PermDashboardView,
		PermAttendanceRecord,
		PermGradebookManage,
		PermTimetableView,
	},
	RoleAssistantTeacher: {
		PermDashboardView,
		PermAttendanceRecord,
		PermTimetableView,
	},
	RoleStaff: {
		PermDashboardView,
		PermTimetableView,
	},
	RoleTeacher: {
		PermDashboardView,
		PermAttendanceRecord,
		PermGradebookManage,
		PermTimetableView,
	},
	RoleStudent: {
		PermDashboardView,
		PermTimetableView,
		PermAttendanceView,
		PermGradebookView,
	},
	RoleParent: {
		PermDashboardView,
		PermTimetableView,
		PermAttendanceView,
		PermGradebookView,
	},
}

// ValidatePolicy asserts the static table is internally consistent: total
// over the role enumeration and referencing only declared permissions. An
// inconsistent table is a programmer error, so callers should fail at
// startup rather than let a bad entry silently grant nothing.
func ValidatePolicy() error {
	declared := make(map[Permission]struct{}, len(AllPermissions()))
	for _, p := range AllPermissions() {
		declared[p] = struct{}{}
	}
	for _, role := range AllRoles() {
		perms, ok := RolePermissions[role]
		if !ok {
			return fmt.Errorf("authz: role %q missing from permission table", role)
		}
		for _, p := range perms {
			if _, ok := declared[p]; !ok {
				return fmt.Errorf("authz: role %q grants undeclared permission %q", role, p)
			}
		}
	}
	return nil
}
