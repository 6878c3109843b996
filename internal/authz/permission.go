package authz

// Permission is an atomic capability string. Permissions are never assigned
// to accounts directly; they are derived from coarse roles through the
// static policy table.
type Permission string

const (
	PermDashboardView     Permission = "dashboard.view"
	PermUsersManage       Permission = "users.manage"
	PermStudentsManage    Permission = "students.manage"
	PermTeachersManage    Permission = "teachers.manage"
	PermClassesManage     Permission = "classes.manage"
	PermAttendanceView    Permission = "attendance.view"
	PermAttendanceRecord  Permission = "attendance.record"
	PermGradebookView     Permission = "gradebook.view"
	PermGradebookManage   Permission = "gradebook.manage"
	PermAssessmentsManage Permission = "assessments.manage"
	PermFeesManage        Permission = "fees.manage"
	PermTimetableView     Permission = "timetable.view"
	PermTimetableManage   Permission = "timetable.manage"
	PermReportsView       Permission = "reports.view"
	PermSettingsManage    Permission = "settings.manage"
	PermInvitesManage     Permission = "invites.manage"
	PermIDCardsView       Permission = "idcards.view"
	PermIDCardsManage     Permission = "idcards.manage"
)

// AllPermissions lists every declared permission.
func AllPermissions() []Permission {
	return []Permission{
		PermDashboardView,
		PermUsersManage,
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
	}
}
