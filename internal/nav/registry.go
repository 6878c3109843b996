// Package nav declares the navigable pages of the application and filters
// them down to what the current user may see. The sidebar and the route
// guards share the same permission resolver, so a link never appears for a
// page its viewer cannot open.
package nav

import "github.com/meridian-sms/meridian-sms/internal/authz"

// Item is one navigable entry. At most one gating style is active: a
// non-empty Roles list restricts by coarse-role membership, a non-empty
// Required list restricts by permissions (all must be held). An item with
// neither is visible to any signed-in user.
type Item struct {
	Title    string
	URL      string
	Icon     string
	Required []authz.Permission
	Roles    []authz.Role
}

// HomeTitle is the canonical label for the root entry after filtering.
const HomeTitle = "Home"

// Registry returns the sidebar entries in display order. Order matters:
// the URL dedup step keeps the first occurrence, letting a more specific
// entry shadow a later generic one for the same page.
func Registry() []Item {
	return []Item{
		{Title: "Home", URL: "/", Icon: "home"},
		{Title: "Teacher Dashboard", URL: "/teacher/dashboard", Icon: "layout-dashboard",
			Roles: []authz.Role{authz.RoleTeacher, authz.RoleSubjectTeacher, authz.RoleAssistantTeacher, authz.RoleFormMaster}},
		{Title: "Student Dashboard", URL: "/student/dashboard", Icon: "layout-dashboard",
			Roles: []authz.Role{authz.RoleStudent}},
		{Title: "Parent Dashboard", URL: "/parent/dashboard", Icon: "layout-dashboard",
			Roles: []authz.Role{authz.RoleParent}},
		{Title: "Students", URL: "/students", Icon: "users",
			Required: []authz.Permission{authz.PermStudentsManage}},
		{Title: "Teachers", URL: "/teachers", Icon: "briefcase",
			Required: []authz.Permission{authz.PermTeachersManage}},
		{Title: "Classes", URL: "/classes", Icon: "school",
			Required: []authz.Permission{authz.PermClassesManage}},
		{Title: "Attendance Register", URL: "/attendance", Icon: "clipboard-check",
			Required: []authz.Permission{authz.PermAttendanceRecord}},
		{Title: "Attendance", URL: "/attendance", Icon: "clipboard",
			Required: []authz.Permission{authz.PermAttendanceView}},
		{Title: "Gradebook", URL: "/gradebook", Icon: "book-open",
			Required: []authz.Permission{authz.PermGradebookManage}},
		{Title: "Results", URL: "/gradebook", Icon: "book",
			Required: []authz.Permission{authz.PermGradebookView}},
		{Title: "Assessments", URL: "/assessments", Icon: "file-text",
			Required: []authz.Permission{authz.PermAssessmentsManage}},
		{Title: "Fees", URL: "/fees", Icon: "credit-card",
			Required: []authz.Permission{authz.PermFeesManage}},
		{Title: "Timetable", URL: "/timetable", Icon: "calendar",
			Required: []authz.Permission{authz.PermTimetableView}},
		{Title: "Reports", URL: "/reports", Icon: "bar-chart",
			Required: []authz.Permission{authz.PermReportsView}},
		{Title: "ID Cards", URL: "/idcards", Icon: "id-card",
			Required: []authz.Permission{authz.PermIDCardsView}},
		{Title: "Invites", URL: "/invites", Icon: "mail-plus",
			Required: []authz.Permission{authz.PermInvitesManage}},
		{Title: "Users", URL: "/users", Icon: "user-cog",
			Required: []authz.Permission{authz.PermUsersManage}},
		{Title: "Settings", URL: "/settings", Icon: "settings",
			Required: []authz.Permission{authz.PermSettingsManage}},
	}
}
