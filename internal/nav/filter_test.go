package nav

import (
	"testing"

	"github.com/meridian-sms/meridian-sms/internal/authz"
)

func filterFor(roles ...authz.Role) []Item {
	return Filter(Registry(), roles, authz.ResolvePermissions(roles))
}

func urls(items []Item) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.URL)
	}
	return out
}

func find(items []Item, url string) (Item, bool) {
	for _, item := range items {
		if item.URL == url {
			return item, true
		}
	}
	return Item{}, false
}

func TestFilterFeesVisibility(t *testing.T) {
	teacher := filterFor(authz.RoleTeacher)
	if _, ok := find(teacher, "/fees"); ok {
		t.Fatal("teacher should not see /fees")
	}
	admin := filterFor(authz.RoleAdmin)
	if _, ok := find(admin, "/fees"); !ok {
		t.Fatal("admin should see /fees")
	}
}

func TestFilterRoleGate(t *testing.T) {
	student := filterFor(authz.RoleStudent)
	for _, u := range urls(student) {
		if u == "/students" || u == "/users" || u == "/settings" {
			t.Fatalf("student should not see %s", u)
		}
	}
	if _, ok := find(student, "/timetable"); !ok {
		t.Fatal("student should see /timetable")
	}
	if _, ok := find(student, "/gradebook"); !ok {
		t.Fatal("student should see /gradebook via gradebook.view")
	}
}

func TestDedupFirstWins(t *testing.T) {
	// The registry carries two /attendance entries: the recording register
	// first, the read-only view second. A principal holds both permissions
	// and must get the first entry only.
	items := filterFor(authz.RolePrincipal)
	var seen int
	var kept Item
	for _, item := range items {
		if item.URL == "/attendance" {
			seen++
			kept = item
		}
	}
	if seen != 1 {
		t.Fatalf("expected exactly one /attendance entry, got %d", seen)
	}
	if kept.Title != "Attendance Register" {
		t.Fatalf("first registry entry should win, got %q", kept.Title)
	}
}

func TestDedupRegardlessOfGating(t *testing.T) {
	registry := []Item{
		{Title: "A", URL: "/same"},
		{Title: "B", URL: "/same", Required: []authz.Permission{authz.PermFeesManage}},
	}
	items := Filter(registry, []authz.Role{authz.RoleAdmin}, authz.ResolvePermissions([]authz.Role{authz.RoleAdmin}))
	item, ok := find(items, "/same")
	if !ok {
		t.Fatal("/same missing")
	}
	if item.Title != "A" {
		t.Fatalf("first occurrence should survive, got %q", item.Title)
	}
}

func TestDashboardCollapse(t *testing.T) {
	registry := []Item{
		{Title: "Teacher Dashboard", URL: "/teacher/dashboard", Roles: []authz.Role{authz.RoleTeacher}},
		{Title: "Home", URL: "/"},
	}
	items := Filter(registry, []authz.Role{authz.RoleTeacher}, authz.ResolvePermissions([]authz.Role{authz.RoleTeacher}))
	if len(items) != 1 {
		t.Fatalf("expected one entry, got %v", urls(items))
	}
	if items[0].URL != "/" || items[0].Title != HomeTitle {
		t.Fatalf("expected canonical root, got %+v", items[0])
	}
}

func TestDashboardCollapseSynthesizesRoot(t *testing.T) {
	registry := []Item{
		{Title: "Student Dashboard", URL: "/student/dashboard", Roles: []authz.Role{authz.RoleStudent}},
		{Title: "Timetable", URL: "/timetable", Required: []authz.Permission{authz.PermTimetableView}},
	}
	items := Filter(registry, []authz.Role{authz.RoleStudent}, authz.ResolvePermissions([]authz.Role{authz.RoleStudent}))
	root, ok := find(items, "/")
	if !ok {
		t.Fatal("root entry should be synthesized")
	}
	if root.Title != HomeTitle {
		t.Fatalf("synthesized root title = %q", root.Title)
	}
	if items[0].URL != "/" {
		t.Fatalf("root should lead, got %v", urls(items))
	}
}

func TestRootRelabeledToHome(t *testing.T) {
	registry := []Item{{Title: "Overview", URL: "/"}}
	items := Filter(registry, nil, authz.ResolvePermissions(nil))
	if len(items) != 1 || items[0].Title != HomeTitle {
		t.Fatalf("root should be relabeled, got %+v", items)
	}
}

func TestFilterIdempotent(t *testing.T) {
	for _, roles := range [][]authz.Role{
		{authz.RoleAdmin},
		{authz.RoleTeacher},
		{authz.RoleStudent},
		{authz.RoleTeacher, authz.RoleFormMaster},
		nil,
	} {
		perms := authz.ResolvePermissions(roles)
		once := Filter(Registry(), roles, perms)
		twice := Filter(once, roles, perms)
		if len(once) != len(twice) {
			t.Fatalf("roles %v: filter not idempotent: %v vs %v", roles, urls(once), urls(twice))
		}
		for i := range once {
			if once[i].URL != twice[i].URL || once[i].Title != twice[i].Title {
				t.Fatalf("roles %v: item %d changed: %+v vs %+v", roles, i, once[i], twice[i])
			}
		}
	}
}

func TestConjunctiveGates(t *testing.T) {
	// An item carrying both gates is hidden when the role gate fails, even
	// if the permission gate would pass. The pipeline composes the gates
	// conjunctively on purpose.
	registry := []Item{{
		Title:    "Fees Admin",
		URL:      "/fees/admin",
		Roles:    []authz.Role{authz.RolePrincipal},
		Required: []authz.Permission{authz.PermFeesManage},
	}}
	admin := Filter(registry, []authz.Role{authz.RoleAdmin}, authz.ResolvePermissions([]authz.Role{authz.RoleAdmin}))
	if _, ok := find(admin, "/fees/admin"); ok {
		t.Fatal("role gate should hide the item despite the permission match")
	}
	principal := Filter(registry, []authz.Role{authz.RolePrincipal}, authz.ResolvePermissions([]authz.Role{authz.RolePrincipal}))
	if _, ok := find(principal, "/fees/admin"); !ok {
		t.Fatal("both gates pass for principal")
	}
}
