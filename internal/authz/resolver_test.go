package authz

import (
	"sort"
	"testing"
)

func sortedPerms(set PermissionSet) []Permission {
	perms := set.List()
	sort.Slice(perms, func(i, j int) bool { return perms[i] < perms[j] })
	return perms
}

func TestResolveSingleRoleMatchesTable(t *testing.T) {
	for _, role := range AllRoles() {
		got := ResolvePermissions([]Role{role})
		want := RolePermissions[role]
		if len(got) != len(want) {
			t.Fatalf("role %s: resolved %d permissions, table has %d", role, len(got), len(want))
		}
		for _, p := range want {
			if !got.Can(p) {
				t.Fatalf("role %s: missing %s", role, p)
			}
		}
	}
}

func TestResolveUnion(t *testing.T) {
	combos := [][]Role{
		{RoleTeacher, RoleFormMaster},
		{RoleStudent, RoleParent},
		{RoleAdmin, RoleStudent},
		{RoleHOD, RoleExamOfficer, RoleStaff},
	}
	for _, roles := range combos {
		got := ResolvePermissions(roles)
		want := make(PermissionSet)
		for _, r := range roles {
			for p := range ResolvePermissions([]Role{r}) {
				want[p] = struct{}{}
			}
		}
		if len(got) != len(want) {
			t.Fatalf("roles %v: got %v want %v", roles, sortedPerms(got), sortedPerms(want))
		}
		for p := range want {
			if !got.Can(p) {
				t.Fatalf("roles %v: missing %s", roles, p)
			}
		}
	}
}

func TestResolveDuplicateRolesIdempotent(t *testing.T) {
	once := ResolvePermissions([]Role{RoleTeacher})
	twice := ResolvePermissions([]Role{RoleTeacher, RoleTeacher})
	if len(once) != len(twice) {
		t.Fatalf("duplicate role changed the set: %d vs %d", len(once), len(twice))
	}
}

func TestResolveEmptyAndNil(t *testing.T) {
	if got := ResolvePermissions(nil); len(got) != 0 {
		t.Fatalf("nil roles resolved to %v", sortedPerms(got))
	}
	if got := ResolvePermissions([]Role{}); len(got) != 0 {
		t.Fatalf("empty roles resolved to %v", sortedPerms(got))
	}
}

func TestCanAllVacuouslyTrue(t *testing.T) {
	empty := make(PermissionSet)
	if !empty.CanAll(nil) {
		t.Fatal("CanAll(nil) should be true")
	}
	if !empty.CanAll([]Permission{}) {
		t.Fatal("CanAll([]) should be true")
	}
}

func TestCanAnyVacuouslyFalse(t *testing.T) {
	all := ResolvePermissions([]Role{RoleAdmin})
	if all.CanAny(nil) {
		t.Fatal("CanAny(nil) should be false")
	}
	if all.CanAny([]Permission{}) {
		t.Fatal("CanAny([]) should be false")
	}
}

func TestAdminHoldsEverything(t *testing.T) {
	set := ResolvePermissions([]Role{RoleAdmin})
	if !set.CanAll(AllPermissions()) {
		t.Fatal("admin should hold every permission")
	}
}

func TestTeacherGrantsAreMinimal(t *testing.T) {
	set := ResolvePermissions([]Role{RoleTeacher})
	want := []Permission{PermDashboardView, PermAttendanceRecord, PermGradebookManage, PermTimetableView}
	if len(set) != len(want) || !set.CanAll(want) {
		t.Fatalf("teacher permissions = %v, want %v", sortedPerms(set), want)
	}
	// manage implies view by convention, view is not granted separately
	if set.Can(PermGradebookView) {
		t.Fatal("teacher should not hold gradebook.view")
	}
	if set.Can(PermTimetableManage) {
		t.Fatal("teacher should not hold timetable.manage")
	}
	if set.Can(PermFeesManage) {
		t.Fatal("teacher should not hold fees.manage")
	}
}

func TestStudentAndParentGrants(t *testing.T) {
	want := []Permission{PermDashboardView, PermTimetableView, PermAttendanceView, PermGradebookView}
	for _, role := range []Role{RoleStudent, RoleParent} {
		set := ResolvePermissions([]Role{role})
		if len(set) != len(want) || !set.CanAll(want) {
			t.Fatalf("%s permissions = %v, want %v", role, sortedPerms(set), want)
		}
	}
}

func TestValidatePolicy(t *testing.T) {
	if err := ValidatePolicy(); err != nil {
		t.Fatalf("policy table inconsistent: %v", err)
	}
}

func TestParseRoleRejectsUnknown(t *testing.T) {
	if _, err := ParseRole("superuser"); err == nil {
		t.Fatal("expected error for unknown role")
	}
	r, err := ParseRole("  Teacher ")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if r != RoleTeacher {
		t.Fatalf("got %s", r)
	}
}
