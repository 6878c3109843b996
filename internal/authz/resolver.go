package authz

// PermissionSet is the resolved capability set for one subject. The zero
// value is a valid empty set; emptiness never means "still loading" — callers
// track loading separately.
type PermissionSet map[Permission]struct{}

// ResolvePermissions unions the table entries for every given role. A role
// missing from the table contributes nothing; a nil or empty role list yields
// an empty set. Pure function, no failure mode.
func ResolvePermissions(roles []Role) PermissionSet {
	set := make(PermissionSet)
	for _, role := range roles {
		for _, p := range RolePermissions[role] {
			set[p] = struct{}{}
		}
	}
	return set
}

// Can reports whether the set contains the permission.
func (s PermissionSet) Can(p Permission) bool {
	_, ok := s[p]
	return ok
}

// CanAll reports whether every listed permission is present. Vacuously true
// for an empty list.
func (s PermissionSet) CanAll(perms []Permission) bool {
	for _, p := range perms {
		if !s.Can(p) {
			return false
		}
	}
	return true
}

// CanAny reports whether at least one listed permission is present.
// Vacuously false for an empty list.
func (s PermissionSet) CanAny(perms []Permission) bool {
	for _, p := range perms {
		if s.Can(p) {
			return true
		}
	}
	return false
}

// List returns the permissions in the set in unspecified order.
func (s PermissionSet) List() []Permission {
	out := make([]Permission, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	return out
}
