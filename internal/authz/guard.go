package authz

import "strings"

// Decision is the state of a guard evaluation. A guard starts Loading and
// moves exactly once to Allowed or Denied; only a fresh auth-state change
// restarts the evaluation.
type Decision int

const (
	// Loading means role data has not resolved yet; no decision is made.
	Loading Decision = iota
	// Allowed means the check passed and the protected resource may render.
	Allowed
	// Denied means the check failed; the subject is redirected to a
	// fallback location.
	Denied
)

// String returns the decision name.
func (d Decision) String() string {
	switch d {
	case Loading:
		return "loading"
	case Allowed:
		return "allowed"
	case Denied:
		return "denied"
	default:
		return "unknown"
	}
}

// Mode selects how a multi-valued guard check combines its operands.
type Mode int

const (
	// ModeAny passes when at least one operand matches. For role guards it
	// also ORs the coarse-role and staff-role axes.
	ModeAny Mode = iota
	// ModeAll passes only when every operand matches.
	ModeAll
)

// GuardInput is the resolved subject state a guard evaluates. Loading is an
// explicit flag: an empty permission set with Loading false means
// "resolved, no permissions", never "still fetching".
type GuardInput struct {
	Authenticated bool
	Loading       bool
	StoreErr      error
	Roles         []Role
	StaffRoles    []StaffRole
	Permissions   PermissionSet
}

// EvaluateAuth gates on the presence of an authenticated subject.
func EvaluateAuth(in GuardInput) Decision {
	if !in.Authenticated {
		return Denied
	}
	return Allowed
}

// EvaluateRoles gates on membership in a named allow-list, matched
// case-insensitively against both coarse roles and staff-role names.
// Store errors deny; loading defers.
func EvaluateRoles(in GuardInput, allowed []string, mode Mode) Decision {
	if d, done := gateCommon(in); done {
		return d
	}
	if len(allowed) == 0 {
		return Allowed
	}
	held := make(map[string]struct{}, len(in.Roles)+len(in.StaffRoles))
	for _, r := range in.Roles {
		held[strings.ToLower(string(r))] = struct{}{}
	}
	for _, sr := range in.StaffRoles {
		held[strings.ToLower(string(sr))] = struct{}{}
	}
	matched := 0
	for _, name := range allowed {
		if _, ok := held[strings.ToLower(strings.TrimSpace(name))]; ok {
			matched++
		}
	}
	if mode == ModeAll {
		if matched == len(allowed) {
			return Allowed
		}
		return Denied
	}
	if matched > 0 {
		return Allowed
	}
	return Denied
}

// EvaluatePermissions gates on the resolved permission set.
func EvaluatePermissions(in GuardInput, required []Permission, mode Mode) Decision {
	if d, done := gateCommon(in); done {
		return d
	}
	if mode == ModeAll {
		if in.Permissions.CanAll(required) {
			return Allowed
		}
		return Denied
	}
	if len(required) == 0 {
		return Allowed
	}
	if in.Permissions.CanAny(required) {
		return Allowed
	}
	return Denied
}

// gateCommon applies the shared preconditions: unauthenticated subjects are
// denied, store failures fail closed, unresolved data defers the decision.
func gateCommon(in GuardInput) (Decision, bool) {
	if !in.Authenticated {
		return Denied, true
	}
	if in.Loading {
		return Loading, true
	}
	if in.StoreErr != nil {
		return Denied, true
	}
	return Allowed, false
}
