package authz

import (
	"net/http"
	"strconv"
	"strings"

	"log/slog"

	"github.com/meridian-sms/meridian-sms/internal/shared"
)

// Middleware wires the guard state machine into HTTP handlers. Guards nest
// in a fixed order: RequireAuthenticated on the outer group, role or
// permission guards inside it, so no check is silently skipped.
type Middleware struct {
	Snapshots *SnapshotCache
	Logger    *slog.Logger
	LoginURL  string
	DeniedURL string
}

// RequireAuthenticated redirects anonymous requests to the login page.
func (m Middleware) RequireAuthenticated() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := m.currentUserID(r); !ok {
				http.Redirect(w, r, m.loginURL(), http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRoles ensures the current user matches the named allow-list across
// coarse roles and staff-role names, per the given mode.
func (m Middleware) RequireRoles(mode Mode, names ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			in, ok := m.resolve(w, r)
			if !ok {
				return
			}
			m.decide(w, r, EvaluateRoles(in, names, mode), next)
		})
	}
}

// RequireAny ensures the current user holds at least one required permission.
func (m Middleware) RequireAny(perms ...Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(perms) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			in, ok := m.resolve(w, r)
			if !ok {
				return
			}
			m.decide(w, r, EvaluatePermissions(in, perms, ModeAny), next)
		})
	}
}

// RequireAll ensures the current user holds every required permission.
func (m Middleware) RequireAll(perms ...Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(perms) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			in, ok := m.resolve(w, r)
			if !ok {
				return
			}
			m.decide(w, r, EvaluatePermissions(in, perms, ModeAll), next)
		})
	}
}

// resolve loads the subject's snapshot and builds the guard input. A false
// return means the response has already been written.
func (m Middleware) resolve(w http.ResponseWriter, r *http.Request) (GuardInput, bool) {
	userID, ok := m.currentUserID(r)
	if !ok {
		http.Redirect(w, r, m.loginURL(), http.StatusSeeOther)
		return GuardInput{}, false
	}
	snap, err := m.Snapshots.Get(r.Context(), userID)
	in := GuardInput{
		Authenticated: true,
		StoreErr:      err,
		Roles:         snap.Roles,
		StaffRoles:    snap.StaffRoles,
		Permissions:   ResolvePermissions(snap.Roles),
	}
	if err != nil && m.Logger != nil {
		m.Logger.Error("authz snapshot fetch", slog.Int64("user_id", userID), slog.Any("error", err))
	}
	return in, true
}

func (m Middleware) decide(w http.ResponseWriter, r *http.Request, d Decision, next http.Handler) {
	if d == Allowed {
		next.ServeHTTP(w, r)
		return
	}
	http.Redirect(w, r, m.deniedURL(), http.StatusSeeOther)
}

func (m Middleware) currentUserID(r *http.Request) (int64, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return 0, false
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("authz parse user id", slog.String("value", raw))
		}
		return 0, false
	}
	return id, true
}

func (m Middleware) loginURL() string {
	if m.LoginURL != "" {
		return m.LoginURL
	}
	return "/auth/login"
}

func (m Middleware) deniedURL() string {
	if m.DeniedURL != "" {
		return m.DeniedURL
	}
	return "/denied"
}
