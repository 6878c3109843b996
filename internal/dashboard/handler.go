package dashboard

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-sms/meridian-sms/internal/authz"
	"github.com/meridian-sms/meridian-sms/internal/nav"
	"github.com/meridian-sms/meridian-sms/internal/shared"
	"github.com/meridian-sms/meridian-sms/internal/view"
)

// Handler exposes the home screen and the role dashboards.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	guards    authz.Middleware
	snapshots *authz.SnapshotCache
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, guards authz.Middleware, snapshots *authz.SnapshotCache) *Handler {
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf, guards: guards, snapshots: snapshots}
}

// MountRoutes registers the dashboard routes on the authenticated router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guards.RequireAny(authz.PermDashboardView))
		r.Get("/", h.Home)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guards.RequireRoles(authz.ModeAny,
			string(authz.RoleTeacher), string(authz.RoleSubjectTeacher),
			string(authz.RoleAssistantTeacher), string(authz.RoleFormMaster)))
		r.Get("/teacher/dashboard", h.Teacher)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guards.RequireRoles(authz.ModeAny, string(authz.RoleStudent)))
		r.Get("/student/dashboard", h.Student)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guards.RequireRoles(authz.ModeAny, string(authz.RoleParent)))
		r.Get("/parent/dashboard", h.Parent)
	})
}

// Home lands every signed-in user. Staff with management rights get the
// school-wide snapshot; everyone keeps the filtered sidebar for the rest.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{}
	if h.hasAny(r, authz.PermStudentsManage, authz.PermReportsView) {
		stats, outstanding, err := h.service.AdminSnapshot(r.Context())
		if err != nil {
			h.logger.Error("admin snapshot", slog.Any("error", err))
		} else {
			data["Stats"] = stats
			data["Outstanding"] = outstanding
		}
	}
	h.render(w, r, "pages/dashboard/home.html", data, http.StatusOK)
}

func (h *Handler) Teacher(w http.ResponseWriter, r *http.Request) {
	today, err := h.service.TeacherToday(r.Context(), h.currentUserID(r))
	if err != nil {
		h.logger.Error("teacher today", slog.Any("error", err))
	}
	h.render(w, r, "pages/dashboard/teacher.html", map[string]any{"Today": today}, http.StatusOK)
}

func (h *Handler) Student(w http.ResponseWriter, r *http.Request) {
	today, err := h.service.StudentToday(r.Context(), h.currentUserID(r))
	if err != nil {
		h.logger.Error("student today", slog.Any("error", err))
	}
	h.render(w, r, "pages/dashboard/student.html", map[string]any{"Today": today}, http.StatusOK)
}

func (h *Handler) Parent(w http.ResponseWriter, r *http.Request) {
	today, err := h.service.StudentToday(r.Context(), h.currentUserID(r))
	if err != nil {
		h.logger.Error("parent today", slog.Any("error", err))
	}
	h.render(w, r, "pages/dashboard/parent.html", map[string]any{"Today": today}, http.StatusOK)
}

func (h *Handler) hasAny(r *http.Request, perms ...authz.Permission) bool {
	snap, err := h.snapshots.Get(r.Context(), h.currentUserID(r))
	if err != nil {
		return false
	}
	return authz.ResolvePermissions(snap.Roles).CanAny(perms)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, tmpl string, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{Title: "Dashboard", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Nav: nav.FromContext(r.Context()), Data: data}
	w.WriteHeader(status)
	if err := h.templates.Render(w, tmpl, viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err), slog.String("template", tmpl))
	}
}

func (h *Handler) currentUserID(r *http.Request) int64 {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if id, err := strconv.ParseInt(sess.User(), 10, 64); err == nil {
			return id
		}
	}
	return 0
}
