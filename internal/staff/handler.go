package staff

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

// Handler exposes the teacher/staff screens.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	guards    authz.Middleware
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, guards authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf, guards: guards}
}

// MountRoutes registers staff routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guards.RequireAny(authz.PermTeachersManage))
		r.Get("/", h.List)
		r.Get("/new", h.ShowForm)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Show)
		r.Post("/{id}", h.Update)
		r.Post("/{id}/roles", h.AssignRole)
		r.Post("/{id}/roles/{roleID}/remove", h.RemoveRole)
	})
}

type formErrors map[string]string

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	members, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list staff", slog.Any("error", err))
		http.Error(w, "Failed to load staff", http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/staff/list.html", map[string]any{"Staff": members}, http.StatusOK)
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid staff ID", http.StatusBadRequest)
		return
	}
	member, err := h.service.Get(r.Context(), id)
	if err != nil {
		http.Error(w, "Staff member not found", http.StatusNotFound)
		return
	}
	roles, err := h.service.ListRoles(r.Context())
	if err != nil {
		h.logger.Error("list staff roles", slog.Any("error", err))
	}
	h.render(w, r, "pages/staff/detail.html", map[string]any{"Member": member, "AllRoles": roles}, http.StatusOK)
}

func (h *Handler) ShowForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "pages/staff/form.html", map[string]any{"Errors": formErrors{}, "Member": nil}, http.StatusOK)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	req := CreateStaffRequest{
		StaffNo:   r.PostFormValue("staff_no"),
		FirstName: r.PostFormValue("first_name"),
		LastName:  r.PostFormValue("last_name"),
		Email:     r.PostFormValue("email"),
	}
	if v := r.PostFormValue("phone"); v != "" {
		req.Phone = &v
	}
	member, err := h.service.Create(r.Context(), req, h.currentUserID(r))
	if err != nil {
		h.logger.Error("create staff", slog.Any("error", err))
		h.render(w, r, "pages/staff/form.html", map[string]any{
			"Errors": formErrors{"general": shared.UserSafeMessage(err)},
			"Member": nil,
		}, http.StatusBadRequest)
		return
	}
	h.redirectWithFlash(w, r, "/teachers/"+strconv.FormatInt(member.ID, 10), "success", "Staff member created")
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid staff ID", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	req := UpdateStaffRequest{}
	if v := r.PostFormValue("first_name"); v != "" {
		req.FirstName = &v
	}
	if v := r.PostFormValue("last_name"); v != "" {
		req.LastName = &v
	}
	if v := r.PostFormValue("email"); v != "" {
		req.Email = &v
	}
	if v := r.PostFormValue("phone"); v != "" {
		req.Phone = &v
	}
	if v := r.PostFormValue("is_active"); v != "" {
		active := v == "true"
		req.IsActive = &active
	}
	if _, err := h.service.Update(r.Context(), id, req, h.currentUserID(r)); err != nil {
		h.logger.Error("update staff", slog.Any("error", err), slog.Int64("id", id))
		h.redirectWithFlash(w, r, "/teachers/"+chi.URLParam(r, "id"), "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/teachers/"+chi.URLParam(r, "id"), "success", "Staff member updated")
}

func (h *Handler) AssignRole(w http.ResponseWriter, r *http.Request) {
	staffID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid staff ID", http.StatusBadRequest)
		return
	}
	roleID, err := strconv.ParseInt(r.PostFormValue("staff_role_id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid role ID", http.StatusBadRequest)
		return
	}
	if err := h.service.AssignRole(r.Context(), staffID, roleID, h.currentUserID(r)); err != nil {
		h.logger.Error("assign staff role", slog.Any("error", err))
		h.redirectWithFlash(w, r, "/teachers/"+chi.URLParam(r, "id"), "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/teachers/"+chi.URLParam(r, "id"), "success", "Role assigned")
}

func (h *Handler) RemoveRole(w http.ResponseWriter, r *http.Request) {
	staffID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid staff ID", http.StatusBadRequest)
		return
	}
	roleID, err := strconv.ParseInt(chi.URLParam(r, "roleID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid role ID", http.StatusBadRequest)
		return
	}
	if err := h.service.RemoveRole(r.Context(), staffID, roleID, h.currentUserID(r)); err != nil {
		h.logger.Error("remove staff role", slog.Any("error", err))
	}
	h.redirectWithFlash(w, r, "/teachers/"+chi.URLParam(r, "id"), "success", "Role removed")
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, tmpl string, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{Title: "Teachers", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Nav: nav.FromContext(r.Context()), Data: data}
	w.WriteHeader(status)
	if err := h.templates.Render(w, tmpl, viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err), slog.String("template", tmpl))
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, url, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, url, http.StatusSeeOther)
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
