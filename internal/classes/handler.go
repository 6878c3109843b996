package classes

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-sms/meridian-sms/internal/authz"
	"github.com/meridian-sms/meridian-sms/internal/nav"
	"github.com/meridian-sms/meridian-sms/internal/shared"
	"github.com/meridian-sms/meridian-sms/internal/staff"
	"github.com/meridian-sms/meridian-sms/internal/view"
)

// Handler exposes the class management screens.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	staff     *staff.Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	guards    authz.Middleware
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, staffSvc *staff.Service, templates *view.Engine, csrf *shared.CSRFManager, guards authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, staff: staffSvc, templates: templates, csrf: csrf, guards: guards}
}

// MountRoutes registers class routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guards.RequireAny(authz.PermClassesManage))
		r.Get("/", h.List)
		r.Get("/new", h.ShowForm)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Show)
		r.Post("/{id}", h.Update)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list classes", slog.Any("error", err))
		http.Error(w, "Failed to load classes", http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/classes/list.html", map[string]any{"Classes": list}, http.StatusOK)
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid class ID", http.StatusBadRequest)
		return
	}
	class, err := h.service.Get(r.Context(), id)
	if err != nil {
		http.Error(w, "Class not found", http.StatusNotFound)
		return
	}
	h.renderForm(w, r, "pages/classes/detail.html", &class, nil, http.StatusOK)
}

func (h *Handler) ShowForm(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, "pages/classes/form.html", nil, nil, http.StatusOK)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseSaveRequest(w, r)
	if !ok {
		return
	}
	class, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.logger.Error("create class", slog.Any("error", err))
		h.renderForm(w, r, "pages/classes/form.html", nil, map[string]string{"general": shared.UserSafeMessage(err)}, http.StatusBadRequest)
		return
	}
	h.redirectWithFlash(w, r, "/classes/"+strconv.FormatInt(class.ID, 10), "success", "Class created")
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid class ID", http.StatusBadRequest)
		return
	}
	req, ok := h.parseSaveRequest(w, r)
	if !ok {
		return
	}
	if _, err := h.service.Update(r.Context(), id, req); err != nil {
		h.logger.Error("update class", slog.Any("error", err), slog.Int64("id", id))
		h.redirectWithFlash(w, r, "/classes/"+chi.URLParam(r, "id"), "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/classes/"+chi.URLParam(r, "id"), "success", "Class updated")
}

func (h *Handler) parseSaveRequest(w http.ResponseWriter, r *http.Request) (SaveClassRequest, bool) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return SaveClassRequest{}, false
	}
	req := SaveClassRequest{
		Name:  r.PostFormValue("name"),
		Level: r.PostFormValue("level"),
	}
	if v := r.PostFormValue("form_teacher_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			req.FormTeacherID = &id
		}
	}
	return req, true
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, tmpl string, class *Class, errs map[string]string, status int) {
	teachers, err := h.staff.List(r.Context())
	if err != nil {
		h.logger.Error("list staff for class form", slog.Any("error", err))
	}
	if errs == nil {
		errs = map[string]string{}
	}
	h.render(w, r, tmpl, map[string]any{"Class": class, "Teachers": teachers, "Errors": errs}, status)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, tmpl string, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{Title: "Classes", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Nav: nav.FromContext(r.Context()), Data: data}
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
