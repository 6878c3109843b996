package students

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

// Handler exposes the student screens.
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

// MountRoutes registers student routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guards.RequireAny(authz.PermStudentsManage))
		r.Get("/", h.List)
		r.Get("/new", h.ShowForm)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Show)
		r.Get("/{id}/edit", h.ShowEditForm)
		r.Post("/{id}", h.Update)
	})
}

type formErrors map[string]string

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	req := ListStudentsRequest{Limit: 50}
	if q := r.URL.Query().Get("search"); q != "" {
		req.Search = &q
	}
	if c := r.URL.Query().Get("class_id"); c != "" {
		if id, err := strconv.ParseInt(c, 10, 64); err == nil && id > 0 {
			req.ClassID = &id
		}
	}
	if v := r.URL.Query().Get("is_active"); v != "" {
		active := v == "true"
		req.IsActive = &active
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			req.Offset = parsed
		}
	}

	list, total, err := h.service.List(r.Context(), req)
	if err != nil {
		h.logger.Error("list students", slog.Any("error", err))
		http.Error(w, "Failed to load students", http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/students/list.html", map[string]any{
		"Students":   list,
		"Total":      total,
		"Pagination": shared.NewPagination(req.Offset/req.Limit+1, req.Limit, total),
		"Search":     req.Search,
	}, http.StatusOK)
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid student ID", http.StatusBadRequest)
		return
	}
	student, err := h.service.Get(r.Context(), id)
	if err != nil {
		http.Error(w, "Student not found", http.StatusNotFound)
		return
	}
	h.render(w, r, "pages/students/detail.html", map[string]any{"Student": student}, http.StatusOK)
}

func (h *Handler) ShowForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "pages/students/form.html", map[string]any{"Errors": formErrors{}, "Student": nil}, http.StatusOK)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	req := CreateStudentRequest{
		AdmissionNo: r.PostFormValue("admission_no"),
		FirstName:   r.PostFormValue("first_name"),
		LastName:    r.PostFormValue("last_name"),
	}
	if v := r.PostFormValue("class_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			req.ClassID = &id
		}
	}
	if v := r.PostFormValue("guardian_name"); v != "" {
		req.GuardianName = &v
	}
	if v := r.PostFormValue("guardian_phone"); v != "" {
		req.GuardianPhone = &v
	}
	if v := r.PostFormValue("date_of_birth"); v != "" {
		req.DateOfBirth = &v
	}
	if v := r.PostFormValue("gender"); v != "" {
		req.Gender = &v
	}

	student, err := h.service.Create(r.Context(), req, h.currentUserID(r))
	if err != nil {
		h.logger.Error("create student", slog.Any("error", err))
		h.render(w, r, "pages/students/form.html", map[string]any{
			"Errors":  formErrors{"general": shared.UserSafeMessage(err)},
			"Student": nil,
		}, http.StatusBadRequest)
		return
	}
	h.redirectWithFlash(w, r, "/students/"+strconv.FormatInt(student.ID, 10), "success", "Student enrolled")
}

func (h *Handler) ShowEditForm(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid student ID", http.StatusBadRequest)
		return
	}
	student, err := h.service.Get(r.Context(), id)
	if err != nil {
		http.Error(w, "Student not found", http.StatusNotFound)
		return
	}
	h.render(w, r, "pages/students/form.html", map[string]any{"Errors": formErrors{}, "Student": student}, http.StatusOK)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid student ID", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	req := UpdateStudentRequest{}
	if v := r.PostFormValue("first_name"); v != "" {
		req.FirstName = &v
	}
	if v := r.PostFormValue("last_name"); v != "" {
		req.LastName = &v
	}
	if v := r.PostFormValue("class_id"); v != "" {
		if cid, err := strconv.ParseInt(v, 10, 64); err == nil {
			req.ClassID = &cid
		}
	}
	if v := r.PostFormValue("guardian_name"); v != "" {
		req.GuardianName = &v
	}
	if v := r.PostFormValue("guardian_phone"); v != "" {
		req.GuardianPhone = &v
	}
	if v := r.PostFormValue("date_of_birth"); v != "" {
		req.DateOfBirth = &v
	}
	if v := r.PostFormValue("gender"); v != "" {
		req.Gender = &v
	}
	if v := r.PostFormValue("is_active"); v != "" {
		active := v == "true"
		req.IsActive = &active
	}

	student, err := h.service.Update(r.Context(), id, req, h.currentUserID(r))
	if err != nil {
		h.logger.Error("update student", slog.Any("error", err), slog.Int64("id", id))
		h.render(w, r, "pages/students/form.html", map[string]any{
			"Errors":  formErrors{"general": shared.UserSafeMessage(err)},
			"Student": student,
		}, http.StatusBadRequest)
		return
	}
	h.redirectWithFlash(w, r, "/students/"+strconv.FormatInt(student.ID, 10), "success", "Student updated")
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, tmpl string, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{Title: "Students", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Nav: nav.FromContext(r.Context()), Data: data}
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
