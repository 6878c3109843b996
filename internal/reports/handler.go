package reports

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-sms/meridian-sms/internal/authz"
	"github.com/meridian-sms/meridian-sms/internal/classes"
	"github.com/meridian-sms/meridian-sms/internal/nav"
	"github.com/meridian-sms/meridian-sms/internal/settings"
	"github.com/meridian-sms/meridian-sms/internal/shared"
	"github.com/meridian-sms/meridian-sms/internal/students"
	"github.com/meridian-sms/meridian-sms/internal/view"
)

// Handler exposes the report card screens.
type Handler struct {
	logger    *slog.Logger
	builder   *Builder
	students  *students.Service
	classes   *classes.Service
	settings  *settings.Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	guards    authz.Middleware
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, builder *Builder, studentSvc *students.Service, classSvc *classes.Service, settingsSvc *settings.Service, templates *view.Engine, csrf *shared.CSRFManager, guards authz.Middleware) *Handler {
	return &Handler{logger: logger, builder: builder, students: studentSvc, classes: classSvc, settings: settingsSvc, templates: templates, csrf: csrf, guards: guards}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guards.RequireAny(authz.PermReportsView))
		r.Get("/", h.Index)
		r.Get("/card", h.Card)
	})
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	classList, err := h.classes.List(r.Context())
	if err != nil {
		h.logger.Error("list classes", slog.Any("error", err))
		http.Error(w, "Failed to load reports", http.StatusInternalServerError)
		return
	}
	terms, err := h.settings.Terms(r.Context())
	if err != nil {
		h.logger.Error("list terms", slog.Any("error", err))
		http.Error(w, "Failed to load reports", http.StatusInternalServerError)
		return
	}

	var (
		classID int64
		roster  []students.Student
	)
	if raw := r.URL.Query().Get("class_id"); raw != "" {
		classID, _ = strconv.ParseInt(raw, 10, 64)
	}
	if classID != 0 {
		active := true
		roster, _, err = h.students.List(r.Context(), students.ListStudentsRequest{ClassID: &classID, IsActive: &active, Limit: 200})
		if err != nil {
			h.logger.Error("list students", slog.Any("error", err), slog.Int64("class_id", classID))
			http.Error(w, "Failed to load reports", http.StatusInternalServerError)
			return
		}
	}

	h.render(w, r, "pages/reports/index.html", map[string]any{
		"Classes":  classList,
		"ClassID":  classID,
		"Terms":    terms,
		"Students": roster,
	}, http.StatusOK)
}

func (h *Handler) Card(w http.ResponseWriter, r *http.Request) {
	studentID, err := strconv.ParseInt(r.URL.Query().Get("student_id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid student ID", http.StatusBadRequest)
		return
	}
	termID, err := strconv.ParseInt(r.URL.Query().Get("term_id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid term ID", http.StatusBadRequest)
		return
	}

	pdf, err := h.builder.RenderPDF(r.Context(), studentID, termID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			http.Error(w, "Student or term not found", http.StatusNotFound)
			return
		}
		h.logger.Error("render report card", slog.Any("error", err),
			slog.Int64("student_id", studentID), slog.Int64("term_id", termID))
		http.Error(w, "Failed to generate report card", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		`attachment; filename="report-card-`+strconv.FormatInt(studentID, 10)+`.pdf"`)
	_, _ = w.Write(pdf)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, tmpl string, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{Title: "Reports", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Nav: nav.FromContext(r.Context()), Data: data}
	w.WriteHeader(status)
	if err := h.templates.Render(w, tmpl, viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err), slog.String("template", tmpl))
	}
}
