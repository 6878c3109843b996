package audit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-sms/meridian-sms/internal/authz"
	"github.com/meridian-sms/meridian-sms/internal/nav"
	"github.com/meridian-sms/meridian-sms/internal/shared"
	"github.com/meridian-sms/meridian-sms/internal/view"
)

// Handler exposes the audit trail screen.
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

// MountRoutes registers audit routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guards.RequireAny(authz.PermSettingsManage))
		r.Get("/", h.List)
		r.Get("/export.csv", h.Export)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filters := parseFilters(r)
	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.logger.Error("audit timeline", slog.Any("error", err))
		http.Error(w, "Failed to load audit trail", http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/audit/list.html", map[string]any{
		"Rows":    result.Rows,
		"Paging":  result.Paging,
		"Filters": filters,
	}, http.StatusOK)
}

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	data, err := h.service.ExportCSV(r.Context(), parseFilters(r))
	if err != nil {
		h.logger.Error("audit export", slog.Any("error", err))
		http.Error(w, "Failed to export audit trail", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="audit-trail.csv"`)
	_, _ = w.Write(data)
}

func parseFilters(r *http.Request) Filters {
	q := r.URL.Query()
	f := Filters{
		Actor:  q.Get("actor"),
		Entity: q.Get("entity"),
		Action: q.Get("action"),
	}
	if raw := q.Get("from"); raw != "" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			f.From = t
		}
	}
	if raw := q.Get("to"); raw != "" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			// Inclusive end of day.
			f.To = t.Add(24*time.Hour - time.Second)
		}
	}
	if page, err := strconv.Atoi(q.Get("page")); err == nil {
		f.Page = page
	}
	return f
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, tmpl string, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{Title: "Audit trail", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Nav: nav.FromContext(r.Context()), Data: data}
	w.WriteHeader(status)
	if err := h.templates.Render(w, tmpl, viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err), slog.String("template", tmpl))
	}
}
