package idcards

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-sms/meridian-sms/internal/authz"
	"github.com/meridian-sms/meridian-sms/internal/classes"
	"github.com/meridian-sms/meridian-sms/internal/nav"
	"github.com/meridian-sms/meridian-sms/internal/shared"
	"github.com/meridian-sms/meridian-sms/internal/view"
)

// Handler exposes the ID card screens.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	classes   *classes.Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	guards    authz.Middleware
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, classSvc *classes.Service, templates *view.Engine, csrf *shared.CSRFManager, guards authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, classes: classSvc, templates: templates, csrf: csrf, guards: guards}
}

// MountRoutes registers ID card routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guards.RequireAny(authz.PermIDCardsView, authz.PermIDCardsManage))
		r.Get("/", h.Index)
		r.Get("/students/{id}.pdf", h.Download)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guards.RequireAny(authz.PermIDCardsManage))
		r.Post("/students/{id}", h.Issue)
	})
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	classList, err := h.classes.List(r.Context())
	if err != nil {
		h.logger.Error("list classes", slog.Any("error", err))
		http.Error(w, "Failed to load ID cards", http.StatusInternalServerError)
		return
	}
	var classID int64
	if raw := r.URL.Query().Get("class_id"); raw != "" {
		classID, _ = strconv.ParseInt(raw, 10, 64)
	}
	if classID == 0 && len(classList) > 0 {
		classID = classList[0].ID
	}

	var rows []ClassStatusRow
	if classID != 0 {
		rows, err = h.service.ClassStatus(r.Context(), classID)
		if err != nil {
			h.logger.Error("class card status", slog.Any("error", err), slog.Int64("class_id", classID))
			http.Error(w, "Failed to load ID cards", http.StatusInternalServerError)
			return
		}
	}
	h.render(w, r, "pages/idcards/index.html", map[string]any{
		"Classes": classList,
		"ClassID": classID,
		"Rows":    rows,
	}, http.StatusOK)
}

func (h *Handler) Issue(w http.ResponseWriter, r *http.Request) {
	studentID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid student ID", http.StatusBadRequest)
		return
	}
	back := "/idcards"
	if classID := r.PostFormValue("class_id"); classID != "" {
		back += "?class_id=" + classID
	}
	if _, err := h.service.Issue(r.Context(), studentID, h.currentUserID(r)); err != nil {
		h.logger.Error("issue card", slog.Any("error", err), slog.Int64("student_id", studentID))
		h.redirectWithFlash(w, r, back, "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, back, "success", "Card issued")
}

func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	studentID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid student ID", http.StatusBadRequest)
		return
	}
	pdf, err := h.service.RenderPDF(r.Context(), studentID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			http.Error(w, "No card issued for this student", http.StatusNotFound)
			return
		}
		h.logger.Error("render card", slog.Any("error", err), slog.Int64("student_id", studentID))
		http.Error(w, "Failed to generate card", http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		`attachment; filename="idcard-`+strconv.FormatInt(studentID, 10)+`.pdf"`)
	_, _ = w.Write(pdf)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, tmpl string, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{Title: "ID Cards", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Nav: nav.FromContext(r.Context()), Data: data}
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
