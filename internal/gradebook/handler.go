package gradebook

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-sms/meridian-sms/internal/assessments"
	"github.com/meridian-sms/meridian-sms/internal/authz"
	"github.com/meridian-sms/meridian-sms/internal/nav"
	"github.com/meridian-sms/meridian-sms/internal/settings"
	"github.com/meridian-sms/meridian-sms/internal/shared"
	"github.com/meridian-sms/meridian-sms/internal/view"
)

// Handler exposes the gradebook screens. Staff with the manage permission
// get the score-entry sheet; students and parents get the results view,
// both on the same mount.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	assessments *assessments.Service
	settings    *settings.Service
	templates   *view.Engine
	csrf        *shared.CSRFManager
	guards      authz.Middleware
	snapshots   *authz.SnapshotCache
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, assessSvc *assessments.Service, settingsSvc *settings.Service, templates *view.Engine, csrf *shared.CSRFManager, guards authz.Middleware, snapshots *authz.SnapshotCache) *Handler {
	return &Handler{logger: logger, service: service, assessments: assessSvc, settings: settingsSvc, templates: templates, csrf: csrf, guards: guards, snapshots: snapshots}
}

// MountRoutes registers gradebook routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guards.RequireAny(authz.PermGradebookManage, authz.PermGradebookView))
		r.Get("/", h.Index)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guards.RequireAny(authz.PermGradebookManage))
		r.Get("/assessments/{id}", h.Sheet)
		r.Post("/assessments/{id}", h.RecordScores)
	})
}

// Index routes by capability: graders see the assessment picker, everyone
// else sees their own results.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	if h.canManage(r) {
		h.showPicker(w, r)
		return
	}
	h.showResults(w, r)
}

func (h *Handler) showPicker(w http.ResponseWriter, r *http.Request) {
	term, err := h.settings.ActiveTerm(r.Context())
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		h.logger.Error("active term", slog.Any("error", err))
		http.Error(w, "Failed to load gradebook", http.StatusInternalServerError)
		return
	}
	var list []assessments.Assessment
	if term.ID != 0 {
		list, err = h.assessments.ListByTerm(r.Context(), term.ID, 0)
		if err != nil {
			h.logger.Error("list assessments", slog.Any("error", err))
			http.Error(w, "Failed to load gradebook", http.StatusInternalServerError)
			return
		}
	}
	h.render(w, r, "pages/gradebook/picker.html", map[string]any{
		"Term":        term,
		"Assessments": list,
	}, http.StatusOK)
}

func (h *Handler) showResults(w http.ResponseWriter, r *http.Request) {
	userID := h.currentUserID(r)
	studentID, studentName, err := h.service.StudentForUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			h.render(w, r, "pages/gradebook/results.html", map[string]any{"Results": nil, "StudentName": ""}, http.StatusOK)
			return
		}
		h.logger.Error("resolve student for user", slog.Any("error", err), slog.Int64("user_id", userID))
		http.Error(w, "Failed to load results", http.StatusInternalServerError)
		return
	}
	term, err := h.settings.ActiveTerm(r.Context())
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		h.logger.Error("active term", slog.Any("error", err))
		http.Error(w, "Failed to load results", http.StatusInternalServerError)
		return
	}
	var results []ResultLine
	if term.ID != 0 {
		results, err = h.service.TermResults(r.Context(), studentID, term.ID)
		if err != nil {
			h.logger.Error("term results", slog.Any("error", err), slog.Int64("student_id", studentID))
			http.Error(w, "Failed to load results", http.StatusInternalServerError)
			return
		}
	}
	h.render(w, r, "pages/gradebook/results.html", map[string]any{
		"Term":        term,
		"StudentName": studentName,
		"Results":     results,
	}, http.StatusOK)
}

func (h *Handler) Sheet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid assessment ID", http.StatusBadRequest)
		return
	}
	assessment, err := h.assessments.Get(r.Context(), id)
	if err != nil {
		http.Error(w, "Assessment not found", http.StatusNotFound)
		return
	}
	rows, err := h.service.Sheet(r.Context(), id)
	if err != nil {
		h.logger.Error("load score sheet", slog.Any("error", err), slog.Int64("assessment_id", id))
		http.Error(w, "Failed to load score sheet", http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/gradebook/sheet.html", map[string]any{
		"Assessment": assessment,
		"Rows":       rows,
	}, http.StatusOK)
}

func (h *Handler) RecordScores(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid assessment ID", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	scores := map[int64]float64{}
	for key, values := range r.PostForm {
		if !strings.HasPrefix(key, "score_") || len(values) == 0 || values[0] == "" {
			continue
		}
		studentID, err := strconv.ParseInt(strings.TrimPrefix(key, "score_"), 10, 64)
		if err != nil {
			continue
		}
		score, err := strconv.ParseFloat(values[0], 64)
		if err != nil {
			continue
		}
		scores[studentID] = score
	}

	back := "/gradebook/assessments/" + chi.URLParam(r, "id")
	if err := h.service.RecordScores(r.Context(), id, scores, h.currentUserID(r)); err != nil {
		h.logger.Error("record scores", slog.Any("error", err), slog.Int64("assessment_id", id))
		msg := shared.UserSafeMessage(err)
		if errors.Is(err, ErrScoreOutOfRange) {
			msg = "One of the scores is above the assessment maximum."
		}
		h.redirectWithFlash(w, r, back, "error", msg)
		return
	}
	h.redirectWithFlash(w, r, back, "success", "Scores saved")
}

func (h *Handler) canManage(r *http.Request) bool {
	snap, err := h.snapshots.Get(r.Context(), h.currentUserID(r))
	if err != nil {
		return false
	}
	return authz.ResolvePermissions(snap.Roles).Can(authz.PermGradebookManage)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, tmpl string, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{Title: "Gradebook", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Nav: nav.FromContext(r.Context()), Data: data}
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
