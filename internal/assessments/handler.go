package assessments

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
	"github.com/meridian-sms/meridian-sms/internal/view"
)

// Handler exposes the assessment planning screens.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	settings  *settings.Service
	classes   *classes.Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	guards    authz.Middleware
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, settingsSvc *settings.Service, classSvc *classes.Service, templates *view.Engine, csrf *shared.CSRFManager, guards authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, settings: settingsSvc, classes: classSvc, templates: templates, csrf: csrf, guards: guards}
}

// MountRoutes registers assessment routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guards.RequireAny(authz.PermAssessmentsManage))
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Post("/{id}", h.Update)
		r.Post("/{id}/delete", h.Delete)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	term, err := h.settings.ActiveTerm(r.Context())
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		h.logger.Error("active term", slog.Any("error", err))
		http.Error(w, "Failed to load assessments", http.StatusInternalServerError)
		return
	}
	termID := term.ID
	if raw := r.URL.Query().Get("term_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			termID = id
		}
	}
	var classID int64
	if raw := r.URL.Query().Get("class_id"); raw != "" {
		classID, _ = strconv.ParseInt(raw, 10, 64)
	}

	var list []Assessment
	if termID != 0 {
		list, err = h.service.ListByTerm(r.Context(), termID, classID)
		if err != nil {
			h.logger.Error("list assessments", slog.Any("error", err))
			http.Error(w, "Failed to load assessments", http.StatusInternalServerError)
			return
		}
	}
	terms, err := h.settings.Terms(r.Context())
	if err != nil {
		h.logger.Error("list terms", slog.Any("error", err))
	}
	classList, err := h.classes.List(r.Context())
	if err != nil {
		h.logger.Error("list classes", slog.Any("error", err))
	}
	subjects, err := h.settings.Subjects(r.Context())
	if err != nil {
		h.logger.Error("list subjects", slog.Any("error", err))
	}
	h.render(w, r, "pages/assessments/list.html", map[string]any{
		"Assessments": list,
		"TermID":      termID,
		"ClassID":     classID,
		"Terms":       terms,
		"Classes":     classList,
		"Subjects":    subjects,
		"Kinds":       []string{"exam", "test", "assignment"},
	}, http.StatusOK)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseSaveRequest(w, r)
	if !ok {
		return
	}
	back := "/assessments?term_id=" + strconv.FormatInt(req.TermID, 10)
	if _, err := h.service.Create(r.Context(), req, h.currentUserID(r)); err != nil {
		h.logger.Error("create assessment", slog.Any("error", err))
		h.redirectWithFlash(w, r, back, "error", safeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, back, "success", "Assessment created")
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid assessment ID", http.StatusBadRequest)
		return
	}
	req, ok := h.parseSaveRequest(w, r)
	if !ok {
		return
	}
	back := "/assessments?term_id=" + strconv.FormatInt(req.TermID, 10)
	if err := h.service.Update(r.Context(), id, req, h.currentUserID(r)); err != nil {
		h.logger.Error("update assessment", slog.Any("error", err), slog.Int64("id", id))
		h.redirectWithFlash(w, r, back, "error", safeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, back, "success", "Assessment updated")
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid assessment ID", http.StatusBadRequest)
		return
	}
	if err := h.service.Delete(r.Context(), id, h.currentUserID(r)); err != nil {
		h.logger.Error("delete assessment", slog.Any("error", err), slog.Int64("id", id))
		h.redirectWithFlash(w, r, "/assessments", "error", safeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/assessments", "success", "Assessment deleted")
}

func (h *Handler) parseSaveRequest(w http.ResponseWriter, r *http.Request) (SaveAssessmentRequest, bool) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return SaveAssessmentRequest{}, false
	}
	termID, _ := strconv.ParseInt(r.PostFormValue("term_id"), 10, 64)
	classID, _ := strconv.ParseInt(r.PostFormValue("class_id"), 10, 64)
	subjectID, _ := strconv.ParseInt(r.PostFormValue("subject_id"), 10, 64)
	maxScore, _ := strconv.Atoi(r.PostFormValue("max_score"))
	weight, _ := strconv.Atoi(r.PostFormValue("weight"))
	return SaveAssessmentRequest{
		TermID:    termID,
		ClassID:   classID,
		SubjectID: subjectID,
		Title:     r.PostFormValue("title"),
		Kind:      r.PostFormValue("kind"),
		MaxScore:  maxScore,
		Weight:    weight,
		HeldOn:    r.PostFormValue("held_on"),
	}, true
}

func safeMessage(err error) string {
	switch {
	case errors.Is(err, ErrWeightExceeded):
		return "Combined weights for this subject would exceed 100."
	case errors.Is(err, ErrHasScores):
		return "Scores have already been recorded against this assessment."
	default:
		return shared.UserSafeMessage(err)
	}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, tmpl string, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{Title: "Assessments", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Nav: nav.FromContext(r.Context()), Data: data}
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
