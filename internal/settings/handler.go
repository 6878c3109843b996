package settings

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-sms/meridian-sms/internal/authz"
	"github.com/meridian-sms/meridian-sms/internal/nav"
	"github.com/meridian-sms/meridian-sms/internal/shared"
	"github.com/meridian-sms/meridian-sms/internal/view"
)

// Handler exposes the settings screens.
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

// MountRoutes registers settings routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guards.RequireAny(authz.PermSettingsManage))
		r.Get("/", h.Show)
		r.Post("/profile", h.SaveProfile)
		r.Post("/terms", h.CreateTerm)
		r.Post("/terms/{id}/status", h.TransitionTerm)
		r.Post("/subjects", h.CreateSubject)
		r.Post("/subjects/{id}/delete", h.DeleteSubject)
	})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	profile, err := h.service.Profile(r.Context())
	if err != nil {
		h.logger.Error("load school profile", slog.Any("error", err))
		http.Error(w, "Failed to load settings", http.StatusInternalServerError)
		return
	}
	terms, err := h.service.Terms(r.Context())
	if err != nil {
		h.logger.Error("list terms", slog.Any("error", err))
		http.Error(w, "Failed to load settings", http.StatusInternalServerError)
		return
	}
	subjects, err := h.service.Subjects(r.Context())
	if err != nil {
		h.logger.Error("list subjects", slog.Any("error", err))
		http.Error(w, "Failed to load settings", http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/settings/index.html", map[string]any{
		"Profile":  profile,
		"Terms":    terms,
		"Subjects": subjects,
		"Statuses": []string{shared.TermStatusUpcoming, shared.TermStatusActive, shared.TermStatusArchived},
	}, http.StatusOK)
}

func (h *Handler) SaveProfile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	req := SaveProfileRequest{
		Name:    r.PostFormValue("name"),
		Motto:   r.PostFormValue("motto"),
		Address: r.PostFormValue("address"),
		Phone:   r.PostFormValue("phone"),
		Email:   r.PostFormValue("email"),
		LogoURL: r.PostFormValue("logo_url"),
	}
	if err := h.service.SaveProfile(r.Context(), req, h.currentUserID(r)); err != nil {
		h.logger.Error("save school profile", slog.Any("error", err))
		h.redirectWithFlash(w, r, "/settings", "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/settings", "success", "School profile saved")
}

func (h *Handler) CreateTerm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	req := CreateTermRequest{
		Session:   r.PostFormValue("session"),
		Name:      r.PostFormValue("name"),
		StartDate: r.PostFormValue("start_date"),
		EndDate:   r.PostFormValue("end_date"),
	}
	if _, err := h.service.CreateTerm(r.Context(), req, h.currentUserID(r)); err != nil {
		h.logger.Error("create term", slog.Any("error", err))
		h.redirectWithFlash(w, r, "/settings", "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/settings", "success", "Term created")
}

func (h *Handler) TransitionTerm(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid term ID", http.StatusBadRequest)
		return
	}
	target := r.PostFormValue("status")
	override := r.PostFormValue("override") == "true"
	if err := h.service.TransitionTerm(r.Context(), id, target, override, h.currentUserID(r)); err != nil {
		h.logger.Error("transition term", slog.Any("error", err), slog.Int64("id", id))
		msg := shared.UserSafeMessage(err)
		if errors.Is(err, shared.ErrInvalidTermTransition) {
			msg = "That status change is not allowed."
		}
		h.redirectWithFlash(w, r, "/settings", "error", msg)
		return
	}
	h.redirectWithFlash(w, r, "/settings", "success", "Term updated")
}

func (h *Handler) CreateSubject(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	if _, err := h.service.CreateSubject(r.Context(), r.PostFormValue("name"), r.PostFormValue("code"), h.currentUserID(r)); err != nil {
		h.logger.Error("create subject", slog.Any("error", err))
		h.redirectWithFlash(w, r, "/settings", "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/settings", "success", "Subject added")
}

func (h *Handler) DeleteSubject(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid subject ID", http.StatusBadRequest)
		return
	}
	if err := h.service.DeleteSubject(r.Context(), id, h.currentUserID(r)); err != nil {
		h.logger.Error("delete subject", slog.Any("error", err), slog.Int64("id", id))
		msg := shared.UserSafeMessage(err)
		if errors.Is(err, ErrSubjectInUse) {
			msg = "This subject is still used by assessments or the timetable."
		}
		h.redirectWithFlash(w, r, "/settings", "error", msg)
		return
	}
	h.redirectWithFlash(w, r, "/settings", "success", "Subject removed")
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, tmpl string, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{Title: "Settings", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Nav: nav.FromContext(r.Context()), Data: data}
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
