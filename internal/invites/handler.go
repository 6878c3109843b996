package invites

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

// Handler exposes the invite screens.
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

// MountRoutes registers the admin invite routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guards.RequireAny(authz.PermInvitesManage))
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Post("/{id}/revoke", h.Revoke)
	})
}

// MountPublicRoutes registers the acceptance routes, reachable without a
// session.
func (h *Handler) MountPublicRoutes(r chi.Router) {
	r.Get("/invites/accept", h.ShowAccept)
	r.Post("/invites/accept", h.Accept)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list invites", slog.Any("error", err))
		http.Error(w, "Failed to load invites", http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/invites/list.html", map[string]any{
		"Invites": list,
		"Roles":   authz.AllRoles(),
	}, http.StatusOK)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	req := CreateInviteRequest{
		Email: r.PostFormValue("email"),
		Role:  r.PostFormValue("role"),
	}
	if _, err := h.service.Create(r.Context(), req, h.currentUserID(r)); err != nil {
		h.logger.Error("create invite", slog.Any("error", err))
		msg := shared.UserSafeMessage(err)
		if errors.Is(err, authz.ErrUnknownRole) {
			msg = "That role is not recognised."
		}
		h.redirectWithFlash(w, r, "/invites", "error", msg)
		return
	}
	h.redirectWithFlash(w, r, "/invites", "success", "Invite sent")
}

func (h *Handler) Revoke(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid invite ID", http.StatusBadRequest)
		return
	}
	if err := h.service.Revoke(r.Context(), id, h.currentUserID(r)); err != nil {
		h.logger.Error("revoke invite", slog.Any("error", err), slog.Int64("id", id))
		h.redirectWithFlash(w, r, "/invites", "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/invites", "success", "Invite revoked")
}

func (h *Handler) ShowAccept(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	inv, err := h.service.Lookup(r.Context(), token)
	if err != nil {
		h.renderAcceptError(w, r)
		return
	}
	h.renderPublic(w, r, "pages/invites/accept.html", map[string]any{
		"Invite": inv,
		"Token":  token,
		"Errors": map[string]string{},
	}, http.StatusOK)
}

func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	req := AcceptInviteRequest{
		Token:    r.PostFormValue("token"),
		FullName: r.PostFormValue("full_name"),
		Password: r.PostFormValue("password"),
	}
	if _, err := h.service.Accept(r.Context(), req); err != nil {
		h.logger.Error("accept invite", slog.Any("error", err))
		if errors.Is(err, ErrInviteUnusable) || errors.Is(err, shared.ErrNotFound) {
			h.renderAcceptError(w, r)
			return
		}
		inv, lookupErr := h.service.Lookup(r.Context(), req.Token)
		if lookupErr != nil {
			h.renderAcceptError(w, r)
			return
		}
		h.renderPublic(w, r, "pages/invites/accept.html", map[string]any{
			"Invite": inv,
			"Token":  req.Token,
			"Errors": map[string]string{"general": shared.UserSafeMessage(err)},
		}, http.StatusBadRequest)
		return
	}
	http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
}

func (h *Handler) renderAcceptError(w http.ResponseWriter, r *http.Request) {
	h.renderPublic(w, r, "pages/invites/invalid.html", nil, http.StatusGone)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, tmpl string, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{Title: "Invites", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Nav: nav.FromContext(r.Context()), Data: data}
	w.WriteHeader(status)
	if err := h.templates.Render(w, tmpl, viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err), slog.String("template", tmpl))
	}
}

// renderPublic skips session-bound chrome for the unauthenticated pages.
func (h *Handler) renderPublic(w http.ResponseWriter, r *http.Request, tmpl string, data map[string]any, status int) {
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), shared.SessionFromContext(r.Context()))
	w.WriteHeader(status)
	if err := h.templates.Render(w, tmpl, view.TemplateData{Title: "Invitation", CSRFToken: csrfToken, CurrentPath: r.URL.Path, Data: data}); err != nil {
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
