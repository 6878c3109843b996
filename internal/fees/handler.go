package fees

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

// Handler exposes the fee management screens.
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

// MountRoutes registers fee routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guards.RequireAny(authz.PermFeesManage))
		r.Get("/", h.Index)
		r.Post("/items", h.CreateFeeItem)
		r.Post("/items/{id}/delete", h.DeleteFeeItem)
		r.Get("/students/{id}", h.StudentLedger)
		r.Post("/payments", h.RecordPayment)
	})
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	term, err := h.settings.ActiveTerm(r.Context())
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		h.logger.Error("active term", slog.Any("error", err))
		http.Error(w, "Failed to load fees", http.StatusInternalServerError)
		return
	}
	var (
		items   []FeeItem
		debtors []Ledger
	)
	if term.ID != 0 {
		items, err = h.service.FeeItems(r.Context(), term.ID, 0)
		if err != nil {
			h.logger.Error("list fee items", slog.Any("error", err))
			http.Error(w, "Failed to load fees", http.StatusInternalServerError)
			return
		}
		debtors, err = h.service.Debtors(r.Context(), term.ID)
		if err != nil {
			h.logger.Error("list debtors", slog.Any("error", err))
			http.Error(w, "Failed to load fees", http.StatusInternalServerError)
			return
		}
	}
	classList, err := h.classes.List(r.Context())
	if err != nil {
		h.logger.Error("list classes", slog.Any("error", err))
	}
	h.render(w, r, "pages/fees/index.html", map[string]any{
		"Term":    term,
		"Items":   items,
		"Debtors": debtors,
		"Classes": classList,
		"Methods": []string{"cash", "transfer", "pos", "cheque"},
	}, http.StatusOK)
}

func (h *Handler) CreateFeeItem(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	termID, _ := strconv.ParseInt(r.PostFormValue("term_id"), 10, 64)
	classID, _ := strconv.ParseInt(r.PostFormValue("class_id"), 10, 64)
	req := CreateFeeItemRequest{
		TermID:  termID,
		ClassID: classID,
		Title:   r.PostFormValue("title"),
		Amount:  parseAmount(r.PostFormValue("amount")),
	}
	if _, err := h.service.CreateFeeItem(r.Context(), req, h.currentUserID(r)); err != nil {
		h.logger.Error("create fee item", slog.Any("error", err))
		h.redirectWithFlash(w, r, "/fees", "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/fees", "success", "Fee item created")
}

func (h *Handler) DeleteFeeItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid fee item ID", http.StatusBadRequest)
		return
	}
	if err := h.service.DeleteFeeItem(r.Context(), id, h.currentUserID(r)); err != nil {
		h.logger.Error("delete fee item", slog.Any("error", err), slog.Int64("id", id))
		h.redirectWithFlash(w, r, "/fees", "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/fees", "success", "Fee item removed")
}

func (h *Handler) StudentLedger(w http.ResponseWriter, r *http.Request) {
	studentID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid student ID", http.StatusBadRequest)
		return
	}
	term, err := h.settings.ActiveTerm(r.Context())
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		h.logger.Error("active term", slog.Any("error", err))
		http.Error(w, "Failed to load ledger", http.StatusInternalServerError)
		return
	}
	ledger, err := h.service.StudentLedger(r.Context(), studentID, term.ID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			http.Error(w, "Student not found", http.StatusNotFound)
			return
		}
		h.logger.Error("student ledger", slog.Any("error", err), slog.Int64("student_id", studentID))
		http.Error(w, "Failed to load ledger", http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/fees/ledger.html", map[string]any{
		"Term":    term,
		"Ledger":  ledger,
		"Methods": []string{"cash", "transfer", "pos", "cheque"},
	}, http.StatusOK)
}

func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	studentID, _ := strconv.ParseInt(r.PostFormValue("student_id"), 10, 64)
	req := RecordPaymentRequest{
		StudentID:      studentID,
		Amount:         parseAmount(r.PostFormValue("amount")),
		Method:         r.PostFormValue("method"),
		Reference:      r.PostFormValue("reference"),
		IdempotencyKey: r.PostFormValue("idempotency_key"),
	}
	back := "/fees/students/" + r.PostFormValue("student_id")
	if _, err := h.service.RecordPayment(r.Context(), req, h.currentUserID(r)); err != nil {
		h.logger.Error("record payment", slog.Any("error", err), slog.Int64("student_id", studentID))
		h.redirectWithFlash(w, r, back, "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, back, "success", "Payment recorded")
}

// parseAmount converts a naira form value like "1250.50" to kobo.
func parseAmount(raw string) int64 {
	major, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return int64(major*100 + 0.5)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, tmpl string, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{Title: "Fees", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Nav: nav.FromContext(r.Context()), Data: data}
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
