package attendance

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-sms/meridian-sms/internal/authz"
	"github.com/meridian-sms/meridian-sms/internal/classes"
	"github.com/meridian-sms/meridian-sms/internal/nav"
	"github.com/meridian-sms/meridian-sms/internal/shared"
	"github.com/meridian-sms/meridian-sms/internal/view"
)

// Handler exposes the attendance screens.
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

// MountRoutes registers attendance routes. Viewing needs either permission;
// posting a register needs the recording one.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guards.RequireAny(authz.PermAttendanceRecord, authz.PermAttendanceView))
		r.Get("/", h.ShowRegister)
		r.Get("/students/{id}", h.StudentHistory)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guards.RequireAny(authz.PermAttendanceRecord))
		r.Post("/", h.RecordRegister)
	})
}

func (h *Handler) ShowRegister(w http.ResponseWriter, r *http.Request) {
	classList, err := h.classes.List(r.Context())
	if err != nil {
		h.logger.Error("list classes for register", slog.Any("error", err))
		http.Error(w, "Failed to load classes", http.StatusInternalServerError)
		return
	}

	date := time.Now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		if parsed, err := time.Parse("2006-01-02", raw); err == nil {
			date = parsed
		}
	}

	var (
		classID int64
		rows    []RegisterRow
	)
	if raw := r.URL.Query().Get("class_id"); raw != "" {
		classID, _ = strconv.ParseInt(raw, 10, 64)
	}
	if classID == 0 && len(classList) > 0 {
		classID = classList[0].ID
	}
	if classID != 0 {
		rows, err = h.service.Register(r.Context(), classID, date)
		if err != nil {
			h.logger.Error("load register", slog.Any("error", err), slog.Int64("class_id", classID))
			http.Error(w, "Failed to load register", http.StatusInternalServerError)
			return
		}
	}

	h.render(w, r, "pages/attendance/register.html", map[string]any{
		"Classes":  classList,
		"ClassID":  classID,
		"Date":     date.Format("2006-01-02"),
		"Rows":     rows,
		"Statuses": []Status{StatusPresent, StatusAbsent, StatusLate, StatusExcused},
	}, http.StatusOK)
}

func (h *Handler) RecordRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	classID, err := strconv.ParseInt(r.PostFormValue("class_id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid class ID", http.StatusBadRequest)
		return
	}
	req := RecordRegisterRequest{
		ClassID:        classID,
		Date:           r.PostFormValue("date"),
		IdempotencyKey: r.PostFormValue("idempotency_key"),
	}
	for _, raw := range r.PostForm["student_id"] {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		req.Entries = append(req.Entries, EntryInput{
			StudentID: id,
			Status:    r.PostFormValue("status_" + raw),
			Note:      r.PostFormValue("note_" + raw),
		})
	}

	back := "/attendance?class_id=" + strconv.FormatInt(classID, 10) + "&date=" + req.Date
	if err := h.service.RecordRegister(r.Context(), req, h.currentUserID(r)); err != nil {
		h.logger.Error("record register", slog.Any("error", err), slog.Int64("class_id", classID))
		msg := shared.UserSafeMessage(err)
		if errors.Is(err, ErrRegisterLocked) {
			msg = "Someone else is saving this register. Try again shortly."
		}
		h.redirectWithFlash(w, r, back, "error", msg)
		return
	}
	h.redirectWithFlash(w, r, back, "success", "Register saved")
}

func (h *Handler) StudentHistory(w http.ResponseWriter, r *http.Request) {
	studentID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid student ID", http.StatusBadRequest)
		return
	}
	now := time.Now()
	from := now.AddDate(0, -3, 0)
	summary, err := h.service.StudentSummary(r.Context(), studentID, from, now)
	if err != nil {
		h.logger.Error("student attendance summary", slog.Any("error", err), slog.Int64("student_id", studentID))
		http.Error(w, "Failed to load attendance", http.StatusInternalServerError)
		return
	}
	history, err := h.service.StudentHistory(r.Context(), studentID, 50)
	if err != nil {
		h.logger.Error("student attendance history", slog.Any("error", err), slog.Int64("student_id", studentID))
		http.Error(w, "Failed to load attendance", http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/attendance/student.html", map[string]any{
		"StudentID": studentID,
		"Summary":   summary,
		"History":   history,
	}, http.StatusOK)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, tmpl string, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{Title: "Attendance", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Nav: nav.FromContext(r.Context()), Data: data}
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
