package timetable

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
	"github.com/meridian-sms/meridian-sms/internal/staff"
	"github.com/meridian-sms/meridian-sms/internal/view"
)

// Handler exposes the timetable screens.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	classes   *classes.Service
	staff     *staff.Service
	settings  *settings.Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	guards    authz.Middleware
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, classSvc *classes.Service, staffSvc *staff.Service, settingsSvc *settings.Service, templates *view.Engine, csrf *shared.CSRFManager, guards authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, classes: classSvc, staff: staffSvc, settings: settingsSvc, templates: templates, csrf: csrf, guards: guards}
}

// MountRoutes registers timetable routes. Everyone with the view permission
// can read the grid; editing needs the manage permission.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guards.RequireAny(authz.PermTimetableView))
		r.Get("/", h.Show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guards.RequireAny(authz.PermTimetableManage))
		r.Post("/slots", h.CreateSlot)
		r.Post("/slots/{id}/delete", h.DeleteSlot)
	})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	classList, err := h.classes.List(r.Context())
	if err != nil {
		h.logger.Error("list classes", slog.Any("error", err))
		http.Error(w, "Failed to load timetable", http.StatusInternalServerError)
		return
	}
	var classID int64
	if raw := r.URL.Query().Get("class_id"); raw != "" {
		classID, _ = strconv.ParseInt(raw, 10, 64)
	}
	if classID == 0 && len(classList) > 0 {
		classID = classList[0].ID
	}

	var slots []Slot
	if classID != 0 {
		slots, err = h.service.ClassWeek(r.Context(), classID)
		if err != nil {
			h.logger.Error("class week", slog.Any("error", err), slog.Int64("class_id", classID))
			http.Error(w, "Failed to load timetable", http.StatusInternalServerError)
			return
		}
	}

	// Grid is indexed grid[day-1][period-1].
	grid := make([][]*Slot, len(Days))
	for d := range grid {
		grid[d] = make([]*Slot, PeriodsPerDay)
	}
	for i := range slots {
		s := &slots[i]
		if s.Day >= 1 && s.Day <= len(Days) && s.Period >= 1 && s.Period <= PeriodsPerDay {
			grid[s.Day-1][s.Period-1] = s
		}
	}

	staffList, err := h.staff.List(r.Context())
	if err != nil {
		h.logger.Error("list staff", slog.Any("error", err))
	}
	subjects, err := h.settings.Subjects(r.Context())
	if err != nil {
		h.logger.Error("list subjects", slog.Any("error", err))
	}

	h.render(w, r, "pages/timetable/grid.html", map[string]any{
		"Classes":  classList,
		"ClassID":  classID,
		"Days":     Days,
		"Periods":  PeriodsPerDay,
		"Grid":     grid,
		"Staff":    staffList,
		"Subjects": subjects,
	}, http.StatusOK)
}

func (h *Handler) CreateSlot(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	classID, _ := strconv.ParseInt(r.PostFormValue("class_id"), 10, 64)
	subjectID, _ := strconv.ParseInt(r.PostFormValue("subject_id"), 10, 64)
	teacherID, _ := strconv.ParseInt(r.PostFormValue("teacher_id"), 10, 64)
	day, _ := strconv.Atoi(r.PostFormValue("day"))
	period, _ := strconv.Atoi(r.PostFormValue("period"))
	req := CreateSlotRequest{
		ClassID:   classID,
		Day:       day,
		Period:    period,
		SubjectID: subjectID,
		TeacherID: teacherID,
	}
	back := "/timetable?class_id=" + r.PostFormValue("class_id")
	if _, err := h.service.CreateSlot(r.Context(), req, h.currentUserID(r)); err != nil {
		h.logger.Error("create slot", slog.Any("error", err))
		msg := shared.UserSafeMessage(err)
		switch {
		case errors.Is(err, ErrSlotTaken):
			msg = "That period already has a lesson for this class."
		case errors.Is(err, ErrTeacherBusy):
			msg = "That teacher is already booked in this period."
		}
		h.redirectWithFlash(w, r, back, "error", msg)
		return
	}
	h.redirectWithFlash(w, r, back, "success", "Lesson added")
}

func (h *Handler) DeleteSlot(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid slot ID", http.StatusBadRequest)
		return
	}
	back := "/timetable"
	if classID := r.PostFormValue("class_id"); classID != "" {
		back += "?class_id=" + classID
	}
	if err := h.service.DeleteSlot(r.Context(), id, h.currentUserID(r)); err != nil {
		h.logger.Error("delete slot", slog.Any("error", err), slog.Int64("id", id))
		h.redirectWithFlash(w, r, back, "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, back, "success", "Lesson removed")
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, tmpl string, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{Title: "Timetable", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Nav: nav.FromContext(r.Context()), Data: data}
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
