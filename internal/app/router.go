package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/meridian-sms/meridian-sms/internal/assessments"
	"github.com/meridian-sms/meridian-sms/internal/attendance"
	"github.com/meridian-sms/meridian-sms/internal/audit"
	"github.com/meridian-sms/meridian-sms/internal/auth"
	"github.com/meridian-sms/meridian-sms/internal/authz"
	"github.com/meridian-sms/meridian-sms/internal/classes"
	"github.com/meridian-sms/meridian-sms/internal/dashboard"
	"github.com/meridian-sms/meridian-sms/internal/fees"
	"github.com/meridian-sms/meridian-sms/internal/gradebook"
	"github.com/meridian-sms/meridian-sms/internal/idcards"
	"github.com/meridian-sms/meridian-sms/internal/invites"
	"github.com/meridian-sms/meridian-sms/internal/nav"
	"github.com/meridian-sms/meridian-sms/internal/observability"
	"github.com/meridian-sms/meridian-sms/internal/reports"
	"github.com/meridian-sms/meridian-sms/internal/settings"
	"github.com/meridian-sms/meridian-sms/internal/shared"
	"github.com/meridian-sms/meridian-sms/internal/staff"
	"github.com/meridian-sms/meridian-sms/internal/students"
	"github.com/meridian-sms/meridian-sms/internal/timetable"
	"github.com/meridian-sms/meridian-sms/internal/users"
	"github.com/meridian-sms/meridian-sms/internal/view"
	"github.com/meridian-sms/meridian-sms/jobs"
	"github.com/meridian-sms/meridian-sms/report"
	"github.com/meridian-sms/meridian-sms/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	Templates      *view.Engine
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Guards         authz.Middleware
	Snapshots      *authz.SnapshotCache

	AuthHandler        *auth.Handler
	DashboardHandler   *dashboard.Handler
	StudentsHandler    *students.Handler
	StaffHandler       *staff.Handler
	ClassesHandler     *classes.Handler
	AttendanceHandler  *attendance.Handler
	GradebookHandler   *gradebook.Handler
	AssessmentsHandler *assessments.Handler
	FeesHandler        *fees.Handler
	TimetableHandler   *timetable.Handler
	ReportsHandler     *reports.Handler
	IDCardsHandler     *idcards.Handler
	InvitesHandler     *invites.Handler
	UsersHandler       *users.Handler
	SettingsHandler    *settings.Handler
	AuditHandler       *audit.Handler
	JobHandler         *jobs.Handler
	PDFHandler         *report.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with Meridian defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Session-free surfaces: login and invite acceptance.
	r.Route("/auth", params.AuthHandler.MountRoutes)
	params.InvitesHandler.MountPublicRoutes(r)

	// Everything else sits behind the session and the filtered sidebar.
	r.Group(func(r chi.Router) {
		r.Use(params.Guards.RequireAuthenticated())
		r.Use(nav.Middleware(params.Snapshots, params.Logger))

		params.DashboardHandler.MountRoutes(r)
		r.Route("/students", params.StudentsHandler.MountRoutes)
		r.Route("/teachers", params.StaffHandler.MountRoutes)
		r.Route("/classes", params.ClassesHandler.MountRoutes)
		r.Route("/attendance", params.AttendanceHandler.MountRoutes)
		r.Route("/gradebook", params.GradebookHandler.MountRoutes)
		r.Route("/assessments", params.AssessmentsHandler.MountRoutes)
		r.Route("/fees", params.FeesHandler.MountRoutes)
		r.Route("/timetable", params.TimetableHandler.MountRoutes)
		r.Route("/reports", params.ReportsHandler.MountRoutes)
		r.Route("/idcards", params.IDCardsHandler.MountRoutes)
		r.Route("/invites", params.InvitesHandler.MountRoutes)
		r.Route("/users", params.UsersHandler.MountRoutes)
		r.Route("/settings", params.SettingsHandler.MountRoutes)
		r.Route("/audit", params.AuditHandler.MountRoutes)
		r.Route("/jobs", params.JobHandler.MountRoutes)
		r.Route("/pdf", params.PDFHandler.MountRoutes)

		r.Get("/denied", func(w http.ResponseWriter, r *http.Request) {
			sess := shared.SessionFromContext(r.Context())
			csrfToken, _ := params.CSRFManager.EnsureToken(r.Context(), sess)
			var flash *shared.FlashMessage
			if sess != nil {
				flash = sess.PopFlash()
			}
			data := view.TemplateData{
				Title:       "Access denied",
				CSRFToken:   csrfToken,
				Flash:       flash,
				CurrentPath: r.URL.Path,
				Nav:         nav.FromContext(r.Context()),
			}
			w.WriteHeader(http.StatusForbidden)
			if err := params.Templates.Render(w, "pages/denied.html", data); err != nil {
				params.Logger.Error("render denied", slog.Any("error", err))
			}
		})
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	return r
}

// staticCacheHandler wraps a file server with Cache-Control headers. Assets
// are embedded and fingerprint-free, so the cache window stays short.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
