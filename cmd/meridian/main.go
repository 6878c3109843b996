package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/meridian-sms/meridian-sms/internal/app"
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
	"github.com/meridian-sms/meridian-sms/internal/observability"
	"github.com/meridian-sms/meridian-sms/internal/platform/cache"
	"github.com/meridian-sms/meridian-sms/internal/platform/db"
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
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	if err := authz.ValidatePolicy(); err != nil {
		logger.Error("role policy table", slog.Any("error", err))
		os.Exit(1)
	}

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "meridian_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	roleStore := authz.NewRetryingStore(authz.NewPGRoleStore(dbpool))
	roleStore.Timeout = cfg.RoleFetchTimeout
	roleStore.Attempts = cfg.RoleFetchAttempts
	snapshots := authz.NewSnapshotCache(roleStore)
	guards := authz.Middleware{Snapshots: snapshots, Logger: logger}

	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	authService := auth.NewService(auth.NewRepository(dbpool))
	authHandler := auth.NewHandler(logger, authService, templates, sessionManager, csrfManager, snapshots)

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("create job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	pdfClient := report.NewClient(cfg.GotenbergURL)

	studentService := students.NewService(students.NewRepository(dbpool), auditLogger)
	staffService := staff.NewService(staff.NewRepository(dbpool), auditLogger)
	classService := classes.NewService(classes.NewRepository(dbpool))
	settingsService := settings.NewService(settings.NewRepository(dbpool), auditLogger)
	attendanceService := attendance.NewService(attendance.NewRepository(dbpool), redisClient, idempotencyStore, auditLogger)
	assessmentService := assessments.NewService(assessments.NewRepository(dbpool), auditLogger)
	gradebookService := gradebook.NewService(gradebook.NewRepository(dbpool), auditLogger)
	feeService := fees.NewService(fees.NewRepository(dbpool), idempotencyStore, auditLogger)
	timetableService := timetable.NewService(timetable.NewRepository(dbpool), auditLogger)
	inviteService := invites.NewService(invites.NewRepository(dbpool), jobClient, cfg.AppBaseURL, auditLogger)
	userService := users.NewService(users.NewRepository(dbpool), snapshots, auditLogger)
	dashboardService := dashboard.NewService(dashboard.NewRepository(dbpool), settingsService)
	auditService := audit.NewService(audit.NewRepository(dbpool))

	cardService, err := idcards.NewService(idcards.NewRepository(dbpool), studentService, settingsService, pdfClient, auditLogger)
	if err != nil {
		logger.Error("init id cards", slog.Any("error", err))
		os.Exit(1)
	}
	reportBuilder, err := reports.NewBuilder(studentService, settingsService, gradebookService, attendanceService, feeService, pdfClient)
	if err != nil {
		logger.Error("init report builder", slog.Any("error", err))
		os.Exit(1)
	}

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		Templates:      templates,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		Guards:         guards,
		Snapshots:      snapshots,

		AuthHandler:        authHandler,
		DashboardHandler:   dashboard.NewHandler(logger, dashboardService, templates, csrfManager, guards, snapshots),
		StudentsHandler:    students.NewHandler(logger, studentService, templates, csrfManager, guards),
		StaffHandler:       staff.NewHandler(logger, staffService, templates, csrfManager, guards),
		ClassesHandler:     classes.NewHandler(logger, classService, staffService, templates, csrfManager, guards),
		AttendanceHandler:  attendance.NewHandler(logger, attendanceService, classService, templates, csrfManager, guards),
		GradebookHandler:   gradebook.NewHandler(logger, gradebookService, assessmentService, settingsService, templates, csrfManager, guards, snapshots),
		AssessmentsHandler: assessments.NewHandler(logger, assessmentService, settingsService, classService, templates, csrfManager, guards),
		FeesHandler:        fees.NewHandler(logger, feeService, settingsService, classService, templates, csrfManager, guards),
		TimetableHandler:   timetable.NewHandler(logger, timetableService, classService, staffService, settingsService, templates, csrfManager, guards),
		ReportsHandler:     reports.NewHandler(logger, reportBuilder, studentService, classService, settingsService, templates, csrfManager, guards),
		IDCardsHandler:     idcards.NewHandler(logger, cardService, classService, templates, csrfManager, guards),
		InvitesHandler:     invites.NewHandler(logger, inviteService, templates, csrfManager, guards),
		UsersHandler:       users.NewHandler(logger, userService, templates, csrfManager, guards),
		SettingsHandler:    settings.NewHandler(logger, settingsService, templates, csrfManager, guards),
		AuditHandler:       audit.NewHandler(logger, auditService, templates, csrfManager, guards),
		JobHandler:         jobs.NewHandler(inspector, logger),
		PDFHandler:         report.NewHandler(pdfClient, logger),

		Metrics: metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
