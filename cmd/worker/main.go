package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/meridian-sms/meridian-sms/internal/app"
	"github.com/meridian-sms/meridian-sms/internal/platform/db"
	jobmetrics "github.com/meridian-sms/meridian-sms/internal/jobs"
	"github.com/meridian-sms/meridian-sms/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	mailer, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("create job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := mailer.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	metrics := jobmetrics.NewMetrics(nil)
	reminderJob := jobs.NewAttendanceReminderJob(pool, mailer, logger, metrics)
	sender := &jobs.SMTPSender{
		Addr:   fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
		From:   cfg.SMTPFrom,
		Logger: logger,
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeSendEmail, Handler: sender.HandleSendEmail},
			{Type: jobs.TaskTypeAttendanceReminder, Handler: reminderJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			// School mornings only; the handler skips weekends on its own.
			{Spec: "0 10 * * 1-5", Task: jobs.NewAttendanceReminderTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
