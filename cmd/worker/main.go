package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/wardboard/wardboard/internal/app"
	jobmetrics "github.com/wardboard/wardboard/internal/jobs"
	"github.com/wardboard/wardboard/internal/notifications"
	"github.com/wardboard/wardboard/internal/platform/cache"
	"github.com/wardboard/wardboard/internal/platform/db"
	"github.com/wardboard/wardboard/jobs"
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

	// Deliveries publish bumps over Redis so web instances can fan out to
	// their stream subscribers.
	hub := notifications.NewHub(redisClient, logger)
	notificationsRepo := notifications.NewRepository(pool)
	notificationsService := notifications.NewService(notificationsRepo, hub, nil)

	metrics := jobmetrics.NewMetrics(nil)
	deliverJob := jobs.NewDeliverJob(notificationsService, pool, logger, metrics)
	sweepJob := jobs.NewSweepJob(notificationsService, redisClient, logger, metrics, cfg.NotificationRetention)

	sweepTask, err := jobs.NewSweepTask(jobs.SweepPayload{})
	if err != nil {
		logger.Error("build sweep task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskNotifyDeliver, Handler: deliverJob.Handle},
			{Type: jobs.TaskNotifySweep, Handler: sweepJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.NotificationSweepCron, Task: sweepTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
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
