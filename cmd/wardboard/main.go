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

	"github.com/wardboard/wardboard/internal/app"
	"github.com/wardboard/wardboard/internal/auth"
	"github.com/wardboard/wardboard/internal/beds"
	"github.com/wardboard/wardboard/internal/dashboard"
	"github.com/wardboard/wardboard/internal/notifications"
	"github.com/wardboard/wardboard/internal/observability"
	"github.com/wardboard/wardboard/internal/platform/cache"
	"github.com/wardboard/wardboard/internal/platform/db"
	"github.com/wardboard/wardboard/internal/rbac"
	"github.com/wardboard/wardboard/internal/shared"
	"github.com/wardboard/wardboard/internal/users"
	"github.com/wardboard/wardboard/jobs"
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

	sessionManager := shared.NewSessionManager(redisClient, cfg.SessionCookie, cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	auditLogger := shared.NewAuditLogger(dbpool)
	metrics := observability.NewMetrics()

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager)

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo, auditLogger)

	rbacService := rbac.NewService(usersService)
	rbacMiddleware := rbac.Middleware{Service: rbacService, Logger: logger}

	usersHandler := users.NewHandler(logger, usersService, rbacMiddleware)

	hub := notifications.NewHub(redisClient, logger)
	go func() {
		if err := hub.Run(ctx); err != nil && err != context.Canceled {
			logger.Error("notification hub", slog.Any("error", err))
		}
	}()

	notificationsRepo := notifications.NewRepository(dbpool)
	notificationsService := notifications.NewService(notificationsRepo, hub, metrics)
	notificationsHandler := notifications.NewHandler(logger, notificationsService, hub)

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	bedsRepo := beds.NewRepository(dbpool)
	bedsService := beds.NewService(bedsRepo, auditLogger, jobClient)
	bedsHandler := beds.NewHandler(logger, bedsService, rbacMiddleware)

	dashboardHandler := dashboard.NewHandler(logger, usersService, bedsService, notificationsService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:               logger,
		Config:               cfg,
		SessionManager:       sessionManager,
		CSRFManager:          csrfManager,
		AuthHandler:          authHandler,
		DashboardHandler:     dashboardHandler,
		BedsHandler:          bedsHandler,
		NotificationsHandler: notificationsHandler,
		UsersHandler:         usersHandler,
		JobHandler:           jobHandler,
		Metrics:              metrics,
	})

	server := &http.Server{
		Addr:        cfg.AppAddr,
		Handler:     router,
		ReadTimeout: cfg.AppReadTimeout,
		// No write timeout: the notification stream keeps its response open.
		WriteTimeout: 0,
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
