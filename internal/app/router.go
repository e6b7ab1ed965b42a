package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/wardboard/wardboard/internal/auth"
	"github.com/wardboard/wardboard/internal/beds"
	"github.com/wardboard/wardboard/internal/dashboard"
	"github.com/wardboard/wardboard/internal/notifications"
	"github.com/wardboard/wardboard/internal/observability"
	"github.com/wardboard/wardboard/internal/shared"
	"github.com/wardboard/wardboard/internal/users"
	"github.com/wardboard/wardboard/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager

	AuthHandler          *auth.Handler
	DashboardHandler     *dashboard.Handler
	BedsHandler          *beds.Handler
	NotificationsHandler *notifications.Handler
	UsersHandler         *users.Handler
	JobHandler           *jobs.Handler
	Metrics              *observability.Metrics
}

// NewRouter constructs the chi.Router with Wardboard defaults.
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

	r.Route("/auth", params.AuthHandler.MountRoutes)
	if params.DashboardHandler != nil {
		params.DashboardHandler.MountRoutes(r)
	}
	r.Route("/api", func(r chi.Router) {
		if params.BedsHandler != nil {
			params.BedsHandler.MountRoutes(r)
		}
		if params.UsersHandler != nil {
			params.UsersHandler.MountRoutes(r)
		}
		if params.NotificationsHandler != nil {
			r.Route("/notifications", func(r chi.Router) {
				params.NotificationsHandler.MountRoutes(r)
			})
		}
	})
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
