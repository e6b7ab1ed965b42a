package dashboard

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/wardboard/wardboard/internal/beds"
	"github.com/wardboard/wardboard/internal/notifications"
	"github.com/wardboard/wardboard/internal/platform/httpx"
	"github.com/wardboard/wardboard/internal/roles"
	"github.com/wardboard/wardboard/internal/shared"
)

// RoleSource supplies the ordered role list and optional current role for a
// user. Implemented by the users service.
type RoleSource interface {
	RolesForUser(ctx context.Context, userID int64) ([]roles.Role, roles.Role, error)
}

// OccupancySource supplies ward occupancy figures for the summary endpoint.
type OccupancySource interface {
	OccupancySummary(ctx context.Context) (beds.OccupancySummary, error)
}

// OverviewSource supplies the notification badge overview for the summary
// endpoint.
type OverviewSource interface {
	Overview(ctx context.Context, recipientID int64) (notifications.Overview, error)
}

// Handler wires HTTP endpoints for post-login routing and the dashboard
// summary.
type Handler struct {
	logger    *slog.Logger
	roleSrc   RoleSource
	occupancy OccupancySource
	overview  OverviewSource
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, roleSrc RoleSource, occupancy OccupancySource, overview OverviewSource) *Handler {
	return &Handler{logger: logger, roleSrc: roleSrc, occupancy: occupancy, overview: overview}
}

// MountRoutes registers dashboard routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/dashboard", h.redirect)
	r.Get("/api/dashboard/route", h.route)
	r.Get("/api/dashboard/summary", h.summary)
}

// redirect issues the server-side navigation for the generic entry point. A
// 303 replaces the pending POST/GET chain; combined with Directive.Replace
// the entry point never lingers in history. Only a missing session user
// bounces to login; a failed role lookup on an authenticated session is a
// retryable error, not a logout.
func (h *Handler) redirect(w http.ResponseWriter, r *http.Request) {
	directive, authed, err := h.resolve(r)
	if !authed {
		http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
		return
	}
	if err != nil || directive.Status != StatusReady {
		httpx.Problem(w, http.StatusServiceUnavailable, "Role Lookup Unavailable", "")
		return
	}
	http.Redirect(w, r, directive.Target, http.StatusSeeOther)
}

// route exposes the directive as JSON for the SPA shell. A failed role
// lookup surfaces as a pending directive so the shell polls again.
func (h *Handler) route(w http.ResponseWriter, r *http.Request) {
	directive, authed, _ := h.resolve(r)
	if !authed {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	httpx.JSON(w, http.StatusOK, directive)
}

func (h *Handler) resolve(r *http.Request) (Directive, bool, error) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.User() == "" {
		return Directive{Status: StatusPending}, false, nil
	}
	userID, err := strconv.ParseInt(sess.User(), 10, 64)
	if err != nil {
		return Directive{Status: StatusPending}, false, nil
	}

	ordered, current, err := h.roleSrc.RolesForUser(r.Context(), userID)
	if err != nil {
		// Role lookup still in flight or failed: stay pending rather than
		// route the user somewhere wrong.
		h.logger.Warn("role lookup", slog.Int64("user_id", userID), slog.Any("error", err))
		return Directive{Status: StatusPending}, true, err
	}

	directive := Resolve(SessionState{
		UserID:      userID,
		Roles:       ordered,
		CurrentRole: current,
	})
	if directive.Fallback {
		// Deliberate safety net, but worth surfacing: an unrecognized role
		// usually means a misconfigured role table.
		h.logger.Warn("unrecognized role, routing to reception",
			slog.Int64("user_id", userID),
			slog.String("current_role", string(current)))
	}
	return directive, true, nil
}

type summaryResponse struct {
	Occupancy     beds.OccupancySummary  `json:"occupancy"`
	Notifications notifications.Overview `json:"notifications"`
}

// summary aggregates ward occupancy and the notification overview for the
// landing widgets. Both lookups run concurrently.
func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.User() == "" {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	userID, err := strconv.ParseInt(sess.User(), 10, 64)
	if err != nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}

	var resp summaryResponse
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		occ, err := h.occupancy.OccupancySummary(ctx)
		if err != nil {
			return err
		}
		resp.Occupancy = occ
		return nil
	})
	g.Go(func() error {
		ov, err := h.overview.Overview(ctx, userID)
		if err != nil {
			return err
		}
		resp.Notifications = ov
		return nil
	})
	if err := g.Wait(); err != nil {
		h.logger.Error("dashboard summary", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, resp)
}
