package auth

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/wardboard/wardboard/internal/platform/httpx"
	"github.com/wardboard/wardboard/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager, csrf *shared.CSRFManager) *Handler {
	return &Handler{
		logger:         logger,
		service:        service,
		sessionManager: sessions,
		csrfManager:    csrf,
		validator:      validator.New(),
	}
}

// MountRoutes registers auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.login)
	r.Post("/logout", h.logout)
	r.Get("/session", h.session)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type sessionResponse struct {
	UserID    string `json:"user_id"`
	CSRFToken string `json:"csrf_token"`
	// Where the client should navigate next. Always the generic entry
	// point; the dashboard resolver picks the role-specific target.
	Next string `json:"next"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}

	acc, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		// Same response for unknown email and wrong password.
		httpx.Problem(w, http.StatusUnauthorized, "Invalid Credentials", "email or password is incorrect")
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	sess.SetUser(strconv.FormatInt(acc.ID, 10))

	if sess.ID != "" {
		expiresAt := time.Now().Add(h.sessionManager.TTL())
		if err := h.service.RegisterSession(r.Context(), sess.ID, acc.ID, expiresAt, r.RemoteAddr, r.UserAgent()); err != nil {
			h.logger.Warn("register session", slog.Any("error", err))
		}
	}

	token, err := h.csrfManager.EnsureToken(r.Context(), sess)
	if err != nil {
		h.logger.Warn("issue csrf token", slog.Any("error", err))
	}
	httpx.JSON(w, http.StatusOK, sessionResponse{
		UserID:    strconv.FormatInt(acc.ID, 10),
		CSRFToken: token,
		Next:      "/dashboard",
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if sess.ID != "" {
			if err := h.service.RemoveSession(r.Context(), sess.ID); err != nil {
				h.logger.Warn("remove session", slog.Any("error", err))
			}
		}
		h.sessionManager.Destroy(sess)
	}
	httpx.NoContent(w)
}

// session reports the current login state so the client can restore its
// shell after a reload without a round trip through login.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.User() == "" {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	token, err := h.csrfManager.EnsureToken(r.Context(), sess)
	if err != nil {
		h.logger.Warn("issue csrf token", slog.Any("error", err))
	}
	httpx.JSON(w, http.StatusOK, sessionResponse{
		UserID:    sess.User(),
		CSRFToken: token,
		Next:      "/dashboard",
	})
}
