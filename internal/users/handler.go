package users

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/wardboard/wardboard/internal/platform/httpx"
	"github.com/wardboard/wardboard/internal/rbac"
	"github.com/wardboard/wardboard/internal/roles"
	"github.com/wardboard/wardboard/internal/shared"
)

// Handler wires HTTP endpoints for staff accounts.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbacMW rbac.Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		rbac:      rbacMW,
		validator: validator.New(),
	}
}

// MountRoutes registers user routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireAny(shared.PermUsersView)).Get("/users", h.list)
	r.With(h.rbac.RequireAny(shared.PermUsersView)).Get("/users/{userID}", h.get)
	r.With(h.rbac.RequireAny(shared.PermUsersEdit)).Post("/users", h.create)
	// Switching your own active role needs no extra permission.
	r.Post("/users/me/current-role", h.setCurrentRole)
}

type userListResponse struct {
	Items      []User            `json:"items"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

	list, pagination, err := h.service.ListUsers(r.Context(), page, perPage)
	if err != nil {
		h.logger.Error("list users", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if list == nil {
		list = []User{}
	}
	httpx.JSON(w, http.StatusOK, userListResponse{Items: list, Pagination: pagination})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	user, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		if isNotFound(err) {
			httpx.RespondError(w, httpx.ErrNotFound)
			return
		}
		h.logger.Error("get user", slog.Int64("user_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

type createUserRequest struct {
	Email    string   `json:"email" validate:"required,email,max=254"`
	Name     string   `json:"name" validate:"required,max=128"`
	Password string   `json:"password" validate:"required,min=8,max=72"`
	Roles    []string `json:"roles" validate:"required,min=1,dive,oneof=admin doctor nurse reception"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	ordered := make([]roles.Role, 0, len(req.Roles))
	for _, name := range req.Roles {
		ordered = append(ordered, roles.Role(name))
	}
	user, err := h.service.CreateUser(r.Context(), actorID(r), req.Email, req.Name, req.Password, ordered)
	if err != nil {
		h.logger.Error("create user", slog.String("email", req.Email), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, user)
}

type setCurrentRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=admin doctor nurse reception"`
}

func (h *Handler) setCurrentRole(w http.ResponseWriter, r *http.Request) {
	userID := actorID(r)
	if userID == 0 {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var req setCurrentRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.service.SetCurrentRole(r.Context(), userID, roles.Role(req.Role)); err != nil {
		h.logger.Error("set current role", slog.Int64("user_id", userID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func isNotFound(err error) bool {
	return errors.Is(err, shared.ErrNotFound)
}

func actorID(r *http.Request) int64 {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return 0
	}
	id, err := strconv.ParseInt(sess.User(), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
