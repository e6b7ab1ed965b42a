package beds

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/wardboard/wardboard/internal/platform/httpx"
	"github.com/wardboard/wardboard/internal/rbac"
	"github.com/wardboard/wardboard/internal/shared"
)

// Handler wires HTTP endpoints for wards and beds.
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

// MountRoutes registers ward and bed routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireAny(shared.PermBedsView)).Get("/wards", h.listWards)
	r.With(h.rbac.RequireAny(shared.PermWardsEdit)).Post("/wards", h.createWard)
	r.With(h.rbac.RequireAny(shared.PermBedsView)).Get("/wards/{wardID}/beds", h.listBeds)
	r.With(h.rbac.RequireAny(shared.PermBedsView)).Get("/occupancy", h.occupancy)

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermBedsEdit))
		r.Post("/beds/{bedID}/assign", h.assign)
		r.Post("/beds/{bedID}/release", h.release)
		r.Post("/beds/{bedID}/ready", h.ready)
		r.Post("/beds/{bedID}/maintenance", h.maintenance)
	})
}

func (h *Handler) listWards(w http.ResponseWriter, r *http.Request) {
	wards, err := h.service.ListWards(r.Context())
	if err != nil {
		h.logger.Error("list wards", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if wards == nil {
		wards = []Ward{}
	}
	httpx.JSON(w, http.StatusOK, wards)
}

type createWardRequest struct {
	Code string `json:"code" validate:"required,max=16"`
	Name string `json:"name" validate:"required,max=128"`
}

func (h *Handler) createWard(w http.ResponseWriter, r *http.Request) {
	var req createWardRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	ward, err := h.service.CreateWard(r.Context(), actorID(r), req.Code, req.Name)
	if err != nil {
		h.logger.Error("create ward", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, ward)
}

type bedListResponse struct {
	Items      []Bed             `json:"items"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) listBeds(w http.ResponseWriter, r *http.Request) {
	wardID, err := strconv.ParseInt(chi.URLParam(r, "wardID"), 10, 64)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

	beds, pagination, err := h.service.ListBeds(r.Context(), wardID, page, perPage)
	if err != nil {
		h.logger.Error("list beds", slog.Int64("ward_id", wardID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if beds == nil {
		beds = []Bed{}
	}
	httpx.JSON(w, http.StatusOK, bedListResponse{Items: beds, Pagination: pagination})
}

func (h *Handler) occupancy(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.OccupancySummary(r.Context())
	if err != nil {
		h.logger.Error("occupancy summary", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

type assignRequest struct {
	PatientRef string `json:"patient_ref" validate:"required,max=64"`
}

func (h *Handler) assign(w http.ResponseWriter, r *http.Request) {
	bedID, ok := bedIDParam(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	var req assignRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	bed, err := h.service.AssignBed(r.Context(), actorID(r), bedID, req.PatientRef)
	h.respondTransition(w, bed, err)
}

func (h *Handler) release(w http.ResponseWriter, r *http.Request) {
	bedID, ok := bedIDParam(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	bed, err := h.service.ReleaseBed(r.Context(), actorID(r), bedID)
	h.respondTransition(w, bed, err)
}

func (h *Handler) ready(w http.ResponseWriter, r *http.Request) {
	bedID, ok := bedIDParam(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	bed, err := h.service.MarkReady(r.Context(), actorID(r), bedID)
	h.respondTransition(w, bed, err)
}

func (h *Handler) maintenance(w http.ResponseWriter, r *http.Request) {
	bedID, ok := bedIDParam(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	bed, err := h.service.StartMaintenance(r.Context(), actorID(r), bedID)
	h.respondTransition(w, bed, err)
}

func (h *Handler) respondTransition(w http.ResponseWriter, bed Bed, err error) {
	switch {
	case err == nil:
		httpx.JSON(w, http.StatusOK, bed)
	case isNotFound(err):
		httpx.RespondError(w, httpx.ErrNotFound)
	case isInvalidTransition(err):
		httpx.Problem(w, http.StatusConflict, "Invalid Transition", err.Error())
	default:
		h.logger.Error("bed transition", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, shared.ErrNotFound)
}

func isInvalidTransition(err error) bool {
	return errors.Is(err, shared.ErrInvalidTransition)
}

func bedIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "bedID"), 10, 64)
	return id, err == nil
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
