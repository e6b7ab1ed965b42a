package notifications

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wardboard/wardboard/internal/platform/httpx"
	"github.com/wardboard/wardboard/internal/shared"
)

const streamHeartbeat = 25 * time.Second

// Handler wires the notification center HTTP endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	hub     *Hub
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, hub *Hub) *Handler {
	return &Handler{logger: logger, service: service, hub: hub}
}

// MountRoutes registers notification routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/overview", h.overview)
	r.Post("/{id}/read", h.markRead)
	r.Post("/read-all", h.markAllRead)
	r.Post("/popover/toggle", h.popoverToggle)
	r.Post("/popover/close", h.popoverClose)
	r.Get("/stream", h.stream)
}

func recipientFromSession(r *http.Request) (int64, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.User() == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(sess.User(), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

type listResponse struct {
	Items      []Notification    `json:"items"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	recipientID, ok := recipientFromSession(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

	items, pagination, err := h.service.List(r.Context(), recipientID, page, perPage)
	if err != nil {
		h.logger.Error("list notifications", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if items == nil {
		items = []Notification{}
	}
	httpx.JSON(w, http.StatusOK, listResponse{Items: items, Pagination: pagination})
}

func (h *Handler) overview(w http.ResponseWriter, r *http.Request) {
	recipientID, ok := recipientFromSession(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	ov, err := h.service.Overview(r.Context(), recipientID)
	if err != nil {
		h.logger.Error("notification overview", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ov)
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	recipientID, ok := recipientFromSession(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.service.MarkRead(r.Context(), recipientID, id); err != nil {
		h.logger.Error("mark read", slog.String("id", id.String()), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.respondOverview(w, r, recipientID)
}

func (h *Handler) markAllRead(w http.ResponseWriter, r *http.Request) {
	recipientID, ok := recipientFromSession(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	if err := h.service.MarkAllRead(r.Context(), recipientID); err != nil {
		h.logger.Error("mark all read", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.respondOverview(w, r, recipientID)
}

// respondOverview returns the freshly derived badge state so the widget can
// never observe a stale count after a mutation completes.
func (h *Handler) respondOverview(w http.ResponseWriter, r *http.Request, recipientID int64) {
	ov, err := h.service.Overview(r.Context(), recipientID)
	if err != nil {
		h.logger.Error("overview after mutation", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ov)
}

func (h *Handler) popoverToggle(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.User() == "" {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	next := PopoverFromSession(sess).Toggle()
	next.Store(sess)
	httpx.JSON(w, http.StatusOK, next)
}

func (h *Handler) popoverClose(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.User() == "" {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	next := PopoverFromSession(sess).RequestClose()
	next.Store(sess)
	httpx.JSON(w, http.StatusOK, next)
}

// stream pushes badge overviews over SSE whenever the recipient's store
// changes, with periodic heartbeats to keep proxies from closing the
// connection.
func (h *Handler) stream(w http.ResponseWriter, r *http.Request) {
	recipientID, ok := recipientFromSession(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		httpx.Problem(w, http.StatusInternalServerError, "Streaming Unsupported", "")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	events, cancel := h.hub.Subscribe(recipientID)
	defer cancel()

	if err := h.writeOverviewEvent(w, r, recipientID); err != nil {
		return
	}
	flusher.Flush()

	ticker := time.NewTicker(streamHeartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := w.Write([]byte(": ping\n\n")); err != nil {
				return
			}
			flusher.Flush()
		case <-events:
			if err := h.writeOverviewEvent(w, r, recipientID); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (h *Handler) writeOverviewEvent(w http.ResponseWriter, r *http.Request, recipientID int64) error {
	ov, err := h.service.Overview(r.Context(), recipientID)
	if err != nil {
		h.logger.Warn("stream overview", slog.Any("error", err))
		return err
	}
	data, err := json.Marshal(ov)
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte("event: notifications\ndata: ")); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err = w.Write([]byte("\n\n"))
	return err
}
