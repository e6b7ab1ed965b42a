package notifications

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardboard/wardboard/internal/shared"
	_ "github.com/wardboard/wardboard/testing"
)

func newTestHandler(t *testing.T, repo Repository) (*chi.Mux, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessions := shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := NewHub(nil, logger)
	service := NewService(repo, hub, nil)
	handler := NewHandler(logger, service, hub)

	router := chi.NewRouter()
	router.Route("/api/notifications", handler.MountRoutes)
	return router, sessions
}

func authedRequest(t *testing.T, sessions *shared.SessionManager, method, target, userID string) (*http.Request, *shared.Session) {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	sess, err := sessions.Load(context.Background(), req)
	require.NoError(t, err)
	if userID != "" {
		sess.SetUser(userID)
	}
	return req.WithContext(shared.ContextWithSession(req.Context(), sess)), sess
}

func TestMarkReadEndpointReturnsFreshOverview(t *testing.T) {
	repo := newMockRepository()
	router, sessions := newTestHandler(t, repo)

	svc := NewService(repo, nil, nil)
	seeded := seed(t, svc, 42, 2, 0)

	req, _ := authedRequest(t, sessions, http.MethodPost, "/api/notifications/"+seeded[0].ID.String()+"/read", "42")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	var ov Overview
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &ov))
	assert.Equal(t, 1, ov.UnreadCount)
	assert.True(t, ov.HasUnread)
	assert.Equal(t, "1", ov.Badge)
}

func TestMarkReadEndpointAbsentIDStillOK(t *testing.T) {
	repo := newMockRepository()
	router, sessions := newTestHandler(t, repo)

	req, _ := authedRequest(t, sessions, http.MethodPost, "/api/notifications/6a6f685e-1a52-4f3c-a8d1-000000000000/read", "42")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code, "absent id is a no-op, not an error")
}

func TestMarkReadEndpointRejectsBadID(t *testing.T) {
	repo := newMockRepository()
	router, sessions := newTestHandler(t, repo)

	req, _ := authedRequest(t, sessions, http.MethodPost, "/api/notifications/not-a-uuid/read", "42")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusBadRequest, res.Code)
}

func TestReadAllEndpointZeroesBadge(t *testing.T) {
	repo := newMockRepository()
	router, sessions := newTestHandler(t, repo)

	svc := NewService(repo, nil, nil)
	seed(t, svc, 42, 150, 0)

	req, _ := authedRequest(t, sessions, http.MethodPost, "/api/notifications/read-all", "42")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	var ov Overview
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &ov))
	assert.Equal(t, 0, ov.UnreadCount)
	assert.False(t, ov.HasUnread)
	assert.Equal(t, "0", ov.Badge)
}

func TestEndpointsRequireSessionUser(t *testing.T) {
	repo := newMockRepository()
	router, sessions := newTestHandler(t, repo)

	req, _ := authedRequest(t, sessions, http.MethodGet, "/api/notifications/overview", "")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestPopoverEndpoints(t *testing.T) {
	repo := newMockRepository()
	router, sessions := newTestHandler(t, repo)

	req, sess := authedRequest(t, sessions, http.MethodPost, "/api/notifications/popover/toggle", "42")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	require.Equal(t, http.StatusOK, res.Code)

	var state Popover
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &state))
	assert.True(t, state.Open, "first toggle opens")
	assert.True(t, PopoverFromSession(sess).Open, "state persisted to session")

	// Toggle again from the same session: back to closed.
	req2 := httptest.NewRequest(http.MethodPost, "/api/notifications/popover/toggle", nil)
	req2 = req2.WithContext(shared.ContextWithSession(req2.Context(), sess))
	res2 := httptest.NewRecorder()
	router.ServeHTTP(res2, req2)
	require.NoError(t, json.Unmarshal(res2.Body.Bytes(), &state))
	assert.False(t, state.Open, "second toggle closes")

	// RequestClose from closed stays closed.
	req3 := httptest.NewRequest(http.MethodPost, "/api/notifications/popover/close", nil)
	req3 = req3.WithContext(shared.ContextWithSession(req3.Context(), sess))
	res3 := httptest.NewRecorder()
	router.ServeHTTP(res3, req3)
	require.NoError(t, json.Unmarshal(res3.Body.Bytes(), &state))
	assert.False(t, state.Open)
}

func TestListEndpointPaginates(t *testing.T) {
	repo := newMockRepository()
	router, sessions := newTestHandler(t, repo)

	svc := NewService(repo, nil, nil)
	seed(t, svc, 42, 25, 0)

	req, _ := authedRequest(t, sessions, http.MethodGet, "/api/notifications?page=2&per_page=10", "42")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	var payload struct {
		Items      []Notification    `json:"items"`
		Pagination shared.Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &payload))
	assert.Len(t, payload.Items, 10)
	assert.Equal(t, 25, payload.Pagination.Total)
	assert.Equal(t, 3, payload.Pagination.TotalPages)
}
