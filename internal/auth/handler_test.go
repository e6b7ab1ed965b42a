package auth

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/wardboard/wardboard/internal/shared"
	_ "github.com/wardboard/wardboard/testing"
)

type mockRepository struct {
	mu       sync.Mutex
	accounts map[string]Account
	sessions map[string]int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		accounts: make(map[string]Account),
		sessions: make(map[string]int64),
	}
}

func (m *mockRepository) addAccount(t *testing.T, id int64, email, password string, active bool) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[email] = Account{
		ID:           id,
		Email:        email,
		PasswordHash: string(hash),
		IsActive:     active,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
}

func (m *mockRepository) FindByEmail(ctx context.Context, email string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &acc, nil
}

func (m *mockRepository) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[id] = userID
	return nil
}

func (m *mockRepository) DeleteSession(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// commitWriter persists the session right before the first header write,
// mirroring the app middleware.
type commitWriter struct {
	http.ResponseWriter
	manager       *shared.SessionManager
	sess          *shared.Session
	req           *http.Request
	headerWritten bool
}

func (w *commitWriter) WriteHeader(statusCode int) {
	if !w.headerWritten {
		w.headerWritten = true
		_ = w.manager.Commit(w.req.Context(), w.ResponseWriter, w.req, w.sess)
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *commitWriter) Write(data []byte) (int, error) {
	if !w.headerWritten {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(data)
}

type fixture struct {
	router  chi.Router
	manager *shared.SessionManager
	repo    *mockRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	manager := shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)
	csrf := shared.NewCSRFManager("csrf-secret")
	repo := newMockRepository()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewHandler(logger, NewService(repo), manager, csrf)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			sess, err := manager.Load(req.Context(), req)
			require.NoError(t, err)
			req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
			next.ServeHTTP(&commitWriter{ResponseWriter: w, manager: manager, sess: sess, req: req}, req)
		})
	})
	handler.MountRoutes(r)
	return &fixture{router: r, manager: manager, repo: repo}
}

func TestLoginSuccess(t *testing.T) {
	fx := newFixture(t)
	fx.repo.addAccount(t, 7, "doc@ward.example", "correct-horse", true)

	req := httptest.NewRequest(http.MethodPost, "/login",
		strings.NewReader(`{"email":"doc@ward.example","password":"correct-horse"}`))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	fx.router.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	var body sessionResponse
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	assert.Equal(t, "7", body.UserID)
	assert.Equal(t, "/dashboard", body.Next)
	assert.NotEmpty(t, body.CSRFToken)

	cookies := res.Result().Cookies()
	require.NotEmpty(t, cookies, "login must set the session cookie")
	assert.Equal(t, "test_session", cookies[0].Name)

	// Session row is mirrored in postgres for auditing.
	assert.Len(t, fx.repo.sessions, 1)
}

func TestLoginWrongPassword(t *testing.T) {
	fx := newFixture(t)
	fx.repo.addAccount(t, 7, "doc@ward.example", "correct-horse", true)

	req := httptest.NewRequest(http.MethodPost, "/login",
		strings.NewReader(`{"email":"doc@ward.example","password":"wrong-horse"}`))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	fx.router.ServeHTTP(res, req)

	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Empty(t, fx.repo.sessions)
}

func TestLoginInactiveAccount(t *testing.T) {
	fx := newFixture(t)
	fx.repo.addAccount(t, 7, "gone@ward.example", "correct-horse", false)

	req := httptest.NewRequest(http.MethodPost, "/login",
		strings.NewReader(`{"email":"gone@ward.example","password":"correct-horse"}`))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	fx.router.ServeHTTP(res, req)

	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestLoginRejectsMalformedBody(t *testing.T) {
	fx := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"not-an-email"`))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	fx.router.ServeHTTP(res, req)

	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestLogoutDeletesSessionRow(t *testing.T) {
	fx := newFixture(t)
	fx.repo.addAccount(t, 7, "doc@ward.example", "correct-horse", true)

	login := httptest.NewRequest(http.MethodPost, "/login",
		strings.NewReader(`{"email":"doc@ward.example","password":"correct-horse"}`))
	login.Header.Set("Content-Type", "application/json")
	loginRes := httptest.NewRecorder()
	fx.router.ServeHTTP(loginRes, login)
	require.Equal(t, http.StatusOK, loginRes.Code)
	require.Len(t, fx.repo.sessions, 1)

	logout := httptest.NewRequest(http.MethodPost, "/logout", nil)
	for _, c := range loginRes.Result().Cookies() {
		logout.AddCookie(c)
	}
	logoutRes := httptest.NewRecorder()
	fx.router.ServeHTTP(logoutRes, logout)

	assert.Equal(t, http.StatusNoContent, logoutRes.Code)
	assert.Empty(t, fx.repo.sessions)
}

func TestSessionEndpointRequiresLogin(t *testing.T) {
	fx := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/session", nil)
	res := httptest.NewRecorder()
	fx.router.ServeHTTP(res, req)

	assert.Equal(t, http.StatusUnauthorized, res.Code)
}
