package users

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/wardboard/wardboard/internal/platform/httpx"
	"github.com/wardboard/wardboard/internal/roles"
	"github.com/wardboard/wardboard/internal/shared"
)

type mockRepository struct {
	mu      sync.Mutex
	users   map[int64]User
	hashes  map[int64]string
	ordered map[int64][]roles.Role
	current map[int64]roles.Role
	nextID  int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		users:   make(map[int64]User),
		hashes:  make(map[int64]string),
		ordered: make(map[int64][]roles.Role),
		current: make(map[int64]roles.Role),
		nextID:  1,
	}
}

func (m *mockRepository) ListUsers(ctx context.Context, limit, offset int) ([]User, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []User
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, len(m.users), nil
}

func (m *mockRepository) GetUser(ctx context.Context, id int64) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	return u, nil
}

func (m *mockRepository) CreateUser(ctx context.Context, email, name, passwordHash string, ordered []roles.Role) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return User{}, httpx.ErrDuplicate
		}
	}
	u := User{
		ID:        m.nextID,
		Email:     email,
		Name:      name,
		IsActive:  true,
		Roles:     ordered,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	m.users[u.ID] = u
	m.hashes[u.ID] = passwordHash
	m.ordered[u.ID] = ordered
	m.nextID++
	return u, nil
}

func (m *mockRepository) SetCurrentRole(ctx context.Context, id int64, role roles.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	m.current[id] = role
	u.CurrentRole = role
	m.users[id] = u
	return nil
}

func (m *mockRepository) RolesForUser(ctx context.Context, id int64) ([]roles.Role, roles.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return nil, "", shared.ErrNotFound
	}
	return m.ordered[id], m.current[id], nil
}

type captureAudit struct {
	mu   sync.Mutex
	logs []shared.AuditLog
}

func (c *captureAudit) Record(ctx context.Context, log shared.AuditLog) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logs = append(c.logs, log)
	return nil
}

func TestCreateUserHashesPassword(t *testing.T) {
	repo := newMockRepository()
	audit := &captureAudit{}
	svc := NewService(repo, audit)

	user, err := svc.CreateUser(context.Background(), 1, "nina@ward.example", "Nina", "s3cret-pw", []roles.Role{roles.Nurse, roles.Reception})
	require.NoError(t, err)
	assert.Equal(t, []roles.Role{roles.Nurse, roles.Reception}, user.Roles)

	hash := repo.hashes[user.ID]
	require.NotEmpty(t, hash)
	assert.NotEqual(t, "s3cret-pw", hash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret-pw")))

	require.Len(t, audit.logs, 1)
	assert.Equal(t, "user.create", audit.logs[0].Action)
}

func TestCreateUserRequiresRoles(t *testing.T) {
	svc := NewService(newMockRepository(), nil)

	_, err := svc.CreateUser(context.Background(), 1, "x@ward.example", "X", "s3cret-pw", nil)
	require.ErrorIs(t, err, httpx.ErrValidation)

	_, err = svc.CreateUser(context.Background(), 1, "x@ward.example", "X", "s3cret-pw", []roles.Role{"janitor"})
	require.ErrorIs(t, err, httpx.ErrValidation)

	_, err = svc.CreateUser(context.Background(), 1, "x@ward.example", "X", "s3cret-pw", []roles.Role{roles.Nurse, roles.Nurse})
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	svc := NewService(newMockRepository(), nil)

	_, err := svc.CreateUser(context.Background(), 1, "dup@ward.example", "A", "s3cret-pw", []roles.Role{roles.Doctor})
	require.NoError(t, err)
	_, err = svc.CreateUser(context.Background(), 1, "dup@ward.example", "B", "s3cret-pw", []roles.Role{roles.Nurse})
	require.ErrorIs(t, err, httpx.ErrDuplicate)
}

func TestSetCurrentRoleMustBeHeld(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil)

	user, err := svc.CreateUser(context.Background(), 1, "doc@ward.example", "Doc", "s3cret-pw", []roles.Role{roles.Doctor, roles.Admin})
	require.NoError(t, err)

	require.NoError(t, svc.SetCurrentRole(context.Background(), user.ID, roles.Admin))
	_, current, err := svc.RolesForUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, roles.Admin, current)

	err = svc.SetCurrentRole(context.Background(), user.ID, roles.Reception)
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestRolesForUserPreservesOrder(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil)

	user, err := svc.CreateUser(context.Background(), 1, "multi@ward.example", "M", "s3cret-pw", []roles.Role{roles.Reception, roles.Nurse, roles.Doctor})
	require.NoError(t, err)

	ordered, current, err := svc.RolesForUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, []roles.Role{roles.Reception, roles.Nurse, roles.Doctor}, ordered)
	assert.Empty(t, current)
}

func TestRolesForUnknownUser(t *testing.T) {
	svc := NewService(newMockRepository(), nil)
	_, _, err := svc.RolesForUser(context.Background(), 404)
	require.ErrorIs(t, err, shared.ErrNotFound)
}
