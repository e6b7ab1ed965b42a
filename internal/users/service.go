package users

import (
	"context"
	"fmt"
	"strconv"

	"golang.org/x/crypto/bcrypt"

	"github.com/wardboard/wardboard/internal/platform/httpx"
	"github.com/wardboard/wardboard/internal/roles"
	"github.com/wardboard/wardboard/internal/shared"
)

// Auditor records account changes. Implemented by shared.AuditLogger.
type Auditor interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service implements account management. It also backs role lookups for the
// dashboard resolver and the permission middleware.
type Service struct {
	repo  Repository
	audit Auditor
}

// NewService constructs the users service.
func NewService(repo Repository, audit Auditor) *Service {
	return &Service{repo: repo, audit: audit}
}

// ListUsers returns a page of accounts.
func (s *Service) ListUsers(ctx context.Context, page, perPage int) ([]User, shared.Pagination, error) {
	pagination := shared.NewPagination(page, perPage, 0)
	list, total, err := s.repo.ListUsers(ctx, pagination.PerPage, pagination.Offset())
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return list, shared.NewPagination(pagination.Page, pagination.PerPage, total), nil
}

// GetUser fetches one account.
func (s *Service) GetUser(ctx context.Context, id int64) (User, error) {
	return s.repo.GetUser(ctx, id)
}

// CreateUser hashes the password and stores the account with its ordered
// role list. Every role must be known and at least one is required,
// otherwise the account could never be routed to a dashboard.
func (s *Service) CreateUser(ctx context.Context, actorID int64, email, name, password string, ordered []roles.Role) (User, error) {
	if len(ordered) == 0 {
		return User{}, fmt.Errorf("create user: %w: at least one role required", httpx.ErrValidation)
	}
	seen := make(map[roles.Role]bool, len(ordered))
	for _, role := range ordered {
		if !role.Known() {
			return User{}, fmt.Errorf("create user: %w: unknown role %q", httpx.ErrValidation, role)
		}
		if seen[role] {
			return User{}, fmt.Errorf("create user: %w: duplicate role %q", httpx.ErrValidation, role)
		}
		seen[role] = true
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.repo.CreateUser(ctx, email, name, string(hash), ordered)
	if err != nil {
		return User{}, err
	}
	s.recordAudit(ctx, actorID, "user.create", user.ID, map[string]any{"email": user.Email})
	return user, nil
}

// SetCurrentRole switches the active role. The user must actually hold the
// role; holding it is what makes the switch safe to trust for routing.
func (s *Service) SetCurrentRole(ctx context.Context, userID int64, role roles.Role) error {
	ordered, _, err := s.repo.RolesForUser(ctx, userID)
	if err != nil {
		return err
	}
	held := false
	for _, r := range ordered {
		if r == role {
			held = true
			break
		}
	}
	if !held {
		return fmt.Errorf("set current role: %w: user does not hold role %q", httpx.ErrValidation, role)
	}
	if err := s.repo.SetCurrentRole(ctx, userID, role); err != nil {
		return err
	}
	s.recordAudit(ctx, userID, "user.role_switch", userID, map[string]any{"role": string(role)})
	return nil
}

// RolesForUser returns the ordered role list and current role. Satisfies
// both the dashboard RoleSource and the rbac RoleSource.
func (s *Service) RolesForUser(ctx context.Context, userID int64) ([]roles.Role, roles.Role, error) {
	return s.repo.RolesForUser(ctx, userID)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "user",
		EntityID: strconv.FormatInt(entityID, 10),
		Meta:     meta,
	})
}
