// Package rbac derives permissions from dashboard roles. The grant table is
// static and closed: unknown roles grant nothing.
package rbac

import (
	"context"

	"github.com/wardboard/wardboard/internal/roles"
	"github.com/wardboard/wardboard/internal/shared"
)

var rolePermissions = map[roles.Role][]string{
	roles.Admin: shared.AllScopes(),
	roles.Doctor: {
		shared.PermBedsView,
	},
	roles.Nurse: {
		shared.PermBedsView,
		shared.PermBedsEdit,
	},
	roles.Reception: {
		shared.PermBedsView,
		shared.PermBedsEdit,
		shared.PermUsersView,
	},
}

// RoleSource supplies the role list for a user. Implemented by the users
// service.
type RoleSource interface {
	RolesForUser(ctx context.Context, userID int64) ([]roles.Role, roles.Role, error)
}

// Service resolves effective permissions for users.
type Service struct {
	source RoleSource
}

// NewService constructs a Service.
func NewService(source RoleSource) *Service {
	return &Service{source: source}
}

// EffectivePermissions returns the union of permissions granted by every
// role the user holds.
func (s *Service) EffectivePermissions(ctx context.Context, userID int64) ([]string, error) {
	ordered, _, err := s.source.RolesForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var granted []string
	for _, role := range ordered {
		for _, perm := range rolePermissions[role] {
			if _, ok := seen[perm]; ok {
				continue
			}
			seen[perm] = struct{}{}
			granted = append(granted, perm)
		}
	}
	return granted, nil
}

// PermissionsForRole exposes the static grant list for one role.
func PermissionsForRole(role roles.Role) []string {
	perms := rolePermissions[role]
	out := make([]string, len(perms))
	copy(out, perms)
	return out
}
