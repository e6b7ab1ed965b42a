package rbac

import (
	"context"
	"testing"

	"github.com/wardboard/wardboard/internal/roles"
	"github.com/wardboard/wardboard/internal/shared"
)

type staticSource struct {
	ordered []roles.Role
}

func (s staticSource) RolesForUser(ctx context.Context, userID int64) ([]roles.Role, roles.Role, error) {
	return s.ordered, "", nil
}

func contains(perms []string, want string) bool {
	for _, p := range perms {
		if p == want {
			return true
		}
	}
	return false
}

func TestEffectivePermissionsUnion(t *testing.T) {
	svc := NewService(staticSource{ordered: []roles.Role{roles.Doctor, roles.Nurse}})
	granted, err := svc.EffectivePermissions(context.Background(), 1)
	if err != nil {
		t.Fatalf("effective permissions: %v", err)
	}
	if !contains(granted, shared.PermBedsView) || !contains(granted, shared.PermBedsEdit) {
		t.Fatalf("union missing grants: %v", granted)
	}
	if contains(granted, shared.PermUsersEdit) {
		t.Fatalf("doctor+nurse must not grant users.edit")
	}
}

func TestUnknownRoleGrantsNothing(t *testing.T) {
	svc := NewService(staticSource{ordered: []roles.Role{roles.Role("ghost")}})
	granted, err := svc.EffectivePermissions(context.Background(), 1)
	if err != nil {
		t.Fatalf("effective permissions: %v", err)
	}
	if len(granted) != 0 {
		t.Fatalf("unknown role granted %v", granted)
	}
}

func TestAdminGrantsEverything(t *testing.T) {
	svc := NewService(staticSource{ordered: []roles.Role{roles.Admin}})
	granted, err := svc.EffectivePermissions(context.Background(), 1)
	if err != nil {
		t.Fatalf("effective permissions: %v", err)
	}
	for _, scope := range shared.AllScopes() {
		if !contains(granted, scope) {
			t.Fatalf("admin missing %s", scope)
		}
	}
}
