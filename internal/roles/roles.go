// Package roles defines the closed set of dashboard roles and the fixed
// role-to-route table used after login.
package roles

// Role identifies one of the dashboard roles.
type Role string

const (
	Admin     Role = "admin"
	Doctor    Role = "doctor"
	Nurse     Role = "nurse"
	Reception Role = "reception"
)

// DefaultRoute is the destination used whenever the effective role is absent
// or unrecognized. An unknown role must never leave a user unrouted.
const DefaultRoute = "/dashboard/reception"

var routeTable = map[Role]string{
	Admin:     "/dashboard/admin",
	Doctor:    "/dashboard/doctor",
	Nurse:     "/dashboard/nurse",
	Reception: "/dashboard/reception",
}

// All lists every known role in a stable order.
func All() []Role {
	return []Role{Admin, Doctor, Nurse, Reception}
}

// Parse returns the role matching raw, or ok=false for anything outside the
// closed set.
func Parse(raw string) (Role, bool) {
	role := Role(raw)
	_, ok := routeTable[role]
	return role, ok
}

// Known reports whether the role belongs to the closed set.
func (r Role) Known() bool {
	_, ok := routeTable[r]
	return ok
}

// RouteFor returns the dashboard path for the role. The table is total by
// construction: unknown roles resolve to DefaultRoute, never an error.
func RouteFor(role Role) string {
	if route, ok := routeTable[role]; ok {
		return route
	}
	return DefaultRoute
}

// Effective resolves the role used for routing decisions: current if set,
// otherwise the first entry of the ordered role list. The zero Role signals
// that nothing was resolvable and callers fall back to DefaultRoute.
func Effective(current Role, ordered []Role) Role {
	if current != "" {
		return current
	}
	if len(ordered) > 0 {
		return ordered[0]
	}
	return ""
}
