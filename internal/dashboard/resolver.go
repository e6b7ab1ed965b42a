// Package dashboard resolves an authenticated session to exactly one
// dashboard destination route.
package dashboard

import "github.com/wardboard/wardboard/internal/roles"

// Status of a resolution attempt.
type Status string

const (
	// StatusPending means the session is still loading or has no user; no
	// navigation directive is emitted.
	StatusPending Status = "pending"
	// StatusReady means a target route has been resolved.
	StatusReady Status = "ready"
)

// SessionState carries the three inputs that drive routing. Resolve has no
// hidden state beyond them.
type SessionState struct {
	IsLoading   bool
	UserID      int64
	Roles       []roles.Role
	CurrentRole roles.Role
}

// Directive is the single navigation instruction emitted per completed
// resolution. Replace is always true: the generic dashboard entry point must
// never become a back-navigable history entry.
type Directive struct {
	Status   Status `json:"status"`
	Target   string `json:"target,omitempty"`
	Replace  bool   `json:"replace,omitempty"`
	Fallback bool   `json:"-"`
}

// Resolve maps a session state to a directive. It is deterministic: the same
// (IsLoading, Roles, CurrentRole) tuple always yields the same directive.
// Unknown or absent roles collapse to the reception route rather than an
// error; Fallback is set so callers can log the condition.
func Resolve(state SessionState) Directive {
	if state.IsLoading || state.UserID == 0 {
		return Directive{Status: StatusPending}
	}

	effective := roles.Effective(state.CurrentRole, state.Roles)
	fallback := !effective.Known()
	return Directive{
		Status:   StatusReady,
		Target:   roles.RouteFor(effective),
		Replace:  true,
		Fallback: fallback,
	}
}
