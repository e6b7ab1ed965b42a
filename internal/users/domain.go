package users

import (
	"time"

	"github.com/wardboard/wardboard/internal/roles"
)

// User represents a staff account. Roles is ordered; the first entry is the
// default dashboard when CurrentRole is unset. An active account always
// holds at least one role.
type User struct {
	ID          int64        `json:"id"`
	Email       string       `json:"email"`
	Name        string       `json:"name"`
	IsActive    bool         `json:"is_active"`
	Roles       []roles.Role `json:"roles"`
	CurrentRole roles.Role   `json:"current_role,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}
