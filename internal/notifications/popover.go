package notifications

import "github.com/wardboard/wardboard/internal/shared"

// popoverSessionKey persists the popover state in the session store. Absence
// means closed, matching the initial state.
const popoverSessionKey = "notifications_popover"

// Popover is the binary open/closed interaction state of the header popover.
// The zero value is the initial Closed state. It has no timeout or
// auto-close behaviour.
type Popover struct {
	Open bool `json:"open"`
}

// Toggle flips the state on explicit user action.
func (p Popover) Toggle() Popover {
	return Popover{Open: !p.Open}
}

// RequestClose forces Open to Closed; from Closed it is a no-op.
func (p Popover) RequestClose() Popover {
	return Popover{}
}

// PopoverFromSession reads the persisted state for the session.
func PopoverFromSession(sess *shared.Session) Popover {
	if sess == nil {
		return Popover{}
	}
	return Popover{Open: sess.Get(popoverSessionKey) == "open"}
}

// Store persists the state back to the session. Closed clears the key so
// fresh sessions stay compact.
func (p Popover) Store(sess *shared.Session) {
	if sess == nil {
		return
	}
	if p.Open {
		sess.Set(popoverSessionKey, "open")
		return
	}
	sess.Delete(popoverSessionKey)
}
