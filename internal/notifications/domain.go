// Package notifications holds the canonical unread/read state for dashboard
// notifications and the interaction state of the header popover.
package notifications

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Notification is a single record delivered to a recipient. It is created by
// the delivery task, mutated only by the mark-read operations and removed
// only by the retention sweep.
type Notification struct {
	ID          uuid.UUID       `json:"id"`
	RecipientID int64           `json:"recipient_id"`
	Kind        string          `json:"kind"`
	Title       string          `json:"title"`
	Body        string          `json:"body"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Read        bool            `json:"read"`
	CreatedAt   time.Time       `json:"created_at"`
}

// badgeMax is the largest count the badge renders exactly; anything above it
// becomes the overflow literal. 100 must render as "99+", not "100".
const badgeMax = 99

// BadgeLabel formats the unread count for the header badge.
func BadgeLabel(count int) string {
	if count > badgeMax {
		return "99+"
	}
	return strconv.Itoa(count)
}

// Overview is the derived badge state consumed by the header widget. Both
// the numeric badge and the "new activity" dot derive from HasUnread; they
// can never disagree.
type Overview struct {
	UnreadCount int    `json:"unread_count"`
	HasUnread   bool   `json:"has_unread"`
	Badge       string `json:"badge"`
}

// NewOverview derives the overview from a live unread count.
func NewOverview(count int) Overview {
	return Overview{
		UnreadCount: count,
		HasUnread:   count > 0,
		Badge:       BadgeLabel(count),
	}
}
