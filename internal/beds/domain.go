// Package beds manages wards and the bed status lifecycle feeding the
// dashboard.
package beds

import "time"

// BedStatus is the closed set of bed states.
type BedStatus string

const (
	StatusFree        BedStatus = "free"
	StatusOccupied    BedStatus = "occupied"
	StatusCleaning    BedStatus = "cleaning"
	StatusMaintenance BedStatus = "maintenance"
)

// Ward groups beds for a hospital unit.
type Ward struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Bed is a single managed bed. PatientRef is an opaque reference into the
// patient system; wardboard never interprets it.
type Bed struct {
	ID         int64     `json:"id"`
	WardID     int64     `json:"ward_id"`
	Code       string    `json:"code"`
	Status     BedStatus `json:"status"`
	PatientRef string    `json:"patient_ref,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// WardOccupancy summarises bed states for one ward.
type WardOccupancy struct {
	WardID      int64  `json:"ward_id"`
	WardCode    string `json:"ward_code"`
	WardName    string `json:"ward_name"`
	Total       int    `json:"total"`
	Free        int    `json:"free"`
	Occupied    int    `json:"occupied"`
	Cleaning    int    `json:"cleaning"`
	Maintenance int    `json:"maintenance"`
}

// OccupancySummary aggregates all wards for the landing widgets.
type OccupancySummary struct {
	Wards    []WardOccupancy `json:"wards"`
	Total    int             `json:"total"`
	Free     int             `json:"free"`
	Occupied int             `json:"occupied"`
}

var transitions = map[BedStatus]map[BedStatus]struct{}{
	StatusFree:        {StatusOccupied: {}, StatusMaintenance: {}},
	StatusOccupied:    {StatusCleaning: {}},
	StatusCleaning:    {StatusFree: {}},
	StatusMaintenance: {StatusFree: {}},
}

// CanTransition reports whether the bed state machine allows the change.
func CanTransition(from, to BedStatus) bool {
	_, ok := transitions[from][to]
	return ok
}

// BedEvent describes a completed status change for the notification channel.
type BedEvent struct {
	WardID  int64     `json:"ward_id"`
	BedID   int64     `json:"bed_id"`
	BedCode string    `json:"bed_code"`
	Status  BedStatus `json:"status"`
	ActorID int64     `json:"actor_id"`
}
