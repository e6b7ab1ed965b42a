package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"

	"github.com/wardboard/wardboard/internal/beds"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskNotifyDeliver fans a bed event out to ward staff notifications.
	TaskNotifyDeliver = "notify:deliver"
	// TaskNotifySweep evicts read notifications past retention.
	TaskNotifySweep = "notify:sweep"
)

// DeliverPayload carries a bed event into the delivery handler. The event ID
// keys the notification upsert so a retried task never duplicates rows.
type DeliverPayload struct {
	EventID string        `json:"event_id"`
	Event   beds.BedEvent `json:"event"`
}

// NewDeliverTask constructs the delivery task for a bed event.
func NewDeliverTask(payload DeliverPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotifyDeliver, data), nil
}

// SweepPayload configures a retention sweep run. A zero RetentionDays falls
// back to the worker's configured default.
type SweepPayload struct {
	RetentionDays int `json:"retention_days"`
}

// NewSweepTask constructs the sweep task.
func NewSweepTask(payload SweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotifySweep, data), nil
}
