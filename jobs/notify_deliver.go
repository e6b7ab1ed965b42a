package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/wardboard/wardboard/internal/jobs"
	"github.com/wardboard/wardboard/internal/notifications"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// DeliverJob turns a bed event into notifications for ward staff.
type DeliverJob struct {
	Notifications *notifications.Service
	Pool          *pgxpool.Pool
	Logger        *slog.Logger
	Metrics       *jobmetrics.Metrics
}

// NewDeliverJob wires dependencies for the delivery handler.
func NewDeliverJob(svc *notifications.Service, pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *DeliverJob {
	return &DeliverJob{Notifications: svc, Pool: pool, Logger: logger, Metrics: metrics}
}

// Handle processes notify:deliver tasks.
func (j *DeliverJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil {
		return errors.New("notify deliver: handler not configured")
	}
	var payload DeliverPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.EventID == "" {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskNotifyDeliver)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(
		slog.String("event_id", payload.EventID),
		slog.Int64("bed_id", payload.Event.BedID))

	recipients, err := j.fetchRecipients(ctx, payload.Event.ActorID)
	if err != nil {
		resultErr = err
		logger.Error("load recipients", slog.Any("error", err))
		return resultErr
	}
	if len(recipients) == 0 {
		logger.Info("no recipients for bed event")
		return resultErr
	}

	body, err := json.Marshal(payload.Event)
	if err != nil {
		resultErr = err
		return resultErr
	}
	title := fmt.Sprintf("Bed %s is now %s", payload.Event.BedCode, payload.Event.Status)

	for _, recipientID := range recipients {
		n := notifications.Notification{
			// Deterministic per event and recipient, so a retried task
			// upserts instead of duplicating.
			ID:          uuid.NewSHA1(uuid.NameSpaceOID, []byte(payload.EventID+":"+fmt.Sprint(recipientID))),
			RecipientID: recipientID,
			Kind:        "bed.status",
			Title:       title,
			Payload:     body,
		}
		if _, err := j.Notifications.Deliver(ctx, n); err != nil {
			resultErr = err
			logger.Error("deliver notification", slog.Int64("recipient_id", recipientID), slog.Any("error", err))
			return resultErr
		}
	}
	logger.Info("bed event delivered", slog.Int("recipients", len(recipients)))
	return resultErr
}

// fetchRecipients returns active staff who watch bed changes. The actor is
// excluded; they already saw the change happen.
func (j *DeliverJob) fetchRecipients(ctx context.Context, actorID int64) ([]int64, error) {
	rows, err := j.Pool.Query(ctx, `
		SELECT DISTINCT u.id
		FROM users u
		JOIN user_roles ur ON ur.user_id = u.id
		WHERE u.is_active AND ur.role_name IN ('nurse', 'reception') AND u.id <> $1
		ORDER BY u.id`, actorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (j *DeliverJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *DeliverJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
