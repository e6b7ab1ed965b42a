package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	jobmetrics "github.com/wardboard/wardboard/internal/jobs"
	"github.com/wardboard/wardboard/internal/notifications"
	"github.com/wardboard/wardboard/internal/shared"
)

const sweepLockTTL = 10 * time.Minute

// SweepJob evicts read notifications older than the retention window.
type SweepJob struct {
	Notifications *notifications.Service
	Redis         *redis.Client
	Logger        *slog.Logger
	Metrics       *jobmetrics.Metrics
	// Retention applies when the task payload does not set one.
	Retention time.Duration
}

// NewSweepJob wires dependencies for the sweep handler.
func NewSweepJob(svc *notifications.Service, rdb *redis.Client, logger *slog.Logger, metrics *jobmetrics.Metrics, retention time.Duration) *SweepJob {
	return &SweepJob{Notifications: svc, Redis: rdb, Logger: logger, Metrics: metrics, Retention: retention}
}

// Handle processes notify:sweep tasks.
func (j *SweepJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil {
		return errors.New("notify sweep: handler not configured")
	}
	var payload SweepPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	retention := j.Retention
	if payload.RetentionDays > 0 {
		retention = time.Duration(payload.RetentionDays) * 24 * time.Hour
	}
	if retention <= 0 {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskNotifySweep)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	// One sweep at a time across all workers.
	if j.Redis != nil {
		acquired, err := j.Redis.SetNX(ctx, shared.NotificationSweepLockKey, "1", sweepLockTTL).Result()
		if err != nil {
			resultErr = err
			j.logger().Error("acquire sweep lock", slog.Any("error", err))
			return resultErr
		}
		if !acquired {
			j.logger().Info("sweep already running, skipping")
			return resultErr
		}
		defer j.Redis.Del(context.WithoutCancel(ctx), shared.NotificationSweepLockKey)
	}

	removed, err := j.Notifications.Sweep(ctx, retention)
	if err != nil {
		resultErr = err
		j.logger().Error("sweep notifications", slog.Any("error", err))
		return resultErr
	}
	j.metrics().AddSwept(removed)
	j.logger().Info("sweep complete",
		slog.Int64("removed", removed),
		slog.Duration("retention", retention))
	return resultErr
}

func (j *SweepJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *SweepJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
