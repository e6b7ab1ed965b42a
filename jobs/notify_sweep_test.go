package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardboard/wardboard/internal/notifications"
	"github.com/wardboard/wardboard/internal/shared"
	_ "github.com/wardboard/wardboard/testing"
)

type stubNotificationRepo struct {
	mu     sync.Mutex
	sweeps []time.Time
}

func (s *stubNotificationRepo) Insert(ctx context.Context, n notifications.Notification) error {
	return nil
}

func (s *stubNotificationRepo) List(ctx context.Context, recipientID int64, limit, offset int) ([]notifications.Notification, int, error) {
	return nil, 0, nil
}

func (s *stubNotificationRepo) MarkRead(ctx context.Context, recipientID int64, id uuid.UUID) error {
	return nil
}

func (s *stubNotificationRepo) MarkAllRead(ctx context.Context, recipientID int64) error {
	return nil
}

func (s *stubNotificationRepo) UnreadCount(ctx context.Context, recipientID int64) (int, error) {
	return 0, nil
}

func (s *stubNotificationRepo) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweeps = append(s.sweeps, cutoff)
	return 3, nil
}

func newSweepTask(t *testing.T, payload SweepPayload) *asynq.Task {
	t.Helper()
	task, err := NewSweepTask(payload)
	require.NoError(t, err)
	return task
}

func TestSweepRunsAndReleasesLock(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	repo := &stubNotificationRepo{}
	svc := notifications.NewService(repo, nil, nil)

	job := NewSweepJob(svc, client, nil, nil, 30*24*time.Hour)
	err := job.Handle(context.Background(), newSweepTask(t, SweepPayload{}))
	require.NoError(t, err)

	require.Len(t, repo.sweeps, 1)
	// Roughly thirty days back.
	assert.WithinDuration(t, time.Now().UTC().Add(-30*24*time.Hour), repo.sweeps[0], time.Minute)
	assert.False(t, mr.Exists(shared.NotificationSweepLockKey), "lock must be released")
}

func TestSweepSkipsWhenLockHeld(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	require.NoError(t, client.Set(context.Background(), shared.NotificationSweepLockKey, "1", time.Minute).Err())

	repo := &stubNotificationRepo{}
	svc := notifications.NewService(repo, nil, nil)

	job := NewSweepJob(svc, client, nil, nil, 30*24*time.Hour)
	err := job.Handle(context.Background(), newSweepTask(t, SweepPayload{}))
	require.NoError(t, err)

	assert.Empty(t, repo.sweeps, "held lock must skip the sweep")
	assert.True(t, mr.Exists(shared.NotificationSweepLockKey), "foreign lock must not be deleted")
}

func TestSweepPayloadOverridesRetention(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	repo := &stubNotificationRepo{}
	svc := notifications.NewService(repo, nil, nil)

	job := NewSweepJob(svc, client, nil, nil, 30*24*time.Hour)
	err := job.Handle(context.Background(), newSweepTask(t, SweepPayload{RetentionDays: 7}))
	require.NoError(t, err)

	require.Len(t, repo.sweeps, 1)
	assert.WithinDuration(t, time.Now().UTC().Add(-7*24*time.Hour), repo.sweeps[0], time.Minute)
}
