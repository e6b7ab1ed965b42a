package notifications

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/wardboard/wardboard/internal/shared"
)

// Publisher announces store changes to interested consumers.
type Publisher interface {
	Publish(ctx context.Context, recipientID int64) error
}

// MetricsRecorder counts delivery and read activity. Implemented by
// observability.Metrics; a nil recorder disables counting.
type MetricsRecorder interface {
	NotificationDelivered(kind string)
	NotificationRead()
}

// Service wraps the notification store business rules.
type Service struct {
	repo    Repository
	pub     Publisher
	metrics MetricsRecorder
	counts  singleflight.Group
}

// NewService constructs a Service.
func NewService(repo Repository, pub Publisher, metrics MetricsRecorder) *Service {
	return &Service{repo: repo, pub: pub, metrics: metrics}
}

// Deliver stores a new notification and announces it. Missing id/timestamp
// are filled in; redelivery of an existing id is a no-op at the store level.
func (s *Service) Deliver(ctx context.Context, n Notification) (Notification, error) {
	if n.RecipientID == 0 {
		return Notification{}, fmt.Errorf("notifications: recipient required")
	}
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if err := s.repo.Insert(ctx, n); err != nil {
		return Notification{}, err
	}
	if s.metrics != nil {
		s.metrics.NotificationDelivered(n.Kind)
	}
	s.bump(ctx, n.RecipientID)
	return n, nil
}

// List returns a newest-first page of the recipient's notifications.
func (s *Service) List(ctx context.Context, recipientID int64, page, perPage int) ([]Notification, shared.Pagination, error) {
	pagination := shared.NewPagination(page, perPage, 0)
	items, total, err := s.repo.List(ctx, recipientID, pagination.PerPage, pagination.Offset())
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.NewPagination(pagination.Page, pagination.PerPage, total), nil
}

// MarkRead flips one notification to read. Idempotent; an absent id is a
// safe no-op, never an error. Consumers observing the count after this
// returns see the updated derivation.
func (s *Service) MarkRead(ctx context.Context, recipientID int64, id uuid.UUID) error {
	if err := s.repo.MarkRead(ctx, recipientID, id); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.NotificationRead()
	}
	s.bump(ctx, recipientID)
	return nil
}

// MarkAllRead flips every notification of the recipient to read. Afterwards
// the unread count is zero unconditionally.
func (s *Service) MarkAllRead(ctx context.Context, recipientID int64) error {
	if err := s.repo.MarkAllRead(ctx, recipientID); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.NotificationRead()
	}
	s.bump(ctx, recipientID)
	return nil
}

// UnreadCount derives the live unread count. Concurrent badge polls for the
// same recipient collapse into a single query.
func (s *Service) UnreadCount(ctx context.Context, recipientID int64) (int, error) {
	v, err, _ := s.counts.Do(strconv.FormatInt(recipientID, 10), func() (interface{}, error) {
		return s.repo.UnreadCount(ctx, recipientID)
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

// Overview derives the badge state for the header widget.
func (s *Service) Overview(ctx context.Context, recipientID int64) (Overview, error) {
	count, err := s.UnreadCount(ctx, recipientID)
	if err != nil {
		return Overview{}, err
	}
	return NewOverview(count), nil
}

// Sweep evicts read notifications older than the retention window and
// returns the number of evicted rows.
func (s *Service) Sweep(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention)
	return s.repo.DeleteReadBefore(ctx, cutoff)
}

func (s *Service) bump(ctx context.Context, recipientID int64) {
	if s.pub == nil {
		return
	}
	// Fan-out failure must not fail the mutation; subscribers recover on the
	// next poll.
	_ = s.pub.Publish(ctx, recipientID)
}
