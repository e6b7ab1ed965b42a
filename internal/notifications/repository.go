package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines persistence operations for the notification store. The
// unread count is always derived with COUNT(*); it is never stored.
type Repository interface {
	Insert(ctx context.Context, n Notification) error
	List(ctx context.Context, recipientID int64, limit, offset int) ([]Notification, int, error)
	MarkRead(ctx context.Context, recipientID int64, id uuid.UUID) error
	MarkAllRead(ctx context.Context, recipientID int64) error
	UnreadCount(ctx context.Context, recipientID int64) (int, error)
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Insert stores a notification. Redelivery of an id already present is a
// no-op so the delivery task can retry safely.
func (r *PGRepository) Insert(ctx context.Context, n Notification) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notifications (id, recipient_id, kind, title, body, payload, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING`,
		n.ID, n.RecipientID, n.Kind, n.Title, n.Body, n.Payload, n.Read, n.CreatedAt)
	return err
}

// List returns a newest-first page of notifications plus the total count.
func (r *PGRepository) List(ctx context.Context, recipientID int64, limit, offset int) ([]Notification, int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, recipient_id, kind, title, body, payload, read, created_at
		FROM notifications
		WHERE recipient_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`, recipientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.Kind, &n.Title, &n.Body, &n.Payload, &n.Read, &n.CreatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE recipient_id = $1`, recipientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// MarkRead flips a single notification to read. An absent id, an id owned by
// another recipient or an already-read row all fall through as a no-op; the
// store is forgiving of races with the retention sweep.
func (r *PGRepository) MarkRead(ctx context.Context, recipientID int64, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE notifications SET read = TRUE
		WHERE id = $1 AND recipient_id = $2 AND read = FALSE`, id, recipientID)
	return err
}

// MarkAllRead flips every notification of the recipient to read.
func (r *PGRepository) MarkAllRead(ctx context.Context, recipientID int64) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE notifications SET read = TRUE
		WHERE recipient_id = $1 AND read = FALSE`, recipientID)
	return err
}

// UnreadCount derives the live unread count.
func (r *PGRepository) UnreadCount(ctx context.Context, recipientID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM notifications
		WHERE recipient_id = $1 AND read = FALSE`, recipientID).Scan(&count)
	return count, err
}

// DeleteReadBefore evicts read notifications older than the cutoff. Unread
// notifications are never swept.
func (r *PGRepository) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM notifications
		WHERE read = TRUE AND created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
