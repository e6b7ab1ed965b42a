package notifications

import (
	"context"
	"log/slog"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"
)

// bumpChannel carries recipient ids whose notification set changed. Every
// process subscribes so SSE streams stay live across instances.
const bumpChannel = "notifications.bump"

// Event signals that a recipient's notification set changed; subscribers
// re-read a snapshot from the service rather than receiving state copies.
type Event struct {
	RecipientID int64
}

// Hub is the single owned fan-out point for notification updates. Components
// subscribe per recipient and receive bump events; nobody holds an
// independent copy of the store.
type Hub struct {
	client *redis.Client
	logger *slog.Logger

	mu   sync.Mutex
	subs map[int64]map[chan Event]struct{}
}

// NewHub constructs a Hub. A nil client keeps fan-out process-local, which
// tests rely on.
func NewHub(client *redis.Client, logger *slog.Logger) *Hub {
	return &Hub{
		client: client,
		logger: logger,
		subs:   make(map[int64]map[chan Event]struct{}),
	}
}

// Run consumes the Redis bump channel until context cancellation and
// dispatches events to local subscribers.
func (h *Hub) Run(ctx context.Context) error {
	if h.client == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	sub := h.client.Subscribe(ctx, bumpChannel)
	defer func() {
		_ = sub.Close()
	}()
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			recipientID, err := strconv.ParseInt(msg.Payload, 10, 64)
			if err != nil {
				if h.logger != nil {
					h.logger.Warn("bump payload", slog.String("payload", msg.Payload))
				}
				continue
			}
			h.dispatch(recipientID)
		}
	}
}

// Subscribe registers a local subscriber for the recipient. The returned
// cancel function must be called when the consumer goes away.
func (h *Hub) Subscribe(recipientID int64) (<-chan Event, func()) {
	ch := make(chan Event, 8)

	h.mu.Lock()
	set, ok := h.subs[recipientID]
	if !ok {
		set = make(map[chan Event]struct{})
		h.subs[recipientID] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if set, ok := h.subs[recipientID]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(h.subs, recipientID)
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish announces a change to the recipient's notification set. With a
// Redis client the bump travels through the shared channel; without one it
// is dispatched locally.
func (h *Hub) Publish(ctx context.Context, recipientID int64) error {
	if h.client == nil {
		h.dispatch(recipientID)
		return nil
	}
	return h.client.Publish(ctx, bumpChannel, strconv.FormatInt(recipientID, 10)).Err()
}

func (h *Hub) dispatch(recipientID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[recipientID] {
		select {
		case ch <- Event{RecipientID: recipientID}:
		default:
			// Slow consumer; it will re-read a snapshot on the next event.
		}
	}
}
