package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"backoffice/internal/core/events"
	"backoffice/internal/core/id"
	"backoffice/pkg/logger"
)

// OutboxPublisher implements events.Publisher by appending to the store.
// Events published inside a transaction disappear with its rollback.
type OutboxPublisher struct {
	store *Store
	now   func() time.Time
}

// NewOutboxPublisher creates a publisher over store.
func NewOutboxPublisher(store *Store) *OutboxPublisher {
	return &OutboxPublisher{store: store, now: func() time.Time { return time.Now().UTC() }}
}

var _ events.Publisher = (*OutboxPublisher)(nil)

// Publish implements events.Publisher.
func (p *OutboxPublisher) Publish(ctx context.Context, event events.Event) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	defer p.store.lock(ctx)()
	p.store.data.outbox = append(p.store.data.outbox, events.Message{
		ID:            id.New(),
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		EventType:     event.EventType,
		Payload:       payload,
		Status:        events.StatusPending,
		CreatedAt:     p.now(),
	})
	return nil
}

// Messages returns a copy of every outbox message, oldest first.
func (p *OutboxPublisher) Messages(ctx context.Context) []events.Message {
	defer p.store.lock(ctx)()
	return append([]events.Message(nil), p.store.data.outbox...)
}

// OutboxRelay implements events.Relay over the store.
type OutboxRelay struct {
	store     *Store
	batchSize int
	handler   events.Handler
	now       func() time.Time
}

// NewOutboxRelay creates a relay delivering to handler.
func NewOutboxRelay(store *Store, batchSize int, handler events.Handler) *OutboxRelay {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &OutboxRelay{
		store:     store,
		batchSize: batchSize,
		handler:   handler,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

var _ events.Relay = (*OutboxRelay)(nil)

// ProcessBatch implements events.Relay. The handler runs outside the store
// lock so it may read from the store.
func (r *OutboxRelay) ProcessBatch(ctx context.Context) (int, error) {
	now := r.now()

	r.store.mu.Lock()
	due := make([]events.Message, 0, r.batchSize)
	for _, msg := range r.store.data.outbox {
		if len(due) == r.batchSize {
			break
		}
		if msg.Status != events.StatusPending {
			continue
		}
		if msg.NextRetryAt != nil && msg.NextRetryAt.After(now) {
			continue
		}
		due = append(due, msg)
	}
	r.store.mu.Unlock()

	processed := 0
	for i := range due {
		msg := &due[i]
		err := r.handler.Handle(ctx, msg)
		r.settle(msg.ID, err)
		if err != nil {
			logger.Warn(ctx, "outbox delivery failed", "message_id", msg.ID, "event_type", msg.EventType, "error", err)
			continue
		}
		processed++
	}
	return processed, nil
}

func (r *OutboxRelay) settle(msgID id.ID, handleErr error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	now := r.now()
	for i := range r.store.data.outbox {
		msg := &r.store.data.outbox[i]
		if msg.ID != msgID {
			continue
		}
		if handleErr == nil {
			msg.Status = events.StatusPublished
			msg.PublishedAt = &now
			return
		}
		errStr := handleErr.Error()
		next := now.Add(events.RetryDelay(msg.RetryCount))
		msg.LastError = &errStr
		msg.NextRetryAt = &next
		msg.RetryCount++
		if msg.RetryCount >= events.MaxRetries {
			msg.Status = events.StatusFailed
		}
		return
	}
}
