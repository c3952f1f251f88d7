// Package events defines domain events written through the transactional outbox.
package events

import (
	"context"
	"time"

	"backoffice/internal/core/id"
	"backoffice/pkg/logger"
)

// Event represents an event to be published via outbox.
type Event struct {
	AggregateType string
	AggregateID   id.ID
	EventType     string
	Payload       any
}

// Publisher stores events in the same transaction as the change that produced them.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Discard drops every event. Useful where no outbox is configured.
type Discard struct{}

// Publish implements Publisher.
func (Discard) Publish(context.Context, Event) error { return nil }

// Status is the delivery state of an outbox message.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPublished Status = "published"
	StatusFailed    Status = "failed"
)

// MaxRetries is how many failed deliveries mark a message failed.
const MaxRetries = 5

// Message is a stored outbox row.
type Message struct {
	ID            id.ID      `db:"id" json:"id"`
	AggregateType string     `db:"aggregate_type" json:"aggregateType"`
	AggregateID   id.ID      `db:"aggregate_id" json:"aggregateId"`
	EventType     string     `db:"event_type" json:"eventType"`
	Payload       []byte     `db:"payload" json:"payload"`
	Status        Status     `db:"status" json:"status"`
	RetryCount    int        `db:"retry_count" json:"retryCount"`
	LastError     *string    `db:"last_error" json:"lastError,omitempty"`
	NextRetryAt   *time.Time `db:"next_retry_at" json:"nextRetryAt,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"createdAt"`
	PublishedAt   *time.Time `db:"published_at" json:"publishedAt,omitempty"`
}

// Handler delivers one message. A returned error schedules a retry.
type Handler interface {
	Handle(ctx context.Context, msg *Message) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, msg *Message) error

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, msg *Message) error { return f(ctx, msg) }

// Relay moves pending messages to a Handler.
type Relay interface {
	// ProcessBatch delivers up to one batch and returns how many succeeded.
	ProcessBatch(ctx context.Context) (int, error)
}

// RetryDelay is the backoff before the next delivery attempt.
func RetryDelay(retryCount int) time.Duration {
	return time.Duration(retryCount+1) * time.Minute
}

// Poll runs relay every interval until ctx is cancelled.
// A full batch is followed immediately by another one.
func Poll(ctx context.Context, relay Relay, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		for {
			n, err := relay.ProcessBatch(ctx)
			if err != nil {
				if ctx.Err() == nil {
					logger.Error(ctx, "outbox batch failed", "error", err)
				}
				break
			}
			if n == 0 {
				break
			}
			logger.Debug(ctx, "outbox batch processed", "count", n)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// LogHandler logs every message and reports success. It is the delivery
// target until a broker is configured.
func LogHandler() Handler {
	return HandlerFunc(func(ctx context.Context, msg *Message) error {
		logger.Info(ctx, "outbox event",
			"message_id", msg.ID,
			"event_type", msg.EventType,
			"aggregate_type", msg.AggregateType,
			"aggregate_id", msg.AggregateID,
			"retry_count", msg.RetryCount,
		)
		return nil
	})
}
