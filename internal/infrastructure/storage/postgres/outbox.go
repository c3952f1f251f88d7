package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"

	"backoffice/internal/core/events"
	"backoffice/internal/core/id"
	"backoffice/pkg/logger"
)

// OutboxPublisher writes events to sys_outbox in the caller's transaction.
type OutboxPublisher struct {
	txManager *TxManager
}

// NewOutboxPublisher creates a new outbox publisher.
func NewOutboxPublisher(txManager *TxManager) *OutboxPublisher {
	return &OutboxPublisher{txManager: txManager}
}

var _ events.Publisher = (*OutboxPublisher)(nil)

// Publish writes an event to the outbox within the current transaction.
// MUST be called inside a transaction context.
func (p *OutboxPublisher) Publish(ctx context.Context, event events.Event) error {
	tx := p.txManager.GetTx(ctx)
	if tx == nil {
		return fmt.Errorf("outbox publish requires transaction context")
	}

	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO sys_outbox (id, aggregate_type, aggregate_id, event_type, payload, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, id.New(), event.AggregateType, event.AggregateID, event.EventType, payload, events.StatusPending, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert outbox message: %w", err)
	}
	return nil
}

// OutboxRelay delivers pending sys_outbox rows to a handler.
type OutboxRelay struct {
	txManager *TxManager
	batchSize int
	handler   events.Handler
}

// NewOutboxRelay creates a new outbox relay.
func NewOutboxRelay(txManager *TxManager, batchSize int, handler events.Handler) *OutboxRelay {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &OutboxRelay{
		txManager: txManager,
		batchSize: batchSize,
		handler:   handler,
	}
}

var _ events.Relay = (*OutboxRelay)(nil)

// ProcessBatch locks one batch of due messages, hands each to the handler
// and records the outcome, all in one transaction. Concurrent relays skip
// rows another relay holds.
func (r *OutboxRelay) ProcessBatch(ctx context.Context) (int, error) {
	processed := 0
	err := r.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		q := r.txManager.GetQuerier(ctx)

		var messages []*events.Message
		err := pgxscan.Select(ctx, q, &messages, `
			SELECT id, aggregate_type, aggregate_id, event_type, payload, status,
			       retry_count, last_error, next_retry_at, created_at, published_at
			FROM sys_outbox
			WHERE status = $1
			  AND (next_retry_at IS NULL OR next_retry_at <= NOW())
			ORDER BY created_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		`, events.StatusPending, r.batchSize)
		if err != nil {
			return fmt.Errorf("fetch outbox messages: %w", err)
		}

		for _, msg := range messages {
			ok, err := r.deliver(ctx, q, msg)
			if err != nil {
				return err
			}
			if ok {
				processed++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return processed, nil
}

// deliver runs the handler and stores the result. Handler failures are
// recorded on the row; only storage failures are returned.
func (r *OutboxRelay) deliver(ctx context.Context, q Querier, msg *events.Message) (bool, error) {
	now := time.Now().UTC()

	if handleErr := r.handler.Handle(ctx, msg); handleErr != nil {
		logger.Warn(ctx, "outbox delivery failed",
			"message_id", msg.ID,
			"event_type", msg.EventType,
			"retry_count", msg.RetryCount,
			"error", handleErr,
		)
		status := events.StatusPending
		if msg.RetryCount+1 >= events.MaxRetries {
			status = events.StatusFailed
		}
		_, err := q.Exec(ctx, `
			UPDATE sys_outbox
			SET retry_count = retry_count + 1,
			    last_error = $1,
			    next_retry_at = $2,
			    status = $3
			WHERE id = $4
		`, handleErr.Error(), now.Add(events.RetryDelay(msg.RetryCount)), status, msg.ID)
		if err != nil {
			return false, fmt.Errorf("update failed message: %w", err)
		}
		return false, nil
	}

	_, err := q.Exec(ctx, `
		UPDATE sys_outbox
		SET status = $1, published_at = $2
		WHERE id = $3
	`, events.StatusPublished, now, msg.ID)
	if err != nil {
		return false, fmt.Errorf("mark message published: %w", err)
	}
	return true, nil
}
