package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"backoffice/internal/core/apperror"
	"backoffice/internal/core/idempotency"
)

type idempotencyRecord struct {
	userID      string
	operation   string
	requestHash string
	status      idempotency.Status
	replay      *idempotency.Replay
	updatedAt   time.Time
	expiresAt   time.Time
}

// IdempotencyStore keeps idempotency keys in process memory.
type IdempotencyStore struct {
	mu      sync.Mutex
	records map[string]*idempotencyRecord
	ttl     time.Duration
	now     func() time.Time
}

// NewIdempotencyStore creates an in-memory idempotency store.
func NewIdempotencyStore(ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{
		records: make(map[string]*idempotencyRecord),
		ttl:     ttl,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

var _ idempotency.Store = (*IdempotencyStore)(nil)

// AcquireKey implements idempotency.Store.
func (s *IdempotencyStore) AcquireKey(_ context.Context, key, userID, operation, requestHash string) (*idempotency.Replay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	rec, ok := s.records[key]
	if !ok || now.After(rec.expiresAt) {
		s.records[key] = &idempotencyRecord{
			userID:      userID,
			operation:   operation,
			requestHash: requestHash,
			status:      idempotency.StatusPending,
			updatedAt:   now,
			expiresAt:   now.Add(s.ttl),
		}
		return nil, nil
	}

	if rec.userID != userID || rec.operation != operation || rec.requestHash != requestHash {
		return nil, apperror.NewIdempotencyMismatch(key).
			WithDetail("stored_operation", rec.operation).
			WithDetail("request_operation", operation)
	}
	if rec.replay != nil {
		return rec.replay, nil
	}
	if now.Sub(rec.updatedAt) <= idempotency.StaleAfter {
		return nil, apperror.NewIdempotencyConflict(key)
	}
	rec.updatedAt = now
	return nil, nil
}

// CompleteKey implements idempotency.Store.
func (s *IdempotencyStore) CompleteKey(_ context.Context, key string, statusCode int, contentType string, response any) error {
	return s.finish(key, idempotency.StatusSuccess, statusCode, contentType, response)
}

// FailKey implements idempotency.Store.
func (s *IdempotencyStore) FailKey(_ context.Context, key string, statusCode int, contentType string, response any) error {
	return s.finish(key, idempotency.StatusFailed, statusCode, contentType, response)
}

func (s *IdempotencyStore) finish(key string, status idempotency.Status, statusCode int, contentType string, response any) error {
	var body []byte
	if response != nil {
		b, err := json.Marshal(response)
		if err != nil {
			return fmt.Errorf("marshal response: %w", err)
		}
		body = b
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok {
		return nil
	}
	rec.status = status
	rec.replay = idempotency.NewReplay(statusCode, contentType, body)
	rec.updatedAt = s.now()
	return nil
}
