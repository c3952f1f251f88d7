package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"backoffice/internal/core/apperror"
	"backoffice/internal/core/idempotency"
)

// IdempotencyStore keeps idempotency keys in sys_idempotency.
type IdempotencyStore struct {
	txManager *TxManager
	ttl       time.Duration
}

// NewIdempotencyStore creates a new idempotency store.
func NewIdempotencyStore(txManager *TxManager, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{txManager: txManager, ttl: ttl}
}

var _ idempotency.Store = (*IdempotencyStore)(nil)

type idempotencyRecord struct {
	UserID      string
	Operation   string
	Status      idempotency.Status
	RequestHash string
	Response    []byte
	StatusCode  *int
	ContentType *string
	Created     bool
	UpdatedAt   time.Time
}

// AcquireKey inserts the key or reads the existing record.
func (s *IdempotencyStore) AcquireKey(ctx context.Context, key, userID, operation, requestHash string) (*idempotency.Replay, error) {
	now := time.Now().UTC()

	var rec idempotencyRecord
	// xmax = 0 only for a row this statement inserted
	err := s.txManager.GetQuerier(ctx).QueryRow(ctx, `
		INSERT INTO sys_idempotency (idempotency_key, user_id, operation, status, request_hash, created_at, updated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6, $7)
		ON CONFLICT (idempotency_key) DO UPDATE SET
			expires_at = GREATEST(sys_idempotency.expires_at, EXCLUDED.expires_at)
		RETURNING user_id, operation, status, request_hash, response,
		          response_status, response_content_type, (xmax = 0) AS created, updated_at
	`, key, userID, operation, idempotency.StatusPending, requestHash, now, now.Add(s.ttl)).Scan(
		&rec.UserID, &rec.Operation, &rec.Status, &rec.RequestHash, &rec.Response,
		&rec.StatusCode, &rec.ContentType, &rec.Created, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("acquire idempotency key: %w", err)
	}
	if rec.Created {
		return nil, nil
	}

	if rec.UserID != userID || rec.Operation != operation || rec.RequestHash != requestHash {
		return nil, apperror.NewIdempotencyMismatch(key).
			WithDetail("stored_operation", rec.Operation).
			WithDetail("request_operation", operation)
	}

	switch rec.Status {
	case idempotency.StatusSuccess, idempotency.StatusFailed:
		statusCode := 0
		if rec.StatusCode != nil {
			statusCode = *rec.StatusCode
		}
		contentType := ""
		if rec.ContentType != nil {
			contentType = *rec.ContentType
		}
		return idempotency.NewReplay(statusCode, contentType, rec.Response), nil
	}

	if now.Sub(rec.UpdatedAt) <= idempotency.StaleAfter {
		return nil, apperror.NewIdempotencyConflict(key)
	}

	// reclaim a key whose request most likely crashed
	result, err := s.txManager.GetQuerier(ctx).Exec(ctx, `
		UPDATE sys_idempotency
		SET updated_at = $1
		WHERE idempotency_key = $2 AND status = $3 AND updated_at = $4
	`, now, key, idempotency.StatusPending, rec.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("reclaim stale key: %w", err)
	}
	if result.RowsAffected() == 0 {
		return nil, apperror.NewIdempotencyConflict(key)
	}
	return nil, nil
}

// CompleteKey stores a successful response.
func (s *IdempotencyStore) CompleteKey(ctx context.Context, key string, statusCode int, contentType string, response any) error {
	return s.finish(ctx, key, idempotency.StatusSuccess, statusCode, contentType, response)
}

// FailKey stores an error response.
func (s *IdempotencyStore) FailKey(ctx context.Context, key string, statusCode int, contentType string, response any) error {
	return s.finish(ctx, key, idempotency.StatusFailed, statusCode, contentType, response)
}

func (s *IdempotencyStore) finish(ctx context.Context, key string, status idempotency.Status, statusCode int, contentType string, response any) error {
	var body []byte
	if response != nil {
		b, err := json.Marshal(response)
		if err != nil {
			return fmt.Errorf("marshal response: %w", err)
		}
		body = b
	}

	_, err := s.txManager.GetQuerier(ctx).Exec(ctx, `
		UPDATE sys_idempotency
		SET status = $1,
		    response = $2,
		    response_status = $3,
		    response_content_type = $4,
		    updated_at = $5
		WHERE idempotency_key = $6
	`, status, body, statusCode, contentType, time.Now().UTC(), key)
	if err != nil {
		return fmt.Errorf("store idempotent response: %w", err)
	}
	return nil
}

// CleanupExpired removes expired keys.
func (s *IdempotencyStore) CleanupExpired(ctx context.Context) (int64, error) {
	result, err := s.txManager.GetQuerier(ctx).Exec(ctx, `
		DELETE FROM sys_idempotency WHERE expires_at < $1
	`, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("cleanup idempotency keys: %w", err)
	}
	return result.RowsAffected(), nil
}
