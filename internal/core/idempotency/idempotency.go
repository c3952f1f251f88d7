// Package idempotency defines the contract for replaying mutating HTTP
// requests that carry an idempotency key.
package idempotency

import (
	"context"
	"net/http"
	"time"
)

// Status is the state of a keyed request.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// StaleAfter is how long a pending key may stay untouched before another
// request may reclaim it.
const StaleAfter = time.Minute

// Replay is a stored response served again for a repeated request.
type Replay struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Store persists idempotency keys.
type Store interface {
	// AcquireKey returns (nil, nil) when the caller owns the key, a Replay when
	// the request already finished, or an error when the key is busy or was
	// used for a different request.
	AcquireKey(ctx context.Context, key, userID, operation, requestHash string) (*Replay, error)

	// CompleteKey stores a successful response.
	CompleteKey(ctx context.Context, key string, statusCode int, contentType string, response any) error

	// FailKey stores an error response.
	FailKey(ctx context.Context, key string, statusCode int, contentType string, response any) error
}

// NewReplay fills in defaults for records written without status or content type.
func NewReplay(statusCode int, contentType string, body []byte) *Replay {
	if statusCode == 0 {
		statusCode = http.StatusOK
	}
	if contentType == "" {
		contentType = "application/json"
	}
	return &Replay{StatusCode: statusCode, ContentType: contentType, Body: body}
}
