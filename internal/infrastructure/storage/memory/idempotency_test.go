package memory

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backoffice/internal/core/apperror"
)

func TestIdempotencyStore(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)
	store := NewIdempotencyStore(10 * time.Minute)
	store.now = func() time.Time { return now }

	replay, err := store.AcquireKey(ctx, "k1", "u1", "POST /orders", "h1")
	require.NoError(t, err)
	assert.Nil(t, replay)

	_, err = store.AcquireKey(ctx, "k1", "u1", "POST /orders", "h1")
	assert.True(t, apperror.HasCode(err, apperror.CodeIdempotency), "still running")

	_, err = store.AcquireKey(ctx, "k1", "u1", "POST /orders", "other-body")
	assert.True(t, apperror.HasCode(err, apperror.CodeIdempotency))

	require.NoError(t, store.CompleteKey(ctx, "k1", http.StatusCreated, "application/json", map[string]string{"id": "42"}))

	replay, err = store.AcquireKey(ctx, "k1", "u1", "POST /orders", "h1")
	require.NoError(t, err)
	require.NotNil(t, replay)
	assert.Equal(t, http.StatusCreated, replay.StatusCode)
	assert.JSONEq(t, `{"id":"42"}`, string(replay.Body))

	now = now.Add(11 * time.Minute)
	replay, err = store.AcquireKey(ctx, "k1", "u1", "POST /orders", "h1")
	require.NoError(t, err)
	assert.Nil(t, replay, "expired keys start over")
}

func TestIdempotencyStore_ReclaimsStalePending(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)
	store := NewIdempotencyStore(time.Hour)
	store.now = func() time.Time { return now }

	_, err := store.AcquireKey(ctx, "k", "", "POST /orders/:id/ship", "h")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	replay, err := store.AcquireKey(ctx, "k", "", "POST /orders/:id/ship", "h")
	require.NoError(t, err)
	assert.Nil(t, replay)
}
