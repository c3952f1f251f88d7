package numerator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	corenumerator "backoffice/internal/core/numerator"
)

type mockRow struct {
	val int64
	err error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.err != nil {
		return m.err
	}
	if len(dest) > 0 {
		if ptr, ok := dest[0].(*int64); ok {
			*ptr = m.val
		}
	}
	return nil
}

// mockQuerier simulates a single sys_sequences row.
type mockQuerier struct {
	mu           sync.Mutex
	currentValue int64
	calls        int
	err          error
}

func (m *mockQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return &mockRow{err: m.err}
	}

	switch {
	case strings.Contains(sql, "SET current_val = $2"):
		m.currentValue = args[1].(int64)
	case len(args) == 2:
		m.currentValue += args[1].(int64)
	default:
		m.currentValue++
	}
	return &mockRow{val: m.currentValue}
}

var period = time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)

func TestGetNextNumber_Strict(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q)
	ctx := context.Background()
	cfg := corenumerator.DefaultConfig("ORD")

	num, err := svc.GetNextNumber(ctx, cfg, nil, period)
	require.NoError(t, err)
	assert.Equal(t, "ORD-2026-00001", num)

	num, err = svc.GetNextNumber(ctx, cfg, nil, period)
	require.NoError(t, err)
	assert.Equal(t, "ORD-2026-00002", num)
	assert.Equal(t, 2, q.calls)
}

func TestGetNextNumber_Cached(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q)
	ctx := context.Background()
	cfg := corenumerator.DefaultConfig("AGT")
	opts := &corenumerator.Options{Strategy: corenumerator.StrategyCached, RangeSize: 10}

	num, err := svc.GetNextNumber(ctx, cfg, opts, period)
	require.NoError(t, err)
	assert.Equal(t, "AGT-2026-00001", num)
	assert.Equal(t, int64(10), q.currentValue)

	num, err = svc.GetNextNumber(ctx, cfg, opts, period)
	require.NoError(t, err)
	assert.Equal(t, "AGT-2026-00002", num)
	assert.Equal(t, 1, q.calls, "second number must come from the reserved range")

	for i := 0; i < 8; i++ {
		_, err = svc.GetNextNumber(ctx, cfg, opts, period)
		require.NoError(t, err)
	}

	num, err = svc.GetNextNumber(ctx, cfg, opts, period)
	require.NoError(t, err)
	assert.Equal(t, "AGT-2026-00011", num)
	assert.Equal(t, int64(20), q.currentValue)
}

func TestSetNextNumber_InvalidatesCache(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q)
	ctx := context.Background()
	cfg := corenumerator.DefaultConfig("ORD")
	opts := &corenumerator.Options{Strategy: corenumerator.StrategyCached, RangeSize: 10}

	_, err := svc.GetNextNumber(ctx, cfg, opts, period)
	require.NoError(t, err)

	require.NoError(t, svc.SetNextNumber(ctx, cfg, period, 100))

	num, err := svc.GetNextNumber(ctx, cfg, opts, period)
	require.NoError(t, err)
	assert.Equal(t, "ORD-2026-00101", num)
}

func TestGetNextNumber_Errors(t *testing.T) {
	var nilSvc *Service
	_, err := nilSvc.GetNextNumber(context.Background(), corenumerator.DefaultConfig("ORD"), nil, period)
	require.Error(t, err)

	svc := New(&mockQuerier{err: errors.New("db down")})
	_, err = svc.GetNextNumber(context.Background(), corenumerator.DefaultConfig("ORD"), nil, period)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "strict next")
}

func TestParseNumber(t *testing.T) {
	assert.Equal(t, int64(42), ParseNumber("ORD-2026-00042"))
	assert.Equal(t, int64(7), ParseNumber("RET-007"))
	assert.Equal(t, int64(-1), ParseNumber("garbage"))
	assert.Equal(t, int64(-1), ParseNumber("ORD-"))
}
