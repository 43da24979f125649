package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgercore/internal/core/apperror"
	"ledgercore/internal/core/idempotency"
)

func TestIdempotencyStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewIdempotencyStore(time.Hour)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	replay, err := s.Acquire(ctx, "k1", "alice", "POST /x", "h")
	require.NoError(t, err)
	assert.Nil(t, replay, "first request owns the key")

	_, err = s.Acquire(ctx, "k1", "alice", "POST /x", "h")
	assert.True(t, apperror.HasCode(err, apperror.CodeIdempotency), "in-flight key conflicts")

	require.NoError(t, s.Complete(ctx, "k1", idempotency.StatusSuccess, 201, "application/json", []byte(`{"ok":true}`)))

	replay, err = s.Acquire(ctx, "k1", "alice", "POST /x", "h")
	require.NoError(t, err)
	require.NotNil(t, replay)
	assert.Equal(t, 201, replay.StatusCode)
	assert.Equal(t, `{"ok":true}`, string(replay.Body))

	_, err = s.Acquire(ctx, "k1", "alice", "POST /x", "other-body")
	assert.True(t, apperror.HasCode(err, apperror.CodeIdempotency))
}

func TestIdempotencyStore_ReleaseAndExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewIdempotencyStore(time.Hour)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	_, err := s.Acquire(ctx, "k1", "alice", "POST /x", "h")
	require.NoError(t, err)
	require.NoError(t, s.Release(ctx, "k1"))

	replay, err := s.Acquire(ctx, "k1", "alice", "POST /x", "h")
	require.NoError(t, err)
	assert.Nil(t, replay, "released key can be taken again")

	require.NoError(t, s.Complete(ctx, "k1", idempotency.StatusFailed, 422, "application/json", nil))
	require.NoError(t, s.Release(ctx, "k1"))
	replay, err = s.Acquire(ctx, "k1", "alice", "POST /x", "h")
	require.NoError(t, err)
	assert.NotNil(t, replay, "completed keys are not released")

	now = now.Add(2 * time.Hour)
	n, err := s.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}
