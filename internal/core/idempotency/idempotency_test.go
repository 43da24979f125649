package idempotency

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgercore/internal/core/apperror"
)

func TestResolve(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	base := Record{
		Key:         "k1",
		ActorID:     "alice",
		Operation:   "POST /api/v1/payments",
		RequestHash: "h",
		UpdatedAt:   now.Add(-10 * time.Second),
	}

	t.Run("completed key replays", func(t *testing.T) {
		r := base
		r.Status = StatusSuccess
		r.StatusCode = 201
		r.Response = []byte(`{"id":"x"}`)

		replay, reclaim, err := Resolve(&r, "alice", r.Operation, "h", now)
		require.NoError(t, err)
		assert.False(t, reclaim)
		assert.Equal(t, 201, replay.StatusCode)
		assert.Equal(t, `{"id":"x"}`, string(replay.Body))
		assert.Equal(t, "application/json; charset=utf-8", replay.ContentType)
	})

	t.Run("failed key replays the stored error", func(t *testing.T) {
		r := base
		r.Status = StatusFailed
		r.StatusCode = 422

		replay, _, err := Resolve(&r, "alice", r.Operation, "h", now)
		require.NoError(t, err)
		assert.Equal(t, 422, replay.StatusCode)
	})

	t.Run("fresh pending key conflicts", func(t *testing.T) {
		r := base
		r.Status = StatusPending

		_, _, err := Resolve(&r, "alice", r.Operation, "h", now)
		assert.True(t, apperror.HasCode(err, apperror.CodeIdempotency))
	})

	t.Run("stale pending key is reclaimed", func(t *testing.T) {
		r := base
		r.Status = StatusPending
		r.UpdatedAt = now.Add(-2 * StaleAfter)

		replay, reclaim, err := Resolve(&r, "alice", r.Operation, "h", now)
		require.NoError(t, err)
		assert.Nil(t, replay)
		assert.True(t, reclaim)
	})

	t.Run("different body is a mismatch", func(t *testing.T) {
		r := base
		r.Status = StatusSuccess

		_, _, err := Resolve(&r, "alice", r.Operation, "other", now)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, "Idempotency key mismatch", appErr.Message)
	})

	t.Run("different actor is a mismatch", func(t *testing.T) {
		r := base
		r.Status = StatusSuccess

		_, _, err := Resolve(&r, "bob", r.Operation, "h", now)
		assert.True(t, apperror.HasCode(err, apperror.CodeIdempotency))
	})
}
