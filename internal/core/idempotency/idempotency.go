// Package idempotency defines replay protection for mutating requests
// that carry a client-chosen key.
package idempotency

import (
	"context"
	"time"

	"ledgercore/internal/core/apperror"
)

// Status represents the state of a keyed operation.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// StaleAfter is how long a pending key may sit untouched before a retry may reclaim it.
const StaleAfter = time.Minute

// Record is one stored key.
type Record struct {
	Key         string    `db:"idempotency_key"`
	ActorID     string    `db:"actor_id"`
	Operation   string    `db:"operation"`
	Status      Status    `db:"status"`
	RequestHash string    `db:"request_hash"`
	Response    []byte    `db:"response"`
	StatusCode  int       `db:"response_status"`
	ContentType string    `db:"response_content_type"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
	ExpiresAt   time.Time `db:"expires_at"`
}

// Replay is a stored response to send back instead of re-running the operation.
type Replay struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Store persists keys.
//
// Acquire returns (nil, nil) when the caller now owns the key, a Replay when
// the operation already finished, or an error when the key is held or reused
// for a different request.
type Store interface {
	Acquire(ctx context.Context, key, actorID, operation, requestHash string) (*Replay, error)
	Complete(ctx context.Context, key string, status Status, statusCode int, contentType string, body []byte) error
	Release(ctx context.Context, key string) error
	CleanupExpired(ctx context.Context) (int64, error)
}

// Resolve decides what an existing record means for a new request with the same key.
// reclaim is true when a stale pending key may be taken over by the caller.
func Resolve(r *Record, actorID, operation, requestHash string, now time.Time) (replay *Replay, reclaim bool, err error) {
	if r.ActorID != actorID || r.Operation != operation || r.RequestHash != requestHash {
		return nil, false, apperror.NewIdempotencyMismatch(r.Key).
			WithDetail("stored_operation", r.Operation).
			WithDetail("request_operation", operation)
	}

	switch r.Status {
	case StatusSuccess, StatusFailed:
		return &Replay{
			StatusCode:  normalizeStatus(r.StatusCode),
			ContentType: normalizeContentType(r.ContentType),
			Body:        r.Response,
		}, false, nil
	default:
		if now.Sub(r.UpdatedAt) > StaleAfter {
			return nil, true, nil
		}
		return nil, false, apperror.NewIdempotencyConflict(r.Key)
	}
}

func normalizeStatus(status int) int {
	if status == 0 {
		return 200
	}
	return status
}

func normalizeContentType(ct string) string {
	if ct == "" {
		return "application/json; charset=utf-8"
	}
	return ct
}
