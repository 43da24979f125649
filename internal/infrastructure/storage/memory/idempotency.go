package memory

import (
	"context"
	"sync"
	"time"

	"ledgercore/internal/core/idempotency"
)

// IdempotencyStore keeps request keys in a map. Keys live outside the
// transactional Store so a rolled-back operation still records its response.
type IdempotencyStore struct {
	mu   sync.Mutex
	keys map[string]*idempotency.Record
	ttl  time.Duration
	now  func() time.Time
}

var _ idempotency.Store = (*IdempotencyStore)(nil)

// NewIdempotencyStore creates an in-memory idempotency store. Keys expire after ttl.
func NewIdempotencyStore(ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyStore{
		keys: make(map[string]*idempotency.Record),
		ttl:  ttl,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Acquire implements idempotency.Store.
func (s *IdempotencyStore) Acquire(_ context.Context, key, actorID, operation, requestHash string) (*idempotency.Replay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	rec, ok := s.keys[key]
	if !ok || now.After(rec.ExpiresAt) {
		s.keys[key] = &idempotency.Record{
			Key:         key,
			ActorID:     actorID,
			Operation:   operation,
			Status:      idempotency.StatusPending,
			RequestHash: requestHash,
			CreatedAt:   now,
			UpdatedAt:   now,
			ExpiresAt:   now.Add(s.ttl),
		}
		return nil, nil
	}

	replay, reclaim, err := idempotency.Resolve(rec, actorID, operation, requestHash, now)
	if reclaim {
		rec.UpdatedAt = now
	}
	return replay, err
}

// Complete implements idempotency.Store.
func (s *IdempotencyStore) Complete(_ context.Context, key string, status idempotency.Status, statusCode int, contentType string, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.keys[key]
	if !ok {
		return nil
	}
	rec.Status = status
	rec.StatusCode = statusCode
	rec.ContentType = contentType
	rec.Response = append([]byte(nil), body...)
	rec.UpdatedAt = s.now()
	return nil
}

// Release implements idempotency.Store.
func (s *IdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.keys[key]; ok && rec.Status == idempotency.StatusPending {
		delete(s.keys, key)
	}
	return nil
}

// CleanupExpired implements idempotency.Store.
func (s *IdempotencyStore) CleanupExpired(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var n int64
	for k, rec := range s.keys {
		if now.After(rec.ExpiresAt) {
			delete(s.keys, k)
			n++
		}
	}
	return n, nil
}
