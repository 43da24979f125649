package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"ledgercore/internal/core/apperror"
	"ledgercore/internal/core/idempotency"
)

const idempotencyTable = "sys_idempotency"

var idempotencyColumns = []string{
	"idempotency_key", "actor_id", "operation", "status", "request_hash",
	"response", "response_status", "response_content_type",
	"created_at", "updated_at", "expires_at",
}

// IdempotencyStore keeps request keys in sys_idempotency.
type IdempotencyStore struct {
	txManager *TxManager
	ttl       time.Duration
	builder   squirrel.StatementBuilderType
}

var _ idempotency.Store = (*IdempotencyStore)(nil)

// NewIdempotencyStore creates a new idempotency store. Keys expire after ttl.
func NewIdempotencyStore(txManager *TxManager, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyStore{
		txManager: txManager,
		ttl:       ttl,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

const insertIdempotencySQL = `
	INSERT INTO sys_idempotency (idempotency_key, actor_id, operation, status, request_hash, created_at, updated_at, expires_at)
	VALUES ($1, $2, $3, $4, $5, $6, $6, $7)
	ON CONFLICT (idempotency_key) DO NOTHING`

// Acquire implements idempotency.Store.
func (s *IdempotencyStore) Acquire(ctx context.Context, key, actorID, operation, requestHash string) (*idempotency.Replay, error) {
	now := time.Now().UTC()
	q := s.txManager.GetQuerier(ctx)

	tag, err := q.Exec(ctx, insertIdempotencySQL,
		key, actorID, operation, idempotency.StatusPending, requestHash, now, now.Add(s.ttl))
	if err != nil {
		return nil, fmt.Errorf("acquire idempotency key: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil, nil
	}

	sql, args, err := s.getQuery(key).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build idempotency query: %w", err)
	}
	var rec idempotency.Record
	if err := pgxscan.Get(ctx, q, &rec, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			// Purged between the insert and the read.
			return nil, apperror.NewIdempotencyConflict(key)
		}
		return nil, fmt.Errorf("load idempotency key: %w", err)
	}

	replay, reclaim, err := idempotency.Resolve(&rec, actorID, operation, requestHash, now)
	if err != nil || !reclaim {
		return replay, err
	}

	sql, args, err = s.reclaimQuery(key, rec.UpdatedAt, now).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build reclaim: %w", err)
	}
	tag, err = q.Exec(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("reclaim stale key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, apperror.NewIdempotencyConflict(key)
	}
	return nil, nil
}

// Complete implements idempotency.Store.
func (s *IdempotencyStore) Complete(ctx context.Context, key string, status idempotency.Status, statusCode int, contentType string, body []byte) error {
	sql, args, err := s.completeQuery(key, status, statusCode, contentType, body).ToSql()
	if err != nil {
		return fmt.Errorf("build complete: %w", err)
	}
	if _, err := s.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("complete idempotency key: %w", err)
	}
	return nil
}

// Release implements idempotency.Store. Only a pending key is removed.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	sql, args, err := s.builder.Delete(idempotencyTable).
		Where(squirrel.Eq{"idempotency_key": key, "status": idempotency.StatusPending}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build release: %w", err)
	}
	if _, err := s.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}

// CleanupExpired implements idempotency.Store.
func (s *IdempotencyStore) CleanupExpired(ctx context.Context) (int64, error) {
	sql, args, err := s.cleanupQuery(time.Now().UTC()).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build cleanup: %w", err)
	}
	result, err := s.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("cleanup idempotency keys: %w", err)
	}
	return result.RowsAffected(), nil
}

func (s *IdempotencyStore) getQuery(key string) squirrel.SelectBuilder {
	return s.builder.Select(idempotencyColumns...).
		From(idempotencyTable).
		Where(squirrel.Eq{"idempotency_key": key})
}

// reclaimQuery only wins when nobody touched the key since it was read.
func (s *IdempotencyStore) reclaimQuery(key string, seen, now time.Time) squirrel.UpdateBuilder {
	return s.builder.Update(idempotencyTable).
		Set("updated_at", now).
		Where(squirrel.Eq{
			"idempotency_key": key,
			"status":          idempotency.StatusPending,
			"updated_at":      seen,
		})
}

func (s *IdempotencyStore) completeQuery(key string, status idempotency.Status, statusCode int, contentType string, body []byte) squirrel.UpdateBuilder {
	return s.builder.Update(idempotencyTable).
		Set("status", status).
		Set("response", body).
		Set("response_status", statusCode).
		Set("response_content_type", contentType).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"idempotency_key": key})
}

func (s *IdempotencyStore) cleanupQuery(now time.Time) squirrel.DeleteBuilder {
	return s.builder.Delete(idempotencyTable).
		Where(squirrel.Lt{"expires_at": now})
}
