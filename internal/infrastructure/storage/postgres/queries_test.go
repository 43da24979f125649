package postgres

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "ledgercore/internal/core/context"
	"ledgercore/internal/core/id"
	"ledgercore/internal/core/idempotency"
)

func TestOutboxRelay_PendingQuery(t *testing.T) {
	relay := NewOutboxRelay(nil, 25, nil)

	sql, args, err := relay.pendingQuery().ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "FROM sys_outbox WHERE status = $1")
	assert.Contains(t, sql, "(next_retry_at IS NULL OR next_retry_at <= NOW())")
	assert.Contains(t, sql, "ORDER BY created_at LIMIT 25 FOR UPDATE SKIP LOCKED")
	assert.Equal(t, []any{OutboxStatusPending}, args)
}

func TestOutboxRelay_DefaultBatchSize(t *testing.T) {
	relay := NewOutboxRelay(nil, 0, nil)
	assert.Equal(t, 100, relay.batchSize)
}

func TestAuditService_CompressesLargeChanges(t *testing.T) {
	svc, err := NewAuditService(nil)
	require.NoError(t, err)
	defer svc.Close()

	big, err := json.Marshal(map[string]string{"note": string(bytes.Repeat([]byte("x"), defaultCompressThreshold+1))})
	require.NoError(t, err)

	ctx := appctx.WithActor(context.Background(), &appctx.Actor{ID: "clerk-7"})
	entry := AuditEntry{EntityType: "payment", EntityID: id.New(), Action: "apply", Changes: big}
	svc.prepare(ctx, &entry)

	assert.Equal(t, CompressionZstd, entry.CompressionAlgo)
	assert.Nil(t, entry.Changes)
	assert.NotEmpty(t, entry.ChangesCompressed)
	assert.Equal(t, "clerk-7", entry.ActorID)
	assert.False(t, id.IsNil(entry.ID))

	require.NoError(t, svc.inflate(&entry))
	assert.JSONEq(t, string(big), string(entry.Changes))
}

func TestAuditService_SmallChangesStayPlain(t *testing.T) {
	svc, err := NewAuditService(nil)
	require.NoError(t, err)
	defer svc.Close()

	entry := AuditEntry{Changes: json.RawMessage(`{"status":"paid"}`)}
	svc.prepare(context.Background(), &entry)

	assert.Equal(t, CompressionNone, entry.CompressionAlgo)
	assert.JSONEq(t, `{"status":"paid"}`, string(entry.Changes))
	assert.Nil(t, entry.ChangesCompressed)
}

func TestHistoryQuery(t *testing.T) {
	entityID := id.New()

	sql, args, err := historyQuery("invoice", entityID, 0).ToSql()
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT id, entity_type, entity_id, action, actor_id, trace_id, changes, changes_compressed, compression_algo, created_at "+
			"FROM sys_audit WHERE entity_id = $1 AND entity_type = $2 ORDER BY created_at DESC LIMIT 100",
		sql)
	assert.Equal(t, []any{entityID.String(), "invoice"}, args)
}

func TestMigrationNames_Sorted(t *testing.T) {
	names, err := migrationNames()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "0001_init.sql", names[0])
}

func TestIdempotencyStore_Queries(t *testing.T) {
	s := NewIdempotencyStore(nil, 0)
	assert.Equal(t, 24*time.Hour, s.ttl)

	sql, args, err := s.getQuery("k1").ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "FROM sys_idempotency WHERE idempotency_key = $1")
	assert.Equal(t, []any{"k1"}, args)

	seen := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	now := seen.Add(2 * time.Minute)
	sql, args, err = s.reclaimQuery("k1", seen, now).ToSql()
	require.NoError(t, err)
	assert.Equal(t,
		"UPDATE sys_idempotency SET updated_at = $1 WHERE idempotency_key = $2 AND status = $3 AND updated_at = $4",
		sql)
	assert.Equal(t, []any{now, "k1", idempotency.StatusPending, seen}, args)

	sql, args, err = s.completeQuery("k1", idempotency.StatusSuccess, 201, "application/json", []byte("{}")).ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "SET status = $1, response = $2, response_status = $3, response_content_type = $4, updated_at = $5 WHERE idempotency_key = $6")
	assert.Equal(t, idempotency.StatusSuccess, args[0])
	assert.Equal(t, 201, args[2])

	sql, args, err = s.cleanupQuery(now).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM sys_idempotency WHERE expires_at < $1", sql)
	assert.Equal(t, []any{now}, args)
}
