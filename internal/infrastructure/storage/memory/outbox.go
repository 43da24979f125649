package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ledgercore/internal/core/id"
	"ledgercore/internal/domain/posting"
)

// OutboxMessage is one stored posting event.
type OutboxMessage struct {
	ID            id.ID
	AggregateType string
	AggregateID   id.ID
	EventType     string
	Payload       json.RawMessage
	CreatedAt     time.Time
}

// AuditEntry is one stored audit record.
type AuditEntry struct {
	ID         id.ID
	EntityType string
	EntityID   id.ID
	Action     string
	ActorID    string
	Changes    json.RawMessage
	CreatedAt  time.Time
}

// Outbox implements posting.Outbox over the store.
type Outbox struct {
	store *Store
}

var _ posting.Outbox = (*Outbox)(nil)

// NewOutbox creates an in-memory outbox.
func NewOutbox(store *Store) *Outbox {
	return &Outbox{store: store}
}

// PublishBatch implements posting.Outbox.
func (o *Outbox) PublishBatch(ctx context.Context, events []posting.Event) error {
	msgs := make([]OutboxMessage, 0, len(events))
	now := time.Now().UTC()
	for _, e := range events {
		payload, err := json.Marshal(e.Payload)
		if err != nil {
			return fmt.Errorf("marshal %s payload: %w", e.EventType, err)
		}
		msgs = append(msgs, OutboxMessage{
			ID:            id.New(),
			AggregateType: e.AggregateType,
			AggregateID:   e.AggregateID,
			EventType:     e.EventType,
			Payload:       payload,
			CreatedAt:     now,
		})
	}
	return o.store.write(func(st *state) error {
		st.outbox = append(st.outbox, msgs...)
		return nil
	})
}

// Messages returns every committed event in publish order.
func (o *Outbox) Messages() []OutboxMessage {
	var out []OutboxMessage
	_ = o.store.read(func(st *state) error {
		out = append(out, st.outbox...)
		return nil
	})
	return out
}

// AuditLog implements posting.AuditSink over the store.
type AuditLog struct {
	store *Store
}

var _ posting.AuditSink = (*AuditLog)(nil)

// NewAuditLog creates an in-memory audit log.
func NewAuditLog(store *Store) *AuditLog {
	return &AuditLog{store: store}
}

// Record implements posting.AuditSink.
func (a *AuditLog) Record(ctx context.Context, records []posting.AuditRecord) error {
	entries := make([]AuditEntry, 0, len(records))
	now := time.Now().UTC()
	for _, r := range records {
		changes, err := json.Marshal(r.Changes)
		if err != nil {
			return fmt.Errorf("marshal audit changes: %w", err)
		}
		entries = append(entries, AuditEntry{
			ID:         id.New(),
			EntityType: r.EntityType,
			EntityID:   r.EntityID,
			Action:     r.Action,
			ActorID:    r.ActorID,
			Changes:    changes,
			CreatedAt:  now,
		})
	}
	return a.store.write(func(st *state) error {
		st.audit = append(st.audit, entries...)
		return nil
	})
}

// History returns the audit trail of one entity, oldest first.
func (a *AuditLog) History(ctx context.Context, entityType string, entityID id.ID) []AuditEntry {
	var out []AuditEntry
	_ = a.store.read(func(st *state) error {
		for _, e := range st.audit {
			if e.EntityType == entityType && e.EntityID == entityID {
				out = append(out, e)
			}
		}
		return nil
	})
	return out
}
