// Package posting turns a business action into one atomic unit of work:
// stock movements, ledger records, document saves, audit records and
// outbox events that land together or not at all.
package posting

import (
	"context"
	"time"

	"ledgercore/internal/core/entity"
	"ledgercore/internal/core/id"
	"ledgercore/internal/domain/ledger"
)

// Event is a domain event written to the transactional outbox.
type Event struct {
	AggregateType string
	AggregateID   id.ID
	EventType     string
	Payload       any
}

// AuditRecord describes one audited change.
type AuditRecord struct {
	EntityType string
	EntityID   id.ID
	Action     string
	ActorID    string
	Changes    map[string]any
}

type ledgerOpKind int

const (
	opAppend ledgerOpKind = iota
	opReverse
	opPost
	opApprove
)

type ledgerOp struct {
	kind     ledgerOpKind
	entry    *ledger.Entry
	reversal *Reversal
	sequence int64
}

// Reversal is filled in with the mirror entry's sequence once applied.
type Reversal struct {
	Of       int64
	Date     time.Time
	Reason   string
	Sequence int64
}

// UnitOfWork collects the effects planned by one action.
// Nothing is written until the engine applies it.
type UnitOfWork struct {
	action    string
	movements []entity.InventoryMovement
	ledger    []ledgerOp
	saves     []func(ctx context.Context) error
	audits    []AuditRecord
	events    []Event
}

func newUnitOfWork(action string) *UnitOfWork {
	return &UnitOfWork{action: action}
}

// Action returns the action name the unit of work was opened for.
func (u *UnitOfWork) Action() string { return u.action }

// AddMovement plans a stock change. Stock deltas are derived from movements.
func (u *UnitOfWork) AddMovement(m entity.InventoryMovement) {
	u.movements = append(u.movements, m)
}

// Movements returns the planned movements.
func (u *UnitOfWork) Movements() []entity.InventoryMovement {
	return u.movements
}

// AppendEntry plans a new ledger entry. Its Sequence is set once applied.
func (u *UnitOfWork) AppendEntry(e *ledger.Entry) *ledger.Entry {
	u.ledger = append(u.ledger, ledgerOp{kind: opAppend, entry: e})
	return e
}

// ReverseEntry plans the reversal of a stored entry.
func (u *UnitOfWork) ReverseEntry(sequence int64, date time.Time, reason string) *Reversal {
	r := &Reversal{Of: sequence, Date: date, Reason: reason}
	u.ledger = append(u.ledger, ledgerOp{kind: opReverse, reversal: r})
	return r
}

// PostEntry plans a draft → posted transition.
func (u *UnitOfWork) PostEntry(sequence int64) {
	u.ledger = append(u.ledger, ledgerOp{kind: opPost, sequence: sequence})
}

// ApproveEntry plans a posted → approved transition.
func (u *UnitOfWork) ApproveEntry(sequence int64) {
	u.ledger = append(u.ledger, ledgerOp{kind: opApprove, sequence: sequence})
}

// Entries returns the planned new ledger entries.
func (u *UnitOfWork) Entries() []*ledger.Entry {
	var out []*ledger.Entry
	for _, op := range u.ledger {
		if op.kind == opAppend {
			out = append(out, op.entry)
		}
	}
	return out
}

// Save plans a document write. Saves run after ledger operations, so
// closures may read sequences assigned to planned entries.
func (u *UnitOfWork) Save(fn func(ctx context.Context) error) {
	u.saves = append(u.saves, fn)
}

// Audit plans an audit record.
func (u *UnitOfWork) Audit(r AuditRecord) {
	u.audits = append(u.audits, r)
}

// Emit plans an outbox event.
func (u *UnitOfWork) Emit(e Event) {
	u.events = append(u.events, e)
}

func (u *UnitOfWork) needsSequence() bool {
	for _, op := range u.ledger {
		if op.kind == opAppend || op.kind == opReverse {
			return true
		}
	}
	return false
}
