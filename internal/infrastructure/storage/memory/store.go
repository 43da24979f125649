// Package memory is an in-process storage backend. It implements every
// repository plus a transaction manager with snapshot rollback, and backs
// the default server configuration and the domain tests.
package memory

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"sync"

	"ledgercore/internal/core/entity"
	"ledgercore/internal/core/id"
	"ledgercore/internal/domain/catalogs/account"
	"ledgercore/internal/domain/catalogs/bom"
	"ledgercore/internal/domain/catalogs/item"
	"ledgercore/internal/domain/documents/goods_issue"
	"ledgercore/internal/domain/documents/goods_receipt"
	"ledgercore/internal/domain/documents/invoice"
	"ledgercore/internal/domain/documents/payment"
	"ledgercore/internal/domain/documents/production_order"
	"ledgercore/internal/domain/documents/stockcount"
	"ledgercore/internal/domain/ledger"
)

// table keeps rows in insertion order. Stored values are private copies
// and are never mutated in place, so a snapshot only copies the index.
type table[T any] struct {
	rows  map[id.ID]T
	order []id.ID
}

func newTable[T any]() *table[T] {
	return &table[T]{rows: make(map[id.ID]T)}
}

func (t *table[T]) snapshot() *table[T] {
	return &table[T]{rows: maps.Clone(t.rows), order: slices.Clone(t.order)}
}

func (t *table[T]) get(key id.ID) (T, bool) {
	v, ok := t.rows[key]
	return v, ok
}

func (t *table[T]) put(key id.ID, v T) {
	if _, ok := t.rows[key]; !ok {
		t.order = append(t.order, key)
	}
	t.rows[key] = v
}

func (t *table[T]) all() []T {
	out := make([]T, 0, len(t.order))
	for _, key := range t.order {
		out = append(out, t.rows[key])
	}
	return out
}

type state struct {
	items    *table[*item.Item]
	boms     *table[*bom.BOM]
	accounts *table[*account.Account]

	invoices *table[*invoice.Invoice]
	payments *table[*payment.Payment]
	receipts *table[*goods_receipt.GoodsReceipt]
	issues   *table[*goods_issue.GoodsIssue]
	counts   *table[*stockcount.StockCount]
	orders   *table[*production_order.Order]

	ledger      map[int64]*ledger.Entry
	ledgerOrder []int64

	movements []entity.InventoryMovement
	outbox    []OutboxMessage
	audit     []AuditEntry
}

func newState() *state {
	return &state{
		items:    newTable[*item.Item](),
		boms:     newTable[*bom.BOM](),
		accounts: newTable[*account.Account](),
		invoices: newTable[*invoice.Invoice](),
		payments: newTable[*payment.Payment](),
		receipts: newTable[*goods_receipt.GoodsReceipt](),
		issues:   newTable[*goods_issue.GoodsIssue](),
		counts:   newTable[*stockcount.StockCount](),
		orders:   newTable[*production_order.Order](),
		ledger:   make(map[int64]*ledger.Entry),
	}
}

func (s *state) snapshot() *state {
	return &state{
		items:       s.items.snapshot(),
		boms:        s.boms.snapshot(),
		accounts:    s.accounts.snapshot(),
		invoices:    s.invoices.snapshot(),
		payments:    s.payments.snapshot(),
		receipts:    s.receipts.snapshot(),
		issues:      s.issues.snapshot(),
		counts:      s.counts.snapshot(),
		orders:      s.orders.snapshot(),
		ledger:      maps.Clone(s.ledger),
		ledgerOrder: slices.Clone(s.ledgerOrder),
		movements:   slices.Clone(s.movements),
		outbox:      slices.Clone(s.outbox),
		audit:       slices.Clone(s.audit),
	}
}

// Store holds all in-memory state.
type Store struct {
	mu    sync.RWMutex
	state *state
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{state: newState()}
}

func (s *Store) read(fn func(st *state) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.state)
}

func (s *Store) write(fn func(st *state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.state)
}

func (s *Store) snapshot() *state {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.snapshot()
}

func (s *Store) restore(st *state) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
}

// clone deep-copies v so callers never share memory with stored rows.
func clone[T any](v T) (T, error) {
	var out T
	data, err := json.Marshal(v)
	if err != nil {
		return out, fmt.Errorf("clone %T: %w", v, err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("clone %T: %w", v, err)
	}
	return out, nil
}
