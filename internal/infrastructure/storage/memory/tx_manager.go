package memory

import (
	"context"
	"sync"

	"ledgercore/internal/core/tx"
)

type txKey struct{}

// TxManager serializes writers and restores the pre-transaction snapshot
// when fn fails. Nested calls reuse the outer transaction.
type TxManager struct {
	store  *Store
	writer sync.Mutex
}

var _ tx.Manager = (*TxManager)(nil)

// NewTxManager creates a transaction manager over store.
func NewTxManager(store *Store) *TxManager {
	return &TxManager{store: store}
}

// RunInTransaction implements tx.Manager.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if InTransaction(ctx) {
		return fn(ctx)
	}

	m.writer.Lock()
	defer m.writer.Unlock()

	before := m.store.snapshot()
	defer func() {
		if p := recover(); p != nil {
			m.store.restore(before)
			panic(p)
		}
		if err != nil {
			m.store.restore(before)
		}
	}()

	return fn(context.WithValue(ctx, txKey{}, true))
}

// InTransaction reports whether ctx carries an open memory transaction.
func InTransaction(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}
