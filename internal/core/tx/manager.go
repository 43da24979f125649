// Package tx provides transaction management abstractions.
// Domain services depend on these interfaces; the Postgres and in-memory
// storage backends provide the implementations.
package tx

import (
	"context"
)

// Manager defines the contract for transaction management.
type Manager interface {
	// RunInTransaction executes fn within a transaction.
	// If fn returns an error, every write made through ctx is rolled back.
	// If fn succeeds, the transaction is committed.
	//
	// Nested calls reuse the existing transaction from context.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// KeyLocker is implemented by managers that can take storage-level locks
// on aggregate keys for the lifetime of the current transaction
// (e.g. Postgres advisory transaction locks). It complements the
// in-process keyed lock when several processes share one database.
type KeyLocker interface {
	// LockKeys blocks until every key is locked. Keys are released when
	// the surrounding transaction ends. Must be called inside RunInTransaction.
	LockKeys(ctx context.Context, keys ...string) error
}
