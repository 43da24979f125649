// Package lock provides in-process per-aggregate mutual exclusion.
//
// Every mutable aggregate (an item's stock, an invoice's paid amount,
// the ledger sequence counter) gets its own key. Actions lock every key
// they touch before opening their transaction; keys are always acquired
// in sorted order so two actions can never deadlock each other.
package lock

import (
	"slices"
	"sync"
)

type entry struct {
	mu   sync.Mutex
	refs int
}

// Keyed is a set of mutexes indexed by string key.
// Entries are created on demand and dropped once no goroutine holds or waits on them.
type Keyed struct {
	mu    sync.Mutex
	locks map[string]*entry
}

// NewKeyed creates an empty keyed lock.
func NewKeyed() *Keyed {
	return &Keyed{locks: make(map[string]*entry)}
}

// Lock acquires every key and returns a function releasing them.
// Duplicate keys are collapsed.
func (k *Keyed) Lock(keys ...string) (unlock func()) {
	sorted := slices.Clone(keys)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	held := make([]*entry, 0, len(sorted))
	for _, key := range sorted {
		e := k.acquire(key)
		e.mu.Lock()
		held = append(held, e)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			for i := len(held) - 1; i >= 0; i-- {
				held[i].mu.Unlock()
				k.release(sorted[i])
			}
		})
	}
}

func (k *Keyed) acquire(key string) *entry {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.locks[key]
	if !ok {
		e = &entry{}
		k.locks[key] = e
	}
	e.refs++
	return e
}

func (k *Keyed) release(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e := k.locks[key]
	e.refs--
	if e.refs == 0 {
		delete(k.locks, key)
	}
}

// Len returns the number of live keys (held or awaited).
func (k *Keyed) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}

// Key helpers used by the posting engine.

func ItemKey(id string) string     { return "item:" + id }
func InvoiceKey(id string) string  { return "invoice:" + id }
func PaymentKey(id string) string  { return "payment:" + id }
func OrderKey(id string) string    { return "order:" + id }
func DocumentKey(id string) string { return "doc:" + id }

// LedgerSequenceKey serializes ledger sequence assignment.
const LedgerSequenceKey = "ledger:sequence"
