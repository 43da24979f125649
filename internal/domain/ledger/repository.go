package ledger

import (
	"context"
	"time"

	"ledgercore/internal/core/id"
)

// Repository stores ledger entries. Entries are never deleted.
type Repository interface {
	// Insert stores a new entry with its sequence already assigned.
	Insert(ctx context.Context, entry *Entry) error

	// Get returns the entry with the given sequence or a NotFound error.
	Get(ctx context.Context, sequence int64) (*Entry, error)

	// UpdateStatus moves an entry from status from to status to and, when
	// reversedBy is set, records the reversal back-reference. It fails with
	// InvalidLedgerState when the stored status is no longer from.
	UpdateStatus(ctx context.Context, sequence int64, from, to Status, reversedBy *int64) error

	// MaxSequence returns the highest assigned sequence, 0 when empty.
	MaxSequence(ctx context.Context) (int64, error)

	List(ctx context.Context, filter ListFilter) ([]*Entry, error)
}

// ListFilter for ledger queries. Results are ordered by sequence.
type ListFilter struct {
	SourceModule     string
	SourceDocumentID *id.ID
	Status           *Status
	DateFrom         *time.Time
	DateTo           *time.Time
	Limit            int
	Offset           int
}

// Matches reports whether e passes the filter (ignoring pagination).
func (f ListFilter) Matches(e *Entry) bool {
	if f.SourceModule != "" && e.SourceModule != f.SourceModule {
		return false
	}
	if f.SourceDocumentID != nil && (e.SourceDocumentID == nil || *e.SourceDocumentID != *f.SourceDocumentID) {
		return false
	}
	if f.Status != nil && e.Status != *f.Status {
		return false
	}
	if f.DateFrom != nil && e.Date.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && e.Date.After(*f.DateTo) {
		return false
	}
	return true
}

// AccountLookup resolves an account code to its display name.
// Unknown codes resolve to "" without error.
type AccountLookup interface {
	AccountName(ctx context.Context, code string) (string, error)
}
