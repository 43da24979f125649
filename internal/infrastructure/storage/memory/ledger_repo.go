package memory

import (
	"context"

	"ledgercore/internal/core/apperror"
	"ledgercore/internal/domain/ledger"
)

// LedgerRepo implements ledger.Repository.
type LedgerRepo struct {
	store *Store
}

var _ ledger.Repository = (*LedgerRepo)(nil)

// NewLedgerRepo creates a ledger repository.
func NewLedgerRepo(store *Store) *LedgerRepo {
	return &LedgerRepo{store: store}
}

func (r *LedgerRepo) Insert(ctx context.Context, e *ledger.Entry) error {
	stored, err := clone(e)
	if err != nil {
		return err
	}
	return r.store.write(func(st *state) error {
		if _, ok := st.ledger[e.Sequence]; ok {
			return apperror.NewConflict("ledger sequence already used").WithDetail("sequence", e.Sequence)
		}
		st.ledger[e.Sequence] = stored
		st.ledgerOrder = append(st.ledgerOrder, e.Sequence)
		return nil
	})
}

func (r *LedgerRepo) Get(ctx context.Context, sequence int64) (*ledger.Entry, error) {
	var out *ledger.Entry
	err := r.store.read(func(st *state) error {
		e, ok := st.ledger[sequence]
		if !ok {
			return apperror.NewNotFound("ledger entry", sequence)
		}
		var err error
		out, err = clone(e)
		return err
	})
	return out, err
}

func (r *LedgerRepo) UpdateStatus(ctx context.Context, sequence int64, from, to ledger.Status, reversedBy *int64) error {
	return r.store.write(func(st *state) error {
		e, ok := st.ledger[sequence]
		if !ok {
			return apperror.NewNotFound("ledger entry", sequence)
		}
		if e.Status != from {
			return apperror.NewInvalidLedgerState(sequence, string(e.Status), string(to))
		}
		next := *e
		next.Status = to
		if reversedBy != nil {
			seq := *reversedBy
			next.ReversedBy = &seq
		}
		st.ledger[sequence] = &next
		return nil
	})
}

func (r *LedgerRepo) MaxSequence(ctx context.Context) (int64, error) {
	var last int64
	err := r.store.read(func(st *state) error {
		for _, seq := range st.ledgerOrder {
			last = max(last, seq)
		}
		return nil
	})
	return last, err
}

// List returns matching entries in sequence order. Sequences are appended
// in increasing order, so insertion order is sequence order.
func (r *LedgerRepo) List(ctx context.Context, filter ledger.ListFilter) ([]*ledger.Entry, error) {
	var out []*ledger.Entry
	err := r.store.read(func(st *state) error {
		var matched []*ledger.Entry
		for _, seq := range st.ledgerOrder {
			if e := st.ledger[seq]; filter.Matches(e) {
				matched = append(matched, e)
			}
		}
		for _, e := range paginate(matched, filter.Limit, filter.Offset) {
			cp, err := clone(e)
			if err != nil {
				return err
			}
			out = append(out, cp)
		}
		return nil
	})
	return out, err
}
