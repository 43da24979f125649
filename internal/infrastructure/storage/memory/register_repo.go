package memory

import (
	"context"

	"ledgercore/internal/core/entity"
	"ledgercore/internal/core/id"
	"ledgercore/internal/domain/registers/stock"
)

// MovementRepo implements stock.Repository.
// InventoryMovement holds only value fields, so plain copies are safe.
type MovementRepo struct {
	store *Store
}

var _ stock.Repository = (*MovementRepo)(nil)

// NewMovementRepo creates a movement register repository.
func NewMovementRepo(store *Store) *MovementRepo {
	return &MovementRepo{store: store}
}

func (r *MovementRepo) CreateMovements(ctx context.Context, movements []entity.InventoryMovement) error {
	return r.store.write(func(st *state) error {
		st.movements = append(st.movements, movements...)
		return nil
	})
}

func (r *MovementRepo) GetMovementsByRecorder(ctx context.Context, recorderID id.ID) ([]entity.InventoryMovement, error) {
	var out []entity.InventoryMovement
	err := r.store.read(func(st *state) error {
		for _, m := range st.movements {
			if m.RecorderID == recorderID {
				out = append(out, m)
			}
		}
		return nil
	})
	return out, err
}

func (r *MovementRepo) GetMovementHistory(ctx context.Context, itemID id.ID, filter stock.MovementFilter) ([]entity.InventoryMovement, error) {
	var out []entity.InventoryMovement
	err := r.store.read(func(st *state) error {
		var matched []entity.InventoryMovement
		for _, m := range st.movements {
			if m.ItemID == itemID && filter.Matches(m) {
				matched = append(matched, m)
			}
		}
		out = append(out, paginate(matched, filter.Limit, filter.Offset)...)
		return nil
	})
	return out, err
}
