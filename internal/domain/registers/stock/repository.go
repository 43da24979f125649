// Package stock provides the inventory movement register: the append-only
// audit trail behind every change to an item's on-hand quantity.
package stock

import (
	"context"
	"time"

	"ledgercore/internal/core/entity"
	"ledgercore/internal/core/id"
)

// Repository defines operations for the movement register.
type Repository interface {
	// CreateMovements batch inserts movements (used during posting)
	CreateMovements(ctx context.Context, movements []entity.InventoryMovement) error

	// GetMovementsByRecorder retrieves all movements for a document
	GetMovementsByRecorder(ctx context.Context, recorderID id.ID) ([]entity.InventoryMovement, error)

	// GetMovementHistory returns movement history for an item, oldest first
	GetMovementHistory(ctx context.Context, itemID id.ID, filter MovementFilter) ([]entity.InventoryMovement, error)
}

// MovementFilter for filtering movement history.
type MovementFilter struct {
	Kind     *entity.MovementKind
	FromDate *time.Time
	ToDate   *time.Time
	Limit    int
	Offset   int
}

// Matches reports whether m passes the filter (ignoring pagination).
func (f MovementFilter) Matches(m entity.InventoryMovement) bool {
	if f.Kind != nil && m.Kind != *f.Kind {
		return false
	}
	if f.FromDate != nil && m.Period.Before(*f.FromDate) {
		return false
	}
	if f.ToDate != nil && m.Period.After(*f.ToDate) {
		return false
	}
	return true
}
