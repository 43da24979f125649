package entity

import (
	"time"

	"ledgercore/internal/core/id"
	"ledgercore/internal/core/types"
)

// MovementKind defines the direction of an inventory movement.
type MovementKind string

const (
	// MovementIn increases item stock
	MovementIn MovementKind = "in"
	// MovementOut decreases item stock
	MovementOut MovementKind = "out"
)

// InventoryMovement is one append-only row of the stock audit trail.
// Movements are never updated after creation.
type InventoryMovement struct {
	// LineID is unique identifier for this movement line (UUIDv7)
	LineID id.ID `db:"line_id" json:"lineId"`

	// RecorderID is the document that created this movement
	RecorderID id.ID `db:"recorder_id" json:"recorderId"`

	// RecorderType is the document type (e.g. "GoodsReceipt", "StockCount")
	RecorderType string `db:"recorder_type" json:"recorderType"`

	// Period is the business date of the movement
	Period time.Time `db:"period" json:"period"`

	ItemID id.ID        `db:"item_id" json:"itemId"`
	Kind   MovementKind `db:"kind" json:"kind"`

	// Delta is the signed quantity change (positive for in, negative for out)
	Delta types.Quantity `db:"delta" json:"delta"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// NewInventoryMovement creates a movement; the kind follows the sign of delta.
func NewInventoryMovement(recorderID id.ID, recorderType string, period time.Time, itemID id.ID, delta types.Quantity) InventoryMovement {
	kind := MovementIn
	if delta.IsNegative() {
		kind = MovementOut
	}
	return InventoryMovement{
		LineID:       id.New(),
		RecorderID:   recorderID,
		RecorderType: recorderType,
		Period:       period,
		ItemID:       itemID,
		Kind:         kind,
		Delta:        delta,
		CreatedAt:    time.Now().UTC(),
	}
}
