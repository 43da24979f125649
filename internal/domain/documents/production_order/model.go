// Package production_order provides the production order document and its
// created → released → confirmed state machine.
package production_order

import (
	"context"
	"database/sql/driver"
	"encoding/json"

	"ledgercore/internal/core/apperror"
	"ledgercore/internal/core/entity"
	"ledgercore/internal/core/id"
	"ledgercore/internal/core/types"
)

// Status of a production order. Transitions are one-directional.
type Status string

const (
	StatusCreated   Status = "created"
	StatusReleased  Status = "released"
	StatusConfirmed Status = "confirmed"
)

// DocumentType is the recorder type for production orders.
const DocumentType = "ProductionOrder"

// Cost splits a cost figure into material, labor and overhead buckets.
type Cost struct {
	Material types.Money `json:"material"`
	Labor    types.Money `json:"labor"`
	Overhead types.Money `json:"overhead"`
}

// ZeroCost returns a Cost with every bucket at zero.
func ZeroCost() Cost {
	return Cost{Material: types.Zero(), Labor: types.Zero(), Overhead: types.Zero()}
}

// Total sums the buckets.
func (c Cost) Total() types.Money {
	return types.SumMoney(c.Material, c.Labor, c.Overhead)
}

// Sub returns c − other per bucket.
func (c Cost) Sub(other Cost) Cost {
	return Cost{
		Material: c.Material.Sub(other.Material),
		Labor:    c.Labor.Sub(other.Labor),
		Overhead: c.Overhead.Sub(other.Overhead),
	}
}

// Value implements driver.Valuer (JSONB column).
func (c Cost) Value() (driver.Value, error) { return json.Marshal(c) }

// Scan implements sql.Scanner.
func (c *Cost) Scan(src any) error { return entity.ScanJSON(src, c) }

// Rates are optional routing cost rates per produced unit.
type Rates struct {
	LaborPerUnit    types.Money `json:"laborPerUnit"`
	OverheadPerUnit types.Money `json:"overheadPerUnit"`
}

// Value implements driver.Valuer (JSONB column).
func (r Rates) Value() (driver.Value, error) { return json.Marshal(r) }

// Scan implements sql.Scanner.
func (r *Rates) Scan(src any) error { return entity.ScanJSON(src, r) }

// Order is a production order.
type Order struct {
	entity.Document

	TargetItemID id.ID          `db:"target_item_id" json:"targetItemId"`
	Quantity     types.Quantity `db:"quantity" json:"quantity"`
	BOMID        id.ID          `db:"bom_id" json:"bomId"`
	Status       Status         `db:"status" json:"status"`

	// StandardCost is snapshotted at creation.
	StandardCost Cost `db:"standard_cost" json:"standardCost"`
	// ActualCost accumulates as material is issued and production confirmed.
	ActualCost Cost `db:"actual_cost" json:"actualCost"`

	Rates *Rates `db:"rates" json:"rates,omitempty"`

	ProducedQuantity types.Quantity `db:"produced_quantity" json:"producedQuantity"`
}

// NewOrder creates an order in state created with zero costs.
func NewOrder(targetItemID id.ID, qty types.Quantity, bomID id.ID) *Order {
	return &Order{
		Document:     entity.NewDocument(),
		TargetItemID: targetItemID,
		Quantity:     qty,
		BOMID:        bomID,
		Status:       StatusCreated,
		StandardCost: ZeroCost(),
		ActualCost:   ZeroCost(),
	}
}

func (o *Order) require(status Status) error {
	if o.Status != status {
		return apperror.NewInvalidOrderState(o.ID.String(), string(o.Status), string(status))
	}
	return nil
}

// Release moves created → released.
func (o *Order) Release() error {
	if err := o.require(StatusCreated); err != nil {
		return err
	}
	o.Status = StatusReleased
	return nil
}

// IssueMaterial adds cost to actual material. Requires released.
func (o *Order) IssueMaterial(cost types.Money) error {
	if err := o.require(StatusReleased); err != nil {
		return err
	}
	if !cost.IsPositive() {
		return apperror.NewValidation("material cost must be positive").
			WithDetail("field", "cost")
	}
	o.ActualCost.Material = o.ActualCost.Material.Add(cost)
	return nil
}

// Confirm records the produced quantity and labor, applies overhead at the
// routing rate and moves released → confirmed.
func (o *Order) Confirm(producedQty types.Quantity, laborCost types.Money) error {
	if err := o.require(StatusReleased); err != nil {
		return err
	}
	if !producedQty.IsPositive() {
		return apperror.NewValidation("produced quantity must be positive").
			WithDetail("field", "quantity")
	}
	if laborCost.IsNegative() {
		return apperror.NewValidation("labor cost cannot be negative").
			WithDetail("field", "laborCost")
	}

	o.ActualCost.Labor = o.ActualCost.Labor.Add(laborCost)
	if o.Rates != nil {
		o.ActualCost.Overhead = o.ActualCost.Overhead.Add(producedQty.Value(o.Rates.OverheadPerUnit))
	}
	o.ProducedQuantity += producedQty
	o.Status = StatusConfirmed
	return nil
}

// Variance returns actual minus standard per bucket.
func (o *Order) Variance() Cost {
	return o.ActualCost.Sub(o.StandardCost)
}

// Validate implements entity.Validatable.
func (o *Order) Validate(ctx context.Context) error {
	if err := o.Document.Validate(ctx); err != nil {
		return err
	}
	if id.IsNil(o.TargetItemID) {
		return apperror.NewValidation("target item is required").
			WithDetail("field", "targetItemId")
	}
	if id.IsNil(o.BOMID) {
		return apperror.NewValidation("bill of materials is required").
			WithDetail("field", "bomId")
	}
	if !o.Quantity.IsPositive() {
		return apperror.NewValidation("quantity must be positive").
			WithDetail("field", "quantity")
	}
	if o.Rates != nil && (o.Rates.LaborPerUnit.IsNegative() || o.Rates.OverheadPerUnit.IsNegative()) {
		return apperror.NewValidation("cost rates cannot be negative").
			WithDetail("field", "rates")
	}
	return nil
}
