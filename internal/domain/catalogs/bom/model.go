// Package bom provides single-level bills of materials.
package bom

import (
	"context"

	"ledgercore/internal/core/apperror"
	"ledgercore/internal/core/entity"
	"ledgercore/internal/core/id"
	"ledgercore/internal/core/types"
)

// Line is one component and its quantity per unit of the parent item.
type Line struct {
	ComponentID id.ID          `json:"componentId"`
	Quantity    types.Quantity `json:"quantity"`
}

// BOM lists the components required to produce one unit of ItemID.
type BOM struct {
	entity.Catalog

	ItemID id.ID                 `db:"item_id" json:"itemId"`
	Lines  entity.JSONList[Line] `db:"lines" json:"lines"`
}

// NewBOM creates an empty bill of materials for itemID.
func NewBOM(code, name string, itemID id.ID) *BOM {
	return &BOM{
		Catalog: entity.NewCatalog(code, name),
		ItemID:  itemID,
	}
}

// AddLine appends a component requirement.
func (b *BOM) AddLine(componentID id.ID, qtyPerUnit types.Quantity) *BOM {
	b.Lines = append(b.Lines, Line{ComponentID: componentID, Quantity: qtyPerUnit})
	return b
}

// ComponentIDs returns the distinct component ids in line order.
func (b *BOM) ComponentIDs() []id.ID {
	ids := make([]id.ID, 0, len(b.Lines))
	for _, l := range b.Lines {
		ids = append(ids, l.ComponentID)
	}
	return id.Unique(ids...)
}

// Validate implements entity.Validatable.
func (b *BOM) Validate(ctx context.Context) error {
	if err := b.Catalog.Validate(ctx); err != nil {
		return err
	}
	if id.IsNil(b.ItemID) {
		return apperror.NewValidation("parent item is required").
			WithDetail("field", "itemId")
	}
	if len(b.Lines) == 0 {
		return apperror.NewValidation("at least one component is required").
			WithDetail("field", "lines")
	}
	for i, l := range b.Lines {
		if id.IsNil(l.ComponentID) {
			return apperror.NewValidation("component is required").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if l.ComponentID == b.ItemID {
			return apperror.NewValidation("item cannot be its own component").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if !l.Quantity.IsPositive() {
			return apperror.NewValidation("component quantity must be positive").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
	}
	return nil
}
