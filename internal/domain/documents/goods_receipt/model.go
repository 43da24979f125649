// Package goods_receipt provides the GoodsReceipt document: incoming stock.
package goods_receipt

import (
	"context"

	"ledgercore/internal/core/apperror"
	"ledgercore/internal/core/entity"
	"ledgercore/internal/core/id"
	"ledgercore/internal/core/types"
)

// DocumentType is the recorder type for receipts.
const DocumentType = "GoodsReceipt"

// Line is one received item.
type Line struct {
	LineNo   int            `json:"lineNo"`
	ItemID   id.ID          `json:"itemId"`
	Quantity types.Quantity `json:"quantity"`

	// UnitCost overrides the item's standard cost for valuation.
	UnitCost *types.Money `json:"unitCost,omitempty"`
}

// GoodsReceipt records goods received from a supplier.
type GoodsReceipt struct {
	entity.Document

	SupplierID        *id.ID `db:"supplier_id" json:"supplierId,omitempty"`
	SupplierDocNumber string `db:"supplier_doc_number" json:"supplierDocNumber,omitempty"`

	Lines entity.JSONList[Line] `db:"lines" json:"lines"`
}

// NewGoodsReceipt creates an empty goods receipt.
func NewGoodsReceipt() *GoodsReceipt {
	return &GoodsReceipt{Document: entity.NewDocument()}
}

// AddLine appends a received item. A nil unitCost values it at standard cost.
func (g *GoodsReceipt) AddLine(itemID id.ID, qty types.Quantity, unitCost *types.Money) *GoodsReceipt {
	g.Lines = append(g.Lines, Line{
		LineNo:   len(g.Lines) + 1,
		ItemID:   itemID,
		Quantity: qty,
		UnitCost: unitCost,
	})
	return g
}

// ItemIDs returns the distinct received item ids.
func (g *GoodsReceipt) ItemIDs() []id.ID {
	ids := make([]id.ID, 0, len(g.Lines))
	for _, l := range g.Lines {
		ids = append(ids, l.ItemID)
	}
	return id.Unique(ids...)
}

// Validate implements entity.Validatable.
func (g *GoodsReceipt) Validate(ctx context.Context) error {
	if err := g.Document.Validate(ctx); err != nil {
		return err
	}
	if len(g.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").
			WithDetail("field", "lines")
	}
	for i, line := range g.Lines {
		if id.IsNil(line.ItemID) {
			return apperror.NewValidation("item is required").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if !line.Quantity.IsPositive() {
			return apperror.NewValidation("quantity must be positive").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if line.UnitCost != nil && line.UnitCost.IsNegative() {
			return apperror.NewValidation("unit cost cannot be negative").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
	}
	return nil
}
