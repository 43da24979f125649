// Package goods_issue provides the GoodsIssue document: outgoing stock.
package goods_issue

import (
	"context"

	"ledgercore/internal/core/apperror"
	"ledgercore/internal/core/entity"
	"ledgercore/internal/core/id"
	"ledgercore/internal/core/types"
)

// DocumentType is the recorder type for shipments.
const DocumentType = "GoodsIssue"

// Line is one shipped item.
type Line struct {
	LineNo   int            `json:"lineNo"`
	ItemID   id.ID          `json:"itemId"`
	Quantity types.Quantity `json:"quantity"`
}

// GoodsIssue records goods shipped to a customer.
type GoodsIssue struct {
	entity.Document

	CustomerID *id.ID `db:"customer_id" json:"customerId,omitempty"`

	Lines entity.JSONList[Line] `db:"lines" json:"lines"`
}

// NewGoodsIssue creates an empty goods issue.
func NewGoodsIssue() *GoodsIssue {
	return &GoodsIssue{Document: entity.NewDocument()}
}

// AddLine appends a shipped item.
func (g *GoodsIssue) AddLine(itemID id.ID, qty types.Quantity) *GoodsIssue {
	g.Lines = append(g.Lines, Line{
		LineNo:   len(g.Lines) + 1,
		ItemID:   itemID,
		Quantity: qty,
	})
	return g
}

// ItemIDs returns the distinct shipped item ids.
func (g *GoodsIssue) ItemIDs() []id.ID {
	ids := make([]id.ID, 0, len(g.Lines))
	for _, l := range g.Lines {
		ids = append(ids, l.ItemID)
	}
	return id.Unique(ids...)
}

// Validate implements entity.Validatable.
func (g *GoodsIssue) Validate(ctx context.Context) error {
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
	}
	return nil
}
