// Package stockcount provides the StockCount (stocktake) document.
package stockcount

import (
	"context"
	"time"

	"ledgercore/internal/core/apperror"
	"ledgercore/internal/core/entity"
	"ledgercore/internal/core/id"
	"ledgercore/internal/core/types"
)

// Status of a stock count. A count moves draft → posted exactly once.
type Status string

const (
	StatusDraft  Status = "draft"
	StatusPosted Status = "posted"
)

// DocumentType is the recorder type for stock counts.
const DocumentType = "StockCount"

// Line compares the book quantity captured at count time with the physical count.
type Line struct {
	LineNo       int            `json:"lineNo"`
	ItemID       id.ID          `json:"itemId"`
	BookQuantity types.Quantity `json:"bookQuantity"`

	// CountedQuantity is nil until the item has been counted.
	CountedQuantity *types.Quantity `json:"countedQuantity,omitempty"`
	CountedAt       *time.Time      `json:"countedAt,omitempty"`
	CountedBy       string          `json:"countedBy,omitempty"`
}

// Variance returns counted − book, or false when the line is not counted.
func (l Line) Variance() (types.Quantity, bool) {
	if l.CountedQuantity == nil {
		return 0, false
	}
	return *l.CountedQuantity - l.BookQuantity, true
}

// StockCount is a physical inventory count.
type StockCount struct {
	entity.Document

	Status Status `db:"status" json:"status"`

	Lines entity.JSONList[Line] `db:"lines" json:"lines"`
}

// NewStockCount creates an empty draft count.
func NewStockCount() *StockCount {
	return &StockCount{
		Document: entity.NewDocument(),
		Status:   StatusDraft,
	}
}

// AddLine appends an item with its book quantity.
func (c *StockCount) AddLine(itemID id.ID, bookQuantity types.Quantity) *StockCount {
	c.Lines = append(c.Lines, Line{
		LineNo:       len(c.Lines) + 1,
		ItemID:       itemID,
		BookQuantity: bookQuantity,
	})
	return c
}

// SetCounted records the physical quantity for a line.
func (c *StockCount) SetCounted(lineNo int, counted types.Quantity, countedBy string) error {
	if c.Status != StatusDraft {
		return apperror.NewDocumentPosted(DocumentType, c.ID.String())
	}
	if lineNo < 1 || lineNo > len(c.Lines) {
		return apperror.NewValidation("invalid line number").
			WithDetail("lineNo", lineNo)
	}
	if counted.IsNegative() {
		return apperror.NewValidation("counted quantity cannot be negative").
			WithDetail("lineNo", lineNo)
	}

	now := time.Now().UTC()
	line := &c.Lines[lineNo-1]
	line.CountedQuantity = &counted
	line.CountedAt = &now
	line.CountedBy = countedBy
	return nil
}

// ItemIDs returns the distinct item ids in the count.
func (c *StockCount) ItemIDs() []id.ID {
	ids := make([]id.ID, 0, len(c.Lines))
	for _, l := range c.Lines {
		ids = append(ids, l.ItemID)
	}
	return id.Unique(ids...)
}

// Validate implements entity.Validatable.
func (c *StockCount) Validate(ctx context.Context) error {
	if err := c.Document.Validate(ctx); err != nil {
		return err
	}
	seen := make(map[id.ID]struct{}, len(c.Lines))
	for i, l := range c.Lines {
		if id.IsNil(l.ItemID) {
			return apperror.NewValidation("item is required").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if _, dup := seen[l.ItemID]; dup {
			return apperror.NewValidation("item is counted twice").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		seen[l.ItemID] = struct{}{}
	}
	return nil
}
