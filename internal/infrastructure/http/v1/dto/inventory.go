package dto

import (
	"time"

	"ledgercore/internal/core/entity"
	"ledgercore/internal/core/id"
	"ledgercore/internal/core/types"
	"ledgercore/internal/domain/documents/goods_issue"
	"ledgercore/internal/domain/documents/goods_receipt"
	"ledgercore/internal/domain/registers/stock"
)

// GoodsReceiptLineRequest is one received item. A missing unit cost values it at standard cost.
type GoodsReceiptLineRequest struct {
	ItemID   id.ID          `json:"itemId" binding:"required"`
	Quantity types.Quantity `json:"quantity"`
	UnitCost *types.Money   `json:"unitCost"`
}

// CreateGoodsReceiptRequest receives and posts goods.
type CreateGoodsReceiptRequest struct {
	Number            string                    `json:"number"`
	Date              time.Time                 `json:"date"`
	SupplierID        *id.ID                    `json:"supplierId"`
	SupplierDocNumber string                    `json:"supplierDocNumber"`
	Comment           string                    `json:"comment"`
	Lines             []GoodsReceiptLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// ToEntity builds the goods receipt.
func (r CreateGoodsReceiptRequest) ToEntity() *goods_receipt.GoodsReceipt {
	doc := goods_receipt.NewGoodsReceipt()
	doc.Number = r.Number
	doc.Date = dateOrNow(r.Date)
	doc.SupplierID = r.SupplierID
	doc.SupplierDocNumber = r.SupplierDocNumber
	doc.Comment = r.Comment
	for _, l := range r.Lines {
		doc.AddLine(l.ItemID, l.Quantity, l.UnitCost)
	}
	return doc
}

// GoodsIssueLineRequest is one shipped item.
type GoodsIssueLineRequest struct {
	ItemID   id.ID          `json:"itemId" binding:"required"`
	Quantity types.Quantity `json:"quantity"`
}

// CreateGoodsIssueRequest ships and posts goods.
type CreateGoodsIssueRequest struct {
	Number     string                  `json:"number"`
	Date       time.Time               `json:"date"`
	CustomerID *id.ID                  `json:"customerId"`
	Comment    string                  `json:"comment"`
	Lines      []GoodsIssueLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// ToEntity builds the goods issue.
func (r CreateGoodsIssueRequest) ToEntity() *goods_issue.GoodsIssue {
	doc := goods_issue.NewGoodsIssue()
	doc.Number = r.Number
	doc.Date = dateOrNow(r.Date)
	doc.CustomerID = r.CustomerID
	doc.Comment = r.Comment
	for _, l := range r.Lines {
		doc.AddLine(l.ItemID, l.Quantity)
	}
	return doc
}

// OpenStockCountRequest opens a draft count for the listed items.
type OpenStockCountRequest struct {
	ItemIDs []id.ID `json:"itemIds" binding:"required,min=1"`
}

// SetCountedRequest records the physical quantity of one count line.
type SetCountedRequest struct {
	LineNo  int            `json:"lineNo" binding:"required,min=1"`
	Counted types.Quantity `json:"counted"`
}

// MovementHistoryQuery filters an item's movement history.
type MovementHistoryQuery struct {
	Kind     string     `form:"kind" binding:"omitempty,oneof=in out"`
	DateFrom *time.Time `form:"dateFrom" time_format:"2006-01-02"`
	DateTo   *time.Time `form:"dateTo" time_format:"2006-01-02"`
	Limit    int        `form:"limit" binding:"omitempty,min=1,max=1000"`
	Offset   int        `form:"offset" binding:"omitempty,min=0"`
}

// ToFilter converts to the stock register filter.
func (q MovementHistoryQuery) ToFilter() stock.MovementFilter {
	f := stock.MovementFilter{
		FromDate: q.DateFrom,
		ToDate:   q.DateTo,
		Limit:    q.Limit,
		Offset:   q.Offset,
	}
	if q.Kind != "" {
		k := entity.MovementKind(q.Kind)
		f.Kind = &k
	}
	return f
}
