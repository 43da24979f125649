package handlers

import (
	"github.com/gin-gonic/gin"

	"ledgercore/internal/domain/inventory"
	"ledgercore/internal/domain/registers/stock"
	"ledgercore/internal/infrastructure/http/v1/dto"
)

// InventoryHandler serves goods movements, stock counts and movement history.
type InventoryHandler struct {
	BaseHandler
	reconciler *inventory.Reconciler
	stock      *stock.Service
}

// NewInventoryHandler creates a new inventory handler.
func NewInventoryHandler(r *inventory.Reconciler, s *stock.Service) *InventoryHandler {
	return &InventoryHandler{reconciler: r, stock: s}
}

// Receive posts a goods receipt.
// POST /goods-receipts
func (h *InventoryHandler) Receive(c *gin.Context) {
	var req dto.CreateGoodsReceiptRequest
	if !h.BindJSON(c, &req) {
		return
	}
	doc := req.ToEntity()
	if err := h.reconciler.Receive(c.Request.Context(), doc); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, doc)
}

// GetReceipt returns one goods receipt.
// GET /goods-receipts/:id
func (h *InventoryHandler) GetReceipt(c *gin.Context) {
	docID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	doc, err := h.reconciler.GetReceipt(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, doc)
}

// Ship posts a goods issue.
// POST /goods-issues
func (h *InventoryHandler) Ship(c *gin.Context) {
	var req dto.CreateGoodsIssueRequest
	if !h.BindJSON(c, &req) {
		return
	}
	doc := req.ToEntity()
	if err := h.reconciler.Ship(c.Request.Context(), doc); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, doc)
}

// GetIssue returns one goods issue.
// GET /goods-issues/:id
func (h *InventoryHandler) GetIssue(c *gin.Context) {
	docID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	doc, err := h.reconciler.GetIssue(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, doc)
}

// OpenStockCount snapshots book quantities into a draft count.
// POST /stock-counts
func (h *InventoryHandler) OpenStockCount(c *gin.Context) {
	var req dto.OpenStockCountRequest
	if !h.BindJSON(c, &req) {
		return
	}
	count, err := h.reconciler.OpenStockCount(c.Request.Context(), req.ItemIDs)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, count)
}

// GetStockCount returns one stock count.
// GET /stock-counts/:id
func (h *InventoryHandler) GetStockCount(c *gin.Context) {
	countID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	count, err := h.reconciler.GetStockCount(c.Request.Context(), countID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, count)
}

// SetCounted records a physical quantity on a draft count.
// PUT /stock-counts/:id/lines
func (h *InventoryHandler) SetCounted(c *gin.Context) {
	countID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.SetCountedRequest
	if !h.BindJSON(c, &req) {
		return
	}
	count, err := h.reconciler.SetCounted(c.Request.Context(), countID, req.LineNo, req.Counted)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, count)
}

// PostStockCount posts variances for every counted line.
// POST /stock-counts/:id/post
func (h *InventoryHandler) PostStockCount(c *gin.Context) {
	countID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	count, err := h.reconciler.GetStockCount(ctx, countID)
	if err != nil {
		h.Error(c, err)
		return
	}
	if err := h.reconciler.PostStockCount(ctx, count); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, count)
}

// MovementHistory lists an item's stock movements.
// GET /items/:id/movements
func (h *InventoryHandler) MovementHistory(c *gin.Context) {
	itemID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var q dto.MovementHistoryQuery
	if !h.BindQuery(c, &q) {
		return
	}
	movements, err := h.stock.GetMovementHistory(c.Request.Context(), itemID, q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"items": movements})
}
