package handlers

import (
	"github.com/gin-gonic/gin"

	"ledgercore/internal/domain/production"
	"ledgercore/internal/infrastructure/http/v1/dto"
)

// ProductionHandler serves production orders.
type ProductionHandler struct {
	BaseHandler
	accumulator *production.Accumulator
}

// NewProductionHandler creates a new production handler.
func NewProductionHandler(a *production.Accumulator) *ProductionHandler {
	return &ProductionHandler{accumulator: a}
}

// Create creates an order with its standard cost snapshot.
// POST /production-orders
func (h *ProductionHandler) Create(c *gin.Context) {
	var req dto.CreateProductionOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}
	order, err := h.accumulator.CreateOrder(c.Request.Context(), req.ToRequest())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromProductionOrder(order))
}

// Get returns one order with its variance.
// GET /production-orders/:id
func (h *ProductionHandler) Get(c *gin.Context) {
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	order, err := h.accumulator.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromProductionOrder(order))
}

// List lists orders.
// GET /production-orders
func (h *ProductionHandler) List(c *gin.Context) {
	var q dto.DocumentListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	result, err := h.accumulator.ListOrders(c.Request.Context(), q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromListResult(result))
}

// Release moves a created order to released.
// POST /production-orders/:id/release
func (h *ProductionHandler) Release(c *gin.Context) {
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	order, err := h.accumulator.Release(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromProductionOrder(order))
}

// IssueMaterial adds actual material cost.
// POST /production-orders/:id/materials
func (h *ProductionHandler) IssueMaterial(c *gin.Context) {
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.IssueMaterialRequest
	if !h.BindJSON(c, &req) {
		return
	}
	order, err := h.accumulator.IssueMaterial(c.Request.Context(), orderID, req.Cost)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromProductionOrder(order))
}

// Confirm records produced quantity and labor.
// POST /production-orders/:id/confirm
func (h *ProductionHandler) Confirm(c *gin.Context) {
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.ConfirmProductionRequest
	if !h.BindJSON(c, &req) {
		return
	}
	order, err := h.accumulator.ConfirmProduction(c.Request.Context(), orderID, req.ProducedQuantity, req.LaborCost)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromProductionOrder(order))
}
