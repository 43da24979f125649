package dto

import (
	"time"

	"ledgercore/internal/core/id"
	"ledgercore/internal/core/types"
	"ledgercore/internal/domain/documents/production_order"
	"ledgercore/internal/domain/production"
)

// CreateProductionOrderRequest creates an order and snapshots its standard cost.
type CreateProductionOrderRequest struct {
	TargetItemID    id.ID          `json:"targetItemId" binding:"required"`
	Quantity        types.Quantity `json:"quantity"`
	BOMID           *id.ID         `json:"bomId"`
	Date            time.Time      `json:"date"`
	LaborPerUnit    *types.Money   `json:"laborPerUnit"`
	OverheadPerUnit *types.Money   `json:"overheadPerUnit"`
}

// ToRequest converts to the accumulator request. Rates are set when either is supplied.
func (r CreateProductionOrderRequest) ToRequest() production.CreateOrderRequest {
	req := production.CreateOrderRequest{
		TargetItemID: r.TargetItemID,
		Quantity:     r.Quantity,
		BOMID:        r.BOMID,
		Date:         dateOrNow(r.Date),
	}
	if r.LaborPerUnit != nil || r.OverheadPerUnit != nil {
		rates := &production_order.Rates{LaborPerUnit: types.Zero(), OverheadPerUnit: types.Zero()}
		if r.LaborPerUnit != nil {
			rates.LaborPerUnit = *r.LaborPerUnit
		}
		if r.OverheadPerUnit != nil {
			rates.OverheadPerUnit = *r.OverheadPerUnit
		}
		req.Rates = rates
	}
	return req
}

// IssueMaterialRequest adds actual material cost to a released order.
type IssueMaterialRequest struct {
	Cost types.Money `json:"cost"`
}

// ConfirmProductionRequest confirms output and labor on a released order.
type ConfirmProductionRequest struct {
	ProducedQuantity types.Quantity `json:"producedQuantity"`
	LaborCost        types.Money    `json:"laborCost"`
}

// ProductionOrderResponse is an order with its cost variance.
type ProductionOrderResponse struct {
	*production_order.Order
	Variance production_order.Cost `json:"variance"`
}

// FromProductionOrder maps an order.
func FromProductionOrder(o *production_order.Order) ProductionOrderResponse {
	return ProductionOrderResponse{Order: o, Variance: production.Variance(o)}
}
