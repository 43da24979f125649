package dto

import (
	"time"

	"ledgercore/internal/core/id"
	"ledgercore/internal/core/types"
	"ledgercore/internal/domain/mrp"
)

// DemandRequest asks for quantity of an item by a due date.
type DemandRequest struct {
	ItemID   id.ID          `json:"itemId" binding:"required"`
	Quantity types.Quantity `json:"quantity"`
	DueDate  time.Time      `json:"dueDate"`
}

// RunMRPRequest explodes demands one BOM level.
type RunMRPRequest struct {
	Demands []DemandRequest `json:"demands" binding:"required,min=1,dive"`
}

// ToDemands converts the request.
func (r RunMRPRequest) ToDemands() []mrp.Demand {
	out := make([]mrp.Demand, 0, len(r.Demands))
	for _, d := range r.Demands {
		out = append(out, mrp.Demand{
			ItemID:   d.ItemID,
			Quantity: d.Quantity,
			DueDate:  dateOrNow(d.DueDate),
		})
	}
	return out
}

// ShortfallResponse is a shortfall with its suggested downstream request.
type ShortfallResponse struct {
	mrp.Shortfall
	Conversion mrp.Conversion `json:"conversion"`
}

// RunMRPResponse lists shortfalls in demand order.
type RunMRPResponse struct {
	Shortfalls []ShortfallResponse `json:"shortfalls"`
}

// FromShortfalls maps calculator output.
func FromShortfalls(shortfalls []mrp.Shortfall) RunMRPResponse {
	out := RunMRPResponse{Shortfalls: make([]ShortfallResponse, 0, len(shortfalls))}
	for _, s := range shortfalls {
		out.Shortfalls = append(out.Shortfalls, ShortfallResponse{Shortfall: s, Conversion: mrp.Convert(s)})
	}
	return out
}
