package handlers

import (
	"github.com/gin-gonic/gin"

	"ledgercore/internal/domain/mrp"
	"ledgercore/internal/infrastructure/http/v1/dto"
)

// MRPHandler runs shortfall calculations. It never writes.
type MRPHandler struct {
	BaseHandler
	calculator *mrp.Calculator
}

// NewMRPHandler creates a new MRP handler.
func NewMRPHandler(c *mrp.Calculator) *MRPHandler {
	return &MRPHandler{calculator: c}
}

// Run explodes demands and returns shortfalls with suggested requests.
// POST /mrp/run
func (h *MRPHandler) Run(c *gin.Context) {
	var req dto.RunMRPRequest
	if !h.BindJSON(c, &req) {
		return
	}
	shortfalls, err := h.calculator.Run(c.Request.Context(), req.ToDemands())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromShortfalls(shortfalls))
}
