package handlers

import (
	"github.com/gin-gonic/gin"

	"ledgercore/internal/domain/settlement"
	"ledgercore/internal/infrastructure/http/v1/dto"
)

// SettlementHandler serves invoices and payments.
type SettlementHandler struct {
	BaseHandler
	allocator *settlement.Allocator
}

// NewSettlementHandler creates a new settlement handler.
func NewSettlementHandler(a *settlement.Allocator) *SettlementHandler {
	return &SettlementHandler{allocator: a}
}

// CreateInvoice stores a draft invoice, issuing it when asked.
// POST /invoices
func (h *SettlementHandler) CreateInvoice(c *gin.Context) {
	var req dto.CreateInvoiceRequest
	if !h.BindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()
	inv := req.ToEntity()
	if err := h.allocator.CreateInvoice(ctx, inv); err != nil {
		h.Error(c, err)
		return
	}
	if req.Issue {
		issued, err := h.allocator.IssueInvoice(ctx, inv.ID)
		if err != nil {
			h.Error(c, err)
			return
		}
		inv = issued
	}
	h.Created(c, inv)
}

// IssueInvoice moves a draft invoice to unpaid. It writes no ledger entry.
// POST /invoices/:id/issue
func (h *SettlementHandler) IssueInvoice(c *gin.Context) {
	invID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	inv, err := h.allocator.IssueInvoice(c.Request.Context(), invID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, inv)
}

// GetInvoice returns one invoice.
// GET /invoices/:id
func (h *SettlementHandler) GetInvoice(c *gin.Context) {
	invID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	inv, err := h.allocator.GetInvoice(c.Request.Context(), invID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, inv)
}

// ListInvoices lists invoices.
// GET /invoices
func (h *SettlementHandler) ListInvoices(c *gin.Context) {
	var q dto.DocumentListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	result, err := h.allocator.ListInvoices(c.Request.Context(), q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromListResult(result))
}

// ApplyPayment records a payment and its allocations atomically.
// POST /payments
func (h *SettlementHandler) ApplyPayment(c *gin.Context) {
	var req dto.ApplyPaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}
	p := req.ToEntity()
	if err := h.allocator.ApplyPayment(c.Request.Context(), p); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, p)
}

// GetPayment returns one payment.
// GET /payments/:id
func (h *SettlementHandler) GetPayment(c *gin.Context) {
	payID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	p, err := h.allocator.GetPayment(c.Request.Context(), payID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, p)
}

// ListPayments lists payments.
// GET /payments
func (h *SettlementHandler) ListPayments(c *gin.Context) {
	var q dto.DocumentListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	result, err := h.allocator.ListPayments(c.Request.Context(), q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromListResult(result))
}

// DeletePayment restores invoice balances and reverses the payment entry.
// DELETE /payments/:id
func (h *SettlementHandler) DeletePayment(c *gin.Context) {
	payID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	if err := h.allocator.DeletePayment(c.Request.Context(), payID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}
