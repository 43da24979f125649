package handlers

import (
	"github.com/gin-gonic/gin"

	"ledgercore/internal/core/apperror"
	"ledgercore/internal/domain/journal"
	"ledgercore/internal/infrastructure/http/v1/dto"
)

// LedgerHandler serves manual ledger entries and ledger queries.
type LedgerHandler struct {
	BaseHandler
	journal *journal.Service
}

// NewLedgerHandler creates a new ledger handler.
func NewLedgerHandler(svc *journal.Service) *LedgerHandler {
	return &LedgerHandler{journal: svc}
}

// Append stores a manual entry.
// POST /ledger/entries
func (h *LedgerHandler) Append(c *gin.Context) {
	var req dto.CreateLedgerEntryRequest
	if !h.BindJSON(c, &req) {
		return
	}
	seq, err := h.journal.Append(c.Request.Context(), req.ToEntry())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.SequenceResponse{Sequence: seq})
}

// Get returns one entry.
// GET /ledger/entries/:sequence
func (h *LedgerHandler) Get(c *gin.Context) {
	seq, ok := h.ParseSequence(c)
	if !ok {
		return
	}
	e, err := h.journal.Get(c.Request.Context(), seq)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, e)
}

// List returns entries in sequence order.
// GET /ledger/entries
func (h *LedgerHandler) List(c *gin.Context) {
	var q dto.LedgerListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter, err := q.ToFilter()
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid sourceDocumentId").WithCause(err))
		return
	}
	entries, err := h.journal.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"items": entries, "limit": filter.Limit, "offset": filter.Offset})
}

// Post moves a draft entry to posted.
// POST /ledger/entries/:sequence/post
func (h *LedgerHandler) Post(c *gin.Context) {
	seq, ok := h.ParseSequence(c)
	if !ok {
		return
	}
	e, err := h.journal.Post(c.Request.Context(), seq)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, e)
}

// Approve moves a posted entry to approved.
// POST /ledger/entries/:sequence/approve
func (h *LedgerHandler) Approve(c *gin.Context) {
	seq, ok := h.ParseSequence(c)
	if !ok {
		return
	}
	e, err := h.journal.Approve(c.Request.Context(), seq)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, e)
}

// Reverse appends the mirror entry and marks the original reversed.
// POST /ledger/entries/:sequence/reverse
func (h *LedgerHandler) Reverse(c *gin.Context) {
	seq, ok := h.ParseSequence(c)
	if !ok {
		return
	}
	var req dto.ReverseLedgerEntryRequest
	if c.Request.ContentLength != 0 && !h.BindJSON(c, &req) {
		return
	}
	reversal, err := h.journal.Reverse(c.Request.Context(), seq, req.Date, req.Reason)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.SequenceResponse{Sequence: reversal})
}
