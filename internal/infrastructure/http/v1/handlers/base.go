// Package handlers provides HTTP request handlers.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ledgercore/internal/core/apperror"
	"ledgercore/internal/core/id"
)

// BaseHandler provides common functionality for all handlers.
type BaseHandler struct{}

// BindJSON binds the request body and reports a validation error on failure.
func (h *BaseHandler) BindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.Error(c, apperror.NewValidation("invalid request body").WithCause(err).WithDetail("error", err.Error()))
		return false
	}
	return true
}

// BindQuery binds query parameters and reports a validation error on failure.
func (h *BaseHandler) BindQuery(c *gin.Context, req any) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		h.Error(c, apperror.NewValidation("invalid query parameters").WithCause(err).WithDetail("error", err.Error()))
		return false
	}
	return true
}

// Error records err for ErrorHandler and aborts the chain.
func (h *BaseHandler) Error(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// ParseID parses a UUID path parameter.
func (h *BaseHandler) ParseID(c *gin.Context, param string) (id.ID, bool) {
	raw := c.Param(param)
	parsed, err := id.Parse(raw)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid "+param).WithDetail(param, raw))
		return id.ID{}, false
	}
	return parsed, true
}

// ParseSequence parses a positive ledger sequence path parameter.
func (h *BaseHandler) ParseSequence(c *gin.Context) (int64, bool) {
	raw := c.Param("sequence")
	seq, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || seq <= 0 {
		h.Error(c, apperror.NewValidation("invalid ledger sequence").WithDetail("sequence", raw))
		return 0, false
	}
	return seq, true
}

// OK responds with 200.
func (h *BaseHandler) OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// Created responds with 201.
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

// NoContent responds with 204.
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
