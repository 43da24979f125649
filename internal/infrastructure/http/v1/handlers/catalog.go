package handlers

import (
	"github.com/gin-gonic/gin"

	"ledgercore/internal/core/entity"
	"ledgercore/internal/domain"
	"ledgercore/internal/domain/catalogs/account"
	"ledgercore/internal/domain/catalogs/bom"
	"ledgercore/internal/domain/catalogs/item"
	"ledgercore/internal/infrastructure/http/v1/dto"
)

// CatalogHandler is a generic handler for read-mostly reference data.
type CatalogHandler[T entity.Validatable] struct {
	BaseHandler
	service *domain.CatalogService[T]
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler[T entity.Validatable](svc *domain.CatalogService[T]) *CatalogHandler[T] {
	return &CatalogHandler[T]{service: svc}
}

func (h *CatalogHandler[T]) create(c *gin.Context, e T) {
	if err := h.service.Create(c.Request.Context(), e); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, e)
}

// Get returns one entity by id.
// GET /<catalog>/:id
func (h *CatalogHandler[T]) Get(c *gin.Context) {
	entityID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	e, err := h.service.GetByID(c.Request.Context(), entityID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, e)
}

// GetByCode returns one entity by code.
// GET /<catalog>/by-code/:code
func (h *CatalogHandler[T]) GetByCode(c *gin.Context) {
	e, err := h.service.GetByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, e)
}

// List lists entities ordered by code.
// GET /<catalog>
func (h *CatalogHandler[T]) List(c *gin.Context) {
	var q dto.ListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	result, err := h.service.List(c.Request.Context(), q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromListResult(result))
}

// ItemHandler serves items.
type ItemHandler struct {
	*CatalogHandler[*item.Item]
}

// NewItemHandler creates a new item handler.
func NewItemHandler(svc *domain.CatalogService[*item.Item]) *ItemHandler {
	return &ItemHandler{CatalogHandler: NewCatalogHandler(svc)}
}

// Create creates an item.
// POST /items
func (h *ItemHandler) Create(c *gin.Context) {
	var req dto.CreateItemRequest
	if !h.BindJSON(c, &req) {
		return
	}
	h.create(c, req.ToEntity())
}

// Update changes master data under optimistic locking.
// PUT /items/:id
func (h *ItemHandler) Update(c *gin.Context) {
	itemID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateItemRequest
	if !h.BindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()
	it, err := h.service.GetByID(ctx, itemID)
	if err != nil {
		h.Error(c, err)
		return
	}
	req.ApplyTo(it)
	if err := h.service.Update(ctx, it); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, it)
}

// BOMHandler serves bills of materials.
type BOMHandler struct {
	*CatalogHandler[*bom.BOM]
}

// NewBOMHandler creates a new BOM handler.
func NewBOMHandler(svc *domain.CatalogService[*bom.BOM]) *BOMHandler {
	return &BOMHandler{CatalogHandler: NewCatalogHandler(svc)}
}

// Create creates a BOM.
// POST /boms
func (h *BOMHandler) Create(c *gin.Context) {
	var req dto.CreateBOMRequest
	if !h.BindJSON(c, &req) {
		return
	}
	h.create(c, req.ToEntity())
}

// AccountHandler serves the chart of accounts.
type AccountHandler struct {
	*CatalogHandler[*account.Account]
}

// NewAccountHandler creates a new account handler.
func NewAccountHandler(svc *domain.CatalogService[*account.Account]) *AccountHandler {
	return &AccountHandler{CatalogHandler: NewCatalogHandler(svc)}
}

// Create creates an account.
// POST /accounts
func (h *AccountHandler) Create(c *gin.Context) {
	var req dto.CreateAccountRequest
	if !h.BindJSON(c, &req) {
		return
	}
	h.create(c, req.ToEntity())
}
