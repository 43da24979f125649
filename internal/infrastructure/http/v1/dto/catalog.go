package dto

import (
	"ledgercore/internal/core/entity"
	"ledgercore/internal/core/id"
	"ledgercore/internal/core/types"
	"ledgercore/internal/domain/catalogs/account"
	"ledgercore/internal/domain/catalogs/bom"
	"ledgercore/internal/domain/catalogs/item"
)

// CreateItemRequest creates an item. Stock starts at zero and only moves through documents.
type CreateItemRequest struct {
	Code             string            `json:"code" binding:"required"`
	Name             string            `json:"name" binding:"required"`
	Kind             string            `json:"kind" binding:"required,oneof=raw_material semi_finished finished"`
	StandardCost     types.Money       `json:"standardCost"`
	ValuationAccount string            `json:"valuationAccount"`
	COGSAccount      string            `json:"cogsAccount"`
	Attributes       entity.Attributes `json:"attributes"`
}

// ToEntity builds the item.
func (r CreateItemRequest) ToEntity() *item.Item {
	it := item.NewItem(r.Code, r.Name, item.Kind(r.Kind), r.StandardCost)
	it.ValuationAccount = r.ValuationAccount
	it.COGSAccount = r.COGSAccount
	it.Attributes = r.Attributes
	return it
}

// UpdateItemRequest changes item master data. Version guards concurrent edits.
type UpdateItemRequest struct {
	Name             *string      `json:"name"`
	StandardCost     *types.Money `json:"standardCost"`
	ValuationAccount *string      `json:"valuationAccount"`
	COGSAccount      *string      `json:"cogsAccount"`
	Version          int          `json:"version" binding:"required,min=1"`
}

// ApplyTo copies the supplied fields onto it.
func (r UpdateItemRequest) ApplyTo(it *item.Item) {
	if r.Name != nil {
		it.Name = *r.Name
	}
	if r.StandardCost != nil {
		it.StandardCost = *r.StandardCost
	}
	if r.ValuationAccount != nil {
		it.ValuationAccount = *r.ValuationAccount
	}
	if r.COGSAccount != nil {
		it.COGSAccount = *r.COGSAccount
	}
	it.Version = r.Version
}

// BOMLineRequest is one component per unit of the parent.
type BOMLineRequest struct {
	ComponentID id.ID          `json:"componentId" binding:"required"`
	Quantity    types.Quantity `json:"quantity"`
}

// CreateBOMRequest creates a bill of materials. The newest BOM of an item is its active one.
type CreateBOMRequest struct {
	Code   string           `json:"code" binding:"required"`
	Name   string           `json:"name" binding:"required"`
	ItemID id.ID            `json:"itemId" binding:"required"`
	Lines  []BOMLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// ToEntity builds the BOM.
func (r CreateBOMRequest) ToEntity() *bom.BOM {
	b := bom.NewBOM(r.Code, r.Name, r.ItemID)
	for _, l := range r.Lines {
		b.AddLine(l.ComponentID, l.Quantity)
	}
	return b
}

// CreateAccountRequest adds a chart-of-accounts entry.
type CreateAccountRequest struct {
	Code string `json:"code" binding:"required"`
	Name string `json:"name" binding:"required"`
	Kind string `json:"kind" binding:"required,oneof=asset liability equity revenue expense"`
}

// ToEntity builds the account.
func (r CreateAccountRequest) ToEntity() *account.Account {
	return account.NewAccount(r.Code, r.Name, account.Kind(r.Kind))
}
