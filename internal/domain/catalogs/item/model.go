// Package item provides the Item catalog: stock-keeping units with their
// on-hand quantity, standard cost and posting accounts.
package item

import (
	"context"

	"ledgercore/internal/core/apperror"
	"ledgercore/internal/core/entity"
	"ledgercore/internal/core/types"
)

// Kind classifies an item for planning.
type Kind string

const (
	KindRawMaterial  Kind = "raw_material"
	KindSemiFinished Kind = "semi_finished"
	KindFinished     Kind = "finished"
)

// IsValid reports whether k is a known kind.
func (k Kind) IsValid() bool {
	switch k {
	case KindRawMaterial, KindSemiFinished, KindFinished:
		return true
	}
	return false
}

// Item is a stock-keeping unit.
// Stock is shared mutable state: only the stock register changes it.
type Item struct {
	entity.Catalog

	Kind Kind `db:"kind" json:"kind"`

	// Stock is the on-hand quantity
	Stock types.Quantity `db:"stock" json:"stock"`

	// StandardCost is the standard purchase cost per unit
	StandardCost types.Money `db:"standard_cost" json:"standardCost"`

	ValuationAccount string `db:"valuation_account" json:"valuationAccount"`
	COGSAccount      string `db:"cogs_account" json:"cogsAccount"`
}

// NewItem creates an item with zero stock.
func NewItem(code, name string, kind Kind, standardCost types.Money) *Item {
	return &Item{
		Catalog:      entity.NewCatalog(code, name),
		Kind:         kind,
		StandardCost: standardCost,
	}
}

// Validate implements entity.Validatable.
func (i *Item) Validate(ctx context.Context) error {
	if err := i.Catalog.Validate(ctx); err != nil {
		return err
	}
	if !i.Kind.IsValid() {
		return apperror.NewValidation("unknown item kind").
			WithDetail("field", "kind").
			WithDetail("value", string(i.Kind))
	}
	if i.StandardCost.IsNegative() {
		return apperror.NewValidation("standard cost cannot be negative").
			WithDetail("field", "standardCost")
	}
	return nil
}
