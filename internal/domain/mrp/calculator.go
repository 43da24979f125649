// Package mrp explodes demands one BOM level against on-hand stock and
// turns the resulting shortfalls into purchase requests or production
// order drafts.
package mrp

import (
	"context"
	"fmt"
	"time"

	"ledgercore/internal/core/apperror"
	"ledgercore/internal/core/id"
	"ledgercore/internal/core/types"
	"ledgercore/internal/domain/catalogs/bom"
	"ledgercore/internal/domain/catalogs/item"
	"ledgercore/pkg/logger"
)

// SuggestedType is how a shortfall should be covered.
type SuggestedType string

const (
	SuggestPurchase   SuggestedType = "purchase"
	SuggestProduction SuggestedType = "production"
)

// Demand asks for Quantity units of ItemID by DueDate.
type Demand struct {
	ItemID   id.ID          `json:"itemId"`
	Quantity types.Quantity `json:"quantity"`
	DueDate  time.Time      `json:"dueDate"`
}

// Shortfall is the quantity of a component needed beyond its stock.
type Shortfall struct {
	ItemID        id.ID          `json:"itemId"`
	ItemCode      string         `json:"itemCode"`
	DemandItemID  id.ID          `json:"demandItemId"`
	Required      types.Quantity `json:"required"`
	OnHand        types.Quantity `json:"onHand"`
	Quantity      types.Quantity `json:"quantity"`
	DueDate       time.Time      `json:"dueDate"`
	SuggestedType SuggestedType  `json:"suggestedType"`
}

// Calculator runs single-level requirement explosions. It only reads.
type Calculator struct {
	items item.Repository
	boms  bom.Repository
	rule  *Rule
}

// NewCalculator creates a calculator. A nil rule selects DefaultPurchaseRule.
func NewCalculator(items item.Repository, boms bom.Repository, rule *Rule) *Calculator {
	if rule == nil {
		rule = MustRule(DefaultPurchaseRule)
	}
	return &Calculator{items: items, boms: boms, rule: rule}
}

// Run explodes each demand independently: for every BOM component,
// required = summed line quantity × demand quantity, and a shortfall of
// required − stock is emitted when stock < required. Demands whose item
// has no BOM are skipped with a warning.
func (c *Calculator) Run(ctx context.Context, demands []Demand) ([]Shortfall, error) {
	var out []Shortfall
	components := make(map[id.ID]*item.Item)

	for i, d := range demands {
		if id.IsNil(d.ItemID) {
			return nil, apperror.NewValidation("demand item is required").WithDetail("index", i)
		}
		if !d.Quantity.IsPositive() {
			return nil, apperror.NewValidation("demand quantity must be positive").WithDetail("index", i)
		}

		b, err := c.boms.GetByItem(ctx, d.ItemID)
		if err != nil {
			if apperror.IsNotFound(err) {
				logger.Warn(ctx, "demand item has no bill of materials, skipped", "item_id", d.ItemID)
				continue
			}
			return nil, fmt.Errorf("load bom for %s: %w", d.ItemID, err)
		}

		perUnit := make(map[id.ID]types.Quantity, len(b.Lines))
		for _, line := range b.Lines {
			perUnit[line.ComponentID] += line.Quantity
		}

		for _, componentID := range b.ComponentIDs() {
			comp, ok := components[componentID]
			if !ok {
				comp, err = c.items.GetByID(ctx, componentID)
				if err != nil {
					return nil, fmt.Errorf("load component %s: %w", componentID, err)
				}
				components[componentID] = comp
			}

			required := perUnit[componentID].Mul(d.Quantity)
			if comp.Stock >= required {
				continue
			}
			suggested, err := c.rule.Suggest(comp)
			if err != nil {
				return nil, err
			}
			out = append(out, Shortfall{
				ItemID:        comp.ID,
				ItemCode:      comp.Code,
				DemandItemID:  d.ItemID,
				Required:      required,
				OnHand:        comp.Stock,
				Quantity:      required - comp.Stock,
				DueDate:       d.DueDate,
				SuggestedType: suggested,
			})
		}
	}

	logger.Debug(ctx, "mrp run finished", "demands", len(demands), "shortfalls", len(out))
	return out, nil
}

// PurchaseRequest asks purchasing to buy Quantity of ItemID by NeedBy.
type PurchaseRequest struct {
	ItemID   id.ID          `json:"itemId"`
	Quantity types.Quantity `json:"quantity"`
	NeedBy   time.Time      `json:"needBy"`
}

// ProductionOrderDraft proposes producing Quantity of TargetItemID by DueDate.
type ProductionOrderDraft struct {
	TargetItemID id.ID          `json:"targetItemId"`
	Quantity     types.Quantity `json:"quantity"`
	DueDate      time.Time      `json:"dueDate"`
}

// Conversion holds exactly one of its fields.
type Conversion struct {
	Purchase   *PurchaseRequest      `json:"purchaseRequest,omitempty"`
	Production *ProductionOrderDraft `json:"productionOrderDraft,omitempty"`
}

// Convert maps a shortfall to its downstream request. It has no side effects.
func Convert(s Shortfall) Conversion {
	if s.SuggestedType == SuggestPurchase {
		return Conversion{Purchase: &PurchaseRequest{
			ItemID:   s.ItemID,
			Quantity: s.Quantity,
			NeedBy:   s.DueDate,
		}}
	}
	return Conversion{Production: &ProductionOrderDraft{
		TargetItemID: s.ItemID,
		Quantity:     s.Quantity,
		DueDate:      s.DueDate,
	}}
}
