// Package production accumulates standard and actual cost on production
// orders across the created → released → confirmed lifecycle.
package production

import (
	"context"
	"fmt"
	"time"

	"ledgercore/internal/core/apperror"
	"ledgercore/internal/core/entity"
	"ledgercore/internal/core/id"
	"ledgercore/internal/core/lock"
	"ledgercore/internal/core/numerator"
	"ledgercore/internal/core/types"
	"ledgercore/internal/domain"
	"ledgercore/internal/domain/catalogs/bom"
	"ledgercore/internal/domain/catalogs/item"
	"ledgercore/internal/domain/documents"
	"ledgercore/internal/domain/documents/production_order"
	"ledgercore/internal/domain/posting"
	"ledgercore/pkg/logger"
)

// Accumulator owns production order state and cost totals.
type Accumulator struct {
	engine  *posting.Engine
	orders  production_order.Repository
	items   item.Repository
	boms    bom.Repository
	numbers numerator.Generator
	series  numerator.Config
}

// NewAccumulator creates a production cost accumulator.
func NewAccumulator(engine *posting.Engine, orders production_order.Repository, items item.Repository, boms bom.Repository, numbers numerator.Generator) *Accumulator {
	return &Accumulator{
		engine:  engine,
		orders:  orders,
		items:   items,
		boms:    boms,
		numbers: numbers,
		series:  numerator.DefaultConfig("MO"),
	}
}

// CreateOrderRequest describes a new production order.
type CreateOrderRequest struct {
	TargetItemID id.ID
	Quantity     types.Quantity

	// BOMID selects the bill of materials; nil picks the item's active BOM.
	BOMID *id.ID

	Rates *production_order.Rates
	Date  time.Time
}

// StandardCost computes the standard cost of producing qty units with b:
// material is the sum of component quantity × component standard cost,
// times qty; labor and overhead are rate × qty when rates are supplied.
func StandardCost(b *bom.BOM, components map[id.ID]*item.Item, qty types.Quantity, rates *production_order.Rates) (production_order.Cost, error) {
	perUnit := types.Zero()
	for _, line := range b.Lines {
		comp, ok := components[line.ComponentID]
		if !ok {
			return production_order.Cost{}, apperror.NewNotFound("item", line.ComponentID.String()).
				WithDetail("bom_id", b.ID.String())
		}
		perUnit = perUnit.Add(line.Quantity.Value(comp.StandardCost))
	}

	cost := production_order.ZeroCost()
	cost.Material = qty.Value(perUnit)
	if rates != nil {
		cost.Labor = qty.Value(rates.LaborPerUnit)
		cost.Overhead = qty.Value(rates.OverheadPerUnit)
	}
	return cost, nil
}

// CreateOrder snapshots the standard cost from the BOM and stores the order
// in state created.
func (a *Accumulator) CreateOrder(ctx context.Context, req CreateOrderRequest) (*production_order.Order, error) {
	var out *production_order.Order
	err := a.engine.Run(ctx, "production_order.create", []string{lock.ItemKey(req.TargetItemID.String())},
		func(ctx context.Context, uow *posting.UnitOfWork) error {
			target, err := a.items.GetByID(ctx, req.TargetItemID)
			if err != nil {
				return err
			}
			b, err := a.resolveBOM(ctx, target, req.BOMID)
			if err != nil {
				return err
			}

			components := make(map[id.ID]*item.Item, len(b.Lines))
			for _, compID := range b.ComponentIDs() {
				comp, err := a.items.GetByID(ctx, compID)
				if err != nil {
					return fmt.Errorf("load component %s: %w", compID, err)
				}
				components[compID] = comp
			}

			order := production_order.NewOrder(target.ID, req.Quantity, b.ID)
			order.Rates = req.Rates
			if !req.Date.IsZero() {
				order.Date = req.Date
			}
			if err := order.Validate(ctx); err != nil {
				return err
			}
			if order.StandardCost, err = StandardCost(b, components, req.Quantity, req.Rates); err != nil {
				return err
			}
			if err := numerator.Assign(ctx, a.numbers, a.series, &order.Number, order.Date); err != nil {
				return err
			}

			uow.Save(func(ctx context.Context) error {
				return a.orders.Create(ctx, order)
			})
			uow.Emit(orderEvent(order, "production_order.created"))
			out = order
			return nil
		})
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "production order created",
		"order_id", out.ID,
		"number", out.Number,
		"standard_material", out.StandardCost.Material.String(),
	)
	return out, nil
}

func (a *Accumulator) resolveBOM(ctx context.Context, target *item.Item, bomID *id.ID) (*bom.BOM, error) {
	if bomID == nil {
		return a.boms.GetByItem(ctx, target.ID)
	}
	b, err := a.boms.GetByID(ctx, *bomID)
	if err != nil {
		return nil, err
	}
	if b.ItemID != target.ID {
		return nil, apperror.NewValidation("bill of materials belongs to another item").
			WithDetail("bom_id", b.ID.String()).
			WithDetail("item_id", target.ID.String())
	}
	return b, nil
}

// transition loads the order under its lock, applies fn and saves it.
func (a *Accumulator) transition(ctx context.Context, action string, orderID id.ID, extraKeys []string,
	fn func(ctx context.Context, uow *posting.UnitOfWork, order *production_order.Order) error,
) (*production_order.Order, error) {
	keys := append([]string{lock.OrderKey(orderID.String())}, extraKeys...)
	var out *production_order.Order
	err := a.engine.Run(ctx, action, keys, func(ctx context.Context, uow *posting.UnitOfWork) error {
		order, err := a.orders.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if err := fn(ctx, uow, order); err != nil {
			return err
		}
		order.Touch()
		uow.Save(func(ctx context.Context) error {
			return a.orders.Update(ctx, order)
		})
		uow.Emit(orderEvent(order, action))
		out = order
		return nil
	})
	return out, err
}

// Release moves a created order to released. No monetary effect.
func (a *Accumulator) Release(ctx context.Context, orderID id.ID) (*production_order.Order, error) {
	return a.transition(ctx, "production_order.released", orderID, nil,
		func(_ context.Context, _ *posting.UnitOfWork, order *production_order.Order) error {
			return order.Release()
		})
}

// IssueMaterial adds cost to the actual material of a released order.
// Component stock is not consumed here.
func (a *Accumulator) IssueMaterial(ctx context.Context, orderID id.ID, cost types.Money) (*production_order.Order, error) {
	return a.transition(ctx, "production_order.material_issued", orderID, nil,
		func(_ context.Context, _ *posting.UnitOfWork, order *production_order.Order) error {
			return order.IssueMaterial(cost)
		})
}

// ConfirmProduction adds labor (and rated overhead), moves the order to
// confirmed and increases the target item's stock by producedQty.
// An order that is not released fails with INVALID_ORDER_STATE and
// neither the order nor the stock changes.
func (a *Accumulator) ConfirmProduction(ctx context.Context, orderID id.ID, producedQty types.Quantity, laborCost types.Money) (*production_order.Order, error) {
	// The target item never changes after creation, so it can be locked
	// up front from a plain read.
	current, err := a.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	itemKey := lock.ItemKey(current.TargetItemID.String())

	return a.transition(ctx, "production_order.confirmed", orderID, []string{itemKey},
		func(_ context.Context, uow *posting.UnitOfWork, order *production_order.Order) error {
			if err := order.Confirm(producedQty, laborCost); err != nil {
				return err
			}
			uow.AddMovement(entity.NewInventoryMovement(order.ID, production_order.DocumentType,
				time.Now().UTC(), order.TargetItemID, producedQty))
			order.MarkPosted(nil)
			uow.Audit(posting.AuditRecord{
				EntityType: production_order.DocumentType,
				EntityID:   order.ID,
				Action:     "confirm",
				Changes: map[string]any{
					"produced_quantity": producedQty.String(),
					"labor":             laborCost.String(),
					"actual_total":      order.ActualCost.Total().String(),
				},
			})
			return nil
		})
}

// Variance returns actual minus standard cost per bucket.
func Variance(order *production_order.Order) production_order.Cost {
	return order.Variance()
}

// GetOrder returns one order.
func (a *Accumulator) GetOrder(ctx context.Context, orderID id.ID) (*production_order.Order, error) {
	return a.orders.GetByID(ctx, orderID)
}

// ListOrders returns orders matching filter.
func (a *Accumulator) ListOrders(ctx context.Context, filter documents.ListFilter) (domain.ListResult[*production_order.Order], error) {
	return a.orders.List(ctx, filter)
}

func orderEvent(order *production_order.Order, eventType string) posting.Event {
	return posting.Event{
		AggregateType: production_order.DocumentType,
		AggregateID:   order.ID,
		EventType:     eventType,
		Payload: map[string]any{
			"number":        order.Number,
			"status":        order.Status,
			"standard_cost": order.StandardCost,
			"actual_cost":   order.ActualCost,
		},
	}
}
