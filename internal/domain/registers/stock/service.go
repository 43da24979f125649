package stock

import (
	"context"
	"fmt"

	"ledgercore/internal/core/apperror"
	"ledgercore/internal/core/entity"
	"ledgercore/internal/core/id"
	"ledgercore/internal/core/types"
	"ledgercore/internal/domain/catalogs/item"
	"ledgercore/pkg/logger"
)

// Service applies movements to item stock.
// Transactions and per-item locks are managed by the caller (posting engine).
type Service struct {
	items     item.Repository
	movements Repository
}

// NewService creates a new stock register service.
func NewService(items item.Repository, movements Repository) *Service {
	return &Service{
		items:     items,
		movements: movements,
	}
}

type itemChange struct {
	item  *item.Item
	delta types.Quantity
	out   types.Quantity
}

// Apply checks every affected item first, then updates stock and records
// the movements. With allowNegative false, any item that would end below
// zero fails the whole call with INSUFFICIENT_STOCK before anything is written.
func (s *Service) Apply(ctx context.Context, movements []entity.InventoryMovement, allowNegative bool) error {
	if len(movements) == 0 {
		return nil
	}

	order := make([]id.ID, 0, len(movements))
	changes := make(map[id.ID]*itemChange, len(movements))
	for i, m := range movements {
		if m.Delta.IsZero() {
			return apperror.NewValidation(fmt.Sprintf("movement %d: zero quantity", i))
		}
		if id.IsNil(m.RecorderID) {
			return apperror.NewValidation(fmt.Sprintf("movement %d: recorder_id is required", i))
		}

		c, ok := changes[m.ItemID]
		if !ok {
			it, err := s.items.GetByID(ctx, m.ItemID)
			if err != nil {
				return fmt.Errorf("get item %s: %w", m.ItemID, err)
			}
			c = &itemChange{item: it}
			changes[m.ItemID] = c
			order = append(order, m.ItemID)
		}
		next, err := c.delta.CheckedAdd(m.Delta)
		if err != nil {
			return apperror.NewValidation(fmt.Sprintf("movement %d: quantity out of range", i)).
				WithDetail("item_id", m.ItemID.String())
		}
		c.delta = next
		if m.Delta.IsNegative() {
			c.out += m.Delta.Neg()
		}
	}

	balances := make(map[id.ID]types.Quantity, len(order))
	for _, itemID := range order {
		c := changes[itemID]
		balance, err := c.item.Stock.CheckedAdd(c.delta)
		if err != nil {
			return apperror.NewValidation("resulting stock out of range").
				WithDetail("item_id", itemID.String())
		}
		balances[itemID] = balance
	}

	if !allowNegative {
		for _, itemID := range order {
			c := changes[itemID]
			if balances[itemID].IsNegative() {
				return apperror.NewInsufficientStock(
					itemID.String(),
					c.out.String(),
					c.item.Stock.String(),
				).WithDetail("item_code", c.item.Code)
			}
		}
	}

	for _, itemID := range order {
		c := changes[itemID]
		if c.delta.IsZero() {
			continue
		}
		if err := s.items.SetStock(ctx, itemID, balances[itemID]); err != nil {
			return fmt.Errorf("set stock for %s: %w", itemID, err)
		}
	}

	if err := s.movements.CreateMovements(ctx, movements); err != nil {
		return fmt.Errorf("create movements: %w", err)
	}

	logger.Debug(ctx, "recorded inventory movements",
		"count", len(movements),
		"items", len(order),
		"recorder_id", movements[0].RecorderID,
	)
	return nil
}

// GetMovementsByRecorder returns the movements a document produced.
func (s *Service) GetMovementsByRecorder(ctx context.Context, recorderID id.ID) ([]entity.InventoryMovement, error) {
	return s.movements.GetMovementsByRecorder(ctx, recorderID)
}

// GetMovementHistory returns an item's movement trail.
func (s *Service) GetMovementHistory(ctx context.Context, itemID id.ID, filter MovementFilter) ([]entity.InventoryMovement, error) {
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	return s.movements.GetMovementHistory(ctx, itemID, filter)
}
