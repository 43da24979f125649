package item

import (
	"context"

	"ledgercore/internal/core/id"
	"ledgercore/internal/core/types"
	"ledgercore/internal/domain"
)

// Repository defines the interface for Item persistence.
// Update never touches Stock; stock changes go through SetStock.
type Repository interface {
	domain.CatalogRepository[*Item]

	// SetStock overwrites the on-hand quantity.
	SetStock(ctx context.Context, itemID id.ID, qty types.Quantity) error
}
