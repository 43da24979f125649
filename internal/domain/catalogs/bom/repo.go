package bom

import (
	"context"

	"ledgercore/internal/core/id"
	"ledgercore/internal/domain"
)

// Repository defines the interface for BOM persistence.
type Repository interface {
	domain.CatalogRepository[*BOM]

	// GetByItem returns the active (non-deleted, most recently created)
	// BOM for a parent item, or a NotFound error.
	GetByItem(ctx context.Context, itemID id.ID) (*BOM, error)
}
