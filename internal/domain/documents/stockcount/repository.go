package stockcount

import (
	"ledgercore/internal/domain/documents"
)

// Repository defines persistence for stock counts.
type Repository interface {
	documents.Repository[*StockCount]
}
