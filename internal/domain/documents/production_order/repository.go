package production_order

import (
	"ledgercore/internal/domain/documents"
)

// Repository defines persistence for production orders.
type Repository interface {
	documents.Repository[*Order]
}
