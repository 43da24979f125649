package invoice

import (
	"ledgercore/internal/domain/documents"
)

// Repository defines persistence for invoices.
type Repository interface {
	documents.Repository[*Invoice]
}
