package payment

import (
	"ledgercore/internal/domain/documents"
)

// Repository defines persistence for payments.
type Repository interface {
	documents.Repository[*Payment]
}
