package account

import (
	"context"

	"ledgercore/internal/core/apperror"
	"ledgercore/internal/domain"
)

// Repository defines the interface for Account persistence.
type Repository interface {
	domain.CatalogRepository[*Account]
}

// Lookup resolves account codes for ledger lines.
// Codes are not validated: unknown codes resolve to an empty name.
type Lookup struct {
	repo Repository
}

// NewLookup creates a chart-of-accounts lookup.
func NewLookup(repo Repository) *Lookup {
	return &Lookup{repo: repo}
}

// AccountName implements ledger.AccountLookup.
func (l *Lookup) AccountName(ctx context.Context, code string) (string, error) {
	a, err := l.repo.GetByCode(ctx, code)
	if err != nil {
		if apperror.IsNotFound(err) {
			return "", nil
		}
		return "", err
	}
	return a.Name, nil
}
