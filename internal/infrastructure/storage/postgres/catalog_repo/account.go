package catalog_repo

import (
	"ledgercore/internal/core/entity"
	"ledgercore/internal/domain/catalogs/account"
	"ledgercore/internal/infrastructure/storage/postgres"
)

// AccountRepo implements account.Repository.
type AccountRepo struct {
	*BaseCatalogRepo[*account.Account]
}

var _ account.Repository = (*AccountRepo)(nil)

// NewAccountRepo creates a chart-of-accounts repository.
func NewAccountRepo(txManager *postgres.TxManager) *AccountRepo {
	return &AccountRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(txManager, "cat_accounts", "account",
			func() *account.Account { return &account.Account{} },
			func(v *account.Account) *entity.Catalog { return &v.Catalog },
		),
	}
}
