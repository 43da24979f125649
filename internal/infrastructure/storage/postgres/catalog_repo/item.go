package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"ledgercore/internal/core/apperror"
	"ledgercore/internal/core/entity"
	"ledgercore/internal/core/id"
	"ledgercore/internal/core/types"
	"ledgercore/internal/domain/catalogs/item"
	"ledgercore/internal/infrastructure/storage/postgres"
)

const itemTable = "cat_items"

// ItemRepo implements item.Repository.
type ItemRepo struct {
	*BaseCatalogRepo[*item.Item]
}

var _ item.Repository = (*ItemRepo)(nil)

// NewItemRepo creates an item repository. Update leaves stock untouched.
func NewItemRepo(txManager *postgres.TxManager) *ItemRepo {
	return &ItemRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(txManager, itemTable, "item",
			func() *item.Item { return &item.Item{} },
			func(v *item.Item) *entity.Catalog { return &v.Catalog },
			"stock",
		),
	}
}

func (r *ItemRepo) setStockQuery(itemID id.ID, qty types.Quantity) squirrel.UpdateBuilder {
	return r.Builder().
		Update(itemTable).
		Set("stock", qty).
		Where(squirrel.Eq{"id": itemID})
}

// SetStock implements item.Repository.
func (r *ItemRepo) SetStock(ctx context.Context, itemID id.ID, qty types.Quantity) error {
	sql, args, err := r.setStockQuery(itemID, qty).ToSql()
	if err != nil {
		return fmt.Errorf("build set stock: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("set stock: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("item", itemID.String())
	}
	return nil
}
