package catalog_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"ledgercore/internal/core/entity"
	"ledgercore/internal/core/id"
	"ledgercore/internal/domain/catalogs/bom"
	"ledgercore/internal/infrastructure/storage/postgres"
)

// BOMRepo implements bom.Repository.
type BOMRepo struct {
	*BaseCatalogRepo[*bom.BOM]
}

var _ bom.Repository = (*BOMRepo)(nil)

// NewBOMRepo creates a bill of materials repository.
func NewBOMRepo(txManager *postgres.TxManager) *BOMRepo {
	return &BOMRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(txManager, "cat_boms", "bom",
			func() *bom.BOM { return &bom.BOM{} },
			func(v *bom.BOM) *entity.Catalog { return &v.Catalog },
			"item_id",
		),
	}
}

// byItemQuery picks the most recently created active BOM of an item.
func (r *BOMRepo) byItemQuery(itemID id.ID) squirrel.SelectBuilder {
	return r.baseSelect().
		Where(squirrel.Eq{"item_id": itemID, "deletion_mark": false}).
		OrderBy("created_seq DESC").
		Limit(1)
}

// GetByItem implements bom.Repository.
func (r *BOMRepo) GetByItem(ctx context.Context, itemID id.ID) (*bom.BOM, error) {
	b, err := r.FindOne(ctx, r.byItemQuery(itemID), itemID.String())
	if err != nil {
		return nil, err
	}
	return b, nil
}
