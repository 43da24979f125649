package memory

import (
	"context"
	"slices"
	"strings"

	"ledgercore/internal/core/apperror"
	"ledgercore/internal/core/entity"
	"ledgercore/internal/core/id"
	"ledgercore/internal/core/types"
	"ledgercore/internal/domain"
	"ledgercore/internal/domain/catalogs/account"
	"ledgercore/internal/domain/catalogs/bom"
	"ledgercore/internal/domain/catalogs/item"
)

// catalogRepo is the generic CRUD shared by all reference data.
type catalogRepo[T entity.Validatable] struct {
	store   *Store
	name    string
	table   func(st *state) *table[T]
	catalog func(v T) *entity.Catalog
}

func (r *catalogRepo[T]) Create(ctx context.Context, v T) error {
	c := r.catalog(v)
	stored, err := clone(v)
	if err != nil {
		return err
	}
	return r.store.write(func(st *state) error {
		t := r.table(st)
		if _, ok := t.get(c.ID); ok {
			return apperror.NewConflict(r.name + " already exists").WithDetail("id", c.ID)
		}
		for _, existing := range t.rows {
			if r.catalog(existing).Code == c.Code {
				return apperror.NewConflict(r.name + " code already exists").WithDetail("code", c.Code)
			}
		}
		t.put(c.ID, stored)
		return nil
	})
}

func (r *catalogRepo[T]) GetByID(ctx context.Context, key id.ID) (T, error) {
	var out T
	err := r.store.read(func(st *state) error {
		v, ok := r.table(st).get(key)
		if !ok {
			return apperror.NewNotFound(r.name, key.String())
		}
		var err error
		out, err = clone(v)
		return err
	})
	return out, err
}

func (r *catalogRepo[T]) GetByCode(ctx context.Context, code string) (T, error) {
	var out T
	err := r.store.read(func(st *state) error {
		for _, v := range r.table(st).all() {
			if r.catalog(v).Code == code {
				var err error
				out, err = clone(v)
				return err
			}
		}
		return apperror.NewNotFound(r.name, code)
	})
	return out, err
}

// Update stores v when its Version matches and bumps Version.
// keep, when set, copies fields Update must not change from the stored row.
func (r *catalogRepo[T]) update(ctx context.Context, v T, keep func(stored, next T)) error {
	c := r.catalog(v)
	return r.store.write(func(st *state) error {
		t := r.table(st)
		current, ok := t.get(c.ID)
		if !ok {
			return apperror.NewNotFound(r.name, c.ID.String())
		}
		if r.catalog(current).Version != c.Version {
			return apperror.NewConcurrentModification(r.name, c.ID.String())
		}
		next, err := clone(v)
		if err != nil {
			return err
		}
		if keep != nil {
			keep(current, next)
		}
		r.catalog(next).Version++
		t.put(c.ID, next)
		c.Version++
		return nil
	})
}

func (r *catalogRepo[T]) Update(ctx context.Context, v T) error {
	return r.update(ctx, v, nil)
}

func (r *catalogRepo[T]) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[T], error) {
	result := domain.ListResult[T]{Limit: filter.Limit, Offset: filter.Offset}
	search := strings.ToLower(filter.Search)
	err := r.store.read(func(st *state) error {
		var matched []T
		for _, v := range r.table(st).all() {
			c := r.catalog(v)
			if c.DeletionMark && !filter.IncludeDeleted {
				continue
			}
			if len(filter.IDs) > 0 && !slices.Contains(filter.IDs, c.ID) {
				continue
			}
			if search != "" &&
				!strings.Contains(strings.ToLower(c.Code), search) &&
				!strings.Contains(strings.ToLower(c.Name), search) {
				continue
			}
			matched = append(matched, v)
		}
		result.TotalCount = int64(len(matched))
		for _, v := range paginate(matched, filter.Limit, filter.Offset) {
			cp, err := clone(v)
			if err != nil {
				return err
			}
			result.Items = append(result.Items, cp)
		}
		return nil
	})
	return result, err
}

func paginate[T any](rows []T, limit, offset int) []T {
	if offset >= len(rows) {
		return nil
	}
	rows = rows[offset:]
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}

// --- Items ---

// ItemRepo implements item.Repository.
type ItemRepo struct {
	catalogRepo[*item.Item]
}

var _ item.Repository = (*ItemRepo)(nil)

// NewItemRepo creates an item repository.
func NewItemRepo(store *Store) *ItemRepo {
	return &ItemRepo{catalogRepo[*item.Item]{
		store:   store,
		name:    "item",
		table:   func(st *state) *table[*item.Item] { return st.items },
		catalog: func(v *item.Item) *entity.Catalog { return &v.Catalog },
	}}
}

// Update never changes Stock.
func (r *ItemRepo) Update(ctx context.Context, v *item.Item) error {
	return r.update(ctx, v, func(stored, next *item.Item) {
		next.Stock = stored.Stock
	})
}

// SetStock implements item.Repository.
func (r *ItemRepo) SetStock(ctx context.Context, itemID id.ID, qty types.Quantity) error {
	return r.store.write(func(st *state) error {
		current, ok := st.items.get(itemID)
		if !ok {
			return apperror.NewNotFound("item", itemID.String())
		}
		next := *current
		next.Stock = qty
		st.items.put(itemID, &next)
		return nil
	})
}

// --- Bills of materials ---

// BOMRepo implements bom.Repository.
type BOMRepo struct {
	catalogRepo[*bom.BOM]
}

var _ bom.Repository = (*BOMRepo)(nil)

// NewBOMRepo creates a BOM repository.
func NewBOMRepo(store *Store) *BOMRepo {
	return &BOMRepo{catalogRepo[*bom.BOM]{
		store:   store,
		name:    "bom",
		table:   func(st *state) *table[*bom.BOM] { return st.boms },
		catalog: func(v *bom.BOM) *entity.Catalog { return &v.Catalog },
	}}
}

// GetByItem implements bom.Repository: the last created active BOM wins.
func (r *BOMRepo) GetByItem(ctx context.Context, itemID id.ID) (*bom.BOM, error) {
	var out *bom.BOM
	err := r.store.read(func(st *state) error {
		rows := st.boms.all()
		for i := len(rows) - 1; i >= 0; i-- {
			if rows[i].ItemID == itemID && !rows[i].DeletionMark {
				var err error
				out, err = clone(rows[i])
				return err
			}
		}
		return apperror.NewNotFound("bom", itemID.String()).WithDetail("item_id", itemID.String())
	})
	return out, err
}

// --- Accounts ---

// AccountRepo implements account.Repository.
type AccountRepo struct {
	catalogRepo[*account.Account]
}

var _ account.Repository = (*AccountRepo)(nil)

// NewAccountRepo creates a chart-of-accounts repository.
func NewAccountRepo(store *Store) *AccountRepo {
	return &AccountRepo{catalogRepo[*account.Account]{
		store:   store,
		name:    "account",
		table:   func(st *state) *table[*account.Account] { return st.accounts },
		catalog: func(v *account.Account) *entity.Catalog { return &v.Catalog },
	}}
}
