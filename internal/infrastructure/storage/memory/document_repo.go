package memory

import (
	"context"
	"slices"
	"strings"

	"ledgercore/internal/core/apperror"
	"ledgercore/internal/core/entity"
	"ledgercore/internal/core/id"
	"ledgercore/internal/domain"
	"ledgercore/internal/domain/documents"
	"ledgercore/internal/domain/documents/goods_issue"
	"ledgercore/internal/domain/documents/goods_receipt"
	"ledgercore/internal/domain/documents/invoice"
	"ledgercore/internal/domain/documents/payment"
	"ledgercore/internal/domain/documents/production_order"
	"ledgercore/internal/domain/documents/stockcount"
)

// DocumentRepo is the generic document repository.
type DocumentRepo[T entity.Validatable] struct {
	store    *Store
	name     string
	table    func(st *state) *table[T]
	document func(v T) *entity.Document
}

func (r *DocumentRepo[T]) Create(ctx context.Context, v T) error {
	d := r.document(v)
	stored, err := clone(v)
	if err != nil {
		return err
	}
	return r.store.write(func(st *state) error {
		t := r.table(st)
		if _, ok := t.get(d.ID); ok {
			return apperror.NewConflict(r.name + " already exists").WithDetail("id", d.ID)
		}
		t.put(d.ID, stored)
		return nil
	})
}

func (r *DocumentRepo[T]) GetByID(ctx context.Context, docID id.ID) (T, error) {
	var out T
	err := r.store.read(func(st *state) error {
		v, ok := r.table(st).get(docID)
		if !ok {
			return apperror.NewNotFound(r.name, docID.String())
		}
		var err error
		out, err = clone(v)
		return err
	})
	return out, err
}

func (r *DocumentRepo[T]) Update(ctx context.Context, v T) error {
	d := r.document(v)
	return r.store.write(func(st *state) error {
		t := r.table(st)
		current, ok := t.get(d.ID)
		if !ok {
			return apperror.NewNotFound(r.name, d.ID.String())
		}
		if r.document(current).Version != d.Version {
			return apperror.NewConcurrentModification(r.name, d.ID.String())
		}
		next, err := clone(v)
		if err != nil {
			return err
		}
		r.document(next).Version++
		t.put(d.ID, next)
		d.Version++
		return nil
	})
}

func (r *DocumentRepo[T]) List(ctx context.Context, filter documents.ListFilter) (domain.ListResult[T], error) {
	result := domain.ListResult[T]{Limit: filter.Limit, Offset: filter.Offset}
	search := strings.ToLower(filter.Search)
	err := r.store.read(func(st *state) error {
		var matched []T
		for _, v := range r.table(st).all() {
			d := r.document(v)
			switch {
			case d.DeletionMark && !filter.IncludeDeleted:
				continue
			case len(filter.IDs) > 0 && !slices.Contains(filter.IDs, d.ID):
				continue
			case search != "" && !strings.Contains(strings.ToLower(d.Number), search):
				continue
			case filter.Posted != nil && d.Posted != *filter.Posted:
				continue
			case filter.DateFrom != nil && d.Date.Before(*filter.DateFrom):
				continue
			case filter.DateTo != nil && d.Date.After(*filter.DateTo):
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

func newDocumentRepo[T entity.Validatable](store *Store, name string, tbl func(*state) *table[T], doc func(T) *entity.Document) *DocumentRepo[T] {
	return &DocumentRepo[T]{store: store, name: name, table: tbl, document: doc}
}

// NewInvoiceRepo creates an invoice repository.
func NewInvoiceRepo(store *Store) invoice.Repository {
	return newDocumentRepo(store, "invoice",
		func(st *state) *table[*invoice.Invoice] { return st.invoices },
		func(v *invoice.Invoice) *entity.Document { return &v.Document })
}

// NewPaymentRepo creates a payment repository.
func NewPaymentRepo(store *Store) payment.Repository {
	return newDocumentRepo(store, "payment",
		func(st *state) *table[*payment.Payment] { return st.payments },
		func(v *payment.Payment) *entity.Document { return &v.Document })
}

// NewGoodsReceiptRepo creates a goods receipt repository.
func NewGoodsReceiptRepo(store *Store) goods_receipt.Repository {
	return newDocumentRepo(store, "goods receipt",
		func(st *state) *table[*goods_receipt.GoodsReceipt] { return st.receipts },
		func(v *goods_receipt.GoodsReceipt) *entity.Document { return &v.Document })
}

// NewGoodsIssueRepo creates a goods issue repository.
func NewGoodsIssueRepo(store *Store) goods_issue.Repository {
	return newDocumentRepo(store, "goods issue",
		func(st *state) *table[*goods_issue.GoodsIssue] { return st.issues },
		func(v *goods_issue.GoodsIssue) *entity.Document { return &v.Document })
}

// NewStockCountRepo creates a stock count repository.
func NewStockCountRepo(store *Store) stockcount.Repository {
	return newDocumentRepo(store, "stock count",
		func(st *state) *table[*stockcount.StockCount] { return st.counts },
		func(v *stockcount.StockCount) *entity.Document { return &v.Document })
}

// NewProductionOrderRepo creates a production order repository.
func NewProductionOrderRepo(store *Store) production_order.Repository {
	return newDocumentRepo(store, "production order",
		func(st *state) *table[*production_order.Order] { return st.orders },
		func(v *production_order.Order) *entity.Document { return &v.Document })
}
