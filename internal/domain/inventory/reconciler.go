// Package inventory turns receipts, shipments and stock counts into stock
// movements and the matching valuation entries in the ledger.
package inventory

import (
	"context"
	"fmt"

	"ledgercore/internal/core/apperror"
	appctx "ledgercore/internal/core/context"
	"ledgercore/internal/core/entity"
	"ledgercore/internal/core/id"
	"ledgercore/internal/core/lock"
	"ledgercore/internal/core/numerator"
	"ledgercore/internal/core/types"
	"ledgercore/internal/domain/catalogs/item"
	"ledgercore/internal/domain/documents/goods_issue"
	"ledgercore/internal/domain/documents/goods_receipt"
	"ledgercore/internal/domain/documents/stockcount"
	"ledgercore/internal/domain/ledger"
	"ledgercore/internal/domain/posting"
	"ledgercore/pkg/logger"
)

// SourceModule tags ledger entries written by the reconciler.
const SourceModule = "inventory"

// Config holds the posting accounts and number series.
type Config struct {
	// ClearingAccount is credited by goods receipts (goods received, not invoiced).
	ClearingAccount string

	// VarianceAccount absorbs stock count differences.
	VarianceAccount string

	// Fallbacks for items without their own accounts.
	DefaultValuationAccount string
	DefaultCOGSAccount      string

	ReceiptNumbers numerator.Config
	IssueNumbers   numerator.Config
	CountNumbers   numerator.Config
}

// DefaultConfig returns the standard chart codes and number series.
func DefaultConfig() Config {
	return Config{
		ClearingAccount:         "2150",
		VarianceAccount:         "5900",
		DefaultValuationAccount: "1300",
		DefaultCOGSAccount:      "5000",
		ReceiptNumbers:          numerator.DefaultConfig("GR"),
		IssueNumbers:            numerator.DefaultConfig("GI"),
		CountNumbers:            numerator.DefaultConfig("SC"),
	}
}

// Reconciler posts inventory documents.
type Reconciler struct {
	engine   *posting.Engine
	items    item.Repository
	receipts goods_receipt.Repository
	issues   goods_issue.Repository
	counts   stockcount.Repository
	numbers  numerator.Generator
	cfg      Config
}

// NewReconciler creates an inventory reconciler.
func NewReconciler(
	engine *posting.Engine,
	items item.Repository,
	receipts goods_receipt.Repository,
	issues goods_issue.Repository,
	counts stockcount.Repository,
	numbers numerator.Generator,
	cfg Config,
) *Reconciler {
	return &Reconciler{
		engine:   engine,
		items:    items,
		receipts: receipts,
		issues:   issues,
		counts:   counts,
		numbers:  numbers,
		cfg:      cfg,
	}
}

// valuation accumulates signed amounts per item in first-seen order.
type valuation struct {
	order  []id.ID
	items  map[id.ID]*item.Item
	amount map[id.ID]types.Money
}

func newValuation() *valuation {
	return &valuation{items: make(map[id.ID]*item.Item), amount: make(map[id.ID]types.Money)}
}

func (v *valuation) add(it *item.Item, amount types.Money) {
	if _, ok := v.items[it.ID]; !ok {
		v.order = append(v.order, it.ID)
		v.items[it.ID] = it
		v.amount[it.ID] = types.Zero()
	}
	v.amount[it.ID] = v.amount[it.ID].Add(amount)
}

func (v *valuation) net() types.Money {
	total := types.Zero()
	for _, itemID := range v.order {
		total = total.Add(v.amount[itemID])
	}
	return total
}

func (r *Reconciler) valuationAccount(it *item.Item) string {
	if it.ValuationAccount != "" {
		return it.ValuationAccount
	}
	return r.cfg.DefaultValuationAccount
}

func (r *Reconciler) cogsAccount(it *item.Item) string {
	if it.COGSAccount != "" {
		return it.COGSAccount
	}
	return r.cfg.DefaultCOGSAccount
}

func itemKeys(docID id.ID, itemIDs []id.ID) []string {
	keys := make([]string, 0, len(itemIDs)+1)
	keys = append(keys, lock.DocumentKey(docID.String()))
	for _, itemID := range itemIDs {
		keys = append(keys, lock.ItemKey(itemID.String()))
	}
	return keys
}

// loadItems reads each item once.
func (r *Reconciler) loadItems(ctx context.Context, itemIDs []id.ID) (map[id.ID]*item.Item, error) {
	out := make(map[id.ID]*item.Item, len(itemIDs))
	for _, itemID := range itemIDs {
		it, err := r.items.GetByID(ctx, itemID)
		if err != nil {
			return nil, fmt.Errorf("load item %s: %w", itemID, err)
		}
		out[itemID] = it
	}
	return out, nil
}

func sourceEntry(doc *entity.Document, description string) *ledger.Entry {
	docID := doc.ID
	e := ledger.NewEntry(doc.Date, description, SourceModule)
	e.DocumentNumber = doc.Number
	e.SourceDocumentID = &docID
	return e
}

// postedPayload is marshaled when the outbox is written, after the document
// save has linked the ledger sequence.
type postedPayload struct {
	*entity.Document
	Lines int `json:"lines"`
}

func postedEvent(docType string, doc *entity.Document, eventType string, lines int) posting.Event {
	return posting.Event{
		AggregateType: docType,
		AggregateID:   doc.ID,
		EventType:     eventType,
		Payload:       postedPayload{Document: doc, Lines: lines},
	}
}

// Receive increments stock for every line, records one in movement per
// line and debits each item's valuation account against the clearing account.
func (r *Reconciler) Receive(ctx context.Context, doc *goods_receipt.GoodsReceipt) error {
	if err := doc.Validate(ctx); err != nil {
		return err
	}
	if err := doc.CanPost(goods_receipt.DocumentType); err != nil {
		return err
	}

	return r.engine.Run(ctx, "goods_receipt.post", itemKeys(doc.ID, doc.ItemIDs()), func(ctx context.Context, uow *posting.UnitOfWork) error {
		stored, err := existing(ctx, r.receipts.GetByID, goods_receipt.DocumentType, &doc.Document,
			func(d *goods_receipt.GoodsReceipt) *entity.Document { return &d.Document })
		if err != nil {
			return err
		}
		items, err := r.loadItems(ctx, doc.ItemIDs())
		if err != nil {
			return err
		}
		if err := numerator.Assign(ctx, r.numbers, r.cfg.ReceiptNumbers, &doc.Number, doc.Date); err != nil {
			return err
		}

		value := newValuation()
		for _, line := range doc.Lines {
			it := items[line.ItemID]
			uow.AddMovement(entity.NewInventoryMovement(doc.ID, goods_receipt.DocumentType, doc.Date, it.ID, line.Quantity))
			unitCost := it.StandardCost
			if line.UnitCost != nil {
				unitCost = *line.UnitCost
			}
			value.add(it, line.Quantity.Value(unitCost))
		}

		var entry *ledger.Entry
		if net := value.net(); !net.IsZero() {
			entry = sourceEntry(&doc.Document, "Goods receipt "+doc.Number)
			for _, itemID := range value.order {
				it := value.items[itemID]
				if amount := value.amount[itemID]; !amount.IsZero() {
					entry.Debit(r.valuationAccount(it), amount, it.Code)
				}
			}
			entry.Credit(r.cfg.ClearingAccount, net, "goods received")
			uow.AppendEntry(entry)
		}

		uow.Save(func(ctx context.Context) error {
			doc.MarkPosted(entrySequence(entry))
			if stored {
				return r.receipts.Update(ctx, doc)
			}
			return r.receipts.Create(ctx, doc)
		})
		uow.Emit(postedEvent(goods_receipt.DocumentType, &doc.Document, "goods_receipt.posted", len(doc.Lines)))
		return nil
	})
}

// Ship decrements stock for every line. It fails with INSUFFICIENT_STOCK,
// writing nothing, when an item would go negative and negative stock is
// not allowed. Shipped goods are valued at standard cost.
func (r *Reconciler) Ship(ctx context.Context, doc *goods_issue.GoodsIssue) error {
	if err := doc.Validate(ctx); err != nil {
		return err
	}
	if err := doc.CanPost(goods_issue.DocumentType); err != nil {
		return err
	}

	return r.engine.Run(ctx, "goods_issue.post", itemKeys(doc.ID, doc.ItemIDs()), func(ctx context.Context, uow *posting.UnitOfWork) error {
		stored, err := existing(ctx, r.issues.GetByID, goods_issue.DocumentType, &doc.Document,
			func(d *goods_issue.GoodsIssue) *entity.Document { return &d.Document })
		if err != nil {
			return err
		}
		items, err := r.loadItems(ctx, doc.ItemIDs())
		if err != nil {
			return err
		}
		if err := numerator.Assign(ctx, r.numbers, r.cfg.IssueNumbers, &doc.Number, doc.Date); err != nil {
			return err
		}

		value := newValuation()
		for _, line := range doc.Lines {
			it := items[line.ItemID]
			uow.AddMovement(entity.NewInventoryMovement(doc.ID, goods_issue.DocumentType, doc.Date, it.ID, line.Quantity.Neg()))
			value.add(it, line.Quantity.Value(it.StandardCost))
		}

		var entry *ledger.Entry
		if net := value.net(); !net.IsZero() {
			entry = sourceEntry(&doc.Document, "Goods issue "+doc.Number)
			for _, itemID := range value.order {
				it := value.items[itemID]
				if amount := value.amount[itemID]; !amount.IsZero() {
					entry.Debit(r.cogsAccount(it), amount, it.Code)
					entry.Credit(r.valuationAccount(it), amount, it.Code)
				}
			}
			uow.AppendEntry(entry)
		}

		uow.Save(func(ctx context.Context) error {
			doc.MarkPosted(entrySequence(entry))
			if stored {
				return r.issues.Update(ctx, doc)
			}
			return r.issues.Create(ctx, doc)
		})
		uow.Emit(postedEvent(goods_issue.DocumentType, &doc.Document, "goods_issue.posted", len(doc.Lines)))
		return nil
	})
}

// OpenStockCount creates a draft count capturing current stock as the book
// quantity of each item.
func (r *Reconciler) OpenStockCount(ctx context.Context, itemIDs []id.ID) (*stockcount.StockCount, error) {
	itemIDs = id.Unique(itemIDs...)
	if len(itemIDs) == 0 {
		return nil, apperror.NewValidation("at least one item is required").
			WithDetail("field", "itemIds")
	}

	count := stockcount.NewStockCount()
	err := r.engine.Run(ctx, "stock_count.open", itemKeys(count.ID, itemIDs), func(ctx context.Context, uow *posting.UnitOfWork) error {
		items, err := r.loadItems(ctx, itemIDs)
		if err != nil {
			return err
		}
		for _, itemID := range itemIDs {
			count.AddLine(itemID, items[itemID].Stock)
		}
		if err := numerator.Assign(ctx, r.numbers, r.cfg.CountNumbers, &count.Number, count.Date); err != nil {
			return err
		}
		uow.Save(func(ctx context.Context) error {
			return r.counts.Create(ctx, count)
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return count, nil
}

// SetCounted records the physical quantity of one line of a draft count.
func (r *Reconciler) SetCounted(ctx context.Context, countID id.ID, lineNo int, counted types.Quantity) (*stockcount.StockCount, error) {
	var out *stockcount.StockCount
	err := r.engine.Run(ctx, "stock_count.set_counted", []string{lock.DocumentKey(countID.String())}, func(ctx context.Context, uow *posting.UnitOfWork) error {
		count, err := r.counts.GetByID(ctx, countID)
		if err != nil {
			return err
		}
		if err := count.SetCounted(lineNo, counted, appctx.GetActorID(ctx)); err != nil {
			return err
		}
		count.Touch()
		uow.Save(func(ctx context.Context) error {
			return r.counts.Update(ctx, count)
		})
		out = count
		return nil
	})
	return out, err
}

// PostStockCount applies every counted, nonzero variance to stock and
// writes one entry valuing the variances at standard cost: one line per
// item on its valuation account plus one balancing line on the variance
// account. A net value of exactly zero writes no entry. The count moves to
// posted exactly once.
func (r *Reconciler) PostStockCount(ctx context.Context, count *stockcount.StockCount) error {
	if count.Status == "" {
		count.Status = stockcount.StatusDraft
	}
	if err := count.Validate(ctx); err != nil {
		return err
	}
	if count.Status != stockcount.StatusDraft {
		return apperror.NewDocumentPosted(stockcount.DocumentType, count.ID.String())
	}

	return r.engine.Run(ctx, "stock_count.post", itemKeys(count.ID, count.ItemIDs()), func(ctx context.Context, uow *posting.UnitOfWork) error {
		stored, err := r.counts.GetByID(ctx, count.ID)
		switch {
		case err == nil:
			if stored.Status != stockcount.StatusDraft {
				return apperror.NewDocumentPosted(stockcount.DocumentType, count.ID.String())
			}
			count.Version = stored.Version
		case apperror.IsNotFound(err):
			stored = nil
		default:
			return err
		}

		items, err := r.loadItems(ctx, count.ItemIDs())
		if err != nil {
			return err
		}
		if err := numerator.Assign(ctx, r.numbers, r.cfg.CountNumbers, &count.Number, count.Date); err != nil {
			return err
		}

		value := newValuation()
		adjusted := 0
		for _, line := range count.Lines {
			variance, counted := line.Variance()
			if !counted || variance.IsZero() {
				continue
			}
			it := items[line.ItemID]
			uow.AddMovement(entity.NewInventoryMovement(count.ID, stockcount.DocumentType, count.Date, it.ID, variance))
			value.add(it, variance.Value(it.StandardCost))
			adjusted++
		}

		var entry *ledger.Entry
		if net := value.net(); !net.IsZero() {
			entry = sourceEntry(&count.Document, "Stock count "+count.Number)
			for _, itemID := range value.order {
				it := value.items[itemID]
				if amount := value.amount[itemID]; !amount.IsZero() {
					entry.Signed(r.valuationAccount(it), amount, it.Code)
				}
			}
			entry.Signed(r.cfg.VarianceAccount, net.Neg(), "stock count variance")
			uow.AppendEntry(entry)
		} else if adjusted > 0 {
			logger.Info(ctx, "stock count variances net to zero, no ledger entry",
				"count_id", count.ID, "adjusted_lines", adjusted)
		}

		count.Status = stockcount.StatusPosted
		uow.Save(func(ctx context.Context) error {
			count.MarkPosted(entrySequence(entry))
			if stored != nil {
				return r.counts.Update(ctx, count)
			}
			return r.counts.Create(ctx, count)
		})
		uow.Audit(posting.AuditRecord{
			EntityType: stockcount.DocumentType,
			EntityID:   count.ID,
			Action:     "post",
			Changes: map[string]any{
				"adjusted_lines": adjusted,
				"net_value":      value.net().String(),
			},
		})
		uow.Emit(postedEvent(stockcount.DocumentType, &count.Document, "stock_count.posted", adjusted))
		return nil
	})
}

// GetReceipt returns one goods receipt.
func (r *Reconciler) GetReceipt(ctx context.Context, docID id.ID) (*goods_receipt.GoodsReceipt, error) {
	return r.receipts.GetByID(ctx, docID)
}

// GetIssue returns one goods issue.
func (r *Reconciler) GetIssue(ctx context.Context, docID id.ID) (*goods_issue.GoodsIssue, error) {
	return r.issues.GetByID(ctx, docID)
}

// GetStockCount returns one count.
func (r *Reconciler) GetStockCount(ctx context.Context, countID id.ID) (*stockcount.StockCount, error) {
	return r.counts.GetByID(ctx, countID)
}

// existing reports whether a document is already stored. Posted documents
// are rejected; otherwise target takes the stored version.
func existing[T any](
	ctx context.Context,
	get func(context.Context, id.ID) (T, error),
	docType string,
	target *entity.Document,
	doc func(T) *entity.Document,
) (bool, error) {
	v, err := get(ctx, target.ID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	stored := doc(v)
	if stored.Posted {
		return true, apperror.NewDocumentPosted(docType, target.ID.String())
	}
	target.Version = stored.Version
	return true, nil
}

func entrySequence(e *ledger.Entry) *int64 {
	if e == nil {
		return nil
	}
	seq := e.Sequence
	return &seq
}
