package memory

import (
	"time"

	"ledgercore/internal/core/numerator"
	"ledgercore/internal/domain/documents/goods_issue"
	"ledgercore/internal/domain/documents/goods_receipt"
	"ledgercore/internal/domain/documents/invoice"
	"ledgercore/internal/domain/documents/payment"
	"ledgercore/internal/domain/documents/production_order"
	"ledgercore/internal/domain/documents/stockcount"
)

// Backend bundles every in-memory repository over one Store.
type Backend struct {
	Store     *Store
	TxManager *TxManager

	Items     *ItemRepo
	BOMs      *BOMRepo
	Accounts  *AccountRepo
	Ledger    *LedgerRepo
	Movements *MovementRepo

	Invoices         invoice.Repository
	Payments         payment.Repository
	GoodsReceipts    goods_receipt.Repository
	GoodsIssues      goods_issue.Repository
	StockCounts      stockcount.Repository
	ProductionOrders production_order.Repository

	Outbox    *Outbox
	Audit     *AuditLog
	Numerator *numerator.MemoryGenerator

	Idempotency *IdempotencyStore
}

// New creates an empty in-memory backend.
func New() *Backend {
	store := NewStore()
	return &Backend{
		Store:            store,
		TxManager:        NewTxManager(store),
		Items:            NewItemRepo(store),
		BOMs:             NewBOMRepo(store),
		Accounts:         NewAccountRepo(store),
		Ledger:           NewLedgerRepo(store),
		Movements:        NewMovementRepo(store),
		Invoices:         NewInvoiceRepo(store),
		Payments:         NewPaymentRepo(store),
		GoodsReceipts:    NewGoodsReceiptRepo(store),
		GoodsIssues:      NewGoodsIssueRepo(store),
		StockCounts:      NewStockCountRepo(store),
		ProductionOrders: NewProductionOrderRepo(store),
		Outbox:           NewOutbox(store),
		Audit:            NewAuditLog(store),
		Numerator:        numerator.NewMemoryGenerator(),
		Idempotency:      NewIdempotencyStore(24 * time.Hour),
	}
}
