package document_repo

import (
	"ledgercore/internal/core/entity"
	"ledgercore/internal/domain/documents/goods_issue"
	"ledgercore/internal/domain/documents/goods_receipt"
	"ledgercore/internal/domain/documents/invoice"
	"ledgercore/internal/domain/documents/payment"
	"ledgercore/internal/domain/documents/production_order"
	"ledgercore/internal/domain/documents/stockcount"
	"ledgercore/internal/infrastructure/storage/postgres"
)

// NewInvoiceRepo creates an invoice repository.
func NewInvoiceRepo(txManager *postgres.TxManager) invoice.Repository {
	return NewBaseDocumentRepo(txManager, "doc_invoices", "invoice",
		func() *invoice.Invoice { return &invoice.Invoice{} },
		func(v *invoice.Invoice) *entity.Document { return &v.Document })
}

// NewPaymentRepo creates a payment repository.
func NewPaymentRepo(txManager *postgres.TxManager) payment.Repository {
	return NewBaseDocumentRepo(txManager, "doc_payments", "payment",
		func() *payment.Payment { return &payment.Payment{} },
		func(v *payment.Payment) *entity.Document { return &v.Document })
}

// NewGoodsReceiptRepo creates a goods receipt repository.
func NewGoodsReceiptRepo(txManager *postgres.TxManager) goods_receipt.Repository {
	return NewBaseDocumentRepo(txManager, "doc_goods_receipts", "goods receipt",
		func() *goods_receipt.GoodsReceipt { return &goods_receipt.GoodsReceipt{} },
		func(v *goods_receipt.GoodsReceipt) *entity.Document { return &v.Document })
}

// NewGoodsIssueRepo creates a goods issue repository.
func NewGoodsIssueRepo(txManager *postgres.TxManager) goods_issue.Repository {
	return NewBaseDocumentRepo(txManager, "doc_goods_issues", "goods issue",
		func() *goods_issue.GoodsIssue { return &goods_issue.GoodsIssue{} },
		func(v *goods_issue.GoodsIssue) *entity.Document { return &v.Document })
}

// NewStockCountRepo creates a stock count repository.
func NewStockCountRepo(txManager *postgres.TxManager) stockcount.Repository {
	return NewBaseDocumentRepo(txManager, "doc_stock_counts", "stock count",
		func() *stockcount.StockCount { return &stockcount.StockCount{} },
		func(v *stockcount.StockCount) *entity.Document { return &v.Document })
}

// NewProductionOrderRepo creates a production order repository.
func NewProductionOrderRepo(txManager *postgres.TxManager) production_order.Repository {
	return NewBaseDocumentRepo(txManager, "doc_production_orders", "production order",
		func() *production_order.Order { return &production_order.Order{} },
		func(v *production_order.Order) *entity.Document { return &v.Document })
}
