package goods_receipt

import (
	"ledgercore/internal/domain/documents"
)

// Repository defines persistence for goods receipts.
type Repository interface {
	documents.Repository[*GoodsReceipt]
}
