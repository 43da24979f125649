package goods_issue

import (
	"ledgercore/internal/domain/documents"
)

// Repository defines persistence for goods issues.
type Repository interface {
	documents.Repository[*GoodsIssue]
}
