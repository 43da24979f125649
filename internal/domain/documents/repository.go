// Package documents holds the repository contract shared by business documents.
package documents

import (
	"context"
	"time"

	"ledgercore/internal/core/entity"
	"ledgercore/internal/core/id"
	"ledgercore/internal/domain"
)

// Repository defines persistence for one document type.
type Repository[T entity.Validatable] interface {
	Create(ctx context.Context, doc T) error

	// GetByID returns a NotFound AppError when absent.
	GetByID(ctx context.Context, docID id.ID) (T, error)

	// Update stores doc with optimistic locking on Version.
	Update(ctx context.Context, doc T) error

	List(ctx context.Context, filter ListFilter) (domain.ListResult[T], error)
}

// ListFilter for filtering documents.
type ListFilter struct {
	domain.ListFilter

	Posted   *bool
	DateFrom *time.Time
	DateTo   *time.Time
}
