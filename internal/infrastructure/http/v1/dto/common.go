// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"time"

	"ledgercore/internal/core/id"
	"ledgercore/internal/domain"
	"ledgercore/internal/domain/documents"
)

// ListQuery holds the common list query parameters.
type ListQuery struct {
	Search         string `form:"search"`
	IncludeDeleted bool   `form:"includeDeleted"`
	Limit          int    `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset         int    `form:"offset" binding:"omitempty,min=0"`
}

// ToFilter converts to the catalog list filter.
func (q ListQuery) ToFilter() domain.ListFilter {
	f := domain.DefaultListFilter()
	f.Search = q.Search
	f.IncludeDeleted = q.IncludeDeleted
	if q.Limit > 0 {
		f.Limit = q.Limit
	}
	f.Offset = q.Offset
	return f
}

// DocumentListQuery adds document-specific filters.
type DocumentListQuery struct {
	ListQuery
	Posted   *bool      `form:"posted"`
	DateFrom *time.Time `form:"dateFrom" time_format:"2006-01-02"`
	DateTo   *time.Time `form:"dateTo" time_format:"2006-01-02"`
}

// ToFilter converts to the document list filter.
func (q DocumentListQuery) ToFilter() documents.ListFilter {
	return documents.ListFilter{
		ListFilter: q.ListQuery.ToFilter(),
		Posted:     q.Posted,
		DateFrom:   q.DateFrom,
		DateTo:     q.DateTo,
	}
}

// ListResponse wraps list results with pagination.
type ListResponse[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// FromListResult maps a domain list result.
func FromListResult[T any](r domain.ListResult[T]) ListResponse[T] {
	items := r.Items
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{
		Items:      items,
		TotalCount: r.TotalCount,
		Limit:      r.Limit,
		Offset:     r.Offset,
	}
}

// IDResponse for create operations.
type IDResponse struct {
	ID string `json:"id"`
}

// NewIDResponse creates ID response.
func NewIDResponse(i id.ID) IDResponse {
	return IDResponse{ID: i.String()}
}

// SuccessResponse for operations without data.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse for error details.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// dateOrNow returns d in UTC, or now when d is zero.
func dateOrNow(d time.Time) time.Time {
	if d.IsZero() {
		return time.Now().UTC()
	}
	return d.UTC()
}
