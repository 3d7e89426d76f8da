package shared

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the base interface for aggregate persistence
type Repository[T AggregateRoot] interface {
	FindByID(ctx context.Context, id uuid.UUID) (T, error)
	Save(ctx context.Context, aggregate T) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Pagination holds common list pagination and ordering parameters.
// SortBy and SortOrder are validated against per-table whitelists in
// the persistence layer before reaching a query.
type Pagination struct {
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Offset returns the query offset for the page
func (p Pagination) Offset() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}

// Limit returns the query limit, defaulting to 20 and capping at 100
func (p Pagination) Limit() int {
	if p.PageSize <= 0 {
		return 20
	}
	if p.PageSize > 100 {
		return 100
	}
	return p.PageSize
}
