// Package lookup holds the customer search backends used by the search popup.
package lookup

import (
	"context"

	"deskglue/internal/domain"
)

// DefaultLimit caps the number of rows a backend returns
const DefaultLimit = 20

// Func is the lookup collaborator consumed by the search widget.
// It is called at most once per issued request and must not mutate widget state.
type Func func(ctx context.Context, query string) ([]domain.SearchResult, error)

// Backend is a customer source
type Backend interface {
	Search(ctx context.Context, query string) ([]domain.SearchResult, error)
	Details(ctx context.Context, id string) (*domain.Customer, error)
	AMCReport(ctx context.Context, filters domain.ReportFilters) ([]domain.AMCRow, error)
}

// SearchFunc adapts a backend to a Func
func SearchFunc(b Backend) Func {
	return b.Search
}
