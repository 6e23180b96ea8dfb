package catalog

import "github.com/goliatone/go-catalog-cache/query"

// Page is one page of results with metadata from a dedicated count query.
type Page[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// NewPage assembles page metadata. total is the number of records matching
// the filter across all pages, never len(items).
func NewPage[T any](items []T, total int64, p query.Pagination) Page[T] {
	if items == nil {
		items = []T{}
	}

	pages := 0
	if p.PageSize > 0 {
		pages = int((total + int64(p.PageSize) - 1) / int64(p.PageSize))
	}

	return Page[T]{
		Items:      items,
		Total:      total,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: pages,
		HasNext:    p.Page < pages,
		HasPrev:    p.Page > 1,
	}
}
