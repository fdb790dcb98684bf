package domain

// PaginatedResult is a page of items plus the totals needed to render paging controls.
type PaginatedResult[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

// NewPaginatedResult builds a PaginatedResult, deriving TotalPages from total and limit.
func NewPaginatedResult[T any](items []T, total int64, page, limit int) PaginatedResult[T] {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	if items == nil {
		items = []T{}
	}
	return PaginatedResult[T]{
		Items:      items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}
}

// Paginate slices an in-memory result set for the given 1-based page.
func Paginate[T any](items []T, page, limit int) PaginatedResult[T] {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	total := int64(len(items))
	start := (page - 1) * limit
	if start > len(items) {
		start = len(items)
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return NewPaginatedResult(items[start:end], total, page, limit)
}
