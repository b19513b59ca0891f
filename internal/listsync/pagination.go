// Package listsync implements the list synchronization core used by every
// paginated resource view: query state, a fetch controller with
// stale-response suppression, debounced search input, pagination math,
// and single-item mutations with optimistic apply and rollback.
package listsync

import "math"

// Pagination holds the derived page navigation state for a list.
type Pagination struct {
	TotalPages  int
	ClampedPage int
	CanGoPrev   bool
	CanGoNext   bool
}

// ComputePagination derives the page count and boundary-clamped current
// page from the total item count and page size. TotalPages is at least 1
// even when totalCount is 0, and ClampedPage is forced into
// [1, TotalPages] so a stale page number after the dataset shrinks (e.g.
// after deletes) never points past the end.
func ComputePagination(totalCount, pageSize, currentPage int) Pagination {
	totalPages := 1
	if pageSize > 0 && totalCount > 0 {
		totalPages = int(math.Ceil(float64(totalCount) / float64(pageSize)))
	}

	page := currentPage
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	return Pagination{
		TotalPages:  totalPages,
		ClampedPage: page,
		CanGoPrev:   page > 1,
		CanGoNext:   page < totalPages,
	}
}
