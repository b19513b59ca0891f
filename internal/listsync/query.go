package listsync

import (
	"maps"
	"slices"
	"strconv"

	"github.com/simp-lee/dinesync/internal/domain"
)

// Sort orders.
const (
	OrderAscending  = "asc"
	OrderDescending = "desc"
)

const defaultPageSize = 10

// QueryState holds the filter/sort/page selection that determines which
// page of a resource is wanted. All setters report whether they changed
// anything; every change other than a page change resets the page to 1,
// so a new filter never requests an out-of-range page.
type QueryState struct {
	searchTerm string
	sortKey    string
	sortOrder  string
	filters    map[string]string
	page       int
	pageSize   int

	// numericFilters names filter fields whose values must parse as
	// non-negative numbers.
	numericFilters []string
}

// QueryOption customizes a new QueryState.
type QueryOption func(*QueryState)

// WithDefaultSort sets the initial sort key and order.
func WithDefaultSort(key, order string) QueryOption {
	return func(q *QueryState) {
		q.sortKey = key
		if order == OrderAscending || order == OrderDescending {
			q.sortOrder = order
		}
	}
}

// WithPageSize sets the fixed page size for the resource.
func WithPageSize(size int) QueryOption {
	return func(q *QueryState) {
		if size > 0 {
			q.pageSize = size
		}
	}
}

// WithNumericFilters declares filter fields that must hold non-negative
// numeric values (e.g. minPrice, maxPrice).
func WithNumericFilters(names ...string) QueryOption {
	return func(q *QueryState) {
		q.numericFilters = append(q.numericFilters, names...)
	}
}

// NewQueryState creates a QueryState at page 1 with the given options.
func NewQueryState(opts ...QueryOption) *QueryState {
	q := &QueryState{
		sortOrder: OrderDescending,
		filters:   make(map[string]string),
		page:      1,
		pageSize:  defaultPageSize,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// SetSearch updates the free-text search term. Returns true if the term
// changed; the page is reset to 1 on change.
func (q *QueryState) SetSearch(term string) bool {
	if q.searchTerm == term {
		return false
	}
	q.searchTerm = term
	q.page = 1
	return true
}

// SetSort updates the sort key and order. Invalid orders are rejected.
// The page is reset to 1 on change.
func (q *QueryState) SetSort(key, order string) (bool, error) {
	if order != OrderAscending && order != OrderDescending {
		return false, domain.NewValidationError("sort order must be asc or desc")
	}
	if q.sortKey == key && q.sortOrder == order {
		return false, nil
	}
	q.sortKey = key
	q.sortOrder = order
	q.page = 1
	return true, nil
}

// SetFilter updates a named filter. An empty value removes the filter so
// it is omitted from outgoing requests rather than sent as an empty
// string. Numeric filter fields reject negative or non-numeric values.
// The page is reset to 1 on change.
func (q *QueryState) SetFilter(name, value string) (bool, error) {
	if value != "" && slices.Contains(q.numericFilters, name) {
		n, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return false, domain.NewValidationError(name + " must be a number")
		}
		if n < 0 {
			return false, domain.NewValidationError(name + " must not be negative")
		}
	}

	if value == "" {
		if _, ok := q.filters[name]; !ok {
			return false, nil
		}
		delete(q.filters, name)
		q.page = 1
		return true, nil
	}

	if q.filters[name] == value {
		return false, nil
	}
	q.filters[name] = value
	q.page = 1
	return true, nil
}

// SetPage moves to the given page, clamping below 1 to 1. Unlike every
// other setter it does not reset the page.
func (q *QueryState) SetPage(page int) bool {
	if page < 1 {
		page = 1
	}
	if q.page == page {
		return false
	}
	q.page = page
	return true
}

// Page returns the current page number.
func (q *QueryState) Page() int { return q.page }

// PageSize returns the fixed page size.
func (q *QueryState) PageSize() int { return q.pageSize }

// SearchTerm returns the current free-text search term.
func (q *QueryState) SearchTerm() string { return q.searchTerm }

// Params serializes the state into request parameters. Empty fields are
// omitted entirely.
func (q *QueryState) Params() map[string]string {
	params := map[string]string{
		"page":  strconv.Itoa(q.page),
		"limit": strconv.Itoa(q.pageSize),
	}
	if q.searchTerm != "" {
		params["search"] = q.searchTerm
	}
	if q.sortKey != "" {
		params["sortBy"] = q.sortKey
		params["order"] = q.sortOrder
	}
	for name, value := range q.filters {
		if value != "" {
			params[name] = value
		}
	}
	return params
}

// clone returns an independent copy, used by the controller to snapshot
// the state an in-flight request was issued with.
func (q *QueryState) clone() *QueryState {
	cp := *q
	cp.filters = maps.Clone(q.filters)
	cp.numericFilters = slices.Clone(q.numericFilters)
	return &cp
}
