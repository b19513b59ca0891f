package devserver

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
)

// listQuery is the parsed form of the wire parameters every list
// endpoint accepts: search, sortBy, order, page, limit, plus the
// resource-specific filters.
type listQuery struct {
	Search   string
	SortBy   string
	Order    string
	Page     int
	Limit    int
	Category string
	MinPrice *float64
	MaxPrice *float64
	Status   string
}

// validFieldName matches only alphanumeric characters and underscores.
var validFieldName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// parseListQuery extracts the list parameters from the request. Unknown
// or malformed values fall back to defaults rather than erroring; the
// client is trusted to be sloppy.
func parseListQuery(c *gin.Context) listQuery {
	q := listQuery{
		Search:   strings.TrimSpace(c.Query("search")),
		SortBy:   strings.TrimSpace(c.Query("sortBy")),
		Order:    strings.ToLower(strings.TrimSpace(c.Query("order"))),
		Category: strings.TrimSpace(c.Query("category")),
		Status:   strings.TrimSpace(c.Query("status")),
	}

	q.Page, _ = strconv.Atoi(c.DefaultQuery("page", strconv.Itoa(defaultPage)))
	if q.Page < 1 {
		q.Page = defaultPage
	}
	q.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if q.Limit < 1 {
		q.Limit = defaultLimit
	}
	if q.Limit > maxLimit {
		q.Limit = maxLimit
	}

	if q.Order != "asc" && q.Order != "desc" {
		q.Order = "desc"
	}

	if v := c.Query("minPrice"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			q.MinPrice = &f
		}
	}
	if v := c.Query("maxPrice"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			q.MaxPrice = &f
		}
	}

	return q
}

// paginate returns a GORM scope applying LIMIT and OFFSET.
func paginate(q listQuery) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		offset := (q.Page - 1) * q.Limit
		return db.Offset(offset).Limit(q.Limit)
	}
}

// sortBy returns a GORM scope applying ORDER BY. The client's sort keys
// are mapped to columns through the given table; keys outside it are
// silently ignored. Column names pass a strict pattern check so no
// client input ever reaches the ORDER BY clause raw.
func sortBy(q listQuery, columns map[string]string, fallback string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		column, ok := columns[q.SortBy]
		if !ok {
			column = fallback
		}
		if column == "" || !validFieldName.MatchString(column) {
			return db
		}
		return db.Order(column + " " + q.Order)
	}
}

// searchIn returns a GORM scope applying a case-insensitive LIKE across
// the given columns, OR-combined. A blank search term is a no-op.
func searchIn(q listQuery, columns ...string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if q.Search == "" {
			return db
		}
		pattern := "%" + strings.ToLower(q.Search) + "%"

		var clauses []string
		var args []any
		for _, col := range columns {
			if !validFieldName.MatchString(col) {
				continue
			}
			clauses = append(clauses, "lower("+col+") LIKE ?")
			args = append(args, pattern)
		}
		if len(clauses) == 0 {
			return db
		}
		return db.Where(strings.Join(clauses, " OR "), args...)
	}
}

// mealFilters returns a GORM scope applying the category and price-band
// filters of the meals collection.
func mealFilters(q listQuery) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if q.Category != "" {
			db = db.Where("category = ?", q.Category)
		}
		if q.MinPrice != nil {
			db = db.Where("price >= ?", *q.MinPrice)
		}
		if q.MaxPrice != nil {
			db = db.Where("price <= ?", *q.MaxPrice)
		}
		return db
	}
}

// statusFilter returns a GORM scope restricting the serve queue by
// request status.
func statusFilter(q listQuery) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if q.Status == "" {
			return db
		}
		return db.Where("status = ?", q.Status)
	}
}
