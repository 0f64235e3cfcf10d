package product

import (
	"net/url"
	"strconv"

	"github.com/go-faster/errors"
)

// ErrInvalidPagination is returned for non-positive page or limit values.
var ErrInvalidPagination = errors.New("page and limit must be positive integers")

// SortField names a sortable product attribute.
type SortField string

const (
	SortName      SortField = "name"
	SortPrice     SortField = "price"
	SortCategory  SortField = "category"
	SortQuantity  SortField = "quantity"
	SortCreatedAt SortField = "createdAt"
)

var sortFields = map[SortField]struct{}{
	SortName:      {},
	SortPrice:     {},
	SortCategory:  {},
	SortQuantity:  {},
	SortCreatedAt: {},
}

// ListQuery selects one page of the catalog.
type ListQuery struct {
	Page     int
	Limit    int
	Category string
	Sort     SortField
	Desc     bool
}

// Offset returns the number of products skipped before this page.
func (q ListQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// Page is a slice of the catalog plus the total number of matching products.
type Page struct {
	Products []Product
	Total    int64
}

// TotalPages returns the number of pages of the given size needed to hold
// every matching product.
func (p *Page) TotalPages(limit int) int {
	if limit <= 0 {
		return 0
	}
	return int((p.Total + int64(limit) - 1) / int64(limit))
}

// ParseListQuery builds a ListQuery from request query parameters.
//
// Missing, zero or unparsable page/limit fall back to 1 and defaultLimit;
// negative values are rejected. The limit is capped at maxLimit and unknown
// sort fields fall back to name.
func ParseListQuery(v url.Values, defaultLimit, maxLimit int) (ListQuery, error) {
	q := ListQuery{
		Page:     intOr(v.Get("page"), 1),
		Limit:    intOr(v.Get("limit"), defaultLimit),
		Category: v.Get("category"),
		Sort:     SortField(v.Get("sort")),
		Desc:     v.Get("order") == "desc",
	}
	if q.Page <= 0 || q.Limit <= 0 {
		return ListQuery{}, ErrInvalidPagination
	}
	if maxLimit > 0 && q.Limit > maxLimit {
		q.Limit = maxLimit
	}
	if _, ok := sortFields[q.Sort]; !ok {
		q.Sort = SortName
	}
	return q, nil
}

func intOr(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n == 0 {
		return def
	}
	return n
}
