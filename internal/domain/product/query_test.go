package product

import (
	"net/url"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseListQuery_Defaults(t *testing.T) {
	q, err := ParseListQuery(url.Values{}, 8, 100)
	require.NoError(t, err)

	assert.Equal(t, 1, q.Page)
	assert.Equal(t, 8, q.Limit)
	assert.Equal(t, SortName, q.Sort)
	assert.False(t, q.Desc)
	assert.Equal(t, 0, q.Offset())
}

func TestParseListQuery_Explicit(t *testing.T) {
	v := url.Values{
		"page":     {"3"},
		"limit":    {"5"},
		"category": {"Succulents"},
		"sort":     {"price"},
		"order":    {"desc"},
	}
	q, err := ParseListQuery(v, 8, 100)
	require.NoError(t, err)

	assert.Equal(t, 3, q.Page)
	assert.Equal(t, 5, q.Limit)
	assert.Equal(t, "Succulents", q.Category)
	assert.Equal(t, SortPrice, q.Sort)
	assert.True(t, q.Desc)
	assert.Equal(t, 10, q.Offset())
}

func TestParseListQuery_ZeroAndGarbageFallBack(t *testing.T) {
	q, err := ParseListQuery(url.Values{"page": {"0"}, "limit": {"abc"}}, 8, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, 8, q.Limit)
}

func TestParseListQuery_Negative(t *testing.T) {
	for _, v := range []url.Values{
		{"page": {"-1"}},
		{"limit": {"-5"}},
	} {
		_, err := ParseListQuery(v, 8, 100)
		assert.ErrorIs(t, err, ErrInvalidPagination, "values %v", v)
	}
}

func TestParseListQuery_CapsLimitAndUnknownSort(t *testing.T) {
	q, err := ParseListQuery(url.Values{"limit": {"500"}, "sort": {"password"}}, 8, 100)
	require.NoError(t, err)
	assert.Equal(t, 100, q.Limit)
	assert.Equal(t, SortName, q.Sort)
}

func TestPage_TotalPages(t *testing.T) {
	assert.Equal(t, 0, (&Page{Total: 0}).TotalPages(8))
	assert.Equal(t, 1, (&Page{Total: 8}).TotalPages(8))
	assert.Equal(t, 2, (&Page{Total: 9}).TotalPages(8))
	assert.Equal(t, 0, (&Page{Total: 9}).TotalPages(0))
}

func TestProduct_Validate(t *testing.T) {
	valid := Product{Name: "Fern", Price: decimal.NewFromInt(5), Quantity: 3}
	require.NoError(t, valid.Validate())

	noName := valid
	noName.Name = "  "
	assert.ErrorIs(t, noName.Validate(), ErrInvalidProduct)

	negQty := valid
	negQty.Quantity = -1
	assert.ErrorIs(t, negQty.Validate(), ErrInvalidProduct)

	negPrice := valid
	negPrice.Price = decimal.NewFromInt(-1)
	assert.ErrorIs(t, negPrice.Validate(), ErrInvalidProduct)
}

func TestUpdate_ValidateAndEmpty(t *testing.T) {
	assert.True(t, Update{}.Empty())
	require.NoError(t, Update{}.Validate())

	qty := -2
	u := Update{Quantity: &qty}
	assert.False(t, u.Empty())
	assert.ErrorIs(t, u.Validate(), ErrInvalidProduct)

	empty := ""
	assert.ErrorIs(t, Update{Name: &empty}.Validate(), ErrInvalidProduct)
}
