package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/online-nursery/internal/domain/product"
)

func TestReadCatalog_Embedded(t *testing.T) {
	c, err := readCatalog("")
	require.NoError(t, err)
	assert.Len(t, c.Categories, 4)
	assert.Len(t, c.Products, 8)

	snake := c.Products[0]
	assert.Equal(t, "Snake Plant", snake.Name)
	assert.Equal(t, "18.5", snake.Price.String())
	assert.Equal(t, 25, snake.Quantity)
}

func TestReadCatalog_Gzip(t *testing.T) {
	const body = `{"categories":[{"name":"Ferns"}],"products":[{"name":"Boston Fern","category":"Ferns","price":"11.00","quantity":3}]}`

	path := filepath.Join(t.TempDir(), "catalog.json.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := pgzip.NewWriter(f)
	_, err = zw.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	c, err := readCatalog(path)
	require.NoError(t, err)
	require.Len(t, c.Products, 1)
	assert.Equal(t, "Boston Fern", c.Products[0].Name)
	assert.Equal(t, 3, c.Products[0].Quantity)
}

func TestDecodeCatalog_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{
			name: "negative quantity",
			body: `{"categories":[{"name":"Ferns"}],"products":[{"name":"Fern","category":"Ferns","price":"1","quantity":-1}]}`,
			want: product.ErrInvalidProduct,
		},
		{
			name: "unknown category",
			body: `{"categories":[{"name":"Ferns"}],"products":[{"name":"Cactus","category":"Cacti","price":"1","quantity":1}]}`,
			want: product.ErrCategoryNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeCatalog(strings.NewReader(tt.body))
			require.ErrorIs(t, err, tt.want)
		})
	}

	_, err := decodeCatalog(strings.NewReader("{"))
	require.Error(t, err)
}
