package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/online-nursery/internal/domain/order"
	"github.com/xenking/online-nursery/internal/domain/product"
)

// --- Mock implementations ---

type mockProducts struct {
	byID      map[string]product.Product
	lastQuery product.ListQuery
	created   *product.Product
	listErr   error
}

func (m *mockProducts) List(_ context.Context, q product.ListQuery) (*product.Page, error) {
	m.lastQuery = q
	if m.listErr != nil {
		return nil, m.listErr
	}
	var all []product.Product
	for _, p := range m.byID {
		if q.Category == "" || p.Category == q.Category {
			all = append(all, p)
		}
	}
	return &product.Page{Products: all, Total: int64(len(all))}, nil
}

func (m *mockProducts) GetByID(_ context.Context, id string) (*product.Product, error) {
	if id == "bad-id" {
		return nil, product.ErrInvalidID
	}
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func (m *mockProducts) ListByCategory(_ context.Context, category string) ([]product.Product, error) {
	var out []product.Product
	for _, p := range m.byID {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockProducts) Search(_ context.Context, query string) ([]product.Product, error) {
	var out []product.Product
	for _, p := range m.byID {
		if strings.Contains(strings.ToLower(p.Name), strings.ToLower(query)) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockProducts) Create(_ context.Context, p *product.Product) (*product.Product, error) {
	stored := *p
	stored.ID = "new-id"
	m.created = &stored
	return &stored, nil
}

func (m *mockProducts) Update(_ context.Context, id string, u product.Update) (*product.Product, error) {
	if id == "bad-id" {
		return nil, product.ErrInvalidID
	}
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	if u.Quantity != nil {
		p.Quantity = *u.Quantity
	}
	if u.Name != nil {
		p.Name = *u.Name
	}
	m.byID[id] = p
	return &p, nil
}

func (m *mockProducts) Delete(_ context.Context, id string) error {
	if id == "bad-id" {
		return product.ErrInvalidID
	}
	if _, ok := m.byID[id]; !ok {
		return product.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

type mockCategories struct {
	cats []product.Category
}

func (m *mockCategories) ListCategories(context.Context) ([]product.Category, error) {
	return m.cats, nil
}

func (m *mockCategories) GetCategory(_ context.Context, name string) (*product.Category, error) {
	for _, c := range m.cats {
		if c.Name == name {
			return &c, nil
		}
	}
	return nil, product.ErrCategoryNotFound
}

func (m *mockCategories) SearchCategories(_ context.Context, query string) ([]product.Category, error) {
	var out []product.Category
	for _, c := range m.cats {
		if strings.Contains(strings.ToLower(c.Name), strings.ToLower(query)) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockCategories) UpsertCategory(context.Context, product.Category) error { return nil }

type mockOrders struct {
	last  order.PlaceOrderRequest
	order *order.Order
	err   error
}

func (m *mockOrders) PlaceOrder(_ context.Context, req order.PlaceOrderRequest) (*order.Order, error) {
	m.last = req
	return m.order, m.err
}

// --- Helpers ---

type fixture struct {
	products *mockProducts
	orders   *mockOrders
	srv      http.Handler
}

func newFixture() *fixture {
	f := &fixture{
		products: &mockProducts{byID: map[string]product.Product{
			"p1": {ID: "p1", Name: "Snake Plant", Category: "Indoor Plants", Price: decimal.RequireFromString("18.50"), Quantity: 25},
			"p2": {ID: "p2", Name: "Aloe Vera", Category: "Succulents", Price: decimal.RequireFromString("9.90"), Quantity: 40},
		}},
		orders: &mockOrders{},
	}
	cats := &mockCategories{cats: []product.Category{{Name: "Indoor Plants"}, {Name: "Succulents"}}}
	f.srv = New(Config{DefaultLimit: 8, MaxLimit: 50}, f.products, cats, f.orders).Routes()
	return f
}

func (f *fixture) do(t *testing.T, method, target string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, target, &buf)
	w := httptest.NewRecorder()
	f.srv.ServeHTTP(w, req)

	var out map[string]any
	if strings.HasPrefix(strings.TrimSpace(w.Body.String()), "{") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

// --- Product tests ---

func TestListProducts(t *testing.T) {
	f := newFixture()
	w, body := f.do(t, http.MethodGet, "/products?page=1&limit=1&sort=price&order=desc", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), body["currentPage"])
	assert.Equal(t, float64(2), body["totalProducts"])
	assert.Equal(t, float64(2), body["totalPages"])
	assert.Equal(t, product.SortPrice, f.products.lastQuery.Sort)
	assert.True(t, f.products.lastQuery.Desc)
}

func TestListProducts_InvalidPagination(t *testing.T) {
	f := newFixture()
	w, body := f.do(t, http.MethodGet, "/products?page=-1", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Page and limit must be positive integers.", body["message"])
}

func TestListProducts_EmptyIsArray(t *testing.T) {
	f := newFixture()
	w, body := f.do(t, http.MethodGet, "/products?category=Bonsai", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{}, body["products"])
	assert.Equal(t, float64(0), body["totalPages"])
}

func TestListProducts_StoreError(t *testing.T) {
	f := newFixture()
	f.products.listErr = errors.New("db down")
	w, body := f.do(t, http.MethodGet, "/products", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Server Error", body["message"])
}

func TestSearchProducts(t *testing.T) {
	f := newFixture()
	w, body := f.do(t, http.MethodGet, "/products/search?query=succ", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["products"], 0)
	assert.Len(t, body["categories"], 1)

	w, body = f.do(t, http.MethodGet, "/products/search?query=", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Search query is required", body["message"])
}

func TestGetProduct(t *testing.T) {
	f := newFixture()
	w, body := f.do(t, http.MethodGet, "/products/p1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "p1", body["_id"])
	assert.Equal(t, "18.5", body["price"])

	for _, id := range []string{"missing", "bad-id"} {
		w, body = f.do(t, http.MethodGet, "/products/"+id, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "Product not found", body["error"])
	}
}

func TestCreateProduct(t *testing.T) {
	f := newFixture()
	w, body := f.do(t, http.MethodPost, "/products",
		`{"name":"Fern","category":"Indoor Plants","price":12.5,"quantity":3}`)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "new-id", body["_id"])
	require.NotNil(t, f.products.created)
	assert.True(t, f.products.created.Price.Equal(decimal.RequireFromString("12.5")))
}

func TestCreateProduct_Invalid(t *testing.T) {
	f := newFixture()
	for _, raw := range []string{
		`{"name":"Fern","price":1,"quantity":-1}`,
		`{"name":"","price":1,"quantity":1}`,
		`{"name":"Fern","price":-3,"quantity":1}`,
		`not json`,
	} {
		w, body := f.do(t, http.MethodPost, "/products", raw)
		assert.Equal(t, http.StatusBadRequest, w.Code, raw)
		assert.Equal(t, "Invalid product data", body["error"], raw)
	}
	assert.Nil(t, f.products.created)
}

func TestUpdateProduct(t *testing.T) {
	f := newFixture()
	w, body := f.do(t, http.MethodPut, "/products/p1", `{"quantity":7}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(7), body["quantity"])
	assert.Equal(t, "Snake Plant", body["name"])

	w, body = f.do(t, http.MethodPut, "/products/bad-id", `{"quantity":7}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid product ID", body["error"])

	w, body = f.do(t, http.MethodPut, "/products/missing", `{"quantity":7}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Product not found", body["error"])

	w, _ = f.do(t, http.MethodPut, "/products/p1", `{"quantity":-7}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteProduct(t *testing.T) {
	f := newFixture()
	w, body := f.do(t, http.MethodDelete, "/products/p2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Product deleted successfully", body["message"])

	w, body = f.do(t, http.MethodDelete, "/products/p2", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Product not found", body["message"])
}

// --- Category tests ---

func TestCategories(t *testing.T) {
	f := newFixture()
	w := httptest.NewRecorder()
	f.srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/categories", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var cats []product.Category
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cats))
	assert.Len(t, cats, 2)

	w, body := f.do(t, http.MethodGet, "/categories/Succulents", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Succulents", body["name"])
	assert.Len(t, body["products"], 1)

	w, body = f.do(t, http.MethodGet, "/categories/Bonsai", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Category not found", body["error"])
}

// --- Order tests ---

func TestPlaceOrder_Created(t *testing.T) {
	f := newFixture()
	f.orders.order = &order.Order{
		ID:        "ord-1",
		Name:      "Ada",
		CartItems: []order.CartItem{{ID: "p1", Quantity: 2}},
		Status:    order.StatusPending,
	}

	w, body := f.do(t, http.MethodPost, "/orders", map[string]any{
		"name": "Ada", "phone": "555", "address": "1 Lane", "paymentMethod": "card",
		"cartItems": []map[string]any{{"id": "p1", "quantity": 2}},
	})

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Order created successfully", body["message"])
	o := body["order"].(map[string]any)
	assert.Equal(t, "ord-1", o["_id"])
	assert.Equal(t, "Pending", o["status"])

	assert.Equal(t, "card", f.orders.last.PaymentMethod)
	assert.Equal(t, []order.CartItem{{ID: "p1", Quantity: 2}}, f.orders.last.CartItems)
}

func TestPlaceOrder_MalformedBody(t *testing.T) {
	f := newFixture()
	for _, raw := range []string{
		`{"name":"Ada","cartItems":"p1"}`,
		`{"name":"Ada","cartItems":[{"id":"p1","quantity":"two"}]}`,
		`{"name":"Ada","cartItems":[{"id":"p1","quantity":1.5}]}`,
		`[`,
	} {
		w, body := f.do(t, http.MethodPost, "/orders", raw)
		assert.Equal(t, http.StatusBadRequest, w.Code, raw)
		assert.Equal(t, "Invalid order data", body["message"], raw)
	}
}

func TestPlaceOrder_InvalidRequest(t *testing.T) {
	f := newFixture()
	f.orders.err = &order.ValidationError{Field: "name", Reason: "is required"}

	w, body := f.do(t, http.MethodPost, "/orders", `{"cartItems":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid order data", body["message"])
	assert.NotContains(t, body, "outOfStockItems")
}

func TestPlaceOrder_OutOfStock(t *testing.T) {
	f := newFixture()
	avail := 1
	f.orders.err = &order.OutOfStockError{Items: []order.UnresolvedItem{
		{ID: "p1", Quantity: 3, Reason: order.ReasonInsufficientStock, AvailableQuantity: &avail},
		{ID: "ghost", Quantity: 1, Reason: order.ReasonProductNotFound},
	}}

	w, body := f.do(t, http.MethodPost, "/orders", `{"name":"Ada","phone":"1","address":"a","cartItems":[{"id":"p1","quantity":3}]}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Some items are out of stock", body["message"])

	items := body["outOfStockItems"].([]any)
	require.Len(t, items, 2)
	first := items[0].(map[string]any)
	assert.Equal(t, "p1", first["id"])
	assert.Equal(t, "InsufficientStock", first["reason"])
	assert.Equal(t, float64(1), first["availableQuantity"])
	second := items[1].(map[string]any)
	assert.Equal(t, "ProductNotFound", second["reason"])
	assert.NotContains(t, second, "availableQuantity")
}

func TestPlaceOrder_ServerError(t *testing.T) {
	f := newFixture()
	f.orders.err = errors.Wrap(order.ErrPersistence, "insert")

	w, body := f.do(t, http.MethodPost, "/orders", `{"name":"Ada","phone":"1","address":"a","cartItems":[{"id":"p1","quantity":1}]}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Server Error", body["message"])
}

func TestRoutes_NotFoundAndPattern(t *testing.T) {
	f := newFixture()
	w, body := f.do(t, http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Not Found", body["message"])

	var pattern string
	h := New(Config{}, f.products, &mockCategories{}, f.orders).Routes(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)
			pattern = RoutePattern(r)
		})
	})
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/products/p1", nil))
	assert.Equal(t, "/products/{id}", pattern)
}
