package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"

	"github.com/xenking/online-nursery/internal/domain/product"
)

type productListResponse struct {
	Products      []product.Product `json:"products"`
	CurrentPage   int               `json:"currentPage"`
	TotalPages    int               `json:"totalPages"`
	TotalProducts int64             `json:"totalProducts"`
}

type searchResponse struct {
	Products   []product.Product  `json:"products"`
	Categories []product.Category `json:"categories"`
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	q, err := product.ParseListQuery(r.URL.Query(), h.cfg.DefaultLimit, h.cfg.MaxLimit)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Page and limit must be positive integers.")
		return
	}

	page, err := h.products.List(r.Context(), q)
	if err != nil {
		serverError(w, r, "List products", err)
		return
	}

	writeJSON(w, http.StatusOK, productListResponse{
		Products:      nonNil(page.Products),
		CurrentPage:   q.Page,
		TotalPages:    page.TotalPages(q.Limit),
		TotalProducts: page.Total,
	})
}

func (h *Handler) searchProducts(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		writeMessage(w, http.StatusBadRequest, "Search query is required")
		return
	}

	products, err := h.products.Search(r.Context(), query)
	if err != nil {
		serverError(w, r, "Search products", err)
		return
	}
	categories, err := h.categories.SearchCategories(r.Context(), query)
	if err != nil {
		serverError(w, r, "Search categories", err)
		return
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Products:   nonNil(products),
		Categories: nonNil(categories),
	})
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetByID(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, product.ErrNotFound), errors.Is(err, product.ErrInvalidID):
		writeError(w, http.StatusNotFound, "Product not found")
	case err != nil:
		serverError(w, r, "Get product", err)
	default:
		writeJSON(w, http.StatusOK, p)
	}
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var p product.Product
	if err := h.decodeJSON(w, r, &p); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid product data")
		return
	}
	if err := p.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid product data", Details: err.Error()})
		return
	}

	created, err := h.products.Create(r.Context(), &p)
	if err != nil {
		serverError(w, r, "Create product", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	var u product.Update
	if err := h.decodeJSON(w, r, &u); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid product data")
		return
	}
	if err := u.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid product data", Details: err.Error()})
		return
	}

	p, err := h.products.Update(r.Context(), chi.URLParam(r, "id"), u)
	switch {
	case errors.Is(err, product.ErrInvalidID):
		writeError(w, http.StatusBadRequest, "Invalid product ID")
	case errors.Is(err, product.ErrNotFound):
		writeError(w, http.StatusNotFound, "Product not found")
	case err != nil:
		serverError(w, r, "Update product", err)
	default:
		writeJSON(w, http.StatusOK, p)
	}
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	err := h.products.Delete(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, product.ErrNotFound), errors.Is(err, product.ErrInvalidID):
		writeMessage(w, http.StatusNotFound, "Product not found")
	case err != nil:
		serverError(w, r, "Delete product", err)
	default:
		writeMessage(w, http.StatusOK, "Product deleted successfully")
	}
}

// nonNil keeps empty results encoding as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
