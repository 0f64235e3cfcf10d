package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"

	"github.com/xenking/online-nursery/internal/domain/product"
)

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.categories.ListCategories(r.Context())
	if err != nil {
		serverError(w, r, "List categories", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(cats))
}

func (h *Handler) getCategory(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	c, err := h.categories.GetCategory(r.Context(), name)
	if errors.Is(err, product.ErrCategoryNotFound) {
		writeError(w, http.StatusNotFound, "Category not found")
		return
	}
	if err != nil {
		serverError(w, r, "Get category", err)
		return
	}

	products, err := h.products.ListByCategory(r.Context(), c.Name)
	if err != nil {
		serverError(w, r, "List category products", err)
		return
	}
	writeJSON(w, http.StatusOK, product.CategoryWithProducts{Category: *c, Products: nonNil(products)})
}
