// Package handler serves the storefront REST API.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/xenking/online-nursery/internal/domain/order"
	"github.com/xenking/online-nursery/internal/domain/product"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	DefaultLimit   int
	MaxLimit       int
	RequestTimeout time.Duration
	// MaxBodyBytes caps request bodies. Defaults to 1 MiB.
	MaxBodyBytes int64
}

// OrderPlacer places orders. *order.Service implements it.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, req order.PlaceOrderRequest) (*order.Order, error)
}

// Handler maps HTTP requests onto the catalog repositories and the order
// service.
type Handler struct {
	cfg        Config
	products   product.Repository
	categories product.CategoryRepository
	orders     OrderPlacer
}

// New constructs a Handler with the required domain dependencies.
func New(
	cfg Config,
	products product.Repository,
	categories product.CategoryRepository,
	orders OrderPlacer,
) *Handler {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 8
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = 100
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	return &Handler{
		cfg:        cfg,
		products:   products,
		categories: categories,
		orders:     orders,
	}
}

// Routes returns the API router. Every middleware passed in runs after
// routing, so RoutePattern is available to it.
func (h *Handler) Routes(mws ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.StripSlashes)
	r.Use(mws...)
	if h.cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(h.cfg.RequestTimeout))
	}

	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.listProducts)
		r.Post("/", h.createProduct)
		r.Get("/search", h.searchProducts)
		r.Get("/{id}", h.getProduct)
		r.Put("/{id}", h.updateProduct)
		r.Delete("/{id}", h.deleteProduct)
	})
	r.Route("/categories", func(r chi.Router) {
		r.Get("/", h.listCategories)
		r.Get("/{name}", h.getCategory)
	})
	r.Post("/orders", h.placeOrder)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})
	return r
}

// RoutePattern returns the chi route pattern that matched r, or "".
func RoutePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return ""
	}
	return rctx.RoutePattern()
}
