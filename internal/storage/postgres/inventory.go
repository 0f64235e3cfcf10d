package postgres

import (
	"context"
	"fmt"
	"math"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/online-nursery/internal/domain/order"
	"github.com/xenking/online-nursery/internal/domain/product"
)

const (
	// The WHERE guard makes the check and the write one statement, so two
	// concurrent orders can never both take the last units.
	decrementStockSQL = `UPDATE products SET quantity = quantity - $2, updated_at = now()
		WHERE id = $1 AND quantity >= $2
		RETURNING quantity`

	incrementStockSQL = `UPDATE products SET quantity = quantity + $2, updated_at = now() WHERE id = $1`

	stockQuantitySQL = `SELECT quantity FROM products WHERE id = $1`
)

var _ order.InventoryStore = (*InventoryStore)(nil)

// InventoryStore implements order.InventoryStore with single-statement
// conditional updates on the products table.
type InventoryStore struct {
	pool     *pgxpool.Pool
	products *ProductRepository
}

// NewInventoryStore returns an InventoryStore that uses the given pool.
func NewInventoryStore(pool *pgxpool.Pool) *InventoryStore {
	return &InventoryStore{pool: pool, products: NewProductRepository(pool)}
}

// Get returns the product. Identifiers that are not UUIDs are reported as
// product.ErrNotFound.
func (s *InventoryStore) Get(ctx context.Context, id string) (*product.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if errors.Is(err, product.ErrInvalidID) {
		return nil, product.ErrNotFound
	}
	return p, err
}

func (s *InventoryStore) ConditionalDecrement(ctx context.Context, id string, n int) (int, error) {
	if _, err := uuid.Parse(id); err != nil {
		return 0, product.ErrNotFound
	}

	// quantity is an INTEGER column: no row can hold more than MaxInt32.
	if n > math.MaxInt32 {
		return 0, s.refused(ctx, id, n)
	}

	var remaining int
	err := s.pool.QueryRow(ctx, decrementStockSQL, id, n).Scan(&remaining)
	if err == nil {
		return remaining, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("decrementing stock of %q: %w", id, err)
	}
	return 0, s.refused(ctx, id, n)
}

// refused tells a missing product from a short one. The quantity may
// already have moved, so it is reported as observed.
func (s *InventoryStore) refused(ctx context.Context, id string, n int) error {
	var available int
	err := s.pool.QueryRow(ctx, stockQuantitySQL, id).Scan(&available)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return product.ErrNotFound
	case err != nil:
		available = -1
	}
	return &order.InsufficientStockError{ProductID: id, Requested: n, Available: available}
}

func (s *InventoryStore) Increment(ctx context.Context, id string, n int) error {
	tag, err := s.pool.Exec(ctx, incrementStockSQL, id, n)
	if err != nil {
		return fmt.Errorf("incrementing stock of %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}
