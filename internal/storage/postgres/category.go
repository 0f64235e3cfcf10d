package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/online-nursery/internal/domain/product"
)

const (
	listCategoriesSQL = `SELECT name, description, image FROM categories ORDER BY name`
	getCategorySQL    = `SELECT name, description, image FROM categories WHERE name = $1`
	searchCategorySQL = `SELECT name, description, image FROM categories WHERE name ILIKE $1 ORDER BY name`
	upsertCategorySQL = `INSERT INTO categories (name, description, image) VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET description = EXCLUDED.description, image = EXCLUDED.image`
)

var _ product.CategoryRepository = (*CategoryRepository)(nil)

// CategoryRepository implements product.CategoryRepository backed by
// PostgreSQL.
type CategoryRepository struct {
	pool *pgxpool.Pool
}

// NewCategoryRepository returns a CategoryRepository that uses the given pool.
func NewCategoryRepository(pool *pgxpool.Pool) *CategoryRepository {
	return &CategoryRepository{pool: pool}
}

func (r *CategoryRepository) ListCategories(ctx context.Context) ([]product.Category, error) {
	rows, err := r.pool.Query(ctx, listCategoriesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return pgx.CollectRows(rows, scanCategory)
}

func (r *CategoryRepository) GetCategory(ctx context.Context, name string) (*product.Category, error) {
	rows, err := r.pool.Query(ctx, getCategorySQL, name)
	if err != nil {
		return nil, fmt.Errorf("getting category %q: %w", name, err)
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanCategory)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("getting category %q: %w", name, err)
	}
	return &c, nil
}

func (r *CategoryRepository) SearchCategories(ctx context.Context, query string) ([]product.Category, error) {
	rows, err := r.pool.Query(ctx, searchCategorySQL, containsPattern(query))
	if err != nil {
		return nil, fmt.Errorf("searching categories: %w", err)
	}
	return pgx.CollectRows(rows, scanCategory)
}

func (r *CategoryRepository) UpsertCategory(ctx context.Context, c product.Category) error {
	if _, err := r.pool.Exec(ctx, upsertCategorySQL, c.Name, c.Description, c.Image); err != nil {
		return fmt.Errorf("upserting category %q: %w", c.Name, err)
	}
	return nil
}

func scanCategory(row pgx.CollectableRow) (product.Category, error) {
	var c product.Category
	err := row.Scan(&c.Name, &c.Description, &c.Image)
	return c, err
}
