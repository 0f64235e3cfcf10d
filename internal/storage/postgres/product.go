package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/online-nursery/internal/domain/product"
)

const productColumns = `id::text, name, category, description, image, price, quantity, created_at, updated_at`

const (
	countProductsSQL = `SELECT count(*) FROM products WHERE ($1 = '' OR category = $1)`

	getProductByIDSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	listByCategorySQL = `SELECT ` + productColumns + ` FROM products WHERE category = $1 ORDER BY name, id`

	searchProductsSQL = `SELECT ` + productColumns + ` FROM products
		WHERE name ILIKE $1 OR category ILIKE $1 ORDER BY name, id`

	createProductSQL = `INSERT INTO products (name, category, description, image, price, quantity)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + productColumns

	upsertProductSQL = `INSERT INTO products (name, category, description, image, price, quantity)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (name) DO UPDATE SET
			category = EXCLUDED.category,
			description = EXCLUDED.description,
			image = EXCLUDED.image,
			price = EXCLUDED.price,
			quantity = EXCLUDED.quantity,
			updated_at = now()
		RETURNING ` + productColumns

	updateProductSQL = `UPDATE products SET
			name = COALESCE($2, name),
			category = COALESCE($3, category),
			description = COALESCE($4, description),
			image = COALESCE($5, image),
			price = COALESCE($6, price),
			quantity = COALESCE($7, quantity),
			updated_at = now()
		WHERE id = $1
		RETURNING ` + productColumns

	deleteProductSQL = `DELETE FROM products WHERE id = $1`
)

var sortColumns = map[product.SortField]string{
	product.SortName:      "name",
	product.SortPrice:     "price",
	product.SortCategory:  "category",
	product.SortQuantity:  "quantity",
	product.SortCreatedAt: "created_at",
}

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns one page of products, optionally filtered by category.
func (r *ProductRepository) List(ctx context.Context, q product.ListQuery) (*product.Page, error) {
	var total int64
	if err := r.pool.QueryRow(ctx, countProductsSQL, q.Category).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting products: %w", err)
	}

	col, ok := sortColumns[q.Sort]
	if !ok {
		col = "name"
	}
	dir := "ASC"
	if q.Desc {
		dir = "DESC"
	}
	sql := fmt.Sprintf(`SELECT %s FROM products WHERE ($1 = '' OR category = $1)
		ORDER BY %s %s, id LIMIT $2 OFFSET $3`, productColumns, col, dir)

	rows, err := r.pool.Query(ctx, sql, q.Category, q.Limit, q.Offset())
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return &product.Page{Products: products, Total: total}, nil
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, product.ErrInvalidID
	}
	return r.one(ctx, "getting product", getProductByIDSQL, id)
}

// ListByCategory returns every product in the category ordered by name.
func (r *ProductRepository) ListByCategory(ctx context.Context, category string) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listByCategorySQL, category)
	if err != nil {
		return nil, fmt.Errorf("listing products of %q: %w", category, err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// Search returns products whose name or category contains the query,
// ignoring case.
func (r *ProductRepository) Search(ctx context.Context, query string) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, searchProductsSQL, containsPattern(query))
	if err != nil {
		return nil, fmt.Errorf("searching products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// Create inserts a new product and returns the stored record.
func (r *ProductRepository) Create(ctx context.Context, p *product.Product) (*product.Product, error) {
	return r.one(ctx, "creating product", createProductSQL,
		p.Name, p.Category, p.Description, p.Image, p.Price, p.Quantity)
}

// UpsertProduct inserts the product or replaces the one with the same name.
func (r *ProductRepository) UpsertProduct(ctx context.Context, p *product.Product) (*product.Product, error) {
	return r.one(ctx, "upserting product", upsertProductSQL,
		p.Name, p.Category, p.Description, p.Image, p.Price, p.Quantity)
}

// Update applies a partial update and returns the updated product.
func (r *ProductRepository) Update(ctx context.Context, id string, u product.Update) (*product.Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, product.ErrInvalidID
	}
	return r.one(ctx, "updating product", updateProductSQL,
		id, u.Name, u.Category, u.Description, u.Image, u.Price, u.Quantity)
}

// Delete removes a product.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return product.ErrInvalidID
	}
	tag, err := r.pool.Exec(ctx, deleteProductSQL, id)
	if err != nil {
		return fmt.Errorf("deleting product %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

func (r *ProductRepository) one(ctx context.Context, op, sql string, args ...any) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &p, nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Category, &p.Description, &p.Image,
		&p.Price, &p.Quantity, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}
