package product

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a requested product does not exist.
	ErrNotFound = errors.New("product not found")
	// ErrInvalidID is returned when an identifier cannot name any product
	// in the active store (malformed UUID or ObjectID).
	ErrInvalidID = errors.New("invalid product id")
	// ErrInvalidProduct is returned when product fields violate catalog rules.
	ErrInvalidProduct = errors.New("invalid product")
	// ErrCategoryNotFound is returned when a requested category does not exist.
	ErrCategoryNotFound = errors.New("category not found")
)

// Product is a nursery catalog item. Quantity is the quantity-on-hand and is
// the single source of truth for availability; it never goes negative.
type Product struct {
	ID          string          `json:"_id"`
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	Description string          `json:"description,omitempty"`
	Image       string          `json:"image,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Validate checks the fields required for a new product.
func (p *Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.Wrap(ErrInvalidProduct, "name is required")
	}
	if p.Price.IsNegative() {
		return errors.Wrap(ErrInvalidProduct, "price must not be negative")
	}
	if p.Quantity < 0 {
		return errors.Wrap(ErrInvalidProduct, "quantity must not be negative")
	}
	return nil
}

// Update is a partial product update. Nil fields are left untouched.
type Update struct {
	Name        *string          `json:"name,omitempty"`
	Category    *string          `json:"category,omitempty"`
	Description *string          `json:"description,omitempty"`
	Image       *string          `json:"image,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Quantity    *int             `json:"quantity,omitempty"`
}

// Validate checks that the set fields keep the product valid.
func (u Update) Validate() error {
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		return errors.Wrap(ErrInvalidProduct, "name must not be empty")
	}
	if u.Price != nil && u.Price.IsNegative() {
		return errors.Wrap(ErrInvalidProduct, "price must not be negative")
	}
	if u.Quantity != nil && *u.Quantity < 0 {
		return errors.Wrap(ErrInvalidProduct, "quantity must not be negative")
	}
	return nil
}

// Empty reports whether the update sets no fields.
func (u Update) Empty() bool {
	return u.Name == nil && u.Category == nil && u.Description == nil &&
		u.Image == nil && u.Price == nil && u.Quantity == nil
}

// Category groups products on the storefront.
type Category struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
}

// CategoryWithProducts is a category together with every product in it.
type CategoryWithProducts struct {
	Category
	Products []Product `json:"products"`
}

// Repository defines catalog operations on products.
type Repository interface {
	List(ctx context.Context, q ListQuery) (*Page, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	ListByCategory(ctx context.Context, category string) ([]Product, error)
	Search(ctx context.Context, query string) ([]Product, error)
	Create(ctx context.Context, p *Product) (*Product, error)
	Update(ctx context.Context, id string, u Update) (*Product, error)
	Delete(ctx context.Context, id string) error
}

// CategoryRepository defines catalog operations on categories.
type CategoryRepository interface {
	ListCategories(ctx context.Context) ([]Category, error)
	GetCategory(ctx context.Context, name string) (*Category, error)
	SearchCategories(ctx context.Context, query string) ([]Category, error)
	UpsertCategory(ctx context.Context, c Category) error
}
