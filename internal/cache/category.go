package cache

import (
	"context"
	"time"

	"github.com/xenking/online-nursery/internal/domain/product"
)

var _ product.CategoryRepository = (*Categories)(nil)

// Categories caches the full category list.
type Categories struct {
	product.CategoryRepository
	kv  KV
	ttl time.Duration
}

// NewCategories wraps next with a read-through cache.
func NewCategories(next product.CategoryRepository, kv KV, ttl time.Duration) *Categories {
	return &Categories{CategoryRepository: next, kv: kv, ttl: ttl}
}

func (c *Categories) ListCategories(ctx context.Context) ([]product.Category, error) {
	var cached []product.Category
	if load(ctx, c.kv, categoriesKey, &cached) {
		return cached, nil
	}
	cats, err := c.CategoryRepository.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	store(ctx, c.kv, categoriesKey, cats, c.ttl)
	return cats, nil
}

func (c *Categories) UpsertCategory(ctx context.Context, cat product.Category) error {
	if err := c.CategoryRepository.UpsertCategory(ctx, cat); err != nil {
		return err
	}
	evict(ctx, c.kv, categoriesKey)
	return nil
}
