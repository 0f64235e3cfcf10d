package cache

import (
	"context"
	"time"

	"github.com/xenking/online-nursery/internal/domain/order"
	"github.com/xenking/online-nursery/internal/domain/product"
)

var _ product.Repository = (*Products)(nil)

// Products caches single-product reads. Writes go to the wrapped
// repository and leave a tombstone on the product entry.
type Products struct {
	product.Repository
	kv  KV
	ttl time.Duration
}

// NewProducts wraps next with a read-through cache.
func NewProducts(next product.Repository, kv KV, ttl time.Duration) *Products {
	return &Products{Repository: next, kv: kv, ttl: ttl}
}

func (c *Products) GetByID(ctx context.Context, id string) (*product.Product, error) {
	var cached product.Product
	if load(ctx, c.kv, productKey(id), &cached) {
		return &cached, nil
	}
	p, err := c.Repository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	fill(ctx, c.kv, productKey(id), p, c.ttl)
	return p, nil
}

func (c *Products) Update(ctx context.Context, id string, u product.Update) (*product.Product, error) {
	p, err := c.Repository.Update(ctx, id, u)
	if err != nil {
		return nil, err
	}
	bury(ctx, c.kv, productKey(id))
	return p, nil
}

func (c *Products) Delete(ctx context.Context, id string) error {
	if err := c.Repository.Delete(ctx, id); err != nil {
		return err
	}
	bury(ctx, c.kv, productKey(id))
	return nil
}

var _ order.InventoryStore = (*Inventory)(nil)

// Inventory tombstones cached products whenever their stock moves. Reads
// are never served from the cache.
type Inventory struct {
	order.InventoryStore
	kv KV
}

// NewInventory wraps next with cache invalidation on stock changes.
func NewInventory(next order.InventoryStore, kv KV) *Inventory {
	return &Inventory{InventoryStore: next, kv: kv}
}

func (c *Inventory) ConditionalDecrement(ctx context.Context, id string, n int) (int, error) {
	remaining, err := c.InventoryStore.ConditionalDecrement(ctx, id, n)
	if err != nil {
		return 0, err
	}
	bury(ctx, c.kv, productKey(id))
	return remaining, nil
}

func (c *Inventory) Increment(ctx context.Context, id string, n int) error {
	if err := c.InventoryStore.Increment(ctx, id, n); err != nil {
		return err
	}
	bury(ctx, c.kv, productKey(id))
	return nil
}
