package order

import (
	"context"
	"time"

	"github.com/xenking/online-nursery/internal/domain/product"
)

// Status is the lifecycle state of an order.
type Status string

// StatusPending is assigned at creation. Later states are owned by
// fulfilment flows outside order placement.
const StatusPending Status = "Pending"

// CartItem is a single requested line of a cart.
type CartItem struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

// Order is a placed customer order.
type Order struct {
	ID            string     `json:"_id"`
	Name          string     `json:"name"`
	Phone         string     `json:"phone"`
	Address       string     `json:"address"`
	PaymentMethod string     `json:"paymentMethod,omitempty"`
	CartItems     []CartItem `json:"cartItems"`
	Status        Status     `json:"status"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// PlaceOrderRequest holds the input for placing an order.
type PlaceOrderRequest struct {
	Name          string
	Phone         string
	Address       string
	PaymentMethod string
	CartItems     []CartItem
}

// InventoryStore is the stock side of the product store. Every method is a
// single atomic command against the store.
type InventoryStore interface {
	// Get returns the product or product.ErrNotFound.
	Get(ctx context.Context, id string) (*product.Product, error)
	// ConditionalDecrement subtracts n from the product quantity only if the
	// quantity is at least n, returning the remaining quantity. It fails with
	// product.ErrNotFound or *InsufficientStockError.
	ConditionalDecrement(ctx context.Context, id string, n int) (int, error)
	// Increment adds n to the product quantity.
	Increment(ctx context.Context, id string, n int) error
}

// OrderLog is the append-only store of placed orders.
type OrderLog interface {
	// Append stores the order and returns the stored record with its ID.
	Append(ctx context.Context, o *Order) (*Order, error)
}

// CompensationRecorder keeps failed compensating increments for later
// reconciliation.
type CompensationRecorder interface {
	RecordCompensationFailure(ctx context.Context, f CompensationFailure) error
}

// EventPublisher announces placed orders to downstream consumers.
type EventPublisher interface {
	OrderPlaced(ctx context.Context, o *Order) error
}
