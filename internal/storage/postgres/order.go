package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/online-nursery/internal/domain/order"
)

const appendOrderSQL = `INSERT INTO orders (name, phone, address, payment_method, cart_items, status, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING id::text`

var _ order.OrderLog = (*OrderLog)(nil)

// OrderLog implements order.OrderLog backed by PostgreSQL.
type OrderLog struct {
	pool *pgxpool.Pool
}

// NewOrderLog returns an OrderLog that uses the given pool.
func NewOrderLog(pool *pgxpool.Pool) *OrderLog {
	return &OrderLog{pool: pool}
}

// Append persists a new order. Cart items are serialized to JSON for
// storage in the JSONB column.
func (l *OrderLog) Append(ctx context.Context, o *order.Order) (*order.Order, error) {
	itemsJSON, err := json.Marshal(o.CartItems)
	if err != nil {
		return nil, fmt.Errorf("marshaling cart items: %w", err)
	}

	stored := *o
	err = l.pool.QueryRow(ctx, appendOrderSQL,
		o.Name, o.Phone, o.Address, o.PaymentMethod, itemsJSON, string(o.Status), o.CreatedAt,
	).Scan(&stored.ID)
	if err != nil {
		return nil, fmt.Errorf("appending order: %w", err)
	}

	return &stored, nil
}
