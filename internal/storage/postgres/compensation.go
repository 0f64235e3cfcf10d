package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/online-nursery/internal/domain/order"
)

const recordCompensationSQL = `INSERT INTO inventory_compensation_failures
	(product_id, quantity, cause, error, occurred_at)
	VALUES ($1, $2, $3, $4, $5)`

var _ order.CompensationRecorder = (*CompensationLedger)(nil)

// CompensationLedger stores failed compensating increments in the
// inventory_compensation_failures table for reconciliation.
type CompensationLedger struct {
	pool *pgxpool.Pool
}

// NewCompensationLedger returns a CompensationLedger that uses the given pool.
func NewCompensationLedger(pool *pgxpool.Pool) *CompensationLedger {
	return &CompensationLedger{pool: pool}
}

func (l *CompensationLedger) RecordCompensationFailure(ctx context.Context, f order.CompensationFailure) error {
	_, err := l.pool.Exec(ctx, recordCompensationSQL,
		f.ProductID, f.Quantity, string(f.Cause), f.Error, f.OccurredAt)
	if err != nil {
		return fmt.Errorf("recording compensation failure for %q: %w", f.ProductID, err)
	}
	return nil
}
