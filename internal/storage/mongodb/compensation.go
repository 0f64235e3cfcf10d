package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/xenking/online-nursery/internal/domain/order"
)

type compensationDoc struct {
	ProductID  string    `bson:"productId"`
	Quantity   int       `bson:"quantity"`
	Cause      string    `bson:"cause"`
	Error      string    `bson:"error"`
	OccurredAt time.Time `bson:"occurredAt"`
	Resolved   bool      `bson:"resolved"`
}

var _ order.CompensationRecorder = (*CompensationLedger)(nil)

// CompensationLedger stores failed compensating increments in the
// compensation_failures collection.
type CompensationLedger struct {
	coll *mongo.Collection
}

// NewCompensationLedger returns a CompensationLedger over the database.
func NewCompensationLedger(db *mongo.Database) *CompensationLedger {
	return &CompensationLedger{coll: db.Collection(compensationsCollection)}
}

func (l *CompensationLedger) RecordCompensationFailure(ctx context.Context, f order.CompensationFailure) error {
	_, err := l.coll.InsertOne(ctx, compensationDoc{
		ProductID:  f.ProductID,
		Quantity:   f.Quantity,
		Cause:      string(f.Cause),
		Error:      f.Error,
		OccurredAt: f.OccurredAt,
	})
	if err != nil {
		return fmt.Errorf("recording compensation failure for %q: %w", f.ProductID, err)
	}
	return nil
}
