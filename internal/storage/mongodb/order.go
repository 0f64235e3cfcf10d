package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/xenking/online-nursery/internal/domain/order"
)

type cartItemDoc struct {
	ID       string `bson:"id"`
	Quantity int    `bson:"quantity"`
}

type orderDoc struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	Name          string             `bson:"name"`
	Phone         string             `bson:"phone"`
	Address       string             `bson:"address"`
	PaymentMethod string             `bson:"paymentMethod,omitempty"`
	CartItems     []cartItemDoc      `bson:"cartItems"`
	Status        string             `bson:"status"`
	CreatedAt     time.Time          `bson:"createdAt"`
}

var _ order.OrderLog = (*OrderLog)(nil)

// OrderLog implements order.OrderLog backed by MongoDB.
type OrderLog struct {
	coll *mongo.Collection
}

// NewOrderLog returns an OrderLog over the database.
func NewOrderLog(db *mongo.Database) *OrderLog {
	return &OrderLog{coll: db.Collection(ordersCollection)}
}

func (l *OrderLog) Append(ctx context.Context, o *order.Order) (*order.Order, error) {
	doc := orderDoc{
		Name:          o.Name,
		Phone:         o.Phone,
		Address:       o.Address,
		PaymentMethod: o.PaymentMethod,
		CartItems:     make([]cartItemDoc, len(o.CartItems)),
		Status:        string(o.Status),
		CreatedAt:     o.CreatedAt,
	}
	for i, it := range o.CartItems {
		doc.CartItems[i] = cartItemDoc(it)
	}

	res, err := l.coll.InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("appending order: %w", err)
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, errors.Errorf("unexpected inserted id %T", res.InsertedID)
	}

	stored := *o
	stored.ID = oid.Hex()
	return &stored, nil
}
