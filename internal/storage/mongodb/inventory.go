package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/xenking/online-nursery/internal/domain/order"
	"github.com/xenking/online-nursery/internal/domain/product"
)

var _ order.InventoryStore = (*InventoryStore)(nil)

// InventoryStore implements order.InventoryStore with single-document
// conditional updates.
type InventoryStore struct {
	coll     *mongo.Collection
	products *ProductRepository
}

// NewInventoryStore returns an InventoryStore over the database.
func NewInventoryStore(db *mongo.Database) *InventoryStore {
	return &InventoryStore{coll: db.Collection(productsCollection), products: NewProductRepository(db)}
}

// Get returns the product. Identifiers that are not ObjectIDs are reported
// as product.ErrNotFound.
func (s *InventoryStore) Get(ctx context.Context, id string) (*product.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if errors.Is(err, product.ErrInvalidID) {
		return nil, product.ErrNotFound
	}
	return p, err
}

func (s *InventoryStore) ConditionalDecrement(ctx context.Context, id string, n int) (int, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return 0, product.ErrNotFound
	}

	var doc struct {
		Quantity int `bson:"quantity"`
	}
	err = s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": oid, "quantity": bson.M{"$gte": n}},
		bson.M{
			"$inc": bson.M{"quantity": -n},
			"$set": bson.M{"updatedAt": time.Now().UTC()},
		},
		options.FindOneAndUpdate().
			SetReturnDocument(options.After).
			SetProjection(bson.M{"quantity": 1}),
	).Decode(&doc)
	if err == nil {
		return doc.Quantity, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return 0, fmt.Errorf("decrementing stock of %q: %w", id, err)
	}

	// Refused: tell a missing product from a short one.
	err = s.coll.FindOne(ctx, bson.M{"_id": oid},
		options.FindOne().SetProjection(bson.M{"quantity": 1}),
	).Decode(&doc)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return 0, product.ErrNotFound
	case err != nil:
		doc.Quantity = -1
	}
	return 0, &order.InsufficientStockError{ProductID: id, Requested: n, Available: doc.Quantity}
}

func (s *InventoryStore) Increment(ctx context.Context, id string, n int) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return product.ErrNotFound
	}
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{
		"$inc": bson.M{"quantity": n},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	})
	if err != nil {
		return fmt.Errorf("incrementing stock of %q: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return product.ErrNotFound
	}
	return nil
}
