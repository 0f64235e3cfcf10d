package mongodb

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/xenking/online-nursery/internal/domain/product"
)

type categoryDoc struct {
	Name        string `bson:"name"`
	Description string `bson:"description,omitempty"`
	Image       string `bson:"image,omitempty"`
}

var _ product.CategoryRepository = (*CategoryRepository)(nil)

// CategoryRepository implements product.CategoryRepository backed by MongoDB.
type CategoryRepository struct {
	coll *mongo.Collection
}

// NewCategoryRepository returns a CategoryRepository over the database.
func NewCategoryRepository(db *mongo.Database) *CategoryRepository {
	return &CategoryRepository{coll: db.Collection(categoriesCollection)}
}

func (r *CategoryRepository) ListCategories(ctx context.Context) ([]product.Category, error) {
	cats, err := r.find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return cats, nil
}

func (r *CategoryRepository) GetCategory(ctx context.Context, name string) (*product.Category, error) {
	var doc categoryDoc
	if err := r.coll.FindOne(ctx, bson.M{"name": name}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, product.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("getting category %q: %w", name, err)
	}
	c := product.Category(doc)
	return &c, nil
}

func (r *CategoryRepository) SearchCategories(ctx context.Context, query string) ([]product.Category, error) {
	cats, err := r.find(ctx, bson.M{"name": containsRegex(query)})
	if err != nil {
		return nil, fmt.Errorf("searching categories: %w", err)
	}
	return cats, nil
}

func (r *CategoryRepository) UpsertCategory(ctx context.Context, c product.Category) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"name": c.Name},
		bson.M{"$set": categoryDoc(c)},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upserting category %q: %w", c.Name, err)
	}
	return nil
}

func (r *CategoryRepository) find(ctx context.Context, filter bson.M) ([]product.Category, error) {
	cur, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []categoryDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	cats := make([]product.Category, len(docs))
	for i, d := range docs {
		cats[i] = product.Category(d)
	}
	return cats, nil
}
