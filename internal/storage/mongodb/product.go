package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/xenking/online-nursery/internal/domain/product"
)

type productDoc struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty"`
	Name        string               `bson:"name"`
	Category    string               `bson:"category"`
	Description string               `bson:"description,omitempty"`
	Image       string               `bson:"image,omitempty"`
	Price       primitive.Decimal128 `bson:"price"`
	Quantity    int                  `bson:"quantity"`
	CreatedAt   time.Time            `bson:"createdAt"`
	UpdatedAt   time.Time            `bson:"updatedAt"`
}

func toProductDoc(p *product.Product) (productDoc, error) {
	price, err := primitive.ParseDecimal128(p.Price.String())
	if err != nil {
		return productDoc{}, fmt.Errorf("encoding price %s: %w", p.Price, err)
	}
	return productDoc{
		Name:        p.Name,
		Category:    p.Category,
		Description: p.Description,
		Image:       p.Image,
		Price:       price,
		Quantity:    p.Quantity,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}, nil
}

func (d productDoc) product() (product.Product, error) {
	price, err := decimal.NewFromString(d.Price.String())
	if err != nil {
		return product.Product{}, fmt.Errorf("decoding price of %s: %w", d.ID.Hex(), err)
	}
	return product.Product{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		Category:    d.Category,
		Description: d.Description,
		Image:       d.Image,
		Price:       price,
		Quantity:    d.Quantity,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}, nil
}

var sortKeys = map[product.SortField]string{
	product.SortName:      "name",
	product.SortPrice:     "price",
	product.SortCategory:  "category",
	product.SortQuantity:  "quantity",
	product.SortCreatedAt: "createdAt",
}

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by MongoDB.
type ProductRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

// NewProductRepository returns a ProductRepository over the database.
func NewProductRepository(db *mongo.Database) *ProductRepository {
	return &ProductRepository{coll: db.Collection(productsCollection), now: time.Now}
}

func (r *ProductRepository) List(ctx context.Context, q product.ListQuery) (*product.Page, error) {
	filter := bson.M{}
	if q.Category != "" {
		filter["category"] = q.Category
	}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("counting products: %w", err)
	}

	key, ok := sortKeys[q.Sort]
	if !ok {
		key = "name"
	}
	dir := 1
	if q.Desc {
		dir = -1
	}
	opts := options.Find().
		SetSort(bson.D{{Key: key, Value: dir}, {Key: "_id", Value: 1}}).
		SetSkip(int64(q.Offset())).
		SetLimit(int64(q.Limit))

	products, err := r.find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return &product.Page{Products: products, Total: total}, nil
}

func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, product.ErrInvalidID
	}
	return r.one(r.coll.FindOne(ctx, bson.M{"_id": oid}), "getting product")
}

func (r *ProductRepository) ListByCategory(ctx context.Context, category string) ([]product.Product, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	products, err := r.find(ctx, bson.M{"category": category}, opts)
	if err != nil {
		return nil, fmt.Errorf("listing products of %q: %w", category, err)
	}
	return products, nil
}

func (r *ProductRepository) Search(ctx context.Context, query string) ([]product.Product, error) {
	re := containsRegex(query)
	filter := bson.M{"$or": bson.A{bson.M{"name": re}, bson.M{"category": re}}}
	products, err := r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("searching products: %w", err)
	}
	return products, nil
}

func (r *ProductRepository) Create(ctx context.Context, p *product.Product) (*product.Product, error) {
	now := r.now().UTC()
	stored := *p
	stored.CreatedAt, stored.UpdatedAt = now, now

	doc, err := toProductDoc(&stored)
	if err != nil {
		return nil, err
	}
	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("creating product: %w", err)
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, errors.Errorf("unexpected inserted id %T", res.InsertedID)
	}
	stored.ID = oid.Hex()
	return &stored, nil
}

// UpsertProduct inserts the product or replaces the one with the same name.
func (r *ProductRepository) UpsertProduct(ctx context.Context, p *product.Product) (*product.Product, error) {
	doc, err := toProductDoc(p)
	if err != nil {
		return nil, err
	}
	now := r.now().UTC()
	update := bson.M{
		"$set": bson.M{
			"category":    doc.Category,
			"description": doc.Description,
			"image":       doc.Image,
			"price":       doc.Price,
			"quantity":    doc.Quantity,
			"updatedAt":   now,
		},
		"$setOnInsert": bson.M{"createdAt": now},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	return r.one(r.coll.FindOneAndUpdate(ctx, bson.M{"name": p.Name}, update, opts), "upserting product")
}

func (r *ProductRepository) Update(ctx context.Context, id string, u product.Update) (*product.Product, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, product.ErrInvalidID
	}

	set := bson.M{"updatedAt": r.now().UTC()}
	if u.Name != nil {
		set["name"] = *u.Name
	}
	if u.Category != nil {
		set["category"] = *u.Category
	}
	if u.Description != nil {
		set["description"] = *u.Description
	}
	if u.Image != nil {
		set["image"] = *u.Image
	}
	if u.Price != nil {
		price, err := primitive.ParseDecimal128(u.Price.String())
		if err != nil {
			return nil, fmt.Errorf("encoding price %s: %w", u.Price, err)
		}
		set["price"] = price
	}
	if u.Quantity != nil {
		set["quantity"] = *u.Quantity
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	return r.one(r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts), "updating product")
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return product.ErrInvalidID
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("deleting product %q: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return product.ErrNotFound
	}
	return nil
}

func (r *ProductRepository) one(res *mongo.SingleResult, op string) (*product.Product, error) {
	var doc productDoc
	if err := res.Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	p, err := doc.product()
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProductRepository) find(ctx context.Context, filter any, opts *options.FindOptions) ([]product.Product, error) {
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []productDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	products := make([]product.Product, 0, len(docs))
	for _, d := range docs {
		p, err := d.product()
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, nil
}
