package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	pkgerrors "github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dmehra2102/Pharmacy-Management-System/internal/inventory/domain"
	"github.com/dmehra2102/Pharmacy-Management-System/internal/platform/mongodb"
)

type productDoc struct {
	ID          string    `bson:"_id"`
	Name        string    `bson:"name"`
	Description string    `bson:"description,omitempty"`
	PriceCents  int64     `bson:"price_cents"`
	Stock       int       `bson:"stock"`
	Category    string    `bson:"category"`
	SKU         string    `bson:"sku"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func toDoc(p domain.Product) productDoc {
	return productDoc{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		PriceCents:  p.PriceCents,
		Stock:       p.Stock,
		Category:    p.Category,
		SKU:         p.SKU,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func (d productDoc) product() domain.Product {
	return domain.Product{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		PriceCents:  d.PriceCents,
		Stock:       d.Stock,
		Category:    d.Category,
		SKU:         d.SKU,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

type Repository struct {
	log        *slog.Logger
	collection *mongo.Collection
}

func NewRepository(log *slog.Logger, db *mongo.Database) *Repository {
	return &Repository{log: log, collection: db.Collection(mongodb.CollectionInventory)}
}

// DecrementIfAvailable is a single conditional update: the filter only
// matches while stock covers the quantity, so two concurrent callers can
// never both take the last units.
func (r *Repository) DecrementIfAvailable(ctx context.Context, productID string, quantity int) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": productID, "stock": bson.M{"$gte": quantity}},
		bson.M{
			"$inc": bson.M{"stock": -quantity},
			"$set": bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return pkgerrors.Wrap(err, "decrement stock")
	}
	if res.MatchedCount == 1 {
		return nil
	}
	exists, err := r.exists(ctx, productID)
	if err != nil {
		return err
	}
	r.log.Debug("stock reservation refused", "product_id", productID, "quantity", quantity, "exists", exists)
	if !exists {
		return domain.ErrProductNotFound
	}
	return domain.ErrInsufficientStock
}

func (r *Repository) Increment(ctx context.Context, productID string, quantity int) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": productID},
		bson.M{
			"$inc": bson.M{"stock": quantity},
			"$set": bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return pkgerrors.Wrap(err, "increment stock")
	}
	if res.MatchedCount == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (r *Repository) exists(ctx context.Context, id string) (bool, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return false, pkgerrors.Wrap(err, "count product")
	}
	return n > 0, nil
}

func (r *Repository) Create(ctx context.Context, p domain.Product) error {
	if _, err := r.collection.InsertOne(ctx, toDoc(p)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("sku %s: %w", p.SKU, domain.ErrDuplicateSKU)
		}
		return pkgerrors.Wrap(err, "insert product")
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Product, error) {
	var doc productDoc
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, pkgerrors.Wrap(err, "find product")
	}
	return doc.product(), nil
}

func (r *Repository) List(ctx context.Context) ([]domain.Product, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "find products")
	}
	var docs []productDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, pkgerrors.Wrap(err, "decode products")
	}
	out := make([]domain.Product, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.product())
	}
	return out, nil
}

func (r *Repository) UpdateDetails(ctx context.Context, p domain.Product) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": p.ID}, bson.M{"$set": bson.M{
		"name":        p.Name,
		"description": p.Description,
		"price_cents": p.PriceCents,
		"category":    p.Category,
		"sku":         p.SKU,
		"updated_at":  p.UpdatedAt,
	}})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("sku %s: %w", p.SKU, domain.ErrDuplicateSKU)
		}
		return pkgerrors.Wrap(err, "update product")
	}
	if res.MatchedCount == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return pkgerrors.Wrap(err, "delete product")
	}
	if res.DeletedCount == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (r *Repository) Count(ctx context.Context) (int64, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{})
	return n, pkgerrors.Wrap(err, "count products")
}

func (r *Repository) CountLowStock(ctx context.Context, threshold int) (int64, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"stock": bson.M{"$lt": threshold}})
	return n, pkgerrors.Wrap(err, "count low stock")
}
