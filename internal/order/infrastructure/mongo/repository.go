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

	"github.com/dmehra2102/Pharmacy-Management-System/internal/order/application"
	"github.com/dmehra2102/Pharmacy-Management-System/internal/order/domain"
	"github.com/dmehra2102/Pharmacy-Management-System/internal/platform/mongodb"
)

type itemDoc struct {
	ProductID      string `bson:"product_id"`
	Quantity       int    `bson:"quantity"`
	UnitPriceCents int64  `bson:"unit_price_cents"`
}

type addressDoc struct {
	Street  string `bson:"street"`
	City    string `bson:"city"`
	State   string `bson:"state"`
	ZipCode string `bson:"zip_code"`
	Country string `bson:"country"`
}

type orderDoc struct {
	ID              string      `bson:"_id"`
	CustomerID      string      `bson:"customer_id"`
	Items           []itemDoc   `bson:"items"`
	TotalCents      int64       `bson:"total_cents"`
	Status          string      `bson:"status"`
	PaymentMethod   string      `bson:"payment_method"`
	PaymentStatus   string      `bson:"payment_status"`
	ShippingAddress *addressDoc `bson:"shipping_address,omitempty"`
	CreatedAt       time.Time   `bson:"created_at"`
	UpdatedAt       time.Time   `bson:"updated_at"`
}

func toDoc(o domain.Order) orderDoc {
	d := orderDoc{
		ID:            o.ID,
		CustomerID:    o.CustomerID,
		Items:         make([]itemDoc, 0, len(o.Items)),
		TotalCents:    o.TotalCents,
		Status:        string(o.Status),
		PaymentMethod: o.PaymentMethod,
		PaymentStatus: string(o.PaymentStatus),
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
	for _, it := range o.Items {
		d.Items = append(d.Items, itemDoc{ProductID: it.ProductID, Quantity: it.Quantity, UnitPriceCents: it.UnitPriceCents})
	}
	if a := o.ShippingAddress; a != nil {
		d.ShippingAddress = &addressDoc{Street: a.Street, City: a.City, State: a.State, ZipCode: a.ZipCode, Country: a.Country}
	}
	return d
}

func (d orderDoc) order() domain.Order {
	o := domain.Order{
		ID:            d.ID,
		CustomerID:    d.CustomerID,
		Items:         make([]domain.OrderItem, 0, len(d.Items)),
		TotalCents:    d.TotalCents,
		Status:        domain.OrderStatus(d.Status),
		PaymentMethod: d.PaymentMethod,
		PaymentStatus: domain.PaymentStatus(d.PaymentStatus),
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
	for _, it := range d.Items {
		o.Items = append(o.Items, domain.OrderItem{ProductID: it.ProductID, Quantity: it.Quantity, UnitPriceCents: it.UnitPriceCents})
	}
	if a := d.ShippingAddress; a != nil {
		o.ShippingAddress = &domain.Address{Street: a.Street, City: a.City, State: a.State, ZipCode: a.ZipCode, Country: a.Country}
	}
	return o
}

type Repository struct {
	log        *slog.Logger
	collection *mongo.Collection
}

func NewRepository(log *slog.Logger, db *mongo.Database) *Repository {
	return &Repository{log: log, collection: db.Collection(mongodb.CollectionOrders)}
}

func (r *Repository) Insert(ctx context.Context, o domain.Order) error {
	if _, err := r.collection.InsertOne(ctx, toDoc(o)); err != nil {
		return pkgerrors.Wrap(err, "insert order")
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Order, error) {
	var doc orderDoc
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, pkgerrors.Wrap(err, "find order")
	}
	return doc.order(), nil
}

func (r *Repository) List(ctx context.Context, f application.ListFilter) ([]domain.Order, error) {
	filter := bson.M{}
	if f.CustomerID != "" {
		filter["customer_id"] = f.CustomerID
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "find orders")
	}
	var docs []orderDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, pkgerrors.Wrap(err, "decode orders")
	}
	out := make([]domain.Order, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.order())
	}
	return out, nil
}

// UpdateStatus is a single conditional update on (_id, status).
func (r *Repository) UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus, at time.Time) (domain.Order, error) {
	var doc orderDoc
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": string(from)},
		bson.M{"$set": bson.M{"status": string(to), "updated_at": at}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err == nil {
		return doc.order(), nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Order{}, pkgerrors.Wrap(err, "update order status")
	}
	if err := r.guardMiss(ctx, id); err != nil {
		return domain.Order{}, err
	}
	return domain.Order{}, fmt.Errorf("order %s is no longer %s: %w", id, from, domain.ErrStatusChanged)
}

func (r *Repository) DeleteIfStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "status": string(status)})
	if err != nil {
		return pkgerrors.Wrap(err, "delete order")
	}
	if res.DeletedCount == 1 {
		return nil
	}
	if err := r.guardMiss(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("order %s is no longer %s: %w", id, status, domain.ErrStatusChanged)
}

// guardMiss tells a missing order apart from one whose status moved on.
func (r *Repository) guardMiss(ctx context.Context, id string) error {
	n, err := r.collection.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return pkgerrors.Wrap(err, "count order")
	}
	r.log.Debug("order status guard missed", "order_id", id, "exists", n > 0)
	if n == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

func (r *Repository) Count(ctx context.Context) (int64, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{})
	return n, pkgerrors.Wrap(err, "count orders")
}

func (r *Repository) Revenue(ctx context.Context) (int64, error) {
	cursor, err := r.collection.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"status": string(domain.StatusCompleted)}}},
		{{Key: "$group", Value: bson.M{"_id": nil, "total": bson.M{"$sum": "$total_cents"}}}},
	})
	if err != nil {
		return 0, pkgerrors.Wrap(err, "aggregate revenue")
	}
	var rows []struct {
		Total int64 `bson:"total"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return 0, pkgerrors.Wrap(err, "decode revenue")
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Total, nil
}

func (r *Repository) CountByStatus(ctx context.Context) (map[domain.OrderStatus]int64, error) {
	cursor, err := r.collection.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, pkgerrors.Wrap(err, "aggregate orders by status")
	}
	var rows []struct {
		Status string `bson:"_id"`
		Count  int64  `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, pkgerrors.Wrap(err, "decode orders by status")
	}
	out := make(map[domain.OrderStatus]int64, len(rows))
	for _, row := range rows {
		out[domain.OrderStatus(row.Status)] = row.Count
	}
	return out, nil
}

func (r *Repository) TopProducts(ctx context.Context, limit int) ([]domain.ProductSales, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$unwind", Value: "$items"}},
		{{Key: "$group", Value: bson.M{"_id": "$items.product_id", "total_sold": bson.M{"$sum": "$items.quantity"}}}},
		{{Key: "$sort", Value: bson.D{{Key: "total_sold", Value: -1}, {Key: "_id", Value: 1}}}},
	}
	if limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: limit}})
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "aggregate top products")
	}
	var rows []struct {
		ProductID string `bson:"_id"`
		TotalSold int64  `bson:"total_sold"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, pkgerrors.Wrap(err, "decode top products")
	}
	out := make([]domain.ProductSales, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.ProductSales{ProductID: row.ProductID, TotalSold: row.TotalSold})
	}
	return out, nil
}

func (r *Repository) HasProduct(ctx context.Context, productID string) (bool, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"items.product_id": productID}, options.Count().SetLimit(1))
	return n > 0, pkgerrors.Wrap(err, "count orders by product")
}

func (r *Repository) HasCustomer(ctx context.Context, customerID string) (bool, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"customer_id": customerID}, options.Count().SetLimit(1))
	return n > 0, pkgerrors.Wrap(err, "count orders by customer")
}
