package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	pkgerrors "github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dmehra2102/Pharmacy-Management-System/internal/customer/domain"
	"github.com/dmehra2102/Pharmacy-Management-System/internal/platform/mongodb"
)

type addressDoc struct {
	Street  string `bson:"street"`
	City    string `bson:"city"`
	State   string `bson:"state"`
	ZipCode string `bson:"zip_code"`
	Country string `bson:"country"`
}

type customerDoc struct {
	ID        string      `bson:"_id"`
	Name      string      `bson:"name"`
	Email     string      `bson:"email"`
	Phone     string      `bson:"phone,omitempty"`
	Address   *addressDoc `bson:"address,omitempty"`
	Notes     string      `bson:"notes,omitempty"`
	CreatedAt time.Time   `bson:"created_at"`
	UpdatedAt time.Time   `bson:"updated_at"`
}

func toDoc(c domain.Customer) customerDoc {
	d := customerDoc{
		ID:        c.ID,
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		Notes:     c.Notes,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
	if a := c.Address; a != nil {
		d.Address = &addressDoc{Street: a.Street, City: a.City, State: a.State, ZipCode: a.ZipCode, Country: a.Country}
	}
	return d
}

func (d customerDoc) customer() domain.Customer {
	c := domain.Customer{
		ID:        d.ID,
		Name:      d.Name,
		Email:     d.Email,
		Phone:     d.Phone,
		Notes:     d.Notes,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	if a := d.Address; a != nil {
		c.Address = &domain.Address{Street: a.Street, City: a.City, State: a.State, ZipCode: a.ZipCode, Country: a.Country}
	}
	return c
}

type Repository struct {
	collection *mongo.Collection
}

func NewRepository(db *mongo.Database) *Repository {
	return &Repository{collection: db.Collection(mongodb.CollectionCustomers)}
}

func (r *Repository) Create(ctx context.Context, c domain.Customer) error {
	if _, err := r.collection.InsertOne(ctx, toDoc(c)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("email %s: %w", c.Email, domain.ErrDuplicateEmail)
		}
		return pkgerrors.Wrap(err, "insert customer")
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Customer, error) {
	var doc customerDoc
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Customer{}, domain.ErrCustomerNotFound
		}
		return domain.Customer{}, pkgerrors.Wrap(err, "find customer")
	}
	return doc.customer(), nil
}

func (r *Repository) List(ctx context.Context) ([]domain.Customer, error) {
	cursor, err := r.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, pkgerrors.Wrap(err, "find customers")
	}
	var docs []customerDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, pkgerrors.Wrap(err, "decode customers")
	}
	out := make([]domain.Customer, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.customer())
	}
	return out, nil
}

func (r *Repository) Update(ctx context.Context, c domain.Customer) error {
	doc := toDoc(c)
	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": c.ID}, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("email %s: %w", c.Email, domain.ErrDuplicateEmail)
		}
		return pkgerrors.Wrap(err, "replace customer")
	}
	if res.MatchedCount == 0 {
		return domain.ErrCustomerNotFound
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return pkgerrors.Wrap(err, "delete customer")
	}
	if res.DeletedCount == 0 {
		return domain.ErrCustomerNotFound
	}
	return nil
}

func (r *Repository) Exists(ctx context.Context, id string) (bool, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return false, pkgerrors.Wrap(err, "count customer")
	}
	return n > 0, nil
}

func (r *Repository) Count(ctx context.Context) (int64, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{})
	return n, pkgerrors.Wrap(err, "count customers")
}
