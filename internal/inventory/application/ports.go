package application

import (
	"context"

	"github.com/dmehra2102/Pharmacy-Management-System/internal/inventory/domain"
)

// StockStore is the only write path for product stock.
type StockStore interface {
	// DecrementIfAvailable subtracts quantity in one conditional write that
	// only matches while stock >= quantity. Returns domain.ErrProductNotFound
	// or domain.ErrInsufficientStock, leaving stock untouched.
	DecrementIfAvailable(ctx context.Context, productID string, quantity int) error
	Increment(ctx context.Context, productID string, quantity int) error
}

type ProductRepository interface {
	Create(ctx context.Context, p domain.Product) error
	Get(ctx context.Context, id string) (domain.Product, error)
	// List returns products newest first.
	List(ctx context.Context) ([]domain.Product, error)
	// UpdateDetails overwrites everything but stock.
	UpdateDetails(ctx context.Context, p domain.Product) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
	CountLowStock(ctx context.Context, threshold int) (int64, error)
}

type OrderReferences interface {
	HasProduct(ctx context.Context, productID string) (bool, error)
}
