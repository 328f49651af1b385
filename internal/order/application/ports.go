package application

import (
	"context"
	"time"

	"github.com/dmehra2102/Pharmacy-Management-System/internal/order/domain"
)

type ListFilter struct {
	CustomerID string
	Limit      int
}

type OrderRepository interface {
	Insert(ctx context.Context, o domain.Order) error
	Get(ctx context.Context, id string) (domain.Order, error)
	// List returns orders newest first.
	List(ctx context.Context, f ListFilter) ([]domain.Order, error)
	// UpdateStatus moves the order from one status to another and fails with
	// domain.ErrStatusChanged if the stored status is no longer from.
	UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus, at time.Time) (domain.Order, error)
	// DeleteIfStatus removes the order only while it has the given status,
	// failing with domain.ErrStatusChanged otherwise.
	DeleteIfStatus(ctx context.Context, id string, status domain.OrderStatus) error
	Count(ctx context.Context) (int64, error)
	// Revenue sums the totals of completed orders.
	Revenue(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context) (map[domain.OrderStatus]int64, error)
	// TopProducts ranks products by quantity ordered, highest first, ties by
	// product id.
	TopProducts(ctx context.Context, limit int) ([]domain.ProductSales, error)
	HasProduct(ctx context.Context, productID string) (bool, error)
	HasCustomer(ctx context.Context, customerID string) (bool, error)
}

// Transactor runs fn as one unit of work. Atomic reports whether that unit
// is a real transaction; when it is not the manager compensates itself.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
	Atomic() bool
}

type CustomerLookup interface {
	Exists(ctx context.Context, customerID string) (bool, error)
}

type StockLedger interface {
	CheckAndReserve(ctx context.Context, productID string, quantity int) error
	Release(ctx context.Context, productID string, quantity int) error
}
