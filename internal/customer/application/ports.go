package application

import (
	"context"

	"github.com/dmehra2102/Pharmacy-Management-System/internal/customer/domain"
)

type CustomerRepository interface {
	Create(ctx context.Context, c domain.Customer) error
	Get(ctx context.Context, id string) (domain.Customer, error)
	// List returns customers newest first.
	List(ctx context.Context) ([]domain.Customer, error)
	Update(ctx context.Context, c domain.Customer) error
	Delete(ctx context.Context, id string) error
	Exists(ctx context.Context, id string) (bool, error)
	Count(ctx context.Context) (int64, error)
}

type OrderReferences interface {
	HasCustomer(ctx context.Context, customerID string) (bool, error)
}
