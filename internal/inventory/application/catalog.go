package application

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmehra2102/Pharmacy-Management-System/internal/inventory/domain"
	"github.com/dmehra2102/Pharmacy-Management-System/pkg/validate"
)

type DetailsInput struct {
	Name        string `json:"name" validate:"required,min=2"`
	Description string `json:"description"`
	PriceCents  int64  `json:"priceCents" validate:"gte=0"`
	Category    string `json:"category" validate:"required"`
	SKU         string `json:"sku" validate:"required,min=3"`
}

func (in DetailsInput) details() domain.Details {
	return domain.Details{
		Name:        in.Name,
		Description: in.Description,
		PriceCents:  in.PriceCents,
		Category:    in.Category,
		SKU:         in.SKU,
	}
}

type CreateProductInput struct {
	Name        string `json:"name" validate:"required,min=2"`
	Description string `json:"description"`
	PriceCents  int64  `json:"priceCents" validate:"gte=0"`
	Category    string `json:"category" validate:"required"`
	SKU         string `json:"sku" validate:"required,min=3"`
	Stock       int    `json:"stock" validate:"gte=0"`
}

func (in CreateProductInput) details() domain.Details {
	return DetailsInput{
		Name:        in.Name,
		Description: in.Description,
		PriceCents:  in.PriceCents,
		Category:    in.Category,
		SKU:         in.SKU,
	}.details()
}

type Catalog struct {
	repo   ProductRepository
	ledger *Ledger
	orders OrderReferences
}

func NewCatalog(repo ProductRepository, ledger *Ledger, orders OrderReferences) *Catalog {
	return &Catalog{repo: repo, ledger: ledger, orders: orders}
}

func (c *Catalog) Create(ctx context.Context, in CreateProductInput) (domain.Product, error) {
	if err := validate.Struct(in); err != nil {
		return domain.Product{}, err
	}
	p := domain.NewProduct(uuid.NewString(), in.details(), in.Stock)
	if err := c.repo.Create(ctx, p); err != nil {
		return domain.Product{}, err
	}
	return p, nil
}

func (c *Catalog) Get(ctx context.Context, id string) (domain.Product, error) {
	return c.repo.Get(ctx, id)
}

func (c *Catalog) List(ctx context.Context) ([]domain.Product, error) {
	return c.repo.List(ctx)
}

// Update changes product details. Stock is not writable here; use Restock.
func (c *Catalog) Update(ctx context.Context, id string, in DetailsInput) (domain.Product, error) {
	if err := validate.Struct(in); err != nil {
		return domain.Product{}, err
	}
	p, err := c.repo.Get(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	p.Apply(in.details())
	if err := c.repo.UpdateDetails(ctx, p); err != nil {
		return domain.Product{}, err
	}
	return c.repo.Get(ctx, id)
}

// Delete removes a product no order refers to.
func (c *Catalog) Delete(ctx context.Context, id string) error {
	used, err := c.orders.HasProduct(ctx, id)
	if err != nil {
		return err
	}
	if used {
		return fmt.Errorf("product %s: %w", id, domain.ErrProductInUse)
	}
	return c.repo.Delete(ctx, id)
}

func (c *Catalog) Restock(ctx context.Context, id string, quantity int) (domain.Product, error) {
	if err := c.ledger.Restock(ctx, id, quantity); err != nil {
		return domain.Product{}, err
	}
	return c.repo.Get(ctx, id)
}
