package domain

import (
	"time"

	"github.com/dmehra2102/Pharmacy-Management-System/pkg/apperr"
)

var (
	ErrProductNotFound   = apperr.NotFound("product_not_found", "product not found")
	ErrInsufficientStock = apperr.Conflict("insufficient_stock", "insufficient stock")
	ErrDuplicateSKU      = apperr.Conflict("duplicate_sku", "sku is already registered")
	ErrProductInUse      = apperr.Conflict("product_in_use", "product is referenced by orders")
	ErrInvalidQuantity   = apperr.New(apperr.KindValidation, "invalid_quantity", "quantity must be a positive number")
)

// Product is one sellable item. Stock never goes below zero and is changed
// only through the stock ledger.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	PriceCents  int64     `json:"priceCents"`
	Stock       int       `json:"stock"`
	Category    string    `json:"category"`
	SKU         string    `json:"sku"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Details are the fields product management may change.
type Details struct {
	Name        string
	Description string
	PriceCents  int64
	Category    string
	SKU         string
}

func NewProduct(id string, d Details, stock int) Product {
	now := time.Now().UTC()
	return Product{
		ID:          id,
		Name:        d.Name,
		Description: d.Description,
		PriceCents:  d.PriceCents,
		Stock:       stock,
		Category:    d.Category,
		SKU:         d.SKU,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (p *Product) Apply(d Details) {
	p.Name = d.Name
	p.Description = d.Description
	p.PriceCents = d.PriceCents
	p.Category = d.Category
	p.SKU = d.SKU
	p.UpdatedAt = time.Now().UTC()
}
