package domain

import (
	"strings"
	"time"

	"github.com/dmehra2102/Pharmacy-Management-System/pkg/apperr"
)

var (
	ErrCustomerNotFound = apperr.NotFound("customer_not_found", "customer not found")
	ErrDuplicateEmail   = apperr.Conflict("duplicate_email", "email is already registered")
	ErrCustomerHasOrder = apperr.Conflict("customer_has_orders", "customer has orders")
)

type Address struct {
	Street  string `json:"street" validate:"required"`
	City    string `json:"city" validate:"required"`
	State   string `json:"state" validate:"required"`
	ZipCode string `json:"zipCode" validate:"required"`
	Country string `json:"country" validate:"required"`
}

type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Address   *Address  `json:"address,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Profile struct {
	Name    string
	Email   string
	Phone   string
	Address *Address
	Notes   string
}

func NewCustomer(id string, p Profile) Customer {
	now := time.Now().UTC()
	c := Customer{ID: id, CreatedAt: now}
	c.Apply(p)
	c.UpdatedAt = now
	return c
}

// Apply overwrites the profile. Emails are stored lower-cased so the unique
// key is case-insensitive.
func (c *Customer) Apply(p Profile) {
	c.Name = p.Name
	c.Email = strings.ToLower(strings.TrimSpace(p.Email))
	c.Phone = p.Phone
	c.Address = p.Address
	c.Notes = p.Notes
	c.UpdatedAt = time.Now().UTC()
}
