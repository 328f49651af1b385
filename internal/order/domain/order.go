package domain

import (
	"time"

	"github.com/dmehra2102/Pharmacy-Management-System/pkg/apperr"
)

var (
	ErrOrderNotFound     = apperr.NotFound("order_not_found", "order not found")
	ErrInvalidTransition = apperr.Conflict("invalid_transition", "status transition is not allowed")
	ErrNotPending        = apperr.Conflict("order_not_pending", "only pending orders can be deleted")
	ErrStatusChanged     = apperr.Conflict("order_status_changed", "order status changed concurrently")
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusProcessing OrderStatus = "processing"
	StatusCompleted  OrderStatus = "completed"
	StatusCancelled  OrderStatus = "cancelled"
)

var transitions = map[OrderStatus][]OrderStatus{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusCompleted},
}

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether next follows s in the forward-only graph
// pending -> processing -> completed, pending -> cancelled.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

type Address struct {
	Street  string `json:"street" validate:"required"`
	City    string `json:"city" validate:"required"`
	State   string `json:"state" validate:"required"`
	ZipCode string `json:"zipCode" validate:"required"`
	Country string `json:"country" validate:"required"`
}

type Order struct {
	ID              string        `json:"id"`
	CustomerID      string        `json:"customerId"`
	Items           []OrderItem   `json:"items"`
	TotalCents      int64         `json:"totalCents"`
	Status          OrderStatus   `json:"status"`
	PaymentMethod   string        `json:"paymentMethod"`
	PaymentStatus   PaymentStatus `json:"paymentStatus"`
	ShippingAddress *Address      `json:"shippingAddress,omitempty"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

// ProductSales is the quantity of one product across all orders.
type ProductSales struct {
	ProductID string `json:"productId"`
	TotalSold int64  `json:"totalSold"`
}

type OrderItem struct {
	ProductID      string `json:"productId"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unitPriceCents"`
}

func NewOrder(id, customerID string, items []OrderItem, paymentMethod string, shipping *Address) Order {
	var total int64
	for _, item := range items {
		total += int64(item.Quantity) * item.UnitPriceCents
	}
	now := time.Now().UTC()
	return Order{
		ID:              id,
		CustomerID:      customerID,
		Items:           items,
		TotalCents:      total,
		Status:          StatusPending,
		PaymentMethod:   paymentMethod,
		PaymentStatus:   PaymentPending,
		ShippingAddress: shipping,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// ErrCustomerNotFound is returned when an order names an unknown customer.
var ErrCustomerNotFound = apperr.NotFound("customer_not_found", "customer not found")
