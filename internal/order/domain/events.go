package domain

const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
	EventOrderCancelled     = "order.cancelled"
	EventOrderDeleted       = "order.deleted"
)

type OrderCreated struct {
	OrderID    string      `json:"orderId"`
	CustomerID string      `json:"customerId"`
	TotalCents int64       `json:"totalCents"`
	Items      []OrderItem `json:"items"`
}

type OrderStatusChanged struct {
	OrderID string      `json:"orderId"`
	From    OrderStatus `json:"from"`
	To      OrderStatus `json:"to"`
}

// OrderReleased is emitted when an order gives its stock back, by
// cancellation or deletion.
type OrderReleased struct {
	OrderID string      `json:"orderId"`
	Items   []OrderItem `json:"items"`
}
