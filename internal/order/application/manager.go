package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"

	"github.com/dmehra2102/Pharmacy-Management-System/internal/order/domain"
	"github.com/dmehra2102/Pharmacy-Management-System/pkg/identity"
	"github.com/dmehra2102/Pharmacy-Management-System/pkg/outbox"
	"github.com/dmehra2102/Pharmacy-Management-System/pkg/tracing"
	"github.com/dmehra2102/Pharmacy-Management-System/pkg/validate"
)

type LineItemInput struct {
	ProductID      string `json:"productId" validate:"required"`
	Quantity       int    `json:"quantity" validate:"gt=0"`
	UnitPriceCents int64  `json:"unitPriceCents" validate:"gt=0"`
}

type CreateOrderInput struct {
	CustomerID      string          `json:"customerId" validate:"required"`
	Items           []LineItemInput `json:"items" validate:"required,min=1,dive"`
	PaymentMethod   string          `json:"paymentMethod" validate:"required"`
	ShippingAddress *domain.Address `json:"shippingAddress"`
}

func (in CreateOrderInput) items() []domain.OrderItem {
	out := make([]domain.OrderItem, 0, len(in.Items))
	for _, it := range in.Items {
		out = append(out, domain.OrderItem{ProductID: it.ProductID, Quantity: it.Quantity, UnitPriceCents: it.UnitPriceCents})
	}
	return out
}

type StatusInput struct {
	Status domain.OrderStatus `json:"status" validate:"required,oneof=pending processing completed cancelled"`
}

// Manager drives the order lifecycle and the stock adjustments that go with
// it. Every mutation runs inside one Transactor unit of work; on stores
// without transactions a failed unit is undone step by step.
type Manager struct {
	log       *slog.Logger
	tx        Transactor
	orders    OrderRepository
	customers CustomerLookup
	stock     StockLedger
	events    outbox.Recorder
}

func NewManager(log *slog.Logger, tx Transactor, orders OrderRepository, customers CustomerLookup, stock StockLedger, events outbox.Recorder) *Manager {
	return &Manager{
		log:       log,
		tx:        tx,
		orders:    orders,
		customers: customers,
		stock:     stock,
		events:    events,
	}
}

// CreateOrder reserves every line item in input order and stores the order
// as pending. Either all reservations and the order survive or none do.
func (m *Manager) CreateOrder(ctx context.Context, in CreateOrderInput) (domain.Order, error) {
	if err := validate.Struct(in); err != nil {
		return domain.Order{}, err
	}
	ok, err := m.customers.Exists(ctx, in.CustomerID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("lookup customer: %w", err)
	}
	if !ok {
		return domain.Order{}, fmt.Errorf("customer %s: %w", in.CustomerID, domain.ErrCustomerNotFound)
	}

	o := domain.NewOrder(uuid.NewString(), in.CustomerID, in.items(), in.PaymentMethod, in.ShippingAddress)
	s := newSaga(m.log, !m.tx.Atomic())

	err = m.tx.WithinTx(ctx, func(ctx context.Context) error {
		for _, item := range o.Items {
			if err := m.stock.CheckAndReserve(ctx, item.ProductID, item.Quantity); err != nil {
				return err
			}
			s.add("release "+item.ProductID, func(ctx context.Context) error {
				return m.stock.Release(ctx, item.ProductID, item.Quantity)
			})
		}
		if err := m.orders.Insert(ctx, o); err != nil {
			return err
		}
		s.add("remove order", func(ctx context.Context) error {
			return m.orders.DeleteIfStatus(ctx, o.ID, domain.StatusPending)
		})
		return m.record(ctx, o.ID, domain.EventOrderCreated, domain.OrderCreated{
			OrderID:    o.ID,
			CustomerID: o.CustomerID,
			TotalCents: o.TotalCents,
			Items:      o.Items,
		})
	})
	if err != nil {
		return domain.Order{}, s.compensate(ctx, err)
	}

	m.log.Info("order created", "order_id", o.ID, "customer_id", o.CustomerID,
		"items", len(o.Items), "total_cents", o.TotalCents, "user_id", identity.UserID(ctx))
	return o, nil
}

// UpdateStatus moves an order along pending -> processing -> completed or
// pending -> cancelled. Setting the current status again is a no-op.
// Cancelling returns the order's stock.
func (m *Manager) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (domain.Order, error) {
	if err := validate.Struct(StatusInput{Status: status}); err != nil {
		return domain.Order{}, err
	}
	current, err := m.orders.Get(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	if current.Status == status {
		return current, nil
	}
	if !current.Status.CanTransitionTo(status) {
		return domain.Order{}, fmt.Errorf("order %s %s -> %s: %w", id, current.Status, status, domain.ErrInvalidTransition)
	}

	s := newSaga(m.log, !m.tx.Atomic())
	var updated domain.Order
	err = m.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		updated, err = m.orders.UpdateStatus(ctx, id, current.Status, status, time.Now().UTC())
		if err != nil {
			return err
		}
		s.add("restore status", func(ctx context.Context) error {
			_, err := m.orders.UpdateStatus(ctx, id, status, current.Status, current.UpdatedAt)
			return err
		})

		if status == domain.StatusCancelled {
			if err := m.releaseAll(ctx, s, current.Items); err != nil {
				return err
			}
			return m.record(ctx, id, domain.EventOrderCancelled, domain.OrderReleased{OrderID: id, Items: current.Items})
		}
		return m.record(ctx, id, domain.EventOrderStatusChanged, domain.OrderStatusChanged{OrderID: id, From: current.Status, To: status})
	})
	if err != nil {
		return domain.Order{}, s.compensate(ctx, err)
	}

	m.log.Info("order status updated", "order_id", id, "from", current.Status, "to", status, "user_id", identity.UserID(ctx))
	return updated, nil
}

// DeleteOrder removes a pending order and returns its stock. The delete is
// conditional on the order still being pending, so stock comes back once
// even when callers race.
func (m *Manager) DeleteOrder(ctx context.Context, id string) error {
	o, err := m.orders.Get(ctx, id)
	if err != nil {
		return err
	}
	if o.Status != domain.StatusPending {
		return fmt.Errorf("order %s is %s: %w", id, o.Status, domain.ErrNotPending)
	}

	s := newSaga(m.log, !m.tx.Atomic())
	err = m.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := m.orders.DeleteIfStatus(ctx, id, domain.StatusPending); err != nil {
			if errors.Is(err, domain.ErrStatusChanged) {
				return fmt.Errorf("order %s: %w", id, domain.ErrNotPending)
			}
			return err
		}
		s.add("restore order", func(ctx context.Context) error {
			return m.orders.Insert(ctx, o)
		})
		if err := m.releaseAll(ctx, s, o.Items); err != nil {
			return err
		}
		return m.record(ctx, id, domain.EventOrderDeleted, domain.OrderReleased{OrderID: id, Items: o.Items})
	})
	if err != nil {
		return s.compensate(ctx, err)
	}

	m.log.Info("order deleted", "order_id", id, "user_id", identity.UserID(ctx))
	return nil
}

func (m *Manager) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	return m.orders.Get(ctx, id)
}

// ListOrders returns orders newest first.
func (m *Manager) ListOrders(ctx context.Context, f ListFilter) ([]domain.Order, error) {
	return m.orders.List(ctx, f)
}

func (m *Manager) releaseAll(ctx context.Context, s *saga, items []domain.OrderItem) error {
	for _, item := range items {
		if err := m.stock.Release(ctx, item.ProductID, item.Quantity); err != nil {
			return err
		}
		s.add("reserve "+item.ProductID, func(ctx context.Context) error {
			return m.stock.CheckAndReserve(ctx, item.ProductID, item.Quantity)
		})
	}
	return nil
}

func (m *Manager) record(ctx context.Context, orderID, eventType string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return pkgerrors.Wrap(err, "marshal event")
	}
	return m.events.Record(ctx, outbox.Event{
		AggregateType: "order",
		AggregateID:   orderID,
		Type:          eventType,
		Payload:       body,
		Headers: map[string]string{
			"order_id": orderID,
			"user_id":  identity.UserID(ctx),
		},
		Traceparent: tracing.Traceparent(ctx),
		CreatedAt:   time.Now().UTC(),
	})
}
