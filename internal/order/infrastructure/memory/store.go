package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/dmehra2102/Pharmacy-Management-System/internal/order/application"
	"github.com/dmehra2102/Pharmacy-Management-System/internal/order/domain"
)

// Store keeps orders in process. Status changes and deletes are
// compare-and-set under one lock.
type Store struct {
	mu     sync.RWMutex
	orders map[string]domain.Order
}

func NewStore() *Store {
	return &Store{orders: make(map[string]domain.Order)}
}

func clone(o domain.Order) domain.Order {
	o.Items = slices.Clone(o.Items)
	if o.ShippingAddress != nil {
		addr := *o.ShippingAddress
		o.ShippingAddress = &addr
	}
	return o
}

func (s *Store) Insert(_ context.Context, o domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[o.ID]; exists {
		return fmt.Errorf("insert order %s: duplicate id", o.ID)
	}
	s.orders[o.ID] = clone(o)
	return nil
}

func (s *Store) Get(_ context.Context, id string) (domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return clone(o), nil
}

func (s *Store) List(_ context.Context, f application.ListFilter) ([]domain.Order, error) {
	s.mu.RLock()
	out := make([]domain.Order, 0, len(s.orders))
	for _, o := range s.orders {
		if f.CustomerID != "" && o.CustomerID != f.CustomerID {
			continue
		}
		out = append(out, clone(o))
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Store) UpdateStatus(_ context.Context, id string, from, to domain.OrderStatus, at time.Time) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if o.Status != from {
		return domain.Order{}, fmt.Errorf("order %s is %s: %w", id, o.Status, domain.ErrStatusChanged)
	}
	o.Status = to
	o.UpdatedAt = at
	s.orders[id] = o
	return clone(o), nil
}

func (s *Store) DeleteIfStatus(_ context.Context, id string, status domain.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if o.Status != status {
		return fmt.Errorf("order %s is %s: %w", id, o.Status, domain.ErrStatusChanged)
	}
	delete(s.orders, id)
	return nil
}

func (s *Store) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.orders)), nil
}

func (s *Store) Revenue(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int64
	for _, o := range s.orders {
		if o.Status == domain.StatusCompleted {
			total += o.TotalCents
		}
	}
	return total, nil
}

func (s *Store) CountByStatus(_ context.Context) (map[domain.OrderStatus]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[domain.OrderStatus]int64)
	for _, o := range s.orders {
		out[o.Status]++
	}
	return out, nil
}

func (s *Store) TopProducts(_ context.Context, limit int) ([]domain.ProductSales, error) {
	s.mu.RLock()
	sold := make(map[string]int64)
	for _, o := range s.orders {
		for _, it := range o.Items {
			sold[it.ProductID] += int64(it.Quantity)
		}
	}
	s.mu.RUnlock()

	out := make([]domain.ProductSales, 0, len(sold))
	for id, n := range sold {
		out = append(out, domain.ProductSales{ProductID: id, TotalSold: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalSold != out[j].TotalSold {
			return out[i].TotalSold > out[j].TotalSold
		}
		return out[i].ProductID < out[j].ProductID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) HasProduct(_ context.Context, productID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, o := range s.orders {
		for _, item := range o.Items {
			if item.ProductID == productID {
				return true, nil
			}
		}
	}
	return false, nil
}

func (s *Store) HasCustomer(_ context.Context, customerID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, o := range s.orders {
		if o.CustomerID == customerID {
			return true, nil
		}
	}
	return false, nil
}
