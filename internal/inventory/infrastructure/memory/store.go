package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dmehra2102/Pharmacy-Management-System/internal/inventory/domain"
)

// Store keeps products in process. Every product has its own lock, so a
// check-and-decrement on one product never interleaves with another on the
// same product.
type Store struct {
	mu    sync.RWMutex
	items map[string]*entry
	skus  map[string]string
}

type entry struct {
	mu sync.Mutex
	p  domain.Product
}

func NewStore() *Store {
	return &Store{
		items: make(map[string]*entry),
		skus:  make(map[string]string),
	}
}

func (s *Store) lookup(id string) (*entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.items[id]
	return e, ok
}

func (s *Store) DecrementIfAvailable(_ context.Context, productID string, quantity int) error {
	e, ok := s.lookup(productID)
	if !ok {
		return domain.ErrProductNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.p.Stock < quantity {
		return domain.ErrInsufficientStock
	}
	e.p.Stock -= quantity
	e.p.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) Increment(_ context.Context, productID string, quantity int) error {
	e, ok := s.lookup(productID)
	if !ok {
		return domain.ErrProductNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	e.p.Stock += quantity
	e.p.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) Create(_ context.Context, p domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.skus[p.SKU]; taken {
		return fmt.Errorf("sku %s: %w", p.SKU, domain.ErrDuplicateSKU)
	}
	s.items[p.ID] = &entry{p: p}
	s.skus[p.SKU] = p.ID
	return nil
}

func (s *Store) Get(_ context.Context, id string) (domain.Product, error) {
	e, ok := s.lookup(id)
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.p, nil
}

func (s *Store) List(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	out := make([]domain.Product, 0, len(s.items))
	for _, e := range s.items {
		e.mu.Lock()
		out = append(out, e.p)
		e.mu.Unlock()
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) UpdateDetails(_ context.Context, p domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.items[p.ID]
	if !ok {
		return domain.ErrProductNotFound
	}
	if owner, taken := s.skus[p.SKU]; taken && owner != p.ID {
		return fmt.Errorf("sku %s: %w", p.SKU, domain.ErrDuplicateSKU)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	delete(s.skus, e.p.SKU)
	s.skus[p.SKU] = p.ID
	stock := e.p.Stock
	e.p = p
	e.p.Stock = stock
	return nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.items[id]
	if !ok {
		return domain.ErrProductNotFound
	}
	delete(s.skus, e.p.SKU)
	delete(s.items, id)
	return nil
}

func (s *Store) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.items)), nil
}

func (s *Store) CountLowStock(_ context.Context, threshold int) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, e := range s.items {
		e.mu.Lock()
		if e.p.Stock < threshold {
			n++
		}
		e.mu.Unlock()
	}
	return n, nil
}
