package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dmehra2102/Pharmacy-Management-System/internal/customer/domain"
)

type Store struct {
	mu      sync.RWMutex
	byID    map[string]domain.Customer
	byEmail map[string]string
}

func NewStore() *Store {
	return &Store{
		byID:    make(map[string]domain.Customer),
		byEmail: make(map[string]string),
	}
}

func (s *Store) Create(_ context.Context, c domain.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byEmail[c.Email]; taken {
		return fmt.Errorf("email %s: %w", c.Email, domain.ErrDuplicateEmail)
	}
	s.byID[c.ID] = c
	s.byEmail[c.Email] = c.ID
	return nil
}

func (s *Store) Get(_ context.Context, id string) (domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.byID[id]
	if !ok {
		return domain.Customer{}, domain.ErrCustomerNotFound
	}
	return c, nil
}

func (s *Store) List(_ context.Context) ([]domain.Customer, error) {
	s.mu.RLock()
	out := make([]domain.Customer, 0, len(s.byID))
	for _, c := range s.byID {
		out = append(out, c)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) Update(_ context.Context, c domain.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.byID[c.ID]
	if !ok {
		return domain.ErrCustomerNotFound
	}
	if owner, taken := s.byEmail[c.Email]; taken && owner != c.ID {
		return fmt.Errorf("email %s: %w", c.Email, domain.ErrDuplicateEmail)
	}
	delete(s.byEmail, old.Email)
	s.byEmail[c.Email] = c.ID
	s.byID[c.ID] = c
	return nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.byID[id]
	if !ok {
		return domain.ErrCustomerNotFound
	}
	delete(s.byEmail, c.Email)
	delete(s.byID, id)
	return nil
}

func (s *Store) Exists(_ context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byID[id]
	return ok, nil
}

func (s *Store) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.byID)), nil
}
