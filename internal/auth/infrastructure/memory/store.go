package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmehra2102/Pharmacy-Management-System/internal/auth/domain"
)

type Store struct {
	mu      sync.RWMutex
	byEmail map[string]domain.User
}

func NewStore() *Store {
	return &Store{byEmail: make(map[string]domain.User)}
}

func (s *Store) Create(_ context.Context, u domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byEmail[u.Email]; taken {
		return fmt.Errorf("email %s: %w", u.Email, domain.ErrDuplicateEmail)
	}
	s.byEmail[u.Email] = u
	return nil
}

func (s *Store) GetByEmail(_ context.Context, email string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byEmail[email]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return u, nil
}

func (s *Store) HasRole(_ context.Context, role domain.Role) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.byEmail {
		if u.Role == role {
			return true, nil
		}
	}
	return false, nil
}
