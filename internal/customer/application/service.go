package application

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmehra2102/Pharmacy-Management-System/internal/customer/domain"
	"github.com/dmehra2102/Pharmacy-Management-System/pkg/validate"
)

type ProfileInput struct {
	Name    string          `json:"name" validate:"required,min=2"`
	Email   string          `json:"email" validate:"required,email"`
	Phone   string          `json:"phone"`
	Address *domain.Address `json:"address"`
	Notes   string          `json:"notes"`
}

func (in ProfileInput) profile() domain.Profile {
	return domain.Profile{Name: in.Name, Email: in.Email, Phone: in.Phone, Address: in.Address, Notes: in.Notes}
}

type Service struct {
	repo   CustomerRepository
	orders OrderReferences
}

func NewService(repo CustomerRepository, orders OrderReferences) *Service {
	return &Service{repo: repo, orders: orders}
}

func (s *Service) Create(ctx context.Context, in ProfileInput) (domain.Customer, error) {
	if err := validate.Struct(in); err != nil {
		return domain.Customer{}, err
	}
	c := domain.NewCustomer(uuid.NewString(), in.profile())
	if err := s.repo.Create(ctx, c); err != nil {
		return domain.Customer{}, err
	}
	return c, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Customer, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]domain.Customer, error) {
	return s.repo.List(ctx)
}

func (s *Service) Update(ctx context.Context, id string, in ProfileInput) (domain.Customer, error) {
	if err := validate.Struct(in); err != nil {
		return domain.Customer{}, err
	}
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Customer{}, err
	}
	c.Apply(in.profile())
	if err := s.repo.Update(ctx, c); err != nil {
		return domain.Customer{}, err
	}
	return c, nil
}

// Delete removes a customer without orders.
func (s *Service) Delete(ctx context.Context, id string) error {
	has, err := s.orders.HasCustomer(ctx, id)
	if err != nil {
		return err
	}
	if has {
		return fmt.Errorf("customer %s: %w", id, domain.ErrCustomerHasOrder)
	}
	return s.repo.Delete(ctx, id)
}

// Exists is the customer lookup the order manager depends on.
func (s *Service) Exists(ctx context.Context, id string) (bool, error) {
	return s.repo.Exists(ctx, id)
}
