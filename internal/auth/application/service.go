package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmehra2102/Pharmacy-Management-System/internal/auth/domain"
	"github.com/dmehra2102/Pharmacy-Management-System/pkg/validate"
)

type RegisterInput struct {
	Name     string `json:"name" validate:"required,min=2"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,password"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type Session struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      domain.User `json:"user"`
}

type Service struct {
	users  UserRepository
	tokens *Tokens
	cost   int
}

// NewService hashes passwords with the given bcrypt cost.
func NewService(users UserRepository, tokens *Tokens, cost int) *Service {
	return &Service{users: users, tokens: tokens, cost: cost}
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (domain.User, error) {
	return s.create(ctx, in, domain.RoleUser)
}

// SetupAdmin creates the first administrator and refuses once one exists.
func (s *Service) SetupAdmin(ctx context.Context, in RegisterInput) (domain.User, error) {
	exists, err := s.users.HasRole(ctx, domain.RoleAdmin)
	if err != nil {
		return domain.User{}, err
	}
	if exists {
		return domain.User{}, domain.ErrAdminExists
	}
	return s.create(ctx, in, domain.RoleAdmin)
}

func (s *Service) create(ctx context.Context, in RegisterInput, role domain.Role) (domain.User, error) {
	if err := validate.Struct(in); err != nil {
		return domain.User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return domain.User{}, pkgerrors.Wrap(err, "hash password")
	}
	u := domain.NewUser(uuid.NewString(), in.Name, in.Email, string(hash), role)
	if err := s.users.Create(ctx, u); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

func (s *Service) Login(ctx context.Context, in LoginInput) (Session, error) {
	if err := validate.Struct(in); err != nil {
		return Session{}, err
	}
	u, err := s.users.GetByEmail(ctx, domain.NormalizeEmail(in.Email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return Session{}, domain.ErrInvalidCredentials
		}
		return Session{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)); err != nil {
		return Session{}, fmt.Errorf("user %s: %w", u.ID, domain.ErrInvalidCredentials)
	}
	token, exp, err := s.tokens.Issue(u)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, ExpiresAt: exp, User: u}, nil
}
