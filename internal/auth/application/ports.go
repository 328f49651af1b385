package application

import (
	"context"

	"github.com/dmehra2102/Pharmacy-Management-System/internal/auth/domain"
)

type UserRepository interface {
	Create(ctx context.Context, u domain.User) error
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	HasRole(ctx context.Context, role domain.Role) (bool, error)
}
