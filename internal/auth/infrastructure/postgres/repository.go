package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pkgerrors "github.com/pkg/errors"

	"github.com/dmehra2102/Pharmacy-Management-System/internal/auth/domain"
	"github.com/dmehra2102/Pharmacy-Management-System/internal/platform/postgres"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Create(ctx context.Context, u domain.User) error {
	_, err := postgres.Conn(ctx, r.pool).Exec(ctx, `INSERT INTO users
		(id, name, email, password_hash, role, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.Role, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if _, dup := postgres.UniqueViolation(err); dup {
			return fmt.Errorf("email %s: %w", u.Email, domain.ErrDuplicateEmail)
		}
		return pkgerrors.Wrap(err, "insert user")
	}
	return nil
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	var u domain.User
	err := postgres.Conn(ctx, r.pool).QueryRow(ctx, `SELECT id, name, email, password_hash, role, created_at, updated_at
		FROM users WHERE email = $1`, email).
		Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, pkgerrors.Wrap(err, "select user")
	}
	return u, nil
}

func (r *Repository) HasRole(ctx context.Context, role domain.Role) (bool, error) {
	var ok bool
	err := postgres.Conn(ctx, r.pool).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE role = $1)`, role).Scan(&ok)
	return ok, pkgerrors.Wrap(err, "users by role")
}
