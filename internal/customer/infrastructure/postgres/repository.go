package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pkgerrors "github.com/pkg/errors"

	"github.com/dmehra2102/Pharmacy-Management-System/internal/customer/domain"
	"github.com/dmehra2102/Pharmacy-Management-System/internal/platform/postgres"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const customerColumns = `id, name, email, phone, address, notes, created_at, updated_at`

func scanCustomer(row pgx.Row) (domain.Customer, error) {
	var c domain.Customer
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.Notes, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *Repository) Create(ctx context.Context, c domain.Customer) error {
	_, err := postgres.Conn(ctx, r.pool).Exec(ctx, `INSERT INTO customers (`+customerColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		c.ID, c.Name, c.Email, c.Phone, c.Address, c.Notes, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if _, dup := postgres.UniqueViolation(err); dup {
			return fmt.Errorf("email %s: %w", c.Email, domain.ErrDuplicateEmail)
		}
		return pkgerrors.Wrap(err, "insert customer")
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Customer, error) {
	c, err := scanCustomer(postgres.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Customer{}, domain.ErrCustomerNotFound
		}
		return domain.Customer{}, pkgerrors.Wrap(err, "select customer")
	}
	return c, nil
}

func (r *Repository) List(ctx context.Context) ([]domain.Customer, error) {
	rows, err := postgres.Conn(ctx, r.pool).Query(ctx, `SELECT `+customerColumns+` FROM customers ORDER BY created_at DESC`)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "select customers")
	}
	defer rows.Close()

	var out []domain.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "scan customer")
		}
		out = append(out, c)
	}
	return out, pkgerrors.Wrap(rows.Err(), "iterate customers")
}

func (r *Repository) Update(ctx context.Context, c domain.Customer) error {
	ct, err := postgres.Conn(ctx, r.pool).Exec(ctx, `UPDATE customers
		SET name=$2, email=$3, phone=$4, address=$5, notes=$6, updated_at=$7
		WHERE id=$1`,
		c.ID, c.Name, c.Email, c.Phone, c.Address, c.Notes, c.UpdatedAt)
	if err != nil {
		if _, dup := postgres.UniqueViolation(err); dup {
			return fmt.Errorf("email %s: %w", c.Email, domain.ErrDuplicateEmail)
		}
		return pkgerrors.Wrap(err, "update customer")
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrCustomerNotFound
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	ct, err := postgres.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return pkgerrors.Wrap(err, "delete customer")
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrCustomerNotFound
	}
	return nil
}

func (r *Repository) Exists(ctx context.Context, id string) (bool, error) {
	var ok bool
	err := postgres.Conn(ctx, r.pool).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM customers WHERE id = $1)`, id).Scan(&ok)
	return ok, pkgerrors.Wrap(err, "customer exists")
}

func (r *Repository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := postgres.Conn(ctx, r.pool).QueryRow(ctx, `SELECT count(*) FROM customers`).Scan(&n)
	return n, pkgerrors.Wrap(err, "count customers")
}
