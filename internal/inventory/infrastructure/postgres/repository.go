package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pkgerrors "github.com/pkg/errors"

	"github.com/dmehra2102/Pharmacy-Management-System/internal/inventory/domain"
	"github.com/dmehra2102/Pharmacy-Management-System/internal/platform/postgres"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{
		log:  log,
		pool: pool,
	}
}

// DecrementIfAvailable relies on the WHERE clause: the row is only updated
// while stock >= quantity. Inside a transaction the row stays locked until
// commit, which serializes competing orders on the same product.
func (r *Repository) DecrementIfAvailable(ctx context.Context, productID string, quantity int) error {
	ct, err := postgres.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE products SET stock = stock - $2, updated_at = now() WHERE id = $1 AND stock >= $2`,
		productID, quantity)
	if err != nil {
		return pkgerrors.Wrap(postgres.Classify(err), "decrement stock")
	}
	if ct.RowsAffected() == 1 {
		return nil
	}
	exists, err := r.exists(ctx, productID)
	if err != nil {
		return err
	}
	r.log.Debug("stock reservation refused", "product_id", productID, "quantity", quantity, "exists", exists)
	if !exists {
		return domain.ErrProductNotFound
	}
	return domain.ErrInsufficientStock
}

func (r *Repository) Increment(ctx context.Context, productID string, quantity int) error {
	ct, err := postgres.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE products SET stock = stock + $2, updated_at = now() WHERE id = $1`,
		productID, quantity)
	if err != nil {
		return pkgerrors.Wrap(postgres.Classify(err), "increment stock")
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (r *Repository) exists(ctx context.Context, id string) (bool, error) {
	var ok bool
	err := postgres.Conn(ctx, r.pool).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, id).Scan(&ok)
	return ok, pkgerrors.Wrap(err, "product exists")
}

func (r *Repository) Create(ctx context.Context, p domain.Product) error {
	_, err := postgres.Conn(ctx, r.pool).Exec(ctx, `INSERT INTO products
		(id, name, description, price_cents, stock, category, sku, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		p.ID, p.Name, p.Description, p.PriceCents, p.Stock, p.Category, p.SKU, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if _, dup := postgres.UniqueViolation(err); dup {
			return fmt.Errorf("sku %s: %w", p.SKU, domain.ErrDuplicateSKU)
		}
		return pkgerrors.Wrap(err, "insert product")
	}
	return nil
}

const productColumns = `id, name, description, price_cents, stock, category, sku, created_at, updated_at`

func scanProduct(row pgx.Row) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.PriceCents, &p.Stock, &p.Category, &p.SKU, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Product, error) {
	p, err := scanProduct(postgres.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, pkgerrors.Wrap(err, "select product")
	}
	return p, nil
}

func (r *Repository) List(ctx context.Context) ([]domain.Product, error) {
	rows, err := postgres.Conn(ctx, r.pool).Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY created_at DESC`)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "select products")
	}
	defer rows.Close()

	var out []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "scan product")
		}
		out = append(out, p)
	}
	return out, pkgerrors.Wrap(rows.Err(), "iterate products")
}

func (r *Repository) UpdateDetails(ctx context.Context, p domain.Product) error {
	ct, err := postgres.Conn(ctx, r.pool).Exec(ctx, `UPDATE products
		SET name=$2, description=$3, price_cents=$4, category=$5, sku=$6, updated_at=$7
		WHERE id=$1`,
		p.ID, p.Name, p.Description, p.PriceCents, p.Category, p.SKU, p.UpdatedAt)
	if err != nil {
		if _, dup := postgres.UniqueViolation(err); dup {
			return fmt.Errorf("sku %s: %w", p.SKU, domain.ErrDuplicateSKU)
		}
		return pkgerrors.Wrap(err, "update product")
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	ct, err := postgres.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return pkgerrors.Wrap(err, "delete product")
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (r *Repository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := postgres.Conn(ctx, r.pool).QueryRow(ctx, `SELECT count(*) FROM products`).Scan(&n)
	return n, pkgerrors.Wrap(err, "count products")
}

func (r *Repository) CountLowStock(ctx context.Context, threshold int) (int64, error) {
	var n int64
	err := postgres.Conn(ctx, r.pool).QueryRow(ctx, `SELECT count(*) FROM products WHERE stock < $1`, threshold).Scan(&n)
	return n, pkgerrors.Wrap(err, "count low stock")
}
