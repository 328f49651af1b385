package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pkgerrors "github.com/pkg/errors"

	"github.com/dmehra2102/Pharmacy-Management-System/internal/order/application"
	"github.com/dmehra2102/Pharmacy-Management-System/internal/order/domain"
	"github.com/dmehra2102/Pharmacy-Management-System/internal/platform/postgres"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

// Insert writes the order row and its items. It expects to run inside
// Transactor.WithinTx so both land together.
func (r *Repository) Insert(ctx context.Context, o domain.Order) error {
	var addr []byte
	if o.ShippingAddress != nil {
		var err error
		if addr, err = json.Marshal(o.ShippingAddress); err != nil {
			return pkgerrors.Wrap(err, "marshal shipping address")
		}
	}

	q := postgres.Conn(ctx, r.pool)
	_, err := q.Exec(ctx, `INSERT INTO orders
		(id, customer_id, total_cents, status, payment_method, payment_status, shipping_address, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		o.ID, o.CustomerID, o.TotalCents, o.Status, o.PaymentMethod, o.PaymentStatus, addr, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return pkgerrors.Wrap(postgres.Classify(err), "insert order")
	}

	batch := &pgx.Batch{}
	for i, item := range o.Items {
		batch.Queue(`INSERT INTO order_items (order_id, position, product_id, quantity, unit_price_cents)
			VALUES ($1,$2,$3,$4,$5)`,
			o.ID, i, item.ProductID, item.Quantity, item.UnitPriceCents)
	}
	if err := q.SendBatch(ctx, batch).Close(); err != nil {
		return pkgerrors.Wrap(err, "insert order items")
	}
	return nil
}

const orderColumns = `id, customer_id, total_cents, status, payment_method, payment_status, shipping_address, created_at, updated_at`

func scanOrder(row pgx.Row) (domain.Order, error) {
	var (
		o    domain.Order
		addr []byte
	)
	if err := row.Scan(&o.ID, &o.CustomerID, &o.TotalCents, &o.Status, &o.PaymentMethod, &o.PaymentStatus, &addr, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return domain.Order{}, err
	}
	if len(addr) > 0 {
		o.ShippingAddress = &domain.Address{}
		if err := json.Unmarshal(addr, o.ShippingAddress); err != nil {
			return domain.Order{}, pkgerrors.Wrap(err, "decode shipping address")
		}
	}
	return o, nil
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Order, error) {
	q := postgres.Conn(ctx, r.pool)
	o, err := scanOrder(q.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, pkgerrors.Wrap(err, "select order")
	}
	items, err := r.items(ctx, []string{id})
	if err != nil {
		return domain.Order{}, err
	}
	o.Items = items[id]
	return o, nil
}

func (r *Repository) items(ctx context.Context, orderIDs []string) (map[string][]domain.OrderItem, error) {
	rows, err := postgres.Conn(ctx, r.pool).Query(ctx, `SELECT order_id, product_id, quantity, unit_price_cents
		FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, position`, orderIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "select order items")
	}
	defer rows.Close()

	out := make(map[string][]domain.OrderItem, len(orderIDs))
	for rows.Next() {
		var (
			orderID string
			item    domain.OrderItem
		)
		if err := rows.Scan(&orderID, &item.ProductID, &item.Quantity, &item.UnitPriceCents); err != nil {
			return nil, pkgerrors.Wrap(err, "scan order item")
		}
		out[orderID] = append(out[orderID], item)
	}
	return out, pkgerrors.Wrap(rows.Err(), "iterate order items")
}

func (r *Repository) List(ctx context.Context, f application.ListFilter) ([]domain.Order, error) {
	sql := `SELECT ` + orderColumns + ` FROM orders WHERE ($1 = '' OR customer_id = $1) ORDER BY created_at DESC`
	args := []any{f.CustomerID}
	if f.Limit > 0 {
		sql += ` LIMIT $2`
		args = append(args, f.Limit)
	}
	rows, err := postgres.Conn(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "select orders")
	}
	defer rows.Close()

	var (
		out []domain.Order
		ids []string
	)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "scan order")
		}
		out = append(out, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, pkgerrors.Wrap(err, "iterate orders")
	}
	if len(out) == 0 {
		return out, nil
	}

	items, err := r.items(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Items = items[out[i].ID]
	}
	return out, nil
}

func (r *Repository) UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus, at time.Time) (domain.Order, error) {
	ct, err := postgres.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE orders SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`,
		id, from, to, at)
	if err != nil {
		return domain.Order{}, pkgerrors.Wrap(postgres.Classify(err), "update order status")
	}
	if ct.RowsAffected() == 0 {
		if err := r.guardMiss(ctx, id); err != nil {
			return domain.Order{}, err
		}
		return domain.Order{}, fmt.Errorf("order %s is no longer %s: %w", id, from, domain.ErrStatusChanged)
	}
	return r.Get(ctx, id)
}

func (r *Repository) DeleteIfStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	ct, err := postgres.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM orders WHERE id = $1 AND status = $2`, id, status)
	if err != nil {
		return pkgerrors.Wrap(postgres.Classify(err), "delete order")
	}
	if ct.RowsAffected() == 1 {
		return nil
	}
	if err := r.guardMiss(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("order %s is no longer %s: %w", id, status, domain.ErrStatusChanged)
}

func (r *Repository) guardMiss(ctx context.Context, id string) error {
	var ok bool
	if err := postgres.Conn(ctx, r.pool).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&ok); err != nil {
		return pkgerrors.Wrap(err, "order exists")
	}
	r.log.Debug("order status guard missed", "order_id", id, "exists", ok)
	if !ok {
		return domain.ErrOrderNotFound
	}
	return nil
}

func (r *Repository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := postgres.Conn(ctx, r.pool).QueryRow(ctx, `SELECT count(*) FROM orders`).Scan(&n)
	return n, pkgerrors.Wrap(err, "count orders")
}

func (r *Repository) Revenue(ctx context.Context) (int64, error) {
	var total int64
	err := postgres.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT COALESCE(SUM(total_cents), 0)::BIGINT FROM orders WHERE status = $1`, domain.StatusCompleted).Scan(&total)
	return total, pkgerrors.Wrap(err, "sum revenue")
}

func (r *Repository) CountByStatus(ctx context.Context) (map[domain.OrderStatus]int64, error) {
	rows, err := postgres.Conn(ctx, r.pool).Query(ctx, `SELECT status, count(*) FROM orders GROUP BY status`)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "orders by status")
	}
	defer rows.Close()

	out := make(map[domain.OrderStatus]int64)
	for rows.Next() {
		var (
			status domain.OrderStatus
			n      int64
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, pkgerrors.Wrap(err, "scan orders by status")
		}
		out[status] = n
	}
	return out, pkgerrors.Wrap(rows.Err(), "iterate orders by status")
}

func (r *Repository) TopProducts(ctx context.Context, limit int) ([]domain.ProductSales, error) {
	rows, err := postgres.Conn(ctx, r.pool).Query(ctx, `SELECT product_id, SUM(quantity)::BIGINT AS total_sold
		FROM order_items
		GROUP BY product_id
		ORDER BY total_sold DESC, product_id
		LIMIT NULLIF($1, 0)`, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "top products")
	}
	defer rows.Close()

	var out []domain.ProductSales
	for rows.Next() {
		var ps domain.ProductSales
		if err := rows.Scan(&ps.ProductID, &ps.TotalSold); err != nil {
			return nil, pkgerrors.Wrap(err, "scan top products")
		}
		out = append(out, ps)
	}
	return out, pkgerrors.Wrap(rows.Err(), "iterate top products")
}

func (r *Repository) HasProduct(ctx context.Context, productID string) (bool, error) {
	var ok bool
	err := postgres.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM order_items WHERE product_id = $1)`, productID).Scan(&ok)
	return ok, pkgerrors.Wrap(err, "orders by product")
}

func (r *Repository) HasCustomer(ctx context.Context, customerID string) (bool, error) {
	var ok bool
	err := postgres.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM orders WHERE customer_id = $1)`, customerID).Scan(&ok)
	return ok, pkgerrors.Wrap(err, "orders by customer")
}
