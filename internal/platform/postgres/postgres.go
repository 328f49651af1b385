package postgres

import (
	"context"
	"embed"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	pkgerrors "github.com/pkg/errors"

	"github.com/dmehra2102/Pharmacy-Management-System/pkg/apperr"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrConcurrentUpdate is returned when Postgres aborts a transaction because
// of a deadlock or a serialization failure. The caller may retry.
var ErrConcurrentUpdate = apperr.Conflict("concurrent_update", "the request conflicted with a concurrent update, retry it")

// Querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type txKey struct{}

// Conn returns the transaction bound to ctx by Transactor.WithinTx, or the pool.
func Conn(ctx context.Context, pool *pgxpool.Pool) Querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return pool
}

func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "pg connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, pkgerrors.Wrap(err, "pg ping")
	}
	return pool, nil
}

// Migrate applies the embedded schema migrations.
func Migrate(url string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return pkgerrors.Wrap(err, "open migrations")
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, migrateURL(url))
	if err != nil {
		return pkgerrors.Wrap(err, "init migrate")
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return pkgerrors.Wrap(err, "migrate up")
	}
	return nil
}

// migrateURL rewrites postgres:// URLs to the scheme the pgx/v5 migrate
// driver registers.
func migrateURL(url string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(url, prefix) {
			return "pgx5://" + strings.TrimPrefix(url, prefix)
		}
	}
	return url
}

type Transactor struct {
	log         *slog.Logger
	pool        *pgxpool.Pool
	retryWindow time.Duration
}

func NewTransactor(log *slog.Logger, pool *pgxpool.Pool) *Transactor {
	return &Transactor{log: log, pool: pool, retryWindow: txRetryWindow}
}

// txRetryWindow bounds how long a transaction aborted by a deadlock or a
// serialization failure is rerun. Orders that lock the same products in a
// different order can deadlock; Postgres aborts one and the rerun goes
// through.
const txRetryWindow = 30 * time.Second

// WithinTx runs fn in one transaction. A nested call joins the outer one.
// fn may run more than once.
func (t *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}
	return Classify(t.retry(ctx, func() error { return t.once(ctx, fn) }))
}

func (t *Transactor) once(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := t.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return pkgerrors.Wrap(err, "begin tx")
	}
	defer func() {
		_ = tx.Rollback(context.WithoutCancel(ctx))
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	return pkgerrors.Wrap(tx.Commit(ctx), "commit tx")
}

// retry reruns op with jittered exponential backoff while it fails with a
// deadlock or serialization failure, until the retry window or ctx ends.
func (t *Transactor) retry(ctx context.Context, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 5 * time.Millisecond
	b.MaxInterval = 250 * time.Millisecond
	b.MaxElapsedTime = t.retryWindow

	attempt := 0
	err := backoff.RetryNotify(func() error {
		attempt++
		err := op()
		if err != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(b, ctx), func(err error, wait time.Duration) {
		t.log.Debug("retrying transaction", "attempt", attempt, "wait", wait, "err", err)
	})
	if retryable(err) {
		t.log.Warn("transaction retries exhausted", "attempts", attempt, "err", err)
	}
	return err
}

func retryable(err error) bool {
	return err != nil && errors.Is(Classify(err), ErrConcurrentUpdate)
}

func (t *Transactor) Atomic() bool { return true }

// Classify turns deadlock and serialization failures into ErrConcurrentUpdate.
func Classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == "40P01" || pgErr.Code == "40001") {
		return ErrConcurrentUpdate
	}
	return err
}

// UniqueViolation reports the violated constraint name, if err is one.
func UniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return pgErr.ConstraintName, true
	}
	return "", false
}
