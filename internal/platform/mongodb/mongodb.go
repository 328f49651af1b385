package mongodb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	pkgerrors "github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dmehra2102/Pharmacy-Management-System/pkg/apperr"
)

// ErrConcurrentUpdate is returned when a transaction kept hitting write
// conflicts. The caller may retry.
var ErrConcurrentUpdate = apperr.Conflict("concurrent_update", "the request conflicted with a concurrent update, retry it")

const (
	CollectionUsers     = "users"
	CollectionInventory = "inventory"
	CollectionCustomers = "customers"
	CollectionOrders    = "orders"
	CollectionOutbox    = "outbox"
)

func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(10).
		SetMinPoolSize(5).
		SetMaxConnIdleTime(60 * time.Second).
		SetConnectTimeout(10 * time.Second).
		SetSocketTimeout(45 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "mongo connect")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, pkgerrors.Wrap(err, "mongo ping")
	}
	return client, nil
}

// EnsureIndexes creates the unique keys the repositories rely on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	unique := options.Index().SetUnique(true)
	indexes := map[string][]mongo.IndexModel{
		CollectionUsers: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "role", Value: 1}}},
		},
		CollectionInventory: {
			{Keys: bson.D{{Key: "sku", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "name", Value: 1}}},
			{Keys: bson.D{{Key: "category", Value: 1}}},
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
		},
		CollectionCustomers: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
		},
		CollectionOrders: {
			{Keys: bson.D{{Key: "customer_id", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "items.product_id", Value: 1}}},
		},
		CollectionOutbox: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "_id", Value: 1}}},
		},
	}
	for coll, models := range indexes {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return pkgerrors.Wrapf(err, "create indexes on %s", coll)
		}
	}
	return nil
}

// Transactor wraps a unit of work in a multi-document transaction. Those need
// a replica set; with transactions disabled fn runs directly and callers
// fall back to compensation.
type Transactor struct {
	log         *slog.Logger
	client      *mongo.Client
	enabled     bool
	retryWindow time.Duration
}

func NewTransactor(log *slog.Logger, client *mongo.Client, enabled bool) *Transactor {
	return &Transactor{log: log, client: client, enabled: enabled, retryWindow: txRetryWindow}
}

// txRetryWindow bounds how long transactions aborted with the
// TransientTransactionError label, such as write conflicts between orders
// touching the same product, are retried. It matches the driver's own
// WithTransaction limit.
const txRetryWindow = 120 * time.Second

func (t *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if !t.enabled || mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	sess, err := t.client.StartSession()
	if err != nil {
		return pkgerrors.Wrap(err, "start session")
	}
	defer sess.EndSession(context.WithoutCancel(ctx))

	return t.retry(ctx, func() error { return t.run(ctx, sess, fn) })
}

// retry reruns op with jittered exponential backoff while it fails with a
// transient error, until the retry window or ctx ends.
func (t *Transactor) retry(ctx context.Context, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 5 * time.Millisecond
	b.MaxInterval = 250 * time.Millisecond
	b.MaxElapsedTime = t.retryWindow

	attempt := 0
	err := backoff.RetryNotify(func() error {
		attempt++
		err := op()
		if err != nil && !transient(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(b, ctx), func(err error, wait time.Duration) {
		t.log.Debug("retrying transaction", "attempt", attempt, "wait", wait, "err", err)
	})
	if transient(err) {
		t.log.Warn("transaction retries exhausted", "attempts", attempt, "err", err)
		return fmt.Errorf("%v: %w", err, ErrConcurrentUpdate)
	}
	return err
}

func (t *Transactor) run(ctx context.Context, sess mongo.Session, fn func(ctx context.Context) error) error {
	if err := sess.StartTransaction(); err != nil {
		return pkgerrors.Wrap(err, "start transaction")
	}
	sc := mongo.NewSessionContext(ctx, sess)
	if err := fn(sc); err != nil {
		if abortErr := sess.AbortTransaction(context.WithoutCancel(ctx)); abortErr != nil {
			t.log.Error("abort transaction failed", "err", abortErr)
		}
		return err
	}
	if err := sess.CommitTransaction(sc); err != nil {
		return pkgerrors.Wrap(err, "commit transaction")
	}
	return nil
}

func transient(err error) bool {
	var labeled mongo.LabeledError
	return errors.As(err, &labeled) && labeled.HasErrorLabel("TransientTransactionError")
}

func (t *Transactor) Atomic() bool { return t.enabled }
