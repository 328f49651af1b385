package app

import (
	"context"
	"errors"
	"log/slog"

	pkgerrors "github.com/pkg/errors"

	authapp "github.com/dmehra2102/Pharmacy-Management-System/internal/auth/application"
	authmemory "github.com/dmehra2102/Pharmacy-Management-System/internal/auth/infrastructure/memory"
	authmongo "github.com/dmehra2102/Pharmacy-Management-System/internal/auth/infrastructure/mongo"
	authpg "github.com/dmehra2102/Pharmacy-Management-System/internal/auth/infrastructure/postgres"
	"github.com/dmehra2102/Pharmacy-Management-System/internal/config"
	custapp "github.com/dmehra2102/Pharmacy-Management-System/internal/customer/application"
	custmemory "github.com/dmehra2102/Pharmacy-Management-System/internal/customer/infrastructure/memory"
	custmongo "github.com/dmehra2102/Pharmacy-Management-System/internal/customer/infrastructure/mongo"
	custpg "github.com/dmehra2102/Pharmacy-Management-System/internal/customer/infrastructure/postgres"
	invapp "github.com/dmehra2102/Pharmacy-Management-System/internal/inventory/application"
	invmemory "github.com/dmehra2102/Pharmacy-Management-System/internal/inventory/infrastructure/memory"
	invmongo "github.com/dmehra2102/Pharmacy-Management-System/internal/inventory/infrastructure/mongo"
	invpg "github.com/dmehra2102/Pharmacy-Management-System/internal/inventory/infrastructure/postgres"
	orderapp "github.com/dmehra2102/Pharmacy-Management-System/internal/order/application"
	ordermemory "github.com/dmehra2102/Pharmacy-Management-System/internal/order/infrastructure/memory"
	ordermongo "github.com/dmehra2102/Pharmacy-Management-System/internal/order/infrastructure/mongo"
	orderpg "github.com/dmehra2102/Pharmacy-Management-System/internal/order/infrastructure/postgres"
	"github.com/dmehra2102/Pharmacy-Management-System/internal/platform/memory"
	"github.com/dmehra2102/Pharmacy-Management-System/internal/platform/mongodb"
	"github.com/dmehra2102/Pharmacy-Management-System/internal/platform/postgres"
	"github.com/dmehra2102/Pharmacy-Management-System/pkg/outbox"
)

type ProductStore interface {
	invapp.StockStore
	invapp.ProductRepository
}

type OutboxStore interface {
	outbox.Recorder
	outbox.Store
}

// Backend is one consistent set of stores over a single database.
type Backend struct {
	Tx        orderapp.Transactor
	Products  ProductStore
	Customers custapp.CustomerRepository
	Orders    orderapp.OrderRepository
	Users     authapp.UserRepository
	Outbox    OutboxStore

	closers []func(context.Context) error
}

func (b *Backend) Close(ctx context.Context) error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs = append(errs, b.closers[i](ctx))
	}
	return errors.Join(errs...)
}

func OpenBackend(ctx context.Context, cfg config.Config, log *slog.Logger) (*Backend, error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		return openMongo(ctx, cfg, log)
	case config.DriverPostgres:
		return openPostgres(ctx, cfg, log)
	default:
		log.Warn("using the in-memory store; data is lost on exit")
		return NewMemoryBackend(), nil
	}
}

func NewMemoryBackend() *Backend {
	return &Backend{
		Tx:        memory.Transactor{},
		Products:  invmemory.NewStore(),
		Customers: custmemory.NewStore(),
		Orders:    ordermemory.NewStore(),
		Users:     authmemory.NewStore(),
		Outbox:    memory.NewOutbox(),
	}
}

func openMongo(ctx context.Context, cfg config.Config, log *slog.Logger) (*Backend, error) {
	client, err := mongodb.Connect(ctx, cfg.MongoURI)
	if err != nil {
		return nil, err
	}
	db := client.Database(cfg.MongoDatabase)
	if !cfg.MongoTransactions {
		log.Warn("mongo transactions disabled; order writes fall back to compensation")
	}
	return &Backend{
		Tx:        mongodb.NewTransactor(log, client, cfg.MongoTransactions),
		Products:  invmongo.NewRepository(log, db),
		Customers: custmongo.NewRepository(db),
		Orders:    ordermongo.NewRepository(log, db),
		Users:     authmongo.NewRepository(db),
		Outbox:    mongodb.NewOutboxStore(log, db),
		closers: []func(context.Context) error{
			func(ctx context.Context) error { return pkgerrors.Wrap(client.Disconnect(ctx), "mongo disconnect") },
		},
	}, nil
}

func openPostgres(ctx context.Context, cfg config.Config, log *slog.Logger) (*Backend, error) {
	pool, err := postgres.Connect(ctx, cfg.PGURL)
	if err != nil {
		return nil, err
	}
	return &Backend{
		Tx:        postgres.NewTransactor(log, pool),
		Products:  invpg.NewRepository(log, pool),
		Customers: custpg.NewRepository(pool),
		Orders:    orderpg.NewRepository(log, pool),
		Users:     authpg.NewRepository(pool),
		Outbox:    postgres.NewOutboxStore(log, pool),
		closers: []func(context.Context) error{
			func(context.Context) error { pool.Close(); return nil },
		},
	}, nil
}

// Migrate prepares the schema of the configured database.
func Migrate(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		if err := postgres.Migrate(cfg.PGURL); err != nil {
			return err
		}
	case config.DriverMongo:
		client, err := mongodb.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return err
		}
		defer func() { _ = client.Disconnect(context.WithoutCancel(ctx)) }()
		if err := mongodb.EnsureIndexes(ctx, client.Database(cfg.MongoDatabase)); err != nil {
			return err
		}
	default:
		log.Info("memory store needs no migration")
		return nil
	}
	log.Info("schema up to date", "driver", cfg.StoreDriver)
	return nil
}
