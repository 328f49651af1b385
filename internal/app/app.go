package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/dmehra2102/Pharmacy-Management-System/internal/config"
	orderkafka "github.com/dmehra2102/Pharmacy-Management-System/internal/order/infrastructure/kafka"
	"github.com/dmehra2102/Pharmacy-Management-System/pkg/idempotency"
	"github.com/dmehra2102/Pharmacy-Management-System/pkg/outbox"
)

const shutdownTimeout = 10 * time.Second

// App is the HTTP API plus the outbox relay.
type App struct {
	log     *slog.Logger
	backend *Backend
	server  *http.Server
	relay   *outbox.Relay
	writer  *orderkafka.Writer
	rdb     *redis.Client
}

func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	backend, err := OpenBackend(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	a := &App{log: log, backend: backend}

	var producer outbox.Producer = outbox.LogProducer{Log: log}
	if len(cfg.KafkaAddr) > 0 {
		a.writer = orderkafka.NewWriter(log, cfg.KafkaAddr)
		producer = a.writer
	} else {
		log.Warn("no kafka brokers configured; outbox events are only logged")
	}
	dispatch := outbox.NewDispatcher(log, producer, cfg.OutboxTopic)
	a.relay = outbox.NewRelay(log, backend.Outbox, dispatch, cfg.ServiceName+"-relay-"+uuid.NewString()[:8])

	var idem idempotency.Backend
	if cfg.RedisAddr != "" {
		a.rdb, err = idempotency.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			_ = a.Close(ctx)
			return nil, err
		}
		idem = idempotency.NewStore(a.rdb, cfg.IdempotencyTTL)
	}

	a.server = &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      NewRouter(log, cfg, backend, idem),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return a, nil
}

// Run serves until ctx is cancelled or the listener fails.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.relay.Run(ctx)
	})
	g.Go(func() error {
		a.log.Info("http listening", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.writer != nil {
		errs = append(errs, a.writer.Close())
	}
	if a.rdb != nil {
		errs = append(errs, a.rdb.Close())
	}
	errs = append(errs, a.backend.Close(ctx))
	return errors.Join(errs...)
}
