//go:build integration

package intergration

import (
	"context"
	"strings"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const startupTimeout = 2 * time.Minute

type Env struct {
	PG       *postgres.PostgresContainer
	Mongo    *mongodb.MongoDBContainer
	Kafka    *kafka.KafkaContainer
	PGURL    string
	MongoURI string
	KAddr    []string
}

func Setup(ctx context.Context) (_ *Env, err error) {
	ctx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	env := &Env{}
	defer func() {
		if err != nil {
			env.Teardown(context.WithoutCancel(ctx))
		}
	}()

	env.PG, err = postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("pharmacy"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(startupTimeout)),
	)
	if err != nil {
		return nil, err
	}
	if env.PGURL, err = env.PG.ConnectionString(ctx, "sslmode=disable"); err != nil {
		return nil, err
	}

	// Transactions need a replica set, even a single node one.
	env.Mongo, err = mongodb.Run(ctx, "mongo:7", mongodb.WithReplicaSet("rs0"))
	if err != nil {
		return nil, err
	}
	uri, err := env.Mongo.ConnectionString(ctx)
	if err != nil {
		return nil, err
	}
	env.MongoURI = strings.TrimSuffix(uri, "/") + "/?directConnection=true"

	env.Kafka, err = kafka.Run(ctx,
		"confluentinc/confluent-local:7.5.0",
		kafka.WithClusterID("pharmacy-it"),
	)
	if err != nil {
		return nil, err
	}
	if env.KAddr, err = env.Kafka.Brokers(ctx); err != nil {
		return nil, err
	}
	return env, nil
}

func (e *Env) Teardown(ctx context.Context) {
	if e.Kafka != nil {
		_ = e.Kafka.Terminate(ctx)
	}
	if e.Mongo != nil {
		_ = e.Mongo.Terminate(ctx)
	}
	if e.PG != nil {
		_ = e.PG.Terminate(ctx)
	}
}
