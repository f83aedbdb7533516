// Package integration starts throwaway Postgres, Kafka, MongoDB and Redis
// containers for the store, outbox relay and delivery journal tests.
package integration

import (
	"context"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

type Env struct {
	PG       *postgres.PostgresContainer
	Kafka    *kafka.KafkaContainer
	Mongo    *mongodb.MongoDBContainer
	Redis    *tcredis.RedisContainer
	PGURL    string
	KAddr    []string
	MongoURI string
	RedisURL string
	Cancel   context.CancelFunc

	started []testcontainers.Container
}

// Setup starts every container. Image pulls can be slow on a cold host.
func Setup(ctx context.Context) (*Env, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	e := &Env{Cancel: cancel}

	fail := func(err error) (*Env, error) {
		e.Teardown(context.Background())
		return nil, err
	}

	pgC, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("courses"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		return fail(err)
	}
	e.PG = pgC
	e.started = append(e.started, pgC)
	if e.PGURL, err = pgC.ConnectionString(ctx, "sslmode=disable"); err != nil {
		return fail(err)
	}

	kafkaC, err := kafka.Run(ctx,
		"confluentinc/confluent-local:7.5.0",
		kafka.WithClusterID("enrollment-it"),
	)
	if err != nil {
		return fail(err)
	}
	e.Kafka = kafkaC
	e.started = append(e.started, kafkaC)
	if e.KAddr, err = kafkaC.Brokers(ctx); err != nil {
		return fail(err)
	}

	mongoC, err := mongodb.Run(ctx, "mongo:7")
	if err != nil {
		return fail(err)
	}
	e.Mongo = mongoC
	e.started = append(e.started, mongoC)
	if e.MongoURI, err = mongoC.ConnectionString(ctx); err != nil {
		return fail(err)
	}

	redisC, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		return fail(err)
	}
	e.Redis = redisC
	e.started = append(e.started, redisC)
	if e.RedisURL, err = redisC.ConnectionString(ctx); err != nil {
		return fail(err)
	}

	return e, nil
}

// Teardown terminates containers in reverse start order.
func (e *Env) Teardown(ctx context.Context) {
	e.Cancel()
	for i := len(e.started) - 1; i >= 0; i-- {
		_ = e.started[i].Terminate(ctx)
	}
}
