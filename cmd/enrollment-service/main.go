package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/dmehra2102/course-enrollment/internal/config"
	"github.com/dmehra2102/course-enrollment/internal/enrollment/application"
	enrollgrpc "github.com/dmehra2102/course-enrollment/internal/enrollment/infrastructure/grpc"
	enrollhttp "github.com/dmehra2102/course-enrollment/internal/enrollment/infrastructure/http"
	enrollkafka "github.com/dmehra2102/course-enrollment/internal/enrollment/infrastructure/kafka"
	"github.com/dmehra2102/course-enrollment/internal/enrollment/infrastructure/memory"
	enrollmongo "github.com/dmehra2102/course-enrollment/internal/enrollment/infrastructure/mongo"
	enrollpg "github.com/dmehra2102/course-enrollment/internal/enrollment/infrastructure/postgres"
	"github.com/dmehra2102/course-enrollment/pkg/idempotency"
	"github.com/dmehra2102/course-enrollment/pkg/logging"
	"github.com/dmehra2102/course-enrollment/pkg/outbox"
	"github.com/dmehra2102/course-enrollment/pkg/shutdown"
	"github.com/dmehra2102/course-enrollment/pkg/tracing"
	"github.com/dmehra2102/course-enrollment/pkg/webhook"
)

func main() {
	cfg, err := config.Load(env("CONFIG_PATH", "configs/enrollment-service.yaml"))
	if err != nil {
		logging.New("info").Error("config invalid", "err", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel)

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	var closers shutdown.Closers
	if err := run(ctx, cfg, log, &closers); err != nil {
		log.Error("enrollment-service failed", "err", err)
		closeAll(log, &closers)
		os.Exit(1)
	}
	closeAll(log, &closers)
	log.Info("enrollment-service shutdown complete")
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger, closers *shutdown.Closers) error {
	tp, err := tracing.Init(ctx, cfg.ServiceID, cfg.OTLPEndpoint, log)
	if err != nil {
		return fmt.Errorf("otel init: %w", err)
	}
	closers.Add(tp.Shutdown)

	store, relay, err := openStore(ctx, cfg, log, closers)
	if err != nil {
		return err
	}

	if cfg.WebhookSecret == "" {
		log.Error("PAYSTACK_SECRET_KEY is not set; every webhook will be rejected")
	}
	verifier := webhook.NewVerifier([]byte(cfg.WebhookSecret))

	var journal application.DeliveryJournal
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		closers.Add(func(context.Context) error { return rdb.Close() })
		journal = idempotency.NewJournal(rdb, cfg.DeliveryTTL)
	}

	svc := application.NewService(log, store, verifier, journal)
	handler := enrollhttp.NewHandler(log, svc, enrollhttp.Options{
		Path:            cfg.WebhookPath,
		SignatureHeader: cfg.SignatureHeader,
		MaxBodyBytes:    cfg.MaxBodyBytes,
	})

	r := chi.NewRouter()
	r.Mount("/", handler.Routes())
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	hs, err := enrollgrpc.Run(log, fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	if relay != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := relay.Run(ctx); err != nil {
				log.Error("relay stopped with error", "err", err)
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http listening", "addr", srv.Addr, "webhook_path", cfg.WebhookPath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-errCh:
		runErr = fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)
	hs.Stop()
	cancel()
	wg.Wait()
	return runErr
}

// openStore builds the configured UserStore. The relay is non-nil only for
// the postgres backend with brokers configured.
func openStore(ctx context.Context, cfg config.Config, log *slog.Logger, closers *shutdown.Closers) (application.UserStore, *outbox.Relay, error) {
	switch cfg.StoreBackend {
	case config.BackendMemory:
		log.Warn("using in-memory user store; enrollments are not durable")
		return memory.NewStore(), nil, nil

	case config.BackendMongo:
		client, err := enrollmongo.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		closers.Add(client.Disconnect)
		return enrollmongo.NewRepository(log, client.Database(cfg.MongoDatabase)), nil, nil

	default:
		pool, err := enrollpg.Connect(ctx, cfg.DatabaseURL, int32(cfg.MaxDBConns))
		if err != nil {
			return nil, nil, fmt.Errorf("pg connect: %w", err)
		}
		closers.AddFunc(pool.Close)
		if err := enrollpg.Migrate(ctx, pool); err != nil {
			return nil, nil, err
		}
		repo := enrollpg.NewRepository(log, pool)
		if !cfg.RelayEnabled() {
			log.Info("outbox relay disabled")
			return repo, nil, nil
		}

		writer := enrollkafka.NewWriter(cfg.KafkaBrokers)
		closers.Add(func(context.Context) error { return writer.Close() })
		dispatch := outbox.NewDispatcher(log, writer, cfg.EnrollmentTopic)
		store := enrollpg.NewOutboxStore(log, pool, cfg.OutboxMaxRetries)
		relay := outbox.NewRelay(log, store, dispatch, cfg.ServiceID+"-relay",
			outbox.WithBatchSize(cfg.OutboxBatchSize),
			outbox.WithInterval(cfg.OutboxPollInterval),
			outbox.WithLease(cfg.OutboxLease),
		)
		return repo, relay, nil
	}
}

func closeAll(log *slog.Logger, closers *shutdown.Closers) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := closers.Close(ctx); err != nil {
		log.Error("shutdown cleanup failed", "err", err)
	}
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
