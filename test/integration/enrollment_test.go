//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	mongodriver "go.mongodb.org/mongo-driver/mongo"

	"github.com/dmehra2102/course-enrollment/internal/enrollment/application"
	"github.com/dmehra2102/course-enrollment/internal/enrollment/domain"
	enrollkafka "github.com/dmehra2102/course-enrollment/internal/enrollment/infrastructure/kafka"
	enrollmongo "github.com/dmehra2102/course-enrollment/internal/enrollment/infrastructure/mongo"
	enrollpg "github.com/dmehra2102/course-enrollment/internal/enrollment/infrastructure/postgres"
	"github.com/dmehra2102/course-enrollment/pkg/outbox"
	"github.com/dmehra2102/course-enrollment/pkg/webhook"
)

const topic = "enrollment.events.it"

var (
	env   *Env
	pool  *pgxpool.Pool
	mongo *mongodriver.Client
	rdb   *redis.Client
)

func TestMain(m *testing.M) {
	ctx := context.Background()
	var err error
	env, err = Setup(ctx)
	if err != nil {
		slog.Error("containers unavailable", "err", err)
		os.Exit(1)
	}

	pool, err = enrollpg.Connect(ctx, env.PGURL, 20)
	if err == nil {
		err = enrollpg.Migrate(ctx, pool)
	}
	if err != nil {
		slog.Error("postgres setup failed", "err", err)
		env.Teardown(ctx)
		os.Exit(1)
	}

	mongo, err = enrollmongo.Connect(ctx, env.MongoURI)
	if err == nil {
		var opts *redis.Options
		if opts, err = redis.ParseURL(env.RedisURL); err == nil {
			rdb = redis.NewClient(opts)
			err = rdb.Ping(ctx).Err()
		}
	}
	if err != nil {
		slog.Error("mongo or redis setup failed", "err", err)
		pool.Close()
		env.Teardown(ctx)
		os.Exit(1)
	}

	code := m.Run()
	_ = rdb.Close()
	_ = mongo.Disconnect(ctx)
	pool.Close()
	env.Teardown(ctx)
	os.Exit(code)
}

func newRepo(t *testing.T, users ...string) *enrollpg.Repository {
	t.Helper()
	repo := enrollpg.NewRepository(slog.New(slog.DiscardHandler), pool)
	for _, id := range users {
		if err := repo.UpsertUser(t.Context(), domain.UserAccount{ID: id, Email: id + "@example.com"}); err != nil {
			t.Fatalf("seed %s: %v", id, err)
		}
	}
	return repo
}

func countRows(t *testing.T, query string, args ...any) int {
	t.Helper()
	var n int
	if err := pool.QueryRow(t.Context(), query, args...).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func TestConcurrentDuplicateDeliveriesEnrollOnce(t *testing.T) {
	repo := newRepo(t, "it-user-dup")
	secret := []byte("sk_it")
	svc := application.NewService(slog.New(slog.DiscardHandler), repo, webhook.NewVerifier(secret), nil)

	body := []byte(`{"event":"charge.success","data":{"status":"success","metadata":{"courseId":"C-dup","userId":"it-user-dup"}}}`)
	sig := webhook.Sign(secret, body)

	const deliveries = 16
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		fresh int
	)
	for range deliveries {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := svc.ProcessWebhook(context.Background(), body, sig)
			if err != nil {
				t.Errorf("delivery failed: %v", err)
				return
			}
			if d.Outcome == domain.OutcomeNewlyEnrolled {
				mu.Lock()
				fresh++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if fresh != 1 {
		t.Fatalf("expected exactly one fresh enrollment, got %d", fresh)
	}
	if n := countRows(t, `SELECT count(*) FROM user_enrollments WHERE user_id = $1`, "it-user-dup"); n != 1 {
		t.Fatalf("expected one enrollment row, got %d", n)
	}
	if n := countRows(t, `SELECT count(*) FROM outbox WHERE aggregate_id = $1`, "it-user-dup"); n != 1 {
		t.Fatalf("expected one outbox row, got %d", n)
	}

	u, err := repo.FindUserByID(t.Context(), "it-user-dup")
	if err != nil || u == nil || !u.HasCourse("C-dup") || len(u.EnrolledCourses) != 1 {
		t.Fatalf("unexpected user %+v (%v)", u, err)
	}
}

func TestUnknownUserIsNotFound(t *testing.T) {
	repo := newRepo(t)

	u, err := repo.FindUserByID(t.Context(), "it-ghost")
	if err != nil || u != nil {
		t.Fatalf("expected nil user, got %+v (%v)", u, err)
	}
	if _, err := repo.AddCourseIfAbsent(t.Context(), "it-ghost", "C1"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if n := countRows(t, `SELECT count(*) FROM outbox WHERE aggregate_id = $1`, "it-ghost"); n != 0 {
		t.Fatalf("outbox row written for missing user")
	}
}

func TestSeededCoursesAreAlreadyEnrolled(t *testing.T) {
	repo := newRepo(t)
	if err := repo.UpsertUser(t.Context(), domain.UserAccount{ID: "it-seeded", EnrolledCourses: []string{"C-old"}}); err != nil {
		t.Fatal(err)
	}
	inserted, err := repo.AddCourseIfAbsent(t.Context(), "it-seeded", "C-old")
	if err != nil || inserted {
		t.Fatalf("expected no-op, got inserted=%v err=%v", inserted, err)
	}
}

func TestRelayPublishesEnrollmentGranted(t *testing.T) {
	repo := newRepo(t, "it-user-relay")
	log := slog.New(slog.DiscardHandler)

	if _, err := repo.AddCourseIfAbsent(t.Context(), "it-user-relay", "C-relay"); err != nil {
		t.Fatalf("enroll: %v", err)
	}

	writer := enrollkafka.NewWriter(env.KAddr)
	defer writer.Close()
	relay := outbox.NewRelay(log,
		enrollpg.NewOutboxStore(log, pool, 10),
		outbox.NewDispatcher(log, writer, topic),
		"it-relay",
		outbox.WithBatchSize(50),
	)

	ctx, cancel := context.WithTimeout(t.Context(), time.Minute)
	defer cancel()

	// Topic auto-creation can make the first write fail; retry until sent.
	for countRows(t, `SELECT count(*) FROM outbox WHERE aggregate_id = $1 AND status = 'sent'`, "it-user-relay") == 0 {
		if _, err := relay.RunOnce(ctx); err != nil {
			t.Fatalf("relay: %v", err)
		}
		select {
		case <-ctx.Done():
			t.Fatal("outbox row never sent")
		case <-time.After(500 * time.Millisecond):
		}
	}

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:   env.KAddr,
		Topic:     topic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  1 << 20,
	})
	defer reader.Close()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if string(msg.Key) != "it-user-relay" {
			continue
		}
		var ev domain.EnrollmentGranted
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			t.Fatalf("payload: %v", err)
		}
		if ev.CourseID != "C-relay" || ev.EventID == "" {
			t.Fatalf("unexpected event %+v", ev)
		}
		return
	}
}
