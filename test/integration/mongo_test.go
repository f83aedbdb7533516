//go:build integration

package integration

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/dmehra2102/course-enrollment/internal/enrollment/domain"
	enrollmongo "github.com/dmehra2102/course-enrollment/internal/enrollment/infrastructure/mongo"
)

func newMongoRepo(t *testing.T) (*enrollmongo.Repository, string) {
	t.Helper()
	name := "it_" + strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db := mongo.Database(name)
	t.Cleanup(func() { _ = db.Drop(context.Background()) })
	return enrollmongo.NewRepository(slog.New(slog.DiscardHandler), db), name
}

func TestMongoAddCourseIfAbsent(t *testing.T) {
	repo, _ := newMongoRepo(t)
	ctx := t.Context()
	if err := repo.UpsertUser(ctx, domain.UserAccount{ID: "U1", Email: "u1@example.com"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	inserted, err := repo.AddCourseIfAbsent(ctx, "U1", "C1")
	if err != nil || !inserted {
		t.Fatalf("first add: inserted=%v err=%v", inserted, err)
	}
	inserted, err = repo.AddCourseIfAbsent(ctx, "U1", "C1")
	if err != nil || inserted {
		t.Fatalf("replay: inserted=%v err=%v", inserted, err)
	}

	u, err := repo.FindUserByID(ctx, "U1")
	if err != nil || u == nil || len(u.EnrolledCourses) != 1 || !u.HasCourse("C1") {
		t.Fatalf("unexpected user %+v (%v)", u, err)
	}
}

func TestMongoConcurrentAddsLeaveOneEntry(t *testing.T) {
	repo, _ := newMongoRepo(t)
	if err := repo.UpsertUser(t.Context(), domain.UserAccount{ID: "U1"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	const callers = 24
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		fresh int
	)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			inserted, err := repo.AddCourseIfAbsent(t.Context(), "U1", "C-race")
			if err != nil {
				t.Errorf("add: %v", err)
				return
			}
			if inserted {
				mu.Lock()
				fresh++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if fresh != 1 {
		t.Fatalf("expected one insert, got %d", fresh)
	}
	u, err := repo.FindUserByID(t.Context(), "U1")
	if err != nil || len(u.EnrolledCourses) != 1 {
		t.Fatalf("expected a single course, got %+v (%v)", u, err)
	}
}

func TestMongoUnknownUser(t *testing.T) {
	repo, name := newMongoRepo(t)

	u, err := repo.FindUserByID(t.Context(), "ghost")
	if err != nil || u != nil {
		t.Fatalf("expected nil user, got %+v (%v)", u, err)
	}
	if _, err := repo.AddCourseIfAbsent(t.Context(), "ghost", "C1"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if n, _ := mongo.Database(name).Collection("users").CountDocuments(t.Context(), bson.M{}); n != 0 {
		t.Fatalf("unknown user must not be created, found %d documents", n)
	}
}

func TestMongoNullCoursesAreRepaired(t *testing.T) {
	repo, name := newMongoRepo(t)
	users := mongo.Database(name).Collection("users")
	if _, err := users.InsertOne(t.Context(), bson.M{"_id": "U-null", "enrolledCourses": nil}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	inserted, err := repo.AddCourseIfAbsent(t.Context(), "U-null", "C1")
	if err != nil || !inserted {
		t.Fatalf("add on null array: inserted=%v err=%v", inserted, err)
	}
	inserted, err = repo.AddCourseIfAbsent(t.Context(), "U-null", "C1")
	if err != nil || inserted {
		t.Fatalf("replay: inserted=%v err=%v", inserted, err)
	}
}

func TestMongoUpsertSeedsCourses(t *testing.T) {
	repo, _ := newMongoRepo(t)
	u := domain.UserAccount{ID: "U-seed", EnrolledCourses: []string{"C-old"}}
	if err := repo.UpsertUser(t.Context(), u); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := repo.UpsertUser(t.Context(), u); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	inserted, err := repo.AddCourseIfAbsent(t.Context(), "U-seed", "C-old")
	if err != nil || inserted {
		t.Fatalf("seeded course should be a no-op: inserted=%v err=%v", inserted, err)
	}
}
