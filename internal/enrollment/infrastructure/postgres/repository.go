package postgres

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmehra2102/course-enrollment/internal/enrollment/domain"
	"github.com/dmehra2102/course-enrollment/pkg/tracing"
)

//go:embed schema.sql
var schema string

const foreignKeyViolation = "23503"

func Connect(ctx context.Context, url string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse postgres url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) FindUserByID(ctx context.Context, id string) (*domain.UserAccount, error) {
	var u domain.UserAccount
	err := r.pool.QueryRow(ctx, `
		SELECT u.id, u.email, u.name, u.created_at,
			COALESCE(array_agg(e.course_id ORDER BY e.enrolled_at, e.course_id) FILTER (WHERE e.course_id IS NOT NULL), '{}')
		FROM users u
		LEFT JOIN user_enrollments e ON e.user_id = u.id
		WHERE u.id = $1
		GROUP BY u.id`, id).
		Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt, &u.EnrolledCourses)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// AddCourseIfAbsent relies on the (user_id, course_id) primary key: concurrent
// inserts of the same pair serialize on the index and all but one become
// no-ops. The EnrollmentGranted outbox row commits with the winning insert.
func (r *Repository) AddCourseIfAbsent(ctx context.Context, userID, courseID string) (bool, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	now := time.Now().UTC()
	tag, err := tx.Exec(ctx, `
		INSERT INTO user_enrollments (user_id, course_id, enrolled_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, course_id) DO NOTHING`,
		userID, courseID, now)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return false, domain.ErrUserNotFound
		}
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	payload, err := json.Marshal(domain.EnrollmentGranted{
		EventID:   uuid.NewString(),
		UserID:    userID,
		CourseID:  courseID,
		GrantedAt: now,
	})
	if err != nil {
		return false, err
	}
	headers := map[string]string{"source": "enrollment-service"}
	_, err = tx.Exec(ctx, `
		INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, headers, traceparent, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending')`,
		"enrollment", userID, domain.EventTypeEnrollmentGranted, payload, headers, tracing.Traceparent(ctx))
	if err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	r.log.Debug("enrollment inserted", "user_id", userID, "course_id", courseID)
	return true, nil
}

// UpsertUser is used by operator tooling to provision accounts.
func (r *Repository) UpsertUser(ctx context.Context, u domain.UserAccount) error {
	createdAt := u.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		INSERT INTO users (id, email, name, created_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET email = $2, name = $3`,
		u.ID, u.Email, u.Name, createdAt); err != nil {
		return err
	}
	// Provisioned courses are not grants, so no outbox row is written.
	for _, courseID := range u.EnrolledCourses {
		if _, err := tx.Exec(ctx, `
			INSERT INTO user_enrollments (user_id, course_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING`, u.ID, courseID); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
