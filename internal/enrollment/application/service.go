package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/course-enrollment/internal/enrollment/domain"
)

var ErrUnauthenticated = errors.New("webhook authentication failed")

type Service struct {
	log      *slog.Logger
	users    UserStore
	verifier SignatureVerifier
	journal  DeliveryJournal
	tracer   trace.Tracer
}

// NewService wires the enrollment processor. journal may be nil.
func NewService(log *slog.Logger, users UserStore, verifier SignatureVerifier, journal DeliveryJournal) *Service {
	return &Service{
		log:      log,
		users:    users,
		verifier: verifier,
		journal:  journal,
		tracer:   otel.Tracer("enrollment-service"),
	}
}

// ProcessWebhook authenticates, decodes and applies one delivery. The body is
// not parsed unless the signature verifies.
func (s *Service) ProcessWebhook(ctx context.Context, body []byte, signature string) (domain.Decision, error) {
	ctx, span := s.tracer.Start(ctx, "ProcessWebhook")
	defer span.End()

	if err := s.verifier.Verify(body, signature); err != nil {
		s.log.Warn("webhook rejected",
			"fault", "auth",
			"err", err,
			"received_signature", signature,
			"computed_signature", s.verifier.Expected(body),
		)
		span.SetStatus(codes.Error, "auth")
		return domain.Decision{}, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}

	attempt := s.recordDelivery(ctx, body)

	ev, err := Decode(body)
	if err != nil {
		fault := "malformed_payload"
		if errors.Is(err, domain.ErrInvalidMetadata) {
			fault = "invalid_metadata"
		}
		s.log.Warn("webhook payload rejected",
			"fault", fault,
			"err", err,
			"event", ev.Kind,
			"user_id", ev.UserID,
			"course_id", ev.CourseID,
			"attempt", attempt,
		)
		span.SetStatus(codes.Error, fault)
		return domain.Decision{}, err
	}
	span.SetAttributes(attribute.String("webhook.event", ev.Kind))

	if !ev.IsChargeSuccess() {
		s.log.Info("webhook acknowledged", "event", ev.Kind, "attempt", attempt)
		return domain.Decision{Outcome: domain.OutcomeIgnored}, nil
	}

	d, err := s.Enroll(ctx, ev.UserID, ev.CourseID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return d, err
	}
	s.log.Info("enrollment processed",
		"event", ev.Kind,
		"user_id", d.UserID,
		"course_id", d.CourseID,
		"outcome", d.Outcome,
		"attempt", attempt,
	)
	return d, nil
}

// Enroll grants courseID to userID. A replay returns OutcomeAlreadyEnrolled
// and leaves storage untouched.
func (s *Service) Enroll(ctx context.Context, userID, courseID string) (domain.Decision, error) {
	ctx, span := s.tracer.Start(ctx, "Enroll", trace.WithAttributes(
		attribute.String("user.id", userID),
		attribute.String("course.id", courseID),
	))
	defer span.End()

	user, err := s.users.FindUserByID(ctx, userID)
	if err != nil {
		s.log.Error("load user failed", "fault", "persistence", "user_id", userID, "course_id", courseID, "err", err)
		return domain.Decision{}, fmt.Errorf("%w: find user %s: %w", domain.ErrPersistence, userID, err)
	}
	if user == nil {
		s.log.Warn("enrollment target missing", "fault", "not_found", "user_id", userID, "course_id", courseID)
		return domain.Decision{}, domain.ErrUserNotFound
	}

	d := domain.Decision{UserID: userID, CourseID: courseID}
	if user.HasCourse(courseID) {
		d.Outcome = domain.OutcomeAlreadyEnrolled
		return d, nil
	}

	inserted, err := s.users.AddCourseIfAbsent(ctx, userID, courseID)
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		s.log.Warn("enrollment target vanished", "fault", "not_found", "user_id", userID, "course_id", courseID)
		return domain.Decision{}, domain.ErrUserNotFound
	case err != nil:
		s.log.Error("add course failed", "fault", "persistence", "user_id", userID, "course_id", courseID, "err", err)
		return domain.Decision{}, fmt.Errorf("%w: add course %s to %s: %w", domain.ErrPersistence, courseID, userID, err)
	}

	if inserted {
		d.Outcome = domain.OutcomeNewlyEnrolled
	} else {
		d.Outcome = domain.OutcomeAlreadyEnrolled
	}
	return d, nil
}

func (s *Service) recordDelivery(ctx context.Context, body []byte) int64 {
	if s.journal == nil {
		return 0
	}
	n, err := s.journal.Record(ctx, body)
	if err != nil {
		s.log.Warn("delivery journal unavailable", "err", err)
		return 0
	}
	if n > 1 {
		s.log.Info("webhook redelivery", "attempt", n)
	}
	return n
}
