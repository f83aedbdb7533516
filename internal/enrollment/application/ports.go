package application

import (
	"context"

	"github.com/dmehra2102/course-enrollment/internal/enrollment/domain"
)

// UserStore is the persistence collaborator. FindUserByID returns (nil, nil)
// for an unknown id. AddCourseIfAbsent must be a single atomic set-insertion
// and reports whether this call inserted the course; it returns
// domain.ErrUserNotFound when the user row/document does not exist.
type UserStore interface {
	FindUserByID(ctx context.Context, id string) (*domain.UserAccount, error)
	AddCourseIfAbsent(ctx context.Context, userID, courseID string) (bool, error)
}

type SignatureVerifier interface {
	Verify(body []byte, signature string) error
	Expected(body []byte) string
}

// DeliveryJournal counts deliveries of identical bodies for audit logs.
type DeliveryJournal interface {
	Record(ctx context.Context, body []byte) (int64, error)
}
