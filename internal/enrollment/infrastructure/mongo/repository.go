package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dmehra2102/course-enrollment/internal/enrollment/domain"
)

const usersCollection = "users"

type userDocument struct {
	ID              string    `bson:"_id"`
	Email           string    `bson:"email"`
	Name            string    `bson:"name"`
	EnrolledCourses []string  `bson:"enrolledCourses"`
	CreatedAt       time.Time `bson:"createdAt"`
}

func (d userDocument) toDomain() *domain.UserAccount {
	return &domain.UserAccount{
		ID:              d.ID,
		Email:           d.Email,
		Name:            d.Name,
		EnrolledCourses: d.EnrolledCourses,
		CreatedAt:       d.CreatedAt,
	}
}

func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

type Repository struct {
	log   *slog.Logger
	users *mongo.Collection
}

func NewRepository(log *slog.Logger, db *mongo.Database) *Repository {
	return &Repository{log: log, users: db.Collection(usersCollection)}
}

func (r *Repository) FindUserByID(ctx context.Context, id string) (*domain.UserAccount, error) {
	var doc userDocument
	err := r.users.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc.toDomain(), nil
}

// AddCourseIfAbsent issues one $addToSet update; the server applies it
// atomically per document, so concurrent duplicates leave a single entry.
// An explicit null array is reset to [] first, since $addToSet rejects it.
func (r *Repository) AddCourseIfAbsent(ctx context.Context, userID, courseID string) (bool, error) {
	if _, err := r.users.UpdateOne(ctx,
		bson.M{"_id": userID, "enrolledCourses": bson.M{"$type": "null"}},
		bson.M{"$set": bson.M{"enrolledCourses": bson.A{}}},
	); err != nil {
		return false, err
	}

	res, err := r.users.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$addToSet": bson.M{"enrolledCourses": courseID}},
	)
	if err != nil {
		return false, err
	}
	if res.MatchedCount == 0 {
		return false, domain.ErrUserNotFound
	}
	inserted := res.ModifiedCount == 1
	if inserted {
		r.log.Debug("enrollment inserted", "user_id", userID, "course_id", courseID)
	}
	return inserted, nil
}

func (r *Repository) UpsertUser(ctx context.Context, u domain.UserAccount) error {
	createdAt := u.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	update := bson.M{
		"$set":         bson.M{"email": u.Email, "name": u.Name},
		"$setOnInsert": bson.M{"createdAt": createdAt, "enrolledCourses": bson.A{}},
	}
	if len(u.EnrolledCourses) > 0 {
		update["$setOnInsert"] = bson.M{"createdAt": createdAt}
		update["$addToSet"] = bson.M{"enrolledCourses": bson.M{"$each": u.EnrolledCourses}}
	}
	_, err := r.users.UpdateOne(ctx, bson.M{"_id": u.ID}, update, options.Update().SetUpsert(true))
	return err
}
