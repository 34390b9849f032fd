package session

import (
	"context"
	"errors"
	"time"

	"github.com/samber/oops"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"authservice/pkg/generator"
)

const mongoCollection = "user_sessions"

type mongoSession struct {
	Token     string    `bson:"_id"`
	UserID    string    `bson:"user_id"`
	CreatedAt time.Time `bson:"created_at"`
}

// MongoRegistry keeps sessions in the user_sessions collection.
type MongoRegistry struct {
	collection *mongo.Collection
	users      Users
	duration   time.Duration

	Clock func() time.Time
}

func NewMongoRegistry(db *mongo.Database, users Users, duration time.Duration) *MongoRegistry {
	return &MongoRegistry{
		collection: db.Collection(mongoCollection),
		users:      users,
		duration:   duration,
		Clock:      time.Now,
	}
}

func (r *MongoRegistry) Create(ctx context.Context, userID string) (string, error) {
	if err := checkUser(ctx, r.users, userID); err != nil {
		return "", err
	}

	token, err := generator.Token()
	if err != nil {
		return "", oops.Code("SESSION_TOKEN_GENERATE_FAILED").Wrap(err)
	}

	_, err = r.collection.InsertOne(ctx, mongoSession{
		Token:     token,
		UserID:    userID,
		CreatedAt: r.Clock(),
	})
	if err != nil {
		return "", oops.Code("SESSION_CREATE_FAILED").
			With("operation", "insert user_session").
			With("user_id", userID).
			Wrap(err)
	}

	return token, nil
}

func (r *MongoRegistry) Resolve(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", notFound()
	}

	var s mongoSession
	err := r.collection.FindOne(ctx, bson.M{"_id": token}).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", notFound()
	}
	if err != nil {
		return "", oops.Code("SESSION_GET_FAILED").
			With("operation", "find user_session").
			Wrap(err)
	}

	if Expired(s.CreatedAt, r.duration, r.Clock()) {
		if _, err := r.collection.DeleteOne(ctx, bson.M{"_id": token}); err != nil {
			return "", oops.Code("SESSION_DELETE_FAILED").
				With("operation", "delete expired user_session").
				Wrap(err)
		}
		return "", notFound()
	}

	return s.UserID, nil
}

func (r *MongoRegistry) Destroy(ctx context.Context, userID string) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return oops.Code("SESSION_DELETE_FAILED").
			With("operation", "delete user_sessions").
			With("user_id", userID).
			Wrap(err)
	}
	return nil
}
