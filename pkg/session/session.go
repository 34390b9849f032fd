// Package session maps opaque session tokens to user ids.
//
// Four registries share the Registry contract:
//
//   - UserFieldRegistry keeps the token on the user row: one live session per user, no expiry.
//   - MemoryRegistry keeps a process-local table: many sessions per user, lost on restart.
//   - SQLRegistry and MongoRegistry keep a user_sessions table/collection: many sessions per user.
//
// A positive duration expires a session strictly after created_at + duration.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/samber/oops"

	"authservice/pkg/user"
)

var (
	ErrNotFound    = errors.New("session not found")
	ErrInvalidUser = errors.New("invalid session user")
)

type Session struct {
	Token     string
	UserID    string
	CreatedAt time.Time
}

type Registry interface {
	// Create binds a fresh random token to userID.
	Create(ctx context.Context, userID string) (string, error)
	// Resolve returns the user id bound to token, or ErrNotFound.
	Resolve(ctx context.Context, token string) (string, error)
	// Destroy removes the sessions of userID. Missing sessions are not an error.
	Destroy(ctx context.Context, userID string) error
}

// Users is the part of the credential store used to validate user ids.
type Users interface {
	FindBy(ctx context.Context, match user.Fields) (*user.User, error)
}

// Expired reports whether a session created at createdAt is past its lifetime at now.
// A non-positive duration never expires.
func Expired(createdAt time.Time, duration time.Duration, now time.Time) bool {
	return duration > 0 && now.After(createdAt.Add(duration))
}

func checkUser(ctx context.Context, users Users, userID string) error {
	if userID == "" {
		return oops.Code("SESSION_INVALID_USER").Wrap(ErrInvalidUser)
	}
	if users == nil {
		return nil
	}

	_, err := users.FindBy(ctx, user.Fields{user.ColID: userID})
	if errors.Is(err, user.ErrNotFound) {
		return oops.Code("SESSION_INVALID_USER").With("user_id", userID).Wrap(ErrInvalidUser)
	}
	return err
}

func notFound() error {
	return oops.Code("SESSION_NOT_FOUND").Wrap(ErrNotFound)
}
