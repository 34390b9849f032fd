package user

import (
	"context"
	"errors"
	"time"
)

// Column names accepted in Fields.
const (
	ColID             = "id"
	ColEmail          = "email"
	ColHashedPassword = "hashed_password"
	ColSessionID      = "session_id"
	ColResetToken     = "reset_token"
	// ColSessionCreatedAt holds Unix microseconds.
	ColSessionCreatedAt = "session_created_at"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrAlreadyExists  = errors.New("user already exists")
	ErrInvalidField   = errors.New("invalid user field")
	ErrInvalidRequest = errors.New("invalid user query")
)

// User is a stored credential record. Empty SessionID and ResetToken mean "not set".
type User struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	HashedPassword string `json:"-"`
	SessionID      string `json:"-"`
	ResetToken     string `json:"-"`

	// SessionCreatedAt is zero when no timestamp was stored.
	SessionCreatedAt time.Time `json:"-"`
}

// Fields maps column names to values. A nil value stands for NULL.
type Fields map[string]any

type Repository interface {
	Add(ctx context.Context, email, hashedPassword string) (*User, error)
	FindBy(ctx context.Context, match Fields) (*User, error)
	Update(ctx context.Context, id string, changes Fields) error
	// UpdateIf applies changes to the rows matching match in one statement.
	UpdateIf(ctx context.Context, match, changes Fields) error
}
