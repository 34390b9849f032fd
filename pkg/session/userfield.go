package session

import (
	"context"
	"errors"
	"time"

	"github.com/samber/oops"

	"authservice/pkg/generator"
	"authservice/pkg/user"
)

// UserFieldRegistry stores the token in users.session_id, so a new login replaces the previous session.
// The creation time goes to users.session_created_at; a row without one counts as expired once a duration is set.
type UserFieldRegistry struct {
	users    user.Repository
	duration time.Duration

	Clock func() time.Time
}

func NewUserFieldRegistry(users user.Repository, duration time.Duration) *UserFieldRegistry {
	return &UserFieldRegistry{
		users:    users,
		duration: duration,
		Clock:    time.Now,
	}
}

func (r *UserFieldRegistry) Create(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", oops.Code("SESSION_INVALID_USER").Wrap(ErrInvalidUser)
	}

	token, err := generator.Token()
	if err != nil {
		return "", oops.Code("SESSION_TOKEN_GENERATE_FAILED").Wrap(err)
	}

	err = r.users.Update(ctx, userID, user.Fields{
		user.ColSessionID:        token,
		user.ColSessionCreatedAt: r.Clock().UnixMicro(),
	})
	if errors.Is(err, user.ErrNotFound) {
		return "", oops.Code("SESSION_INVALID_USER").With("user_id", userID).Wrap(ErrInvalidUser)
	}
	if err != nil {
		return "", err
	}

	return token, nil
}

func (r *UserFieldRegistry) Resolve(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", notFound()
	}

	u, err := r.users.FindBy(ctx, user.Fields{user.ColSessionID: token})
	if errors.Is(err, user.ErrNotFound) {
		return "", notFound()
	}
	if err != nil {
		return "", err
	}

	if Expired(u.SessionCreatedAt, r.duration, r.Clock()) {
		// keyed on the token so a concurrent re-login is not cleared
		err := r.users.UpdateIf(ctx,
			user.Fields{user.ColID: u.ID, user.ColSessionID: token},
			user.Fields{user.ColSessionID: nil, user.ColSessionCreatedAt: nil},
		)
		if err != nil && !errors.Is(err, user.ErrNotFound) {
			return "", err
		}
		return "", notFound()
	}

	return u.ID, nil
}

func (r *UserFieldRegistry) Destroy(ctx context.Context, userID string) error {
	err := r.users.Update(ctx, userID, user.Fields{
		user.ColSessionID:        nil,
		user.ColSessionCreatedAt: nil,
	})
	if errors.Is(err, user.ErrNotFound) {
		return nil
	}
	return err
}
