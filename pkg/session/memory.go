package session

import (
	"context"
	"sync"
	"time"

	"github.com/samber/oops"

	"authservice/pkg/generator"
)

type MemoryRegistry struct {
	mu       sync.RWMutex
	sessions map[string]Session

	users    Users
	duration time.Duration

	Clock func() time.Time
}

func NewMemoryRegistry(users Users, duration time.Duration) *MemoryRegistry {
	return &MemoryRegistry{
		sessions: make(map[string]Session),
		users:    users,
		duration: duration,
		Clock:    time.Now,
	}
}

func (r *MemoryRegistry) Create(ctx context.Context, userID string) (string, error) {
	if err := checkUser(ctx, r.users, userID); err != nil {
		return "", err
	}

	token, err := generator.Token()
	if err != nil {
		return "", oops.Code("SESSION_TOKEN_GENERATE_FAILED").Wrap(err)
	}

	r.mu.Lock()
	r.sessions[token] = Session{Token: token, UserID: userID, CreatedAt: r.Clock()}
	r.mu.Unlock()

	return token, nil
}

func (r *MemoryRegistry) Resolve(_ context.Context, token string) (string, error) {
	if token == "" {
		return "", notFound()
	}

	r.mu.RLock()
	s, ok := r.sessions[token]
	r.mu.RUnlock()

	if !ok {
		return "", notFound()
	}

	if Expired(s.CreatedAt, r.duration, r.Clock()) {
		r.mu.Lock()
		delete(r.sessions, token)
		r.mu.Unlock()
		return "", notFound()
	}

	return s.UserID, nil
}

func (r *MemoryRegistry) Destroy(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for token, s := range r.sessions {
		if s.UserID == userID {
			delete(r.sessions, token)
		}
	}
	return nil
}

// Len returns the number of stored sessions, expired ones included.
func (r *MemoryRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
