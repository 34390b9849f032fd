package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"authservice/pkg/session"
	"authservice/pkg/user"
)

type mockUsers struct {
	mock.Mock
}

func (m *mockUsers) FindBy(ctx context.Context, match user.Fields) (*user.User, error) {
	args := m.Called(match)
	if u := args.Get(0); u != nil {
		return u.(*user.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestExpired(t *testing.T) {
	created := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	d := 10 * time.Second
	eps := time.Millisecond

	assert.False(t, session.Expired(created, d, created.Add(d-eps)))
	assert.False(t, session.Expired(created, d, created.Add(d)))
	assert.True(t, session.Expired(created, d, created.Add(d+eps)))

	assert.False(t, session.Expired(created, 0, created.Add(1000*time.Hour)))
	assert.False(t, session.Expired(created, -time.Second, created.Add(time.Hour)))
}

func TestMemoryRegistry_Lifecycle(t *testing.T) {
	ctx := context.Background()
	reg := session.NewMemoryRegistry(nil, 0)

	tok, err := reg.Create(ctx, "u1")
	require.NoError(t, err)
	assert.NotEmpty(t, tok)

	tok2, err := reg.Create(ctx, "u1")
	require.NoError(t, err)
	assert.NotEqual(t, tok, tok2)

	id, err := reg.Resolve(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", id)

	_, err = reg.Resolve(ctx, "never-issued")
	assert.ErrorIs(t, err, session.ErrNotFound)

	_, err = reg.Resolve(ctx, "")
	assert.ErrorIs(t, err, session.ErrNotFound)

	require.NoError(t, reg.Destroy(ctx, "u1"))
	require.NoError(t, reg.Destroy(ctx, "u1"))

	_, err = reg.Resolve(ctx, tok)
	assert.ErrorIs(t, err, session.ErrNotFound)
	_, err = reg.Resolve(ctx, tok2)
	assert.ErrorIs(t, err, session.ErrNotFound)
	assert.Equal(t, 0, reg.Len())
}

func TestMemoryRegistry_Expiry(t *testing.T) {
	ctx := context.Background()
	d := 30 * time.Second
	eps := time.Millisecond
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := start

	reg := session.NewMemoryRegistry(nil, d)
	reg.Clock = func() time.Time { return now }

	tok, err := reg.Create(ctx, "u1")
	require.NoError(t, err)

	now = start.Add(d - eps)
	id, err := reg.Resolve(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", id)

	now = start.Add(d + eps)
	_, err = reg.Resolve(ctx, tok)
	assert.ErrorIs(t, err, session.ErrNotFound)
	assert.Equal(t, 0, reg.Len(), "expired session is dropped on resolve")
}

func TestMemoryRegistry_InvalidUser(t *testing.T) {
	ctx := context.Background()
	users := new(mockUsers)
	users.On("FindBy", user.Fields{user.ColID: "ghost"}).Return(nil, user.ErrNotFound)
	users.On("FindBy", user.Fields{user.ColID: "u1"}).Return(&user.User{ID: "u1"}, nil)
	users.On("FindBy", user.Fields{user.ColID: "broken"}).Return(nil, errors.New("db down"))

	reg := session.NewMemoryRegistry(users, 0)

	_, err := reg.Create(ctx, "ghost")
	assert.ErrorIs(t, err, session.ErrInvalidUser)

	_, err = reg.Create(ctx, "")
	assert.ErrorIs(t, err, session.ErrInvalidUser)

	_, err = reg.Create(ctx, "broken")
	assert.Error(t, err)
	assert.False(t, errors.Is(err, session.ErrInvalidUser))

	_, err = reg.Create(ctx, "u1")
	assert.NoError(t, err)

	users.AssertExpectations(t)
}

func TestMemoryRegistry_Concurrent(t *testing.T) {
	ctx := context.Background()
	reg := session.NewMemoryRegistry(nil, 0)

	var wg sync.WaitGroup
	tokens := make(chan string, 50)

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok, err := reg.Create(ctx, "u1")
			assert.NoError(t, err)
			tokens <- tok

			_, err = reg.Resolve(ctx, tok)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	close(tokens)

	assert.Equal(t, 50, reg.Len())

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, reg.Destroy(ctx, "u1"))
		}()
	}
	wg.Wait()

	for tok := range tokens {
		_, err := reg.Resolve(ctx, tok)
		assert.ErrorIs(t, err, session.ErrNotFound)
	}
}
