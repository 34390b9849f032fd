package user_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authservice/internal/database"
	"authservice/pkg/user"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	db, err := database.LoadDB(ctx, database.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.Migrate(ctx, db, database.DriverSQLite, nil))
	return db
}

func setupTestBadDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.LoadDB(context.Background(), database.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE users (id TEXT PRIMARY KEY, hashed_password TEXT NOT NULL);`)
	require.NoError(t, err)
	return db
}

func TestSQLRepo_AddAndFind(t *testing.T) {
	ctx := context.Background()
	repo := user.NewSQLRepo(setupTestDB(t), database.DriverSQLite)

	u, err := repo.Add(ctx, "bob@bob.com", "digest")
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "bob@bob.com", u.Email)

	_, err = repo.Add(ctx, "bob@bob.com", "other")
	assert.ErrorIs(t, err, user.ErrAlreadyExists)

	found, err := repo.FindBy(ctx, user.Fields{user.ColEmail: "bob@bob.com"})
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)
	assert.Equal(t, "digest", found.HashedPassword)
	assert.Empty(t, found.SessionID)
	assert.Empty(t, found.ResetToken)

	found, err = repo.FindBy(ctx, user.Fields{user.ColEmail: "bob@bob.com", user.ColSessionID: nil})
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)

	_, err = repo.FindBy(ctx, user.Fields{user.ColEmail: "ghost@bob.com"})
	assert.ErrorIs(t, err, user.ErrNotFound)
	assert.True(t, user.IsNotFound(err))
}

func TestSQLRepo_FindByInvalid(t *testing.T) {
	ctx := context.Background()
	repo := user.NewSQLRepo(setupTestDB(t), database.DriverSQLite)

	_, err := repo.FindBy(ctx, user.Fields{"no_email": "x"})
	assert.ErrorIs(t, err, user.ErrInvalidField)

	_, err = repo.FindBy(ctx, user.Fields{})
	assert.ErrorIs(t, err, user.ErrInvalidRequest)
}

func TestSQLRepo_Update(t *testing.T) {
	ctx := context.Background()
	repo := user.NewSQLRepo(setupTestDB(t), database.DriverSQLite)

	u, err := repo.Add(ctx, "a@b.com", "digest")
	require.NoError(t, err)

	require.NoError(t, repo.Update(ctx, u.ID, user.Fields{user.ColSessionID: "tok"}))
	// unchanged values are still a successful update
	require.NoError(t, repo.Update(ctx, u.ID, user.Fields{user.ColSessionID: "tok"}))

	found, err := repo.FindBy(ctx, user.Fields{user.ColSessionID: "tok"})
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)

	require.NoError(t, repo.Update(ctx, u.ID, user.Fields{user.ColSessionID: nil}))
	found, err = repo.FindBy(ctx, user.Fields{user.ColID: u.ID})
	require.NoError(t, err)
	assert.Empty(t, found.SessionID)

	err = repo.Update(ctx, "missing", user.Fields{user.ColSessionID: "tok"})
	assert.ErrorIs(t, err, user.ErrNotFound)

	err = repo.Update(ctx, u.ID, user.Fields{"nickname": "bobby"})
	assert.ErrorIs(t, err, user.ErrInvalidField)

	err = repo.Update(ctx, u.ID, user.Fields{user.ColID: "new-id"})
	assert.ErrorIs(t, err, user.ErrInvalidField)

	err = repo.Update(ctx, u.ID, nil)
	assert.ErrorIs(t, err, user.ErrInvalidRequest)
}

func TestSQLRepo_UpdateIf(t *testing.T) {
	ctx := context.Background()
	repo := user.NewSQLRepo(setupTestDB(t), database.DriverSQLite)

	u, err := repo.Add(ctx, "a@b.com", "old")
	require.NoError(t, err)
	require.NoError(t, repo.Update(ctx, u.ID, user.Fields{user.ColResetToken: "reset"}))

	consume := func() error {
		return repo.UpdateIf(ctx,
			user.Fields{user.ColResetToken: "reset"},
			user.Fields{user.ColHashedPassword: "new", user.ColResetToken: nil},
		)
	}

	require.NoError(t, consume())
	assert.ErrorIs(t, consume(), user.ErrNotFound)

	found, err := repo.FindBy(ctx, user.Fields{user.ColID: u.ID})
	require.NoError(t, err)
	assert.Equal(t, "new", found.HashedPassword)
	assert.Empty(t, found.ResetToken)
}

func TestSQLRepo_StorageFault(t *testing.T) {
	ctx := context.Background()
	repo := user.NewSQLRepo(setupTestBadDB(t), database.DriverSQLite)

	_, err := repo.FindBy(ctx, user.Fields{user.ColEmail: "whoever"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, user.ErrNotFound))

	_, err = repo.Add(ctx, "a@b.com", "digest")
	require.Error(t, err)
	assert.False(t, errors.Is(err, user.ErrAlreadyExists))
}
