package session

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/samber/oops"

	"authservice/internal/database"
	"authservice/pkg/generator"
)

// SQLRegistry keeps sessions in the user_sessions table.
type SQLRegistry struct {
	DB       *sql.DB
	driver   string
	users    Users
	duration time.Duration

	Clock func() time.Time
}

func NewSQLRegistry(db *sql.DB, driver string, users Users, duration time.Duration) *SQLRegistry {
	return &SQLRegistry{
		DB:       db,
		driver:   driver,
		users:    users,
		duration: duration,
		Clock:    time.Now,
	}
}

func (r *SQLRegistry) Create(ctx context.Context, userID string) (string, error) {
	if err := checkUser(ctx, r.users, userID); err != nil {
		return "", err
	}

	token, err := generator.Token()
	if err != nil {
		return "", oops.Code("SESSION_TOKEN_GENERATE_FAILED").Wrap(err)
	}

	_, err = r.DB.ExecContext(ctx, database.Rebind(r.driver, `
		INSERT INTO user_sessions (session_id, user_id, created_at)
		VALUES (?, ?, ?)
	`), token, userID, r.Clock().UnixMicro())
	if err != nil {
		return "", oops.Code("SESSION_CREATE_FAILED").
			With("operation", "insert user_session").
			With("user_id", userID).
			Wrap(err)
	}

	return token, nil
}

func (r *SQLRegistry) Resolve(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", notFound()
	}

	var (
		userID    string
		createdAt int64
	)
	err := r.DB.QueryRowContext(ctx, database.Rebind(r.driver, `
		SELECT user_id, created_at FROM user_sessions
		WHERE session_id = ?
	`), token).Scan(&userID, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", notFound()
	}
	if err != nil {
		return "", oops.Code("SESSION_GET_FAILED").
			With("operation", "select user_session").
			Wrap(err)
	}

	if Expired(time.UnixMicro(createdAt), r.duration, r.Clock()) {
		if _, err := r.DB.ExecContext(ctx, database.Rebind(r.driver, `
			DELETE FROM user_sessions WHERE session_id = ?
		`), token); err != nil {
			return "", oops.Code("SESSION_DELETE_FAILED").
				With("operation", "delete expired user_session").
				Wrap(err)
		}
		return "", notFound()
	}

	return userID, nil
}

func (r *SQLRegistry) Destroy(ctx context.Context, userID string) error {
	_, err := r.DB.ExecContext(ctx, database.Rebind(r.driver, `
		DELETE FROM user_sessions WHERE user_id = ?
	`), userID)
	if err != nil {
		return oops.Code("SESSION_DELETE_FAILED").
			With("operation", "delete user_sessions").
			With("user_id", userID).
			Wrap(err)
	}
	return nil
}
