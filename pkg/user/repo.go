package user

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"

	"authservice/internal/database"
)

const selectUsers = "SELECT id, email, hashed_password, session_id, reset_token, session_created_at FROM users"

var columns = map[string]struct{}{
	ColID:             {},
	ColEmail:          {},
	ColHashedPassword: {},
	ColSessionID:      {},
	ColResetToken:     {},

	ColSessionCreatedAt: {},
}

type SQLRepo struct {
	DB     *sql.DB
	driver string
}

func NewSQLRepo(db *sql.DB, driver string) *SQLRepo {
	return &SQLRepo{DB: db, driver: driver}
}

func (r *SQLRepo) Add(ctx context.Context, email, hashedPassword string) (*User, error) {
	u := &User{
		ID:             uuid.NewString(),
		Email:          email,
		HashedPassword: hashedPassword,
	}

	_, err := r.DB.ExecContext(ctx,
		r.rebind("INSERT INTO users (id, email, hashed_password) VALUES (?, ?, ?)"),
		u.ID, u.Email, u.HashedPassword,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, oops.Code("USER_ALREADY_EXISTS").Wrap(ErrAlreadyExists)
		}
		return nil, oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			Wrap(err)
	}

	return u, nil
}

func (r *SQLRepo) FindBy(ctx context.Context, match Fields) (*User, error) {
	where, args, err := whereClause(match)
	if err != nil {
		return nil, err
	}

	rows, err := r.DB.QueryContext(ctx, r.rebind(selectUsers+" WHERE "+where+" LIMIT 2"), args...)
	if err != nil {
		return nil, oops.Code("USER_FIND_FAILED").
			With("operation", "select user").
			With("fields", keys(match)).
			Wrap(err)
	}
	defer rows.Close()

	var found []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, oops.Code("USER_SCAN_FAILED").Wrap(err)
		}
		found = append(found, u)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("USER_ROWS_ERROR").Wrap(err)
	}

	switch len(found) {
	case 0:
		return nil, oops.Code("USER_NOT_FOUND").With("fields", keys(match)).Wrap(ErrNotFound)
	case 1:
		return found[0], nil
	default:
		return nil, oops.Code("USER_INTEGRITY_VIOLATION").
			With("fields", keys(match)).
			Errorf("more than one user matches")
	}
}

func (r *SQLRepo) Update(ctx context.Context, id string, changes Fields) error {
	set, args, err := setClause(changes)
	if err != nil {
		return err
	}
	args = append(args, id)

	res, err := r.DB.ExecContext(ctx, r.rebind("UPDATE users SET "+set+" WHERE id = ?"), args...)
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").
			With("operation", "update user").
			With("id", id).
			Wrap(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").With("id", id).Wrap(err)
	}
	if n > 0 {
		return nil
	}

	// MySQL counts changed rows only, so zero does not always mean missing
	ok, err := r.exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return oops.Code("USER_NOT_FOUND").With("id", id).Wrap(ErrNotFound)
	}
	return nil
}

func (r *SQLRepo) UpdateIf(ctx context.Context, match, changes Fields) error {
	set, setArgs, err := setClause(changes)
	if err != nil {
		return err
	}
	where, whereArgs, err := whereClause(match)
	if err != nil {
		return err
	}

	res, err := r.DB.ExecContext(ctx,
		r.rebind("UPDATE users SET "+set+" WHERE "+where),
		append(setArgs, whereArgs...)...,
	)
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").
			With("operation", "conditional update user").
			With("fields", keys(match)).
			Wrap(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").Wrap(err)
	}
	if n == 0 {
		return oops.Code("USER_NOT_FOUND").With("fields", keys(match)).Wrap(ErrNotFound)
	}
	return nil
}

func (r *SQLRepo) exists(ctx context.Context, id string) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, r.rebind("SELECT COUNT(*) FROM users WHERE id = ?"), id).Scan(&n)
	if err != nil {
		return false, oops.Code("USER_FIND_FAILED").With("id", id).Wrap(err)
	}
	return n > 0, nil
}

func (r *SQLRepo) rebind(query string) string {
	return database.Rebind(r.driver, query)
}

func scanUser(rows *sql.Rows) (*User, error) {
	var (
		u                     User
		sessionID, resetToken sql.NullString
		sessionCreatedAt      sql.NullInt64
	)
	if err := rows.Scan(&u.ID, &u.Email, &u.HashedPassword, &sessionID, &resetToken, &sessionCreatedAt); err != nil {
		return nil, err
	}
	u.SessionID = sessionID.String
	u.ResetToken = resetToken.String
	if sessionCreatedAt.Valid {
		u.SessionCreatedAt = time.UnixMicro(sessionCreatedAt.Int64)
	}
	return &u, nil
}

func whereClause(match Fields) (string, []any, error) {
	if len(match) == 0 {
		return "", nil, oops.Code("USER_EMPTY_QUERY").Wrap(ErrInvalidRequest)
	}

	parts := make([]string, 0, len(match))
	args := make([]any, 0, len(match))

	for _, col := range keys(match) {
		if _, ok := columns[col]; !ok {
			return "", nil, oops.Code("USER_INVALID_FIELD").With("field", col).Wrap(ErrInvalidField)
		}
		if match[col] == nil {
			parts = append(parts, col+" IS NULL")
			continue
		}
		parts = append(parts, col+" = ?")
		args = append(args, match[col])
	}

	return strings.Join(parts, " AND "), args, nil
}

func setClause(changes Fields) (string, []any, error) {
	if len(changes) == 0 {
		return "", nil, oops.Code("USER_EMPTY_UPDATE").Wrap(ErrInvalidRequest)
	}

	parts := make([]string, 0, len(changes))
	args := make([]any, 0, len(changes)+1)

	for _, col := range keys(changes) {
		if _, ok := columns[col]; !ok || col == ColID {
			return "", nil, oops.Code("USER_INVALID_FIELD").With("field", col).Wrap(ErrInvalidField)
		}
		parts = append(parts, col+" = ?")
		args = append(args, changes[col])
	}

	return strings.Join(parts, ", "), args, nil
}

// keys returns the field names in a stable order.
func keys(f Fields) []string {
	out := make([]string, 0, len(f))
	for k := range f {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// IsNotFound reports whether err means the user is absent.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
