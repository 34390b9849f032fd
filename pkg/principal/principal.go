// Package principal carries the authenticated user through a request context.
package principal

import (
	"context"

	"authservice/pkg/user"
)

type contextKey string

const userContextKey contextKey = "principal"

func WithUser(ctx context.Context, u *user.User) context.Context {
	return context.WithValue(ctx, userContextKey, u)
}

func FromContext(ctx context.Context) (*user.User, bool) {
	u, ok := ctx.Value(userContextKey).(*user.User)
	if !ok || u == nil || u.ID == "" {
		return nil, false
	}
	return u, true
}
