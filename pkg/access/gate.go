// Package access decides which requests need authentication and resolves the caller.
package access

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"authservice/pkg/principal"
	"authservice/pkg/user"
)

type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*user.User, error)
	ResolvePrincipal(ctx context.Context, token string) (*user.User, error)
}

// RequiresAuth reports whether path is outside every excluded pattern.
// A pattern ending in '*' matches by prefix; trailing slashes are ignored.
func RequiresAuth(path string, excluded []string) bool {
	if path == "" || len(excluded) == 0 {
		return true
	}

	path = normalize(path)

	for _, pattern := range excluded {
		if pattern == "" {
			continue
		}

		if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
			if strings.HasPrefix(path+"/", prefix) {
				return false
			}
			continue
		}

		if normalize(pattern) == path {
			return false
		}
	}

	return true
}

func normalize(p string) string {
	p = strings.TrimRight(p, "/")
	if p == "" {
		return "/"
	}
	return p
}

type Gate struct {
	auth       Authenticator
	cookieName string
	excluded   []string
	logger     *slog.Logger
}

func NewGate(auth Authenticator, cookieName string, excluded []string, logger *slog.Logger) *Gate {
	return &Gate{
		auth:       auth,
		cookieName: cookieName,
		excluded:   excluded,
		logger:     logger,
	}
}

// Credential prefers the Authorization header over the session cookie.
func (g *Gate) Credential(r *http.Request) (Credential, bool) {
	if c, ok := ExtractBasic(r.Header.Get("Authorization")); ok {
		return c, true
	}
	return ExtractSession(r, g.cookieName)
}

// CurrentPrincipal returns the user behind the request's credential, or nil.
func (g *Gate) CurrentPrincipal(r *http.Request) *user.User {
	c, ok := g.Credential(r)
	if !ok {
		return nil
	}
	return g.resolve(r.Context(), c)
}

func (g *Gate) resolve(ctx context.Context, c Credential) *user.User {
	var (
		u   *user.User
		err error
	)

	switch c.Scheme {
	case SchemeBasic:
		u, err = g.auth.Authenticate(ctx, c.Identity, c.Secret)
	case SchemeSession:
		u, err = g.auth.ResolvePrincipal(ctx, c.Token)
	}

	if err != nil {
		g.logger.ErrorContext(ctx, "resolve principal", "scheme", c.Scheme, "error", err)
		return nil
	}
	return u
}

// Middleware rejects requests to protected paths: 401 without a credential, 403 with a bad one.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !RequiresAuth(r.URL.Path, g.excluded) {
			next.ServeHTTP(w, r)
			return
		}

		c, ok := g.Credential(r)
		if !ok {
			deny(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		u := g.resolve(r.Context(), c)
		if u == nil {
			deny(w, http.StatusForbidden, "Forbidden")
			return
		}

		next.ServeHTTP(w, r.WithContext(principal.WithUser(r.Context(), u)))
	})
}

func deny(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
