// Package auth orchestrates registration, login, sessions and password resets.
package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"authservice/pkg/metrics"
	"authservice/pkg/password"
	"authservice/pkg/session"
	"authservice/pkg/user"
)

var (
	ErrInvalidRequest        = errors.New("email and password are required")
	ErrDuplicateIdentity     = errors.New("email already registered")
	ErrUnknownIdentity       = errors.New("unknown email")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired reset token")
)

// ServiceInterface is what the HTTP layer needs from the facade.
type ServiceInterface interface {
	Register(ctx context.Context, email, password string) (*user.User, error)
	ValidLogin(ctx context.Context, email, password string) bool
	Authenticate(ctx context.Context, email, password string) (*user.User, error)
	CreateSession(ctx context.Context, email string) (string, error)
	ResolvePrincipal(ctx context.Context, token string) (*user.User, error)
	Logout(ctx context.Context, userID string) error
	IssueResetToken(ctx context.Context, email string) (string, error)
	ConsumeResetToken(ctx context.Context, token, newPassword string) error
}

type Service struct {
	users    user.Repository
	hasher   password.Hasher
	sessions session.Registry
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewService wires the facade. m may be nil.
func NewService(users user.Repository, hasher password.Hasher, sessions session.Registry, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		users:    users,
		hasher:   hasher,
		sessions: sessions,
		logger:   logger,
		metrics:  m,
	}
}

func (s *Service) Register(ctx context.Context, email, plaintext string) (*user.User, error) {
	if email == "" || plaintext == "" {
		return nil, ErrInvalidRequest
	}

	_, err := s.users.FindBy(ctx, user.Fields{user.ColEmail: email})
	switch {
	case err == nil:
		s.metrics.AuthEvent("register", metrics.OutcomeFailure)
		return nil, ErrDuplicateIdentity
	case !errors.Is(err, user.ErrNotFound):
		s.metrics.AuthEvent("register", metrics.OutcomeError)
		return nil, err
	}

	digest, err := s.hasher.Hash(plaintext)
	if errors.Is(err, password.ErrTooLong) {
		s.metrics.AuthEvent("register", metrics.OutcomeFailure)
		return nil, ErrInvalidRequest
	}
	if err != nil {
		s.metrics.AuthEvent("register", metrics.OutcomeError)
		return nil, err
	}

	u, err := s.users.Add(ctx, email, digest)
	if errors.Is(err, user.ErrAlreadyExists) {
		// lost a race with a concurrent registration
		s.metrics.AuthEvent("register", metrics.OutcomeFailure)
		return nil, ErrDuplicateIdentity
	}
	if err != nil {
		s.metrics.AuthEvent("register", metrics.OutcomeError)
		return nil, err
	}

	s.metrics.AuthEvent("register", metrics.OutcomeSuccess)
	s.logger.InfoContext(ctx, "user registered", "user_id", u.ID)
	return u, nil
}

// Authenticate returns the user whose password matches, or nil. It creates no state.
func (s *Service) Authenticate(ctx context.Context, email, plaintext string) (*user.User, error) {
	if email == "" || plaintext == "" {
		return nil, nil
	}

	u, err := s.users.FindBy(ctx, user.Fields{user.ColEmail: email})
	if errors.Is(err, user.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if !s.hasher.Verify(u.HashedPassword, plaintext) {
		return nil, nil
	}
	return u, nil
}

func (s *Service) ValidLogin(ctx context.Context, email, plaintext string) bool {
	u, err := s.Authenticate(ctx, email, plaintext)
	if err != nil {
		s.logger.ErrorContext(ctx, "login check failed", "error", err)
		s.metrics.AuthEvent("login", metrics.OutcomeError)
		return false
	}
	if u == nil {
		s.metrics.AuthEvent("login", metrics.OutcomeFailure)
		return false
	}
	return true
}

// CreateSession returns an empty token for an unknown email.
func (s *Service) CreateSession(ctx context.Context, email string) (string, error) {
	u, err := s.users.FindBy(ctx, user.Fields{user.ColEmail: email})
	if errors.Is(err, user.ErrNotFound) || errors.Is(err, user.ErrInvalidRequest) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	token, err := s.sessions.Create(ctx, u.ID)
	if errors.Is(err, session.ErrInvalidUser) {
		return "", nil
	}
	if err != nil {
		s.metrics.AuthEvent("login", metrics.OutcomeError)
		return "", err
	}

	s.metrics.AuthEvent("login", metrics.OutcomeSuccess)
	s.logger.InfoContext(ctx, "session created", "user_id", u.ID)
	return token, nil
}

// ResolvePrincipal returns nil for a missing, expired or unknown token.
// The error is reserved for storage faults.
func (s *Service) ResolvePrincipal(ctx context.Context, token string) (*user.User, error) {
	if token == "" {
		return nil, nil
	}

	userID, err := s.sessions.Resolve(ctx, token)
	if errors.Is(err, session.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	u, err := s.users.FindBy(ctx, user.Fields{user.ColID: userID})
	if errors.Is(err, user.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) Logout(ctx context.Context, userID string) error {
	if err := s.sessions.Destroy(ctx, userID); err != nil {
		s.metrics.AuthEvent("logout", metrics.OutcomeError)
		return err
	}

	s.metrics.AuthEvent("logout", metrics.OutcomeSuccess)
	s.logger.InfoContext(ctx, "session destroyed", "user_id", userID)
	return nil
}

func (s *Service) IssueResetToken(ctx context.Context, email string) (string, error) {
	u, err := s.users.FindBy(ctx, user.Fields{user.ColEmail: email})
	if errors.Is(err, user.ErrNotFound) || errors.Is(err, user.ErrInvalidRequest) {
		s.metrics.AuthEvent("reset_token", metrics.OutcomeFailure)
		return "", ErrUnknownIdentity
	}
	if err != nil {
		s.metrics.AuthEvent("reset_token", metrics.OutcomeError)
		return "", err
	}

	token := uuid.NewString()

	err = s.users.Update(ctx, u.ID, user.Fields{user.ColResetToken: token})
	if errors.Is(err, user.ErrNotFound) {
		s.metrics.AuthEvent("reset_token", metrics.OutcomeFailure)
		return "", ErrUnknownIdentity
	}
	if err != nil {
		s.metrics.AuthEvent("reset_token", metrics.OutcomeError)
		return "", err
	}

	s.metrics.AuthEvent("reset_token", metrics.OutcomeSuccess)
	s.logger.InfoContext(ctx, "reset token issued", "user_id", u.ID)
	return token, nil
}

// ConsumeResetToken sets a new password and clears the token in one conditional update,
// so the token cannot be used twice.
func (s *Service) ConsumeResetToken(ctx context.Context, token, newPassword string) error {
	if token == "" {
		s.metrics.AuthEvent("reset_password", metrics.OutcomeFailure)
		return ErrInvalidOrExpiredToken
	}
	if newPassword == "" {
		return ErrInvalidRequest
	}

	u, err := s.users.FindBy(ctx, user.Fields{user.ColResetToken: token})
	if errors.Is(err, user.ErrNotFound) {
		s.metrics.AuthEvent("reset_password", metrics.OutcomeFailure)
		return ErrInvalidOrExpiredToken
	}
	if err != nil {
		s.metrics.AuthEvent("reset_password", metrics.OutcomeError)
		return err
	}

	digest, err := s.hasher.Hash(newPassword)
	if errors.Is(err, password.ErrTooLong) {
		s.metrics.AuthEvent("reset_password", metrics.OutcomeFailure)
		return ErrInvalidRequest
	}
	if err != nil {
		s.metrics.AuthEvent("reset_password", metrics.OutcomeError)
		return err
	}

	err = s.users.UpdateIf(ctx,
		user.Fields{user.ColID: u.ID, user.ColResetToken: token},
		user.Fields{user.ColHashedPassword: digest, user.ColResetToken: nil},
	)
	if errors.Is(err, user.ErrNotFound) {
		s.metrics.AuthEvent("reset_password", metrics.OutcomeFailure)
		return ErrInvalidOrExpiredToken
	}
	if err != nil {
		s.metrics.AuthEvent("reset_password", metrics.OutcomeError)
		return err
	}

	s.metrics.AuthEvent("reset_password", metrics.OutcomeSuccess)
	s.logger.InfoContext(ctx, "password updated", "user_id", u.ID)
	return nil
}
