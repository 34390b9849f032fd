// Package password hashes and verifies user passwords.
package password

import (
	"errors"

	"github.com/samber/oops"
	"golang.org/x/crypto/bcrypt"
)

// MaxLength is the longest password bcrypt accepts, in bytes.
const MaxLength = 72

var ErrTooLong = errors.New("password is longer than 72 bytes")

type Hasher interface {
	// Hash returns a salted, algorithm-tagged digest. Two calls never return the same digest.
	Hash(plaintext string) (string, error)
	// Verify reports whether plaintext matches digest. A malformed digest never matches.
	Verify(digest, plaintext string) bool
}

type BcryptHasher struct {
	cost int
}

// NewBcryptHasher clamps cost into bcrypt's accepted range.
func NewBcryptHasher(cost int) *BcryptHasher {
	switch {
	case cost < bcrypt.MinCost:
		cost = bcrypt.DefaultCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Cost() int {
	return h.cost
}

func (h *BcryptHasher) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", oops.Code("PASSWORD_TOO_LONG").With("max_length", MaxLength).Wrap(ErrTooLong)
	}
	if err != nil {
		return "", oops.Code("PASSWORD_HASH_FAILED").With("cost", h.cost).Wrap(err)
	}
	return string(digest), nil
}

func (h *BcryptHasher) Verify(digest, plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
