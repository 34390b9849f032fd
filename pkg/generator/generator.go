package generator

import (
	"crypto/rand"
	"errors"
	"math/big"
)

const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// TokenLength gives ~190 bits of entropy with the 62-symbol alphabet.
const TokenLength = 32

var errBadLength = errors.New("length must be positive")

func GenerateRandomID(length int) (string, error) {
	if length <= 0 {
		return "", errBadLength
	}

	size := big.NewInt(int64(len(alphabet)))
	result := make([]byte, length)

	for i := range result {
		randomIndex, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", err
		}
		result[i] = alphabet[randomIndex.Int64()]
	}

	return string(result), nil
}

// Token returns an opaque session token.
func Token() (string, error) {
	return GenerateRandomID(TokenLength)
}
