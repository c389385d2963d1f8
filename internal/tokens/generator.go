package tokens

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
)

// APIKeyLength is the length of a cluster API key in hex characters.
const APIKeyLength = 32

const maxAPIKeyAttempts = 16

// ErrAPIKeyExhausted is returned when no collision-free key was found.
var ErrAPIKeyExhausted = errors.New("could not generate a unique api key")

// ExistsFunc reports whether a candidate key is already taken.
type ExistsFunc func(key string) (bool, error)

// NewAPIKey returns 16 random bytes encoded as 32 lowercase hex characters.
func NewAPIKey() (string, error) {
	entropy := make([]byte, APIKeyLength/2)
	if _, err := rand.Read(entropy); err != nil {
		return "", fmt.Errorf("generate api key entropy: %w", err)
	}
	return hex.EncodeToString(entropy), nil
}

// GenerateUniqueAPIKey draws keys until exists reports a free one.
func GenerateUniqueAPIKey(exists ExistsFunc) (string, error) {
	return generateUnique(NewAPIKey, exists)
}

func generateUnique(next func() (string, error), exists ExistsFunc) (string, error) {
	for attempt := 0; attempt < maxAPIKeyAttempts; attempt++ {
		key, err := next()
		if err != nil {
			return "", err
		}
		taken, err := exists(key)
		if err != nil {
			return "", fmt.Errorf("check api key uniqueness: %w", err)
		}
		if !taken {
			return key, nil
		}
	}
	return "", ErrAPIKeyExhausted
}

// IsAPIKey reports whether s has the shape of a generated API key.
func IsAPIKey(s string) bool {
	if len(s) != APIKeyLength {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
