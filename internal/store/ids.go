package store

import (
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

// SessionIDLength is the number of characters in a generated session id.
const SessionIDLength = 8

// NewSessionID returns a random short id suitable for join links.
// The id is base58 so it survives being read aloud or retyped.
func NewSessionID() (string, error) {
	// 8 random bytes always encode to at least 8 base58 characters
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}

	return base58.Encode(b)[:SessionIDLength], nil
}

// NormalizeName returns the key used for case-insensitive name uniqueness.
func NormalizeName(name string) string {
	return strings.ToLower(name)
}
