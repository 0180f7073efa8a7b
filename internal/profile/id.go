package profile

import (
	"crypto/rand"
	"fmt"
)

// IDLength is the fixed length of generated profile identifiers.
const IDLength = 15

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewID generates a cryptographically random base62 profile identifier, one
// random byte per output character. Uniqueness is enforced by the store's
// primary key; the 62^15 keyspace makes collisions negligible.
func NewID() (string, error) {
	buf := make([]byte, IDLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate profile id: %w", err)
	}

	out := make([]byte, IDLength)
	for i, b := range buf {
		out[i] = idAlphabet[int(b)%len(idAlphabet)]
	}
	return string(out), nil
}
