package shortid

import (
	"crypto/rand"
	"fmt"
)

const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// DefaultLength is the locker short-id length.
const DefaultLength = 5

// New returns a random alphanumeric identifier of the given length.
// Uniqueness is enforced by the caller at insert time (retry on conflict).
func New(length int) (string, error) {
	if length <= 0 {
		length = DefaultLength
	}

	// Bytes at or above this value are rejected: 256 is not a multiple of
	// the alphabet size, so taking them modulo would skew the distribution.
	limit := byte(256 - 256%len(alphabet))

	out := make([]byte, 0, length)
	buf := make([]byte, length)
	for len(out) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			out = append(out, alphabet[int(b)%len(alphabet)])
			if len(out) == length {
				break
			}
		}
	}

	return string(out), nil
}
