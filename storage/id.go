package storage

import (
	"crypto/rand"
	"fmt"
)

// MaxIDLength caps the id length tried by Create. Each retry grows the
// candidate by one character, so reaching it means 36^MaxIDLength collisions.
const MaxIDLength = 32

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// rejectAbove is the largest multiple of len(idAlphabet) that fits in a byte;
// bytes at or above it are redrawn to keep characters uniform.
const rejectAbove = 256 - 256%len(idAlphabet)

// newID returns a random base-36 string of the given length.
func newID(length int) (string, error) {
	out := make([]byte, 0, length)
	buf := make([]byte, length+8)
	for len(out) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("storage: generate id: %w", err)
		}
		for _, b := range buf {
			if int(b) >= rejectAbove {
				continue
			}
			out = append(out, idAlphabet[int(b)%len(idAlphabet)])
			if len(out) == length {
				break
			}
		}
	}
	return string(out), nil
}

// ValidID reports whether id could have been produced by newID.
func ValidID(id string) bool {
	if len(id) == 0 || len(id) > MaxIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'z') {
			return false
		}
	}
	return true
}

func validateID(id string) error {
	if !ValidID(id) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}
