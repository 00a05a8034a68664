package vault

import (
	"errors"
	"fmt"
)

var (
	// ErrEncryption indicates nonce generation or sealing failed.
	ErrEncryption = errors.New("vault: encryption failed")

	// ErrAuthentication indicates the ciphertext is truncated or its tag does
	// not verify. It deliberately does not say which.
	ErrAuthentication = errors.New("vault: cannot decrypt (authentication failed)")

	// ErrDecode indicates authentic plaintext did not match the layout of the
	// requested kind.
	ErrDecode = errors.New("vault: malformed plaintext")

	// ErrSecretSerialization is returned by every marshaller of a Secret.
	ErrSecretSerialization = errors.New("vault: secrets cannot be serialized")

	// ErrInvalidSalt indicates a stored salt has the wrong length.
	ErrInvalidSalt = errors.New("vault: salt must be 32 bytes")

	// ErrInvalidPasswordHash indicates a stored verifier has the wrong length.
	ErrInvalidPasswordHash = errors.New("vault: password hash must be 64 bytes")
)

// DecodeError describes why a plaintext could not be decoded as Kind.
type DecodeError struct {
	Kind   string
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("vault: decode %s: %s", e.Kind, e.Reason)
}

// Unwrap lets errors.Is(err, ErrDecode) match any DecodeError.
func (e *DecodeError) Unwrap() error { return ErrDecode }
