package vault

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/crypto/blake2b"
)

const (
	// SaltLen is the per-account salt size.
	SaltLen = 32

	// PasswordHashLen is the verifier size (BLAKE2b-512 output).
	PasswordHashLen = blake2b.Size
)

// verifierDomain separates the verifier input from anything fed to the KDF.
const verifierDomain = "libvault password verifier v1\x00"

// Salt is the public per-account salt. It is not secret but is still
// redacted in formatted output.
type Salt struct {
	data [SaltLen]byte
}

// GenerateSalt returns a fresh random salt.
func GenerateSalt() (Salt, error) {
	var s Salt
	if _, err := rand.Read(s.data[:]); err != nil {
		return Salt{}, fmt.Errorf("vault: failed to generate salt: %w", err)
	}
	return s, nil
}

// SaltFromBytes rebuilds a salt read from storage.
func SaltFromBytes(b []byte) (Salt, error) {
	var s Salt
	if len(b) != SaltLen {
		return Salt{}, fmt.Errorf("%w: got %d bytes", ErrInvalidSalt, len(b))
	}
	copy(s.data[:], b)
	return s, nil
}

// Bytes returns a copy of the salt.
func (s Salt) Bytes() []byte {
	out := make([]byte, SaltLen)
	copy(out, s.data[:])
	return out
}

// String, GoString, Format and LogValue redact the salt. MarshalJSON and
// UnmarshalJSON carry it as base64 for transport.
func (s Salt) String() string                { return "Salt(...)" }
func (s Salt) GoString() string              { return "Salt(...)" }
func (s Salt) Format(f fmt.State, _ rune)    { _, _ = io.WriteString(f, "Salt(...)") }
func (s Salt) LogValue() slog.Value          { return slog.StringValue("Salt(...)") }
func (s Salt) MarshalJSON() ([]byte, error)  { return json.Marshal(s.data[:]) }
func (s *Salt) UnmarshalJSON(b []byte) error { return unmarshalFixed(b, s.data[:], ErrInvalidSalt) }

// Password is a plaintext password held on the client only.
type Password struct {
	plain string
}

// NewPassword wraps a plaintext password.
func NewPassword(plain string) Password { return Password{plain: plain} }

// Hash derives the server-side verifier: BLAKE2b-512 keyed by the salt over
// a domain-separated encoding of the password. The vault key uses Argon2id
// over the raw password instead, so the verifier does not yield the key.
func (p Password) Hash(salt Salt) PasswordHash {
	h, err := blake2b.New512(salt.data[:])
	if err != nil {
		panic(fmt.Sprintf("vault: blake2b with %d-byte key: %v", SaltLen, err))
	}
	_, _ = h.Write([]byte(verifierDomain))
	_, _ = h.Write([]byte(p.plain))
	var out PasswordHash
	copy(out.data[:], h.Sum(nil))
	return out
}

// String, GoString, Format and LogValue redact the password, and every
// serializer refuses it with ErrSecretSerialization.
func (p Password) String() string               { return "Password(...)" }
func (p Password) GoString() string             { return "Password(...)" }
func (p Password) Format(f fmt.State, _ rune)   { _, _ = io.WriteString(f, "Password(...)") }
func (p Password) LogValue() slog.Value         { return slog.StringValue("Password(...)") }
func (p Password) MarshalJSON() ([]byte, error) { return nil, ErrSecretSerialization }
func (p Password) MarshalText() ([]byte, error) { return nil, ErrSecretSerialization }
func (p Password) GobEncode() ([]byte, error)   { return nil, ErrSecretSerialization }

// PasswordHash is the 64-byte verifier stored by the server.
type PasswordHash struct {
	data [PasswordHashLen]byte
}

// PasswordHashFromBytes rebuilds a verifier read from storage.
func PasswordHashFromBytes(b []byte) (PasswordHash, error) {
	var h PasswordHash
	if len(b) != PasswordHashLen {
		return PasswordHash{}, fmt.Errorf("%w: got %d bytes", ErrInvalidPasswordHash, len(b))
	}
	copy(h.data[:], b)
	return h, nil
}

// Bytes returns a copy of the verifier.
func (h PasswordHash) Bytes() []byte {
	out := make([]byte, PasswordHashLen)
	copy(out, h.data[:])
	return out
}

// Equal compares two verifiers in constant time.
func (h PasswordHash) Equal(other PasswordHash) bool {
	return subtle.ConstantTimeCompare(h.data[:], other.data[:]) == 1
}

// String, GoString, Format and LogValue redact the verifier. MarshalJSON and
// UnmarshalJSON carry it as base64 for transport.
func (h PasswordHash) String() string               { return "PasswordHash(...)" }
func (h PasswordHash) GoString() string             { return "PasswordHash(...)" }
func (h PasswordHash) Format(f fmt.State, _ rune)   { _, _ = io.WriteString(f, "PasswordHash(...)") }
func (h PasswordHash) LogValue() slog.Value         { return slog.StringValue("PasswordHash(...)") }
func (h PasswordHash) MarshalJSON() ([]byte, error) { return json.Marshal(h.data[:]) }
func (h *PasswordHash) UnmarshalJSON(b []byte) error {
	return unmarshalFixed(b, h.data[:], ErrInvalidPasswordHash)
}

// unmarshalFixed decodes a base64 JSON string into dst, which must match its
// length exactly.
func unmarshalFixed(b, dst []byte, lenErr error) error {
	var raw []byte
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("vault: unmarshal: %w", err)
	}
	if len(raw) != len(dst) {
		return fmt.Errorf("%w: got %d bytes", lenErr, len(raw))
	}
	copy(dst, raw)
	return nil
}
