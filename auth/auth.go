// Package auth issues and validates stateless session tokens.
//
// A Token names a user and the window it is valid for, and carries
//
//	mac = HMAC-SHA256(key, u32be(len(username)) || username || i64be(issued_at_ns) || i64be(valid_for_ns))
//
// The server keeps no session table; validity is re-derived from the token
// and the static 512-bit key on every call.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"
)

const (
	// KeyLen is the static key size (512 bits).
	KeyLen = 64

	// MACLen is the tag size (HMAC-SHA256).
	MACLen = sha256.Size
)

// Token is carried by the client on every authenticated call.
type Token struct {
	Username string        `json:"username"`
	IssuedAt time.Time     `json:"issued_at"`
	ValidFor time.Duration `json:"valid_for"`
	MAC      []byte        `json:"mac"`
}

// Encode returns the token as an opaque base64url string.
func (t Token) Encode() string {
	data, err := json.Marshal(t)
	if err != nil {
		// Token has no field json cannot encode.
		panic(fmt.Sprintf("auth: encode token: %v", err))
	}
	return base64.RawURLEncoding.EncodeToString(data)
}

// ParseToken decodes a string produced by Encode. It does not validate.
func ParseToken(s string) (Token, error) {
	data, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return Token{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	var t Token
	if err := json.Unmarshal(data, &t); err != nil {
		return Token{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if len(t.MAC) != MACLen {
		return Token{}, fmt.Errorf("%w: mac must be %d bytes", ErrInvalidToken, MACLen)
	}
	return t, nil
}

// Authenticator signs and validates tokens with a static key. It is
// read-only after construction and safe for concurrent use.
type Authenticator struct {
	key [KeyLen]byte
	now func() time.Time
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *Authenticator) { a.now = now }
}

// New returns an Authenticator using key.
func New(key [KeyLen]byte, opts ...Option) *Authenticator {
	a := &Authenticator{key: key, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// String, GoString, Format and LogValue keep the key out of all output.
func (a *Authenticator) String() string             { return "Authenticator(...)" }
func (a *Authenticator) GoString() string           { return "Authenticator(...)" }
func (a *Authenticator) Format(f fmt.State, _ rune) { _, _ = io.WriteString(f, "Authenticator(...)") }
func (a *Authenticator) LogValue() slog.Value       { return slog.StringValue("Authenticator(...)") }

// Sign issues a token for username valid for validFor from now.
func (a *Authenticator) Sign(username string, validFor time.Duration) Token {
	// Round drops the monotonic reading so the token round-trips through JSON.
	issuedAt := a.now().Round(0)
	return Token{
		Username: username,
		IssuedAt: issuedAt,
		ValidFor: validFor,
		MAC:      a.mac(username, issuedAt, validFor),
	}
}

// Validate reports whether t was signed by this key and now lies in
// [IssuedAt, IssuedAt+ValidFor).
func (a *Authenticator) Validate(t Token) bool {
	elapsed := a.now().Sub(t.IssuedAt)
	if elapsed < 0 || elapsed >= t.ValidFor {
		return false
	}
	return hmac.Equal(t.MAC, a.mac(t.Username, t.IssuedAt, t.ValidFor))
}

// Username returns the token's username if it validates.
func (a *Authenticator) Username(t Token) (string, error) {
	if !a.Validate(t) {
		return "", ErrAuthFailed
	}
	return t.Username, nil
}

func (a *Authenticator) mac(username string, issuedAt time.Time, validFor time.Duration) []byte {
	h := hmac.New(sha256.New, a.key[:])
	var buf [8]byte
	binary.BigEndian.PutUint32(buf[:4], uint32(len(username)))
	h.Write(buf[:4])
	h.Write([]byte(username))
	binary.BigEndian.PutUint64(buf[:], uint64(issuedAt.UnixNano()))
	h.Write(buf[:])
	binary.BigEndian.PutUint64(buf[:], uint64(validFor))
	h.Write(buf[:])
	return h.Sum(nil)
}
