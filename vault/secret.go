package vault

import (
	"fmt"
	"io"
	"log/slog"
)

// Secret holds revealed plaintext of kind K. It exists only where plaintext
// is legitimately needed. Every printing, logging and marshalling path
// renders a placeholder or fails; the value is reachable only via Reveal.
type Secret[K Kind] struct {
	value K
}

// NewSecret wraps a plaintext value.
func NewSecret[K Kind](v K) Secret[K] {
	return Secret[K]{value: v}
}

// Reveal returns the plaintext.
func (s Secret[K]) Reveal() K { return s.value }

func (s Secret[K]) redacted() string {
	return "Secret[" + kindName[K]() + "](...)"
}

// String implements fmt.Stringer.
func (s Secret[K]) String() string { return s.redacted() }

// GoString implements fmt.GoStringer.
func (s Secret[K]) GoString() string { return s.redacted() }

// Format covers every verb, including %x and %+v.
func (s Secret[K]) Format(f fmt.State, _ rune) {
	_, _ = io.WriteString(f, s.redacted())
}

// LogValue implements slog.LogValuer.
func (s Secret[K]) LogValue() slog.Value { return slog.StringValue(s.redacted()) }

// MarshalJSON always fails.
func (s Secret[K]) MarshalJSON() ([]byte, error) { return nil, ErrSecretSerialization }

// MarshalText always fails.
func (s Secret[K]) MarshalText() ([]byte, error) { return nil, ErrSecretSerialization }

// MarshalBinary always fails.
func (s Secret[K]) MarshalBinary() ([]byte, error) { return nil, ErrSecretSerialization }

// GobEncode always fails.
func (s Secret[K]) GobEncode() ([]byte, error) { return nil, ErrSecretSerialization }
