package vault

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// NonceSize is the XChaCha20-Poly1305 nonce width (192 bits).
const NonceSize = chacha20poly1305.NonceSizeX

// Cipher is opaque ciphertext that decrypts to a Secret of kind K.
// Layout: nonce(24B) || XChaCha20-Poly1305(plaintext) || tag(16B).
// It is safe to store, transmit and log.
type Cipher[K Kind] struct {
	data []byte
}

// CipherFromBytes wraps bytes read back from storage or the wire. Nothing is
// checked here; Decrypt authenticates the bytes before anything is decoded.
func CipherFromBytes[K Kind](b []byte) Cipher[K] {
	data := make([]byte, len(b))
	copy(data, b)
	return Cipher[K]{data: data}
}

func newCipher[K Kind](nonce, sealed []byte) Cipher[K] {
	data := make([]byte, 0, len(nonce)+len(sealed))
	data = append(data, nonce...)
	data = append(data, sealed...)
	return Cipher[K]{data: data}
}

// Bytes returns a copy of the raw nonce||ciphertext bytes.
func (c Cipher[K]) Bytes() []byte {
	out := make([]byte, len(c.data))
	copy(out, c.data)
	return out
}

// Len returns the length of the raw bytes.
func (c Cipher[K]) Len() int { return len(c.data) }

// Key returns a comparable value identifying these exact bytes, for use as a
// map key.
func (c Cipher[K]) Key() string { return string(c.data) }

// Equal reports whether both ciphers hold bit-identical bytes.
func (c Cipher[K]) Equal(other Cipher[K]) bool { return bytes.Equal(c.data, other.data) }

// split returns the nonce and sealed parts, or false if the data is too short
// to hold a nonce and a tag.
func (c Cipher[K]) split() (nonce, sealed []byte, ok bool) {
	if len(c.data) < NonceSize+chacha20poly1305.Overhead {
		return nil, nil, false
	}
	return c.data[:NonceSize], c.data[NonceSize:], true
}

// String renders the nonce and a prefix of the ciphertext in hex.
func (c Cipher[K]) String() string {
	nonce, sealed, ok := c.split()
	if !ok {
		return fmt.Sprintf("Cipher[%s]{invalid: %d bytes}", kindName[K](), len(c.data))
	}
	const maxShown = 16
	shown := sealed
	suffix := ""
	if len(shown) > maxShown {
		shown = shown[:maxShown]
		suffix = "..."
	}
	return fmt.Sprintf("Cipher[%s]{nonce: %s, ciphertext: %s%s (%d bytes)}",
		kindName[K](), hex.EncodeToString(nonce), hex.EncodeToString(shown), suffix, len(sealed))
}

// MarshalJSON encodes the raw bytes as a base64 string.
func (c Cipher[K]) MarshalJSON() ([]byte, error) { return json.Marshal(c.data) }

// UnmarshalJSON decodes a base64 string.
func (c *Cipher[K]) UnmarshalJSON(b []byte) error {
	var data []byte
	if err := json.Unmarshal(b, &data); err != nil {
		return fmt.Errorf("vault: unmarshal cipher: %w", err)
	}
	c.data = data
	return nil
}

// MarshalBinary returns the raw bytes.
func (c Cipher[K]) MarshalBinary() ([]byte, error) { return c.Bytes(), nil }

// UnmarshalBinary copies b.
func (c *Cipher[K]) UnmarshalBinary(b []byte) error {
	*c = CipherFromBytes[K](b)
	return nil
}
