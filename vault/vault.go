// Package vault implements the client-side encryption layer: password-derived
// keys, the closed set of secret kinds, and the typed Secret/Cipher envelope.
//
// Key derivation: key = Argon2id(password, salt), 32 bytes.
// Encryption:     nonce(24B) || XChaCha20-Poly1305(key, nonce, encode(secret)).
package vault

import (
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// KeyLen is the derived key size.
const KeyLen = chacha20poly1305.KeySize

// KDFParams holds the Argon2id cost parameters.
type KDFParams struct {
	Time        uint32
	MemoryKiB   uint32
	Parallelism uint8
}

// DefaultKDFParams returns the cost used for new vaults.
func DefaultKDFParams() KDFParams {
	return KDFParams{
		Time:        3,
		MemoryKiB:   64 * 1024, // 64 MB
		Parallelism: 4,
	}
}

// Vault holds an AEAD keyed from a password. It is read-only after Derive
// and safe for concurrent use.
type Vault struct {
	aead cipher.AEAD
	rand io.Reader
}

// Derive runs Argon2id over (password, salt) with DefaultKDFParams. The same
// inputs always produce a Vault that can open the other's ciphers.
func Derive(password Password, salt Salt) *Vault {
	return DeriveWithParams(password, salt, DefaultKDFParams())
}

// DeriveWithParams is Derive with explicit KDF cost. It panics if the
// parameters cannot produce a key, which is a configuration bug.
func DeriveWithParams(password Password, salt Salt, p KDFParams) *Vault {
	if p.Time == 0 || p.MemoryKiB == 0 || p.Parallelism == 0 {
		panic(fmt.Sprintf("vault: invalid KDF parameters %+v", p))
	}
	key := argon2.IDKey([]byte(password.plain), salt.data[:], p.Time, p.MemoryKiB, p.Parallelism, KeyLen)
	aead, err := chacha20poly1305.NewX(key)
	zero(key)
	if err != nil {
		panic(fmt.Sprintf("vault: XChaCha20-Poly1305 creation failed: %v", err))
	}
	return &Vault{aead: aead, rand: rand.Reader}
}

// String, GoString, Format and LogValue redact the vault in all output.
func (v *Vault) String() string             { return "Vault(...)" }
func (v *Vault) GoString() string           { return "Vault(...)" }
func (v *Vault) Format(f fmt.State, _ rune) { _, _ = io.WriteString(f, "Vault(...)") }
func (v *Vault) LogValue() slog.Value       { return slog.StringValue("Vault(...)") }

// seal encrypts plaintext under a fresh random nonce and returns
// nonce and sealed bytes separately.
func (v *Vault) seal(plaintext []byte) (nonce, sealed []byte, err error) {
	nonce = make([]byte, v.aead.NonceSize())
	if _, err := io.ReadFull(v.rand, nonce); err != nil {
		return nil, nil, fmt.Errorf("%w: generate nonce: %w", ErrEncryption, err)
	}
	return nonce, v.aead.Seal(nil, nonce, plaintext, nil), nil
}

// Encrypt encodes s and seals it under a fresh nonce.
func Encrypt[K Kind](v *Vault, s Secret[K]) (Cipher[K], error) {
	plaintext := encode(s.value)
	defer zero(plaintext)

	nonce, sealed, err := v.seal(plaintext)
	if err != nil {
		return Cipher[K]{}, err
	}
	return newCipher[K](nonce, sealed), nil
}

// Decrypt authenticates and opens c, then decodes the plaintext as K.
// Tampered or truncated input yields ErrAuthentication; authentic plaintext
// of the wrong layout yields ErrDecode.
func Decrypt[K Kind](v *Vault, c Cipher[K]) (Secret[K], error) {
	nonce, sealed, ok := c.split()
	if !ok {
		return Secret[K]{}, ErrAuthentication
	}
	plaintext, err := v.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return Secret[K]{}, ErrAuthentication
	}
	defer zero(plaintext)

	value, err := decode[K](plaintext)
	if err != nil {
		return Secret[K]{}, err
	}
	return Secret[K]{value: value}, nil
}

// zero overwrites b.
func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
