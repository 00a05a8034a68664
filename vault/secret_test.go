package vault

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const plaintextMarker = "TOP-SECRET-MARKER"

func TestSecret_Redacted(t *testing.T) {
	s := NewSecret(FolderName{Name: plaintextMarker})

	for _, verb := range []string{"%v", "%+v", "%#v", "%s", "%q", "%x", "%X", "%d"} {
		t.Run(verb, func(t *testing.T) {
			out := fmt.Sprintf(verb, s)
			assert.NotContains(t, out, plaintextMarker)
			assert.Equal(t, "Secret[FolderName](...)", out)
		})
	}

	assert.Equal(t, "Secret[FolderName](...)", s.String())
	assert.Equal(t, "Secret[FolderName](...)", s.GoString())

	// Nested in a struct the redaction still applies.
	wrapper := struct{ S Secret[FileInfo] }{NewSecret(FileInfo{Name: plaintextMarker})}
	assert.NotContains(t, fmt.Sprintf("%+v", wrapper), plaintextMarker)
	assert.NotContains(t, fmt.Sprintf("%#v", wrapper), plaintextMarker)
}

func TestSecret_NotSerializable(t *testing.T) {
	s := NewSecret(FileContent{Data: []byte(plaintextMarker)})

	_, err := json.Marshal(s)
	assert.ErrorIs(t, err, ErrSecretSerialization)

	_, err = json.Marshal(map[string]any{"payload": s})
	assert.ErrorIs(t, err, ErrSecretSerialization)

	err = gob.NewEncoder(&bytes.Buffer{}).Encode(s)
	assert.Error(t, err)

	_, err = s.MarshalText()
	assert.ErrorIs(t, err, ErrSecretSerialization)
	_, err = s.MarshalBinary()
	assert.ErrorIs(t, err, ErrSecretSerialization)
}

func TestSecret_Slog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	logger.Info("loaded", "folder", NewSecret(FolderName{Name: plaintextMarker}))

	assert.NotContains(t, buf.String(), plaintextMarker)
	assert.Contains(t, buf.String(), "Secret[FolderName](...)")
}

func TestSecret_Reveal(t *testing.T) {
	s := NewSecret(FileInfo{Name: "a", MimeType: "b"})
	assert.Equal(t, FileInfo{Name: "a", MimeType: "b"}, s.Reveal())
}

func TestCredentials_Redacted(t *testing.T) {
	salt := newTestSalt(t)
	pw := NewPassword(plaintextMarker)
	hash := pw.Hash(salt)
	v := DeriveWithParams(pw, salt, testParams)

	for _, val := range []any{salt, pw, hash, v} {
		for _, verb := range []string{"%v", "%+v", "%#v", "%x"} {
			out := fmt.Sprintf(verb, val)
			assert.NotContains(t, out, plaintextMarker)
			assert.Contains(t, out, "(...)")
		}
	}

	_, err := json.Marshal(pw)
	assert.ErrorIs(t, err, ErrSecretSerialization)
}

func TestCipher_JSONRoundTrip(t *testing.T) {
	v, _ := newTestVault(t, "pw")
	c, err := Encrypt(v, NewSecret(FolderName{Name: "Receipts"}))
	require.NoError(t, err)

	data, err := json.Marshal(struct {
		Folder Cipher[FolderName] `json:"folder"`
	}{c})
	require.NoError(t, err)

	var back struct {
		Folder Cipher[FolderName] `json:"folder"`
	}
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, c.Equal(back.Folder))

	s, err := Decrypt(v, back.Folder)
	require.NoError(t, err)
	assert.Equal(t, "Receipts", s.Reveal().Name)
}

func TestCipher_EqualityAndKey(t *testing.T) {
	a := CipherFromBytes[FolderName]([]byte{1, 2, 3})
	b := CipherFromBytes[FolderName]([]byte{1, 2, 3})
	c := CipherFromBytes[FolderName]([]byte{1, 2, 4})

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))

	m := map[string]int{a.Key(): 1}
	assert.Equal(t, 1, m[b.Key()])
	_, ok := m[c.Key()]
	assert.False(t, ok)
}

func TestCipher_BytesIsCopy(t *testing.T) {
	raw := []byte{1, 2, 3}
	c := CipherFromBytes[FileContent](raw)
	raw[0] = 9
	assert.Equal(t, []byte{1, 2, 3}, c.Bytes())

	out := c.Bytes()
	out[1] = 9
	assert.Equal(t, []byte{1, 2, 3}, c.Bytes())
}

func TestCipher_String(t *testing.T) {
	short := CipherFromBytes[FolderName]([]byte{1, 2})
	assert.Equal(t, "Cipher[FolderName]{invalid: 2 bytes}", short.String())

	v, _ := newTestVault(t, "pw")
	c, err := Encrypt(v, NewSecret(FolderName{Name: plaintextMarker}))
	require.NoError(t, err)
	assert.Contains(t, c.String(), "Cipher[FolderName]{nonce: ")
	assert.NotContains(t, c.String(), plaintextMarker)
}

func TestSaltAndHash_Bytes(t *testing.T) {
	salt := newTestSalt(t)
	back, err := SaltFromBytes(salt.Bytes())
	require.NoError(t, err)
	assert.Equal(t, salt.Bytes(), back.Bytes())

	_, err = SaltFromBytes(make([]byte, 31))
	assert.ErrorIs(t, err, ErrInvalidSalt)

	hash := NewPassword("pw").Hash(salt)
	hback, err := PasswordHashFromBytes(hash.Bytes())
	require.NoError(t, err)
	assert.True(t, hash.Equal(hback))

	_, err = PasswordHashFromBytes(make([]byte, 32))
	assert.ErrorIs(t, err, ErrInvalidPasswordHash)
}

func TestSalt_JSONRoundTrip(t *testing.T) {
	salt := newTestSalt(t)
	data, err := json.Marshal(salt)
	require.NoError(t, err)

	var back Salt
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, salt.Bytes(), back.Bytes())

	assert.ErrorIs(t, json.Unmarshal([]byte(`"AAAA"`), &back), ErrInvalidSalt)
}

func TestPasswordHash_Properties(t *testing.T) {
	salt1 := newTestSalt(t)
	salt2 := newTestSalt(t)

	h1 := NewPassword("pw").Hash(salt1)
	assert.True(t, h1.Equal(NewPassword("pw").Hash(salt1)), "deterministic")
	assert.False(t, h1.Equal(NewPassword("pw2").Hash(salt1)), "password sensitive")
	assert.False(t, h1.Equal(NewPassword("pw").Hash(salt2)), "salt sensitive")
	assert.Len(t, h1.Bytes(), PasswordHashLen)
}
