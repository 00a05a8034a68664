package vault

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testParams keeps Argon2id cheap enough for unit tests.
var testParams = KDFParams{Time: 1, MemoryKiB: 64, Parallelism: 1}

// --- Helper functions ---

func newTestSalt(t *testing.T) Salt {
	t.Helper()
	salt, err := GenerateSalt()
	require.NoError(t, err)
	return salt
}

func newTestVault(t *testing.T, password string) (*Vault, Salt) {
	t.Helper()
	salt := newTestSalt(t)
	return DeriveWithParams(NewPassword(password), salt, testParams), salt
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

// --- Derive tests ---

func TestDerive_Deterministic(t *testing.T) {
	v1, salt := newTestVault(t, "hunter2")
	v2 := DeriveWithParams(NewPassword("hunter2"), salt, testParams)

	c, err := Encrypt(v1, NewSecret(FolderName{Name: "Photos"}))
	require.NoError(t, err)

	s, err := Decrypt(v2, c)
	require.NoError(t, err)
	assert.Equal(t, "Photos", s.Reveal().Name)
}

func TestDerive_DifferentPassword(t *testing.T) {
	v1, salt := newTestVault(t, "hunter2")
	v2 := DeriveWithParams(NewPassword("hunter3"), salt, testParams)

	c, err := Encrypt(v1, NewSecret(FolderName{Name: "Photos"}))
	require.NoError(t, err)

	_, err = Decrypt(v2, c)
	assert.ErrorIs(t, err, ErrAuthentication)
}

func TestDerive_DifferentSalt(t *testing.T) {
	v1, _ := newTestVault(t, "hunter2")
	v2, _ := newTestVault(t, "hunter2")

	c, err := Encrypt(v1, NewSecret(FolderName{Name: "Photos"}))
	require.NoError(t, err)

	_, err = Decrypt(v2, c)
	assert.ErrorIs(t, err, ErrAuthentication)
}

func TestDerive_InvalidParamsPanics(t *testing.T) {
	assert.Panics(t, func() {
		DeriveWithParams(NewPassword("x"), newTestSalt(t), KDFParams{})
	})
}

// --- Encrypt / Decrypt tests ---

func TestEncryptDecrypt_AllKinds(t *testing.T) {
	v, _ := newTestVault(t, "correct horse")

	t.Run("FolderName", func(t *testing.T) {
		c, err := Encrypt(v, NewSecret(FolderName{Name: "Receipts"}))
		require.NoError(t, err)
		s, err := Decrypt(v, c)
		require.NoError(t, err)
		assert.Equal(t, FolderName{Name: "Receipts"}, s.Reveal())
	})

	t.Run("FileInfo", func(t *testing.T) {
		info := FileInfo{Name: "scan.pdf", MimeType: "application/pdf"}
		c, err := Encrypt(v, NewSecret(info))
		require.NoError(t, err)
		s, err := Decrypt(v, c)
		require.NoError(t, err)
		assert.Equal(t, info, s.Reveal())
	})

	t.Run("FileContent", func(t *testing.T) {
		data := bytes.Repeat([]byte{0x00, 0xff, 0x42}, 10000)
		c, err := Encrypt(v, NewSecret(FileContent{Data: data}))
		require.NoError(t, err)
		s, err := Decrypt(v, c)
		require.NoError(t, err)
		assert.Equal(t, data, s.Reveal().Data)
	})
}

func TestEncrypt_Layout(t *testing.T) {
	v, _ := newTestVault(t, "pw")
	c, err := Encrypt(v, NewSecret(FolderName{Name: "abc"}))
	require.NoError(t, err)

	// nonce + tag byte + "abc" + poly1305 tag
	assert.Equal(t, NonceSize+1+3+16, c.Len())
}

func TestEncrypt_FreshNonce(t *testing.T) {
	v, _ := newTestVault(t, "pw")
	s := NewSecret(FolderName{Name: "same"})

	c1, err := Encrypt(v, s)
	require.NoError(t, err)
	c2, err := Encrypt(v, s)
	require.NoError(t, err)

	assert.False(t, c1.Equal(c2), "two encryptions must differ")
	assert.NotEqual(t, c1.Bytes()[:NonceSize], c2.Bytes()[:NonceSize])

	for _, c := range []Cipher[FolderName]{c1, c2} {
		got, err := Decrypt(v, c)
		require.NoError(t, err)
		assert.Equal(t, "same", got.Reveal().Name)
	}
}

func TestEncrypt_EntropyFailure(t *testing.T) {
	v, _ := newTestVault(t, "pw")
	v.rand = failingReader{}

	_, err := Encrypt(v, NewSecret(FolderName{Name: "x"}))
	assert.ErrorIs(t, err, ErrEncryption)
}

func TestDecrypt_BitFlip(t *testing.T) {
	v, _ := newTestVault(t, "pw")
	c, err := Encrypt(v, NewSecret(FileInfo{Name: "a.txt", MimeType: "text/plain"}))
	require.NoError(t, err)

	raw := c.Bytes()
	for i := 0; i < len(raw)*8; i++ {
		tampered := append([]byte(nil), raw...)
		tampered[i/8] ^= 1 << (i % 8)

		_, err := Decrypt(v, CipherFromBytes[FileInfo](tampered))
		require.ErrorIs(t, err, ErrAuthentication, "bit %d", i)
		require.NotErrorIs(t, err, ErrDecode, "bit %d", i)
	}
}

func TestDecrypt_Truncated(t *testing.T) {
	v, _ := newTestVault(t, "pw")
	c, err := Encrypt(v, NewSecret(FolderName{Name: "x"}))
	require.NoError(t, err)
	raw := c.Bytes()

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"nonce only", raw[:NonceSize]},
		{"short tag", raw[:NonceSize+10]},
		{"missing last byte", raw[:len(raw)-1]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decrypt(v, CipherFromBytes[FolderName](tt.data))
			assert.ErrorIs(t, err, ErrAuthentication)
		})
	}
}

func TestDecrypt_CrossKindRejected(t *testing.T) {
	v, _ := newTestVault(t, "pw")

	c, err := Encrypt(v, NewSecret(FolderName{Name: "Receipts"}))
	require.NoError(t, err)

	// Authentic bytes relabelled as another kind must fail at decode.
	_, err = Decrypt(v, CipherFromBytes[FileContent](c.Bytes()))
	require.ErrorIs(t, err, ErrDecode)
	assert.NotErrorIs(t, err, ErrAuthentication)

	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "FileContent", de.Kind)

	_, err = Decrypt(v, CipherFromBytes[FileInfo](c.Bytes()))
	assert.ErrorIs(t, err, ErrDecode)
}

func TestDecrypt_MalformedAuthenticPlaintext(t *testing.T) {
	v, _ := newTestVault(t, "pw")

	seal := func(t *testing.T, plaintext []byte) ([]byte, []byte) {
		t.Helper()
		nonce, sealed, err := v.seal(plaintext)
		require.NoError(t, err)
		return nonce, sealed
	}

	t.Run("folder name invalid utf8", func(t *testing.T) {
		nonce, sealed := seal(t, []byte{tagFolderName, 0xff, 0xfe})
		_, err := Decrypt(v, newCipher[FolderName](nonce, sealed))
		assert.ErrorIs(t, err, ErrDecode)
	})

	t.Run("file info short length", func(t *testing.T) {
		nonce, sealed := seal(t, []byte{tagFileInfo, 1, 2, 3})
		_, err := Decrypt(v, newCipher[FileInfo](nonce, sealed))
		assert.ErrorIs(t, err, ErrDecode)
	})

	t.Run("file info name overruns", func(t *testing.T) {
		nonce, sealed := seal(t, []byte{tagFileInfo, 9, 0, 0, 0, 0, 0, 0, 0, 'a'})
		_, err := Decrypt(v, newCipher[FileInfo](nonce, sealed))
		assert.ErrorIs(t, err, ErrDecode)
	})

	t.Run("empty plaintext", func(t *testing.T) {
		nonce, sealed := seal(t, nil)
		_, err := Decrypt(v, newCipher[FileContent](nonce, sealed))
		assert.ErrorIs(t, err, ErrDecode)
	})
}

// --- End-to-end ---

func TestVault_AccountScenario(t *testing.T) {
	password := NewPassword("correct horse")
	salt := newTestSalt(t)

	stored := password.Hash(salt)
	v := DeriveWithParams(password, salt, testParams)

	c1, err := Encrypt(v, NewSecret(FolderName{Name: "Receipts"}))
	require.NoError(t, err)

	// Later: the client refetches the salt and logs in again.
	fetched, err := SaltFromBytes(salt.Bytes())
	require.NoError(t, err)
	assert.True(t, NewPassword("correct horse").Hash(fetched).Equal(stored))

	v2 := DeriveWithParams(NewPassword("correct horse"), fetched, testParams)
	got, err := Decrypt(v2, c1)
	require.NoError(t, err)
	assert.Equal(t, FolderName{Name: "Receipts"}, got.Reveal())
}
