package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// GenerateKey returns a fresh random 512-bit key.
func GenerateKey() ([KeyLen]byte, error) {
	var key [KeyLen]byte
	if _, err := rand.Read(key[:]); err != nil {
		return key, fmt.Errorf("auth: failed to generate key: %w", err)
	}
	return key, nil
}

// LoadKey reads a key written by LoadOrCreateKey.
func LoadKey(path string) ([KeyLen]byte, error) {
	var key [KeyLen]byte
	data, err := os.ReadFile(path)
	if err != nil {
		return key, fmt.Errorf("auth: read key: %w", err)
	}
	if len(data) != KeyLen {
		return key, fmt.Errorf("%w: %s has %d bytes", ErrInvalidKey, path, len(data))
	}
	copy(key[:], data)
	return key, nil
}

// LoadOrCreateKey loads the key at path, generating and persisting one on
// first use. The key lives outside the database and survives restarts;
// replacing it invalidates every outstanding token.
//
// The key is written to a temporary file and linked into place, so path
// never holds a partial key. A file shorter than KeyLen, left by a torn
// write, could never have signed a token and is replaced.
func LoadOrCreateKey(path string) ([KeyLen]byte, error) {
	key, err := LoadKey(path)
	if err == nil {
		return key, nil
	}
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return createKey(path, false)
	case errors.Is(err, ErrInvalidKey):
		info, statErr := os.Stat(path)
		if statErr == nil && info.Size() < KeyLen {
			return createKey(path, true)
		}
	}
	return key, err
}

// createKey writes a fresh key to path. Unless replace is set, a key
// created concurrently by another process wins and is returned instead.
func createKey(path string, replace bool) ([KeyLen]byte, error) {
	key, err := GenerateKey()
	if err != nil {
		return key, err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return key, fmt.Errorf("auth: create key directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".auth-key-*")
	if err != nil {
		return key, fmt.Errorf("auth: create key file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(key[:]); err != nil {
		_ = tmp.Close()
		return key, fmt.Errorf("auth: write key: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return key, fmt.Errorf("auth: sync key: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return key, fmt.Errorf("auth: close key file: %w", err)
	}

	if replace {
		err = os.Rename(tmp.Name(), path)
	} else {
		err = os.Link(tmp.Name(), path)
	}
	if errors.Is(err, fs.ErrExist) {
		// Another process created it first; use theirs.
		return LoadKey(path)
	}
	if err != nil {
		return key, fmt.Errorf("auth: install key: %w", err)
	}

	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return key, nil
}
