//go:build windows

package storage

import (
	"fmt"
	"os"
)

// No cross-process locking on Windows; a store is guarded by its own mutex
// only, so two processes must not open the same directory.

func lockStoreDir(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("%w: open lock file: %w", ErrIOFailure, err)
	}
	return f, nil
}

func unlockStoreDir(f *os.File) {
	if f == nil {
		return
	}
	_ = f.Close()
}
