//go:build unix

package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockStoreDir_Exclusive(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), lockFileName)

	fl1, err := lockStoreDir(lockPath)
	require.NoError(t, err)

	_, err = os.Stat(lockPath)
	assert.NoError(t, err)

	fl2, err := lockStoreDir(lockPath)
	assert.ErrorIs(t, err, ErrLocked)
	assert.Nil(t, fl2)

	unlockStoreDir(fl1)
	fl3, err := lockStoreDir(lockPath)
	require.NoError(t, err)
	unlockStoreDir(fl3)
}

func TestLockStoreDir_Unopenable(t *testing.T) {
	_, err := lockStoreDir(filepath.Join(t.TempDir(), "missing", lockFileName))
	assert.ErrorIs(t, err, ErrIOFailure)
	assert.NotErrorIs(t, err, ErrLocked)
}
