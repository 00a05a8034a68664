package vault

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriver_MatchesDerive(t *testing.T) {
	d := NewDeriver(testParams, 2)
	salt := newTestSalt(t)

	v1, err := d.Derive(context.Background(), NewPassword("pw"), salt)
	require.NoError(t, err)
	v2 := DeriveWithParams(NewPassword("pw"), salt, testParams)

	c, err := Encrypt(v1, NewSecret(FolderName{Name: "x"}))
	require.NoError(t, err)
	_, err = Decrypt(v2, c)
	assert.NoError(t, err)
	assert.Equal(t, testParams, d.Params())
}

func TestDeriver_Concurrent(t *testing.T) {
	d := NewDeriver(testParams, 2)
	salt := newTestSalt(t)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := d.Derive(context.Background(), NewPassword("pw"), salt)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestDeriver_CancelledWhileWaiting(t *testing.T) {
	d := NewDeriver(testParams, 1)
	// Occupy the only slot.
	require.NoError(t, d.sem.Acquire(context.Background(), 1))
	defer d.sem.Release(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Derive(ctx, NewPassword("pw"), newTestSalt(t))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewDeriver_ClampsConcurrency(t *testing.T) {
	d := NewDeriver(testParams, 0)
	_, err := d.Derive(context.Background(), NewPassword("pw"), newTestSalt(t))
	assert.NoError(t, err)
}
