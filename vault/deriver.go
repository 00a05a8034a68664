package vault

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
)

// Deriver bounds how many Argon2id derivations run at once. Each derivation
// holds MemoryKiB of memory for its duration, so request handlers go through
// a Deriver instead of calling Derive directly.
type Deriver struct {
	params KDFParams
	sem    *semaphore.Weighted
}

// NewDeriver returns a Deriver that runs at most maxConcurrent derivations.
func NewDeriver(params KDFParams, maxConcurrent int) *Deriver {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Deriver{
		params: params,
		sem:    semaphore.NewWeighted(int64(maxConcurrent)),
	}
}

// Params returns the KDF cost this Deriver uses.
func (d *Deriver) Params() KDFParams { return d.params }

// Derive waits for a free slot, then derives the Vault. It returns early with
// ctx.Err() if ctx is cancelled while waiting; a derivation in progress runs
// to completion.
func (d *Deriver) Derive(ctx context.Context, password Password, salt Salt) (*Vault, error) {
	if err := d.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("vault: wait for KDF slot: %w", err)
	}
	defer d.sem.Release(1)
	return DeriveWithParams(password, salt, d.params), nil
}
