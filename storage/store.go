package storage

import "context"

// Store holds ciphertext blobs under random, immutable identifiers.
// Ids are not derived from content; a committed id maps to exactly one blob.
type Store interface {
	// Create reserves a fresh id and returns its pending transaction.
	// The caller must Close the transaction; Close aborts unless Commit
	// succeeded.
	Create(ctx context.Context) (*Transaction, error)

	// Get retrieves a committed blob.
	Get(id string) ([]byte, error)

	// Has reports whether a committed blob exists for id.
	Has(id string) (bool, error)

	// Delete removes a committed blob.
	Delete(id string) error

	// Size returns the size in bytes of a committed blob.
	Size(id string) (int64, error)

	// List returns all committed ids (for backup/export).
	List() ([]string, error)
}
