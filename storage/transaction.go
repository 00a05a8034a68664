package storage

import (
	"fmt"
	"os"
	"sync"
)

// Transaction is a file reserved by Create and not yet committed. Until
// Commit succeeds the id is invisible to readers. Close aborts an
// uncommitted transaction, deleting the pending file and releasing its id; every
// path out of the caller, including early error returns, should therefore
// run Close (typically via defer).
type Transaction struct {
	store *FileStore
	id    string

	mu        sync.Mutex
	file      *os.File
	committed bool
	closed    bool
}

// ID returns the reserved file id.
func (tx *Transaction) ID() string { return tx.id }

// Commit writes data, flushes it to disk and links it under its id, which
// makes it visible. On error the transaction stays pending and Close will
// clean it up.
func (tx *Transaction) Commit(data []byte) (string, error) {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	if tx.committed || tx.closed {
		return "", ErrTransactionDone
	}

	if _, err := tx.file.Write(data); err != nil {
		return "", fmt.Errorf("%w: write: %w", ErrIOFailure, err)
	}
	if err := tx.file.Sync(); err != nil {
		return "", fmt.Errorf("%w: sync: %w", ErrIOFailure, err)
	}
	if err := tx.file.Close(); err != nil {
		return "", fmt.Errorf("%w: close: %w", ErrIOFailure, err)
	}
	tx.file = nil

	fs := tx.store
	if err := os.Link(fs.pendingPath(tx.id), fs.filePath(tx.id)); err != nil {
		return "", fmt.Errorf("%w: publish: %w", ErrIOFailure, err)
	}
	tx.committed = true
	syncDir(fs.baseDir)

	if err := os.Remove(fs.pendingPath(tx.id)); err != nil {
		fs.logger.Warn("storage: failed to clear committed upload", "id", tx.id, "error", err)
	}
	syncDir(fs.pendingDir)
	return tx.id, nil
}

// Close finishes the transaction. A committed transaction is left alone;
// otherwise the pending file is removed under the store's exclusive lock. Cleanup failures are logged and left for Recover. Close is
// idempotent.
func (tx *Transaction) Close() error {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	if tx.closed {
		return nil
	}
	tx.closed = true
	if tx.committed {
		return nil
	}

	if tx.file != nil {
		_ = tx.file.Close()
		tx.file = nil
	}

	fs := tx.store
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := fs.removePending(tx.id); err != nil {
		fs.logger.Error("storage: failed to remove aborted upload", "id", tx.id, "error", err)
	}
	return nil
}

// syncDir flushes directory entries. Best effort.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
