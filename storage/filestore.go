package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

const (
	lockFileName   = ".lock"
	pendingDirName = ".pending"
	deletedDirName = ".deleted"
)

// FileStore implements Store on the local filesystem.
// A pending transaction writes to {baseDir}/.pending/{id}, created with
// O_EXCL to claim the id. Commit hard-links it to {baseDir}/{id}, which
// never exists for an uncommitted id, then removes the pending name.
// Readers look only at {baseDir}, so a committed blob is never hidden by a
// concurrent Create. Pending files left behind by a crash are swept by
// Recover. Deleted ids keep a tombstone in {baseDir}/.deleted so they are
// never handed out again.
//
// mu is shared by Create (many transactions check and claim ids in
// parallel) and exclusive for deletions, so a Delete never interleaves with
// a Create that is checking the id it retires.
type FileStore struct {
	baseDir    string
	pendingDir string
	deletedDir string
	mu         sync.RWMutex
	lock       *os.File
	logger     *slog.Logger
}

// Compile-time interface check.
var _ Store = (*FileStore)(nil)

// Option configures a FileStore.
type Option func(*FileStore)

// WithLogger sets the logger used for cleanup and recovery events.
func WithLogger(l *slog.Logger) Option {
	return func(fs *FileStore) {
		if l != nil {
			fs.logger = l
		}
	}
}

// OpenFileStore opens the store at baseDir, creating it if needed. It takes
// an exclusive process lock on the directory and sweeps files left pending
// by a previous crash.
func OpenFileStore(baseDir string, opts ...Option) (*FileStore, error) {
	if baseDir == "" {
		return nil, ErrInvalidBaseDir
	}

	pendingDir := filepath.Join(baseDir, pendingDirName)
	deletedDir := filepath.Join(baseDir, deletedDirName)
	for _, dir := range []string{pendingDir, deletedDir} {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrIOFailure, err)
		}
	}

	lock, err := lockStoreDir(filepath.Join(baseDir, lockFileName))
	if err != nil {
		return nil, err
	}

	fs := &FileStore{
		baseDir:    baseDir,
		pendingDir: pendingDir,
		deletedDir: deletedDir,
		lock:       lock,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(fs)
	}

	if _, err := fs.Recover(); err != nil {
		unlockStoreDir(lock)
		return nil, err
	}
	return fs, nil
}

// Close releases the directory lock. Transactions still pending are left for
// the next Recover.
func (fs *FileStore) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.lock == nil {
		return ErrStoreClosed
	}
	unlockStoreDir(fs.lock)
	fs.lock = nil
	return nil
}

// BaseDir returns the store directory.
func (fs *FileStore) BaseDir() string { return fs.baseDir }

func (fs *FileStore) filePath(id string) string    { return filepath.Join(fs.baseDir, id) }
func (fs *FileStore) pendingPath(id string) string { return filepath.Join(fs.pendingDir, id) }
func (fs *FileStore) tombPath(id string) string    { return filepath.Join(fs.deletedDir, id) }

// Create reserves an unused id and creates its pending file. Candidates
// start at one character and grow by one per collision. No existing file is
// ever overwritten.
func (fs *FileStore) Create(ctx context.Context) (*Transaction, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	if fs.lock == nil {
		return nil, ErrStoreClosed
	}

	for length := 1; length <= MaxIDLength; length++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		id, err := newID(length)
		if err != nil {
			return nil, err
		}

		tx, err := fs.tryCreate(id)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return tx, nil
	}
	return nil, ErrIDSpaceExhausted
}

// tryCreate claims id by exclusively creating its pending file. It returns
// an error wrapping os.ErrExist if the id is pending, committed or retired.
// Commit links the committed name before removing the pending one, so an id
// whose pending file this call created cannot already be committed unless
// the stat below sees it.
func (fs *FileStore) tryCreate(id string) (*Transaction, error) {
	f, err := os.OpenFile(fs.pendingPath(id), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	release := func() {
		_ = f.Close()
		_ = os.Remove(fs.pendingPath(id))
	}

	for _, path := range []string{fs.filePath(id), fs.tombPath(id)} {
		_, err := os.Stat(path)
		if err == nil {
			release()
			return nil, fmt.Errorf("storage: id %q in use: %w", id, os.ErrExist)
		}
		if !os.IsNotExist(err) {
			release()
			return nil, fmt.Errorf("%w: %w", ErrIOFailure, err)
		}
	}

	return &Transaction{store: fs, id: id, file: f}, nil
}

// Get retrieves a committed blob. Pending files are reported as not found.
func (fs *FileStore) Get(id string) ([]byte, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	data, err := os.ReadFile(fs.filePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	return data, nil
}

// Has checks if a committed blob exists for id.
func (fs *FileStore) Has(id string) (bool, error) {
	if err := validateID(id); err != nil {
		return false, err
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	_, err := os.Stat(fs.filePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	return true, nil
}

// Size returns the size in bytes of a committed blob.
func (fs *FileStore) Size(id string) (int64, error) {
	if err := validateID(id); err != nil {
		return 0, err
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	info, err := os.Stat(fs.filePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	return info.Size(), nil
}

// Delete removes a committed blob and retires its id.
func (fs *FileStore) Delete(id string) error {
	if err := validateID(id); err != nil {
		return err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if _, err := os.Stat(fs.filePath(id)); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	if err := os.WriteFile(fs.tombPath(id), nil, 0600); err != nil {
		return fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	if err := os.Remove(fs.filePath(id)); err != nil {
		return fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	return nil
}

// List returns all committed ids.
func (fs *FileStore) List() ([]string, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	entries, err := os.ReadDir(fs.baseDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}

	var result []string
	for _, entry := range entries {
		if entry.IsDir() || !ValidID(entry.Name()) {
			continue
		}
		result = append(result, entry.Name())
	}
	return result, nil
}

// Recover deletes every pending file that survived, i.e. uploads
// interrupted by a crash, and returns how many were swept. Committed blobs
// are never touched: a crash between Commit's link and its cleanup leaves a
// complete blob under {baseDir} whose id no metadata row references.
func (fs *FileStore) Recover() (int, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	entries, err := os.ReadDir(fs.pendingDir)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}

	swept := 0
	for _, entry := range entries {
		id := entry.Name()
		if !ValidID(id) {
			continue
		}
		if err := fs.removePending(id); err != nil {
			return swept, err
		}
		fs.logger.Info("storage: removed interrupted upload", "id", id)
		swept++
	}
	return swept, nil
}

// removePending deletes the pending file for id. A missing file is fine.
func (fs *FileStore) removePending(id string) error {
	if err := os.Remove(fs.pendingPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	return nil
}
