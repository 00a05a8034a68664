package storage

import "errors"

var (
	// ErrNotFound indicates no committed file exists for the given id.
	ErrNotFound = errors.New("storage: file not found")

	// ErrInvalidID indicates the id is not a 1..MaxIDLength base-36 string.
	ErrInvalidID = errors.New("storage: invalid file id")

	// ErrIOFailure indicates a file read/write error.
	ErrIOFailure = errors.New("storage: I/O failure")

	// ErrInvalidBaseDir indicates the base directory path is invalid.
	ErrInvalidBaseDir = errors.New("storage: invalid base directory")

	// ErrLocked indicates another process holds the store directory.
	ErrLocked = errors.New("storage: store directory is locked by another process")

	// ErrIDSpaceExhausted indicates no free id was found up to MaxIDLength.
	// Unreachable in practice.
	ErrIDSpaceExhausted = errors.New("storage: file id space exhausted")

	// ErrTransactionDone indicates Commit was called on a committed or
	// aborted transaction.
	ErrTransactionDone = errors.New("storage: transaction already finished")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("storage: store is closed")
)
