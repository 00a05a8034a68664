package files

import "errors"

var (
	// ErrUnauthorized indicates an invalid or expired token, or a token for
	// a deleted account.
	ErrUnauthorized = errors.New("files: unauthorized")

	// ErrFolderNotFound indicates the folder ciphertext is not recorded for
	// the user.
	ErrFolderNotFound = errors.New("files: folder not found")

	// ErrFileNotFound indicates no file is recorded for the descriptor, or
	// its blob is missing.
	ErrFileNotFound = errors.New("files: file not found")

	// ErrFolderExists indicates the exact folder ciphertext was already added.
	ErrFolderExists = errors.New("files: folder already exists")

	// ErrFileExists indicates the exact descriptor ciphertext was already
	// uploaded to the folder.
	ErrFileExists = errors.New("files: file already exists")
)
