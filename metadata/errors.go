package metadata

import "errors"

var (
	// ErrNotFound indicates the requested folder or file row does not exist.
	ErrNotFound = errors.New("metadata: not found")

	// ErrUserExists indicates PutUser was called for a taken username.
	ErrUserExists = errors.New("metadata: user already exists")

	// ErrFolderExists indicates the folder ciphertext is already recorded.
	ErrFolderExists = errors.New("metadata: folder already exists")

	// ErrFileExists indicates the file descriptor ciphertext is already
	// recorded in the folder.
	ErrFileExists = errors.New("metadata: file already exists")

	// ErrUnknownUser indicates no account exists for the username.
	ErrUnknownUser = errors.New("metadata: unknown user")

	// ErrInvalidUsername indicates an empty username.
	ErrInvalidUsername = errors.New("metadata: invalid username")
)
