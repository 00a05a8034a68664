package account

import "errors"

// These are the only outcomes callers see; cryptographic detail is never
// surfaced.
var (
	// ErrUnknownUser indicates no account exists for the username.
	ErrUnknownUser = errors.New("account: unknown user")

	// ErrIncorrectPassword indicates the presented verifier does not match.
	ErrIncorrectPassword = errors.New("account: incorrect password")

	// ErrUsernameTaken indicates CreateAccount was called for an existing user.
	ErrUsernameTaken = errors.New("account: username taken")

	// ErrRateLimited indicates too many login attempts for the username.
	ErrRateLimited = errors.New("account: too many login attempts")

	// ErrInvalidUsername indicates the username is empty, too long, or not
	// printable UTF-8.
	ErrInvalidUsername = errors.New("account: invalid username")

	// ErrUnauthorized indicates a missing, expired, or forged token, or a
	// token whose account no longer exists.
	ErrUnauthorized = errors.New("account: unauthorized")
)
