package auth

import "errors"

var (
	// ErrAuthFailed is the single outcome for expired, not-yet-valid, or
	// forged tokens.
	ErrAuthFailed = errors.New("auth: authentication failed")

	// ErrInvalidToken indicates an encoded token could not be parsed.
	ErrInvalidToken = errors.New("auth: malformed token")

	// ErrInvalidKey indicates a key file has the wrong size.
	ErrInvalidKey = errors.New("auth: key must be 64 bytes")
)
