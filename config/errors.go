// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import "errors"

var (
	// ErrInvalidLogLevel indicates the log level is not recognized.
	ErrInvalidLogLevel = errors.New("config: invalid log level (must be \"debug\", \"info\", \"warn\", or \"error\")")

	// ErrEmptyDataDir indicates the data directory path is empty.
	ErrEmptyDataDir = errors.New("config: data directory must not be empty")

	// ErrConfigNotFound indicates the configuration file does not exist.
	ErrConfigNotFound = errors.New("config: configuration file not found")

	// ErrInvalidConfigLine indicates a line in the config file is malformed.
	ErrInvalidConfigLine = errors.New("config: invalid configuration line")

	// ErrInvalidConfigValue indicates a value could not be parsed for its key.
	ErrInvalidConfigValue = errors.New("config: invalid configuration value")

	// ErrInvalidTokenTTL indicates the token validity is not positive.
	ErrInvalidTokenTTL = errors.New("config: token ttl must be positive")

	// ErrInvalidKDFParams indicates the Argon2 cost parameters are unusable.
	ErrInvalidKDFParams = errors.New("config: invalid KDF parameters")

	// ErrInvalidLoginLimit indicates the login rate or burst is not positive.
	ErrInvalidLoginLimit = errors.New("config: login rate and burst must be positive")
)
