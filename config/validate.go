// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// validLogLevels lists the accepted log level strings.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// minMemoryPerThreadKiB is Argon2's floor of 8 KiB of memory per lane.
const minMemoryPerThreadKiB = 8

// ValidateConfig checks that all configuration values are within acceptable
// ranges and returns the first error encountered, or nil if valid.
func ValidateConfig(cfg Config) error {
	if cfg.DataDir == "" {
		return ErrEmptyDataDir
	}

	if !validLogLevels[strings.ToLower(cfg.LogLevel)] {
		return ErrInvalidLogLevel
	}

	if cfg.TokenTTL <= 0 {
		return ErrInvalidTokenTTL
	}

	if err := validateKDF(cfg); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidKDFParams, err)
	}

	if cfg.LoginRate <= 0 || math.IsNaN(cfg.LoginRate) || math.IsInf(cfg.LoginRate, 0) || cfg.LoginBurst < 1 {
		return ErrInvalidLoginLimit
	}

	return nil
}

// validateKDF checks the Argon2 cost settings and the derivation pool size.
func validateKDF(cfg Config) error {
	switch {
	case cfg.KDFTime < 1:
		return errors.New("time must be at least 1")
	case cfg.KDFThreads < 1 || cfg.KDFThreads > math.MaxUint8:
		return fmt.Errorf("threads must be in 1..%d", math.MaxUint8)
	case cfg.KDFMemoryKiB < minMemoryPerThreadKiB*uint32(cfg.KDFThreads):
		return fmt.Errorf("memory must be at least %d KiB per thread", minMemoryPerThreadKiB)
	case cfg.MaxConcurrentKDF < 1:
		return errors.New("max concurrent derivations must be at least 1")
	}
	return nil
}
