// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

// Package config loads and saves the vault server configuration and builds
// the process logger from it.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bitfsorg/libvault-go/vault"
)

const (
	// DefaultDataDirName is the data directory created under the user's home.
	DefaultDataDirName = ".filevault"

	configFileName   = "config"
	storeDirName     = "files"
	metadataFileName = "metadata.db"
	authKeyFileName  = "auth.key"
)

// Config holds the vault server settings.
type Config struct {
	DataDir  string
	LogLevel string
	LogFile  string // empty means stderr

	// TokenTTL is the validity window of issued session tokens.
	TokenTTL time.Duration

	// Argon2id cost applied to every key derivation.
	KDFMemoryKiB uint32
	KDFTime      uint32
	KDFThreads   int

	// MaxConcurrentKDF bounds in-flight key derivations.
	MaxConcurrentKDF int

	// LoginRate is the sustained login attempts per second allowed per user;
	// LoginBurst is how many may be made back to back.
	LoginRate  float64
	LoginBurst int
}

// DefaultDataDir returns ~/.filevault, or .filevault in the working
// directory if the home directory is unknown.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultDataDirName
	}
	return filepath.Join(home, DefaultDataDirName)
}

// DefaultConfig returns a Config populated with default values.
func DefaultConfig() Config {
	kdf := vault.DefaultKDFParams()
	return Config{
		DataDir:          DefaultDataDir(),
		LogLevel:         "info",
		LogFile:          "",
		TokenTTL:         15 * time.Minute,
		KDFMemoryKiB:     kdf.MemoryKiB,
		KDFTime:          kdf.Time,
		KDFThreads:       int(kdf.Parallelism),
		MaxConcurrentKDF: 4,
		LoginRate:        0.2,
		LoginBurst:       5,
	}
}

// ConfigPath returns the config file path inside dataDir.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, configFileName)
}

// StorePath returns the directory holding encrypted file blobs.
func (c Config) StorePath() string { return filepath.Join(c.DataDir, storeDirName) }

// MetadataPath returns the bbolt metadata database path.
func (c Config) MetadataPath() string { return filepath.Join(c.DataDir, metadataFileName) }

// AuthKeyPath returns the token signing key path.
func (c Config) AuthKeyPath() string { return filepath.Join(c.DataDir, authKeyFileName) }

// KDFParams returns the configured Argon2id cost.
func (c Config) KDFParams() vault.KDFParams {
	return vault.KDFParams{
		Time:        c.KDFTime,
		MemoryKiB:   c.KDFMemoryKiB,
		Parallelism: uint8(c.KDFThreads),
	}
}

// LoadConfig reads a key = value config file. Lines starting with # and
// blank lines are skipped; unknown keys are ignored. Keys missing from the
// file keep their defaults.
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return Config{}, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	cfg := DefaultConfig()
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, err := parseKeyValue(line)
		if err != nil {
			return Config{}, fmt.Errorf("%w: line %d: %q", err, lineNo, line)
		}
		if err := cfg.set(key, value); err != nil {
			return Config{}, fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return cfg, nil
}

// parseKeyValue splits a line on its first '='.
func parseKeyValue(line string) (string, string, error) {
	key, value, ok := strings.Cut(line, "=")
	if !ok {
		return "", "", ErrInvalidConfigLine
	}
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return "", "", ErrInvalidConfigLine
	}
	return key, strings.TrimSpace(value), nil
}

func (c *Config) set(key, value string) error {
	var err error
	switch key {
	case "datadir":
		c.DataDir = value
	case "loglevel":
		c.LogLevel = value
	case "logfile":
		c.LogFile = value
	case "tokenttl":
		c.TokenTTL, err = time.ParseDuration(value)
	case "kdfmemory":
		c.KDFMemoryKiB, err = parseUint32(value)
	case "kdftime":
		c.KDFTime, err = parseUint32(value)
	case "kdfthreads":
		c.KDFThreads, err = strconv.Atoi(value)
	case "maxkdf":
		c.MaxConcurrentKDF, err = strconv.Atoi(value)
	case "loginrate":
		c.LoginRate, err = strconv.ParseFloat(value, 64)
	case "loginburst":
		c.LoginBurst, err = strconv.Atoi(value)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidConfigValue, key, err)
	}
	return nil
}

func parseUint32(s string) (uint32, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	return uint32(n), err
}

// SaveConfig writes cfg to path, creating parent directories as needed.
func SaveConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}

	var b strings.Builder
	b.WriteString("# File Vault Configuration\n\n")
	fmt.Fprintf(&b, "datadir = %s\n", cfg.DataDir)
	fmt.Fprintf(&b, "loglevel = %s\n", cfg.LogLevel)
	fmt.Fprintf(&b, "logfile = %s\n", cfg.LogFile)
	b.WriteString("\n# Session tokens\n")
	fmt.Fprintf(&b, "tokenttl = %s\n", cfg.TokenTTL)
	b.WriteString("\n# Argon2id cost (memory in KiB)\n")
	fmt.Fprintf(&b, "kdfmemory = %d\n", cfg.KDFMemoryKiB)
	fmt.Fprintf(&b, "kdftime = %d\n", cfg.KDFTime)
	fmt.Fprintf(&b, "kdfthreads = %d\n", cfg.KDFThreads)
	fmt.Fprintf(&b, "maxkdf = %d\n", cfg.MaxConcurrentKDF)
	b.WriteString("\n# Login throttling per user (attempts per second)\n")
	fmt.Fprintf(&b, "loginrate = %s\n", strconv.FormatFloat(cfg.LoginRate, 'g', -1, 64))
	fmt.Fprintf(&b, "loginburst = %d\n", cfg.LoginBurst)

	if err := os.WriteFile(path, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
