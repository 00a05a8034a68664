// Package server assembles the vault backend from a data directory.
package server

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/bitfsorg/libvault-go/account"
	"github.com/bitfsorg/libvault-go/auth"
	"github.com/bitfsorg/libvault-go/config"
	"github.com/bitfsorg/libvault-go/files"
	"github.com/bitfsorg/libvault-go/metadata"
	"github.com/bitfsorg/libvault-go/storage"
	"github.com/bitfsorg/libvault-go/vault"
)

// Server is the shared backend. Transport adapters call Accounts and Files;
// in-process clients also use Deriver to derive their vaults.
type Server struct {
	Config   config.Config
	Logger   *slog.Logger
	Meta     *metadata.BoltStore
	Blobs    *storage.FileStore
	Accounts *account.Service
	Files    *files.Service
	Deriver  *vault.Deriver

	logCloser io.Closer
}

// Open loads dataDir/config (defaults if missing), then opens the metadata
// database, blob store and token key under the configured paths.
func Open(dataDir string) (*Server, error) {
	cfg, err := config.LoadConfig(config.ConfigPath(dataDir))
	if errors.Is(err, config.ErrConfigNotFound) {
		cfg = config.DefaultConfig()
	} else if err != nil {
		return nil, fmt.Errorf("server: load config: %w", err)
	}
	cfg.DataDir = dataDir
	return New(cfg)
}

// New builds a Server from cfg.
func New(cfg config.Config) (*Server, error) {
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}

	logger, logCloser, err := config.NewLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("server: init logger: %w", err)
	}

	meta, err := metadata.OpenBoltStore(cfg.MetadataPath())
	if err != nil {
		_ = logCloser.Close()
		return nil, fmt.Errorf("server: open metadata: %w", err)
	}

	blobs, err := storage.OpenFileStore(cfg.StorePath(), storage.WithLogger(logger))
	if err != nil {
		_ = meta.Close()
		_ = logCloser.Close()
		return nil, fmt.Errorf("server: open storage: %w", err)
	}

	key, err := auth.LoadOrCreateKey(cfg.AuthKeyPath())
	if err != nil {
		_ = blobs.Close()
		_ = meta.Close()
		_ = logCloser.Close()
		return nil, fmt.Errorf("server: load auth key: %w", err)
	}

	accounts := account.NewService(meta, auth.New(key), blobs,
		account.WithTokenTTL(cfg.TokenTTL),
		account.WithLoginLimit(cfg.LoginRate, cfg.LoginBurst),
		account.WithLogger(logger),
	)

	logger.Info("server: opened", "datadir", cfg.DataDir)
	return &Server{
		Config:    cfg,
		Logger:    logger,
		Meta:      meta,
		Blobs:     blobs,
		Accounts:  accounts,
		Files:     files.NewService(accounts, meta, blobs, logger),
		Deriver:   vault.NewDeriver(cfg.KDFParams(), cfg.MaxConcurrentKDF),
		logCloser: logCloser,
	}, nil
}

// Close releases the store lock, the database and the log file.
func (s *Server) Close() error {
	var errs []error
	if err := s.Blobs.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.Meta.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.logCloser.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
