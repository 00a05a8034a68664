// Package files serves encrypted folders and files, and provides the client
// that encrypts and decrypts them.
//
// Service runs on the server and only handles ciphertext. Client runs next
// to the user's Vault, encrypts everything before it reaches the Service and
// caches decrypted results keyed by ciphertext.
package files

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bitfsorg/libvault-go/account"
	"github.com/bitfsorg/libvault-go/auth"
	"github.com/bitfsorg/libvault-go/metadata"
	"github.com/bitfsorg/libvault-go/storage"
	"github.com/bitfsorg/libvault-go/vault"
)

// Ciphertext aliases for the three kinds handled here.
type (
	FolderCipher  = vault.Cipher[vault.FolderName]
	InfoCipher    = vault.Cipher[vault.FileInfo]
	ContentCipher = vault.Cipher[vault.FileContent]
)

// Remote is the authenticated folder and file API a Client talks to.
type Remote interface {
	CreateFolder(tok auth.Token, name FolderCipher) error
	Folders(tok auth.Token) ([]FolderCipher, error)
	Files(tok auth.Token, folder FolderCipher) ([]InfoCipher, error)
	Upload(ctx context.Context, tok auth.Token, folder FolderCipher, info InfoCipher, content ContentCipher) (string, error)
	Download(tok auth.Token, folder FolderCipher, info InfoCipher) (ContentCipher, error)
}

// Service implements Remote over the metadata database and blob store.
type Service struct {
	accounts *account.Service
	meta     *metadata.BoltStore
	blobs    storage.Store
	logger   *slog.Logger
}

// Compile-time interface check.
var _ Remote = (*Service)(nil)

// NewService creates a file service. A nil logger discards output.
func NewService(accounts *account.Service, meta *metadata.BoltStore, blobs storage.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{accounts: accounts, meta: meta, blobs: blobs, logger: logger}
}

func (s *Service) user(tok auth.Token) (string, error) {
	username, err := s.accounts.Authenticate(tok)
	if errors.Is(err, account.ErrUnauthorized) {
		return "", ErrUnauthorized
	}
	return username, err
}

// mapMeta translates metadata errors to this package's categories.
func mapMeta(err error, notFound error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, metadata.ErrUnknownUser):
		return ErrUnauthorized
	case errors.Is(err, metadata.ErrNotFound):
		return notFound
	case errors.Is(err, metadata.ErrFolderExists):
		return ErrFolderExists
	case errors.Is(err, metadata.ErrFileExists):
		return ErrFileExists
	}
	return fmt.Errorf("files: metadata: %w", err)
}

// CreateFolder records an encrypted folder name for the token holder.
func (s *Service) CreateFolder(tok auth.Token, name FolderCipher) error {
	username, err := s.user(tok)
	if err != nil {
		return err
	}
	return mapMeta(s.meta.PutFolder(username, name), ErrFolderNotFound)
}

// Folders lists the token holder's encrypted folder names.
func (s *Service) Folders(tok auth.Token) ([]FolderCipher, error) {
	username, err := s.user(tok)
	if err != nil {
		return nil, err
	}
	folders, err := s.meta.Folders(username)
	return folders, mapMeta(err, ErrFolderNotFound)
}

// Files lists the encrypted file descriptors in folder.
func (s *Service) Files(tok auth.Token, folder FolderCipher) ([]InfoCipher, error) {
	username, err := s.user(tok)
	if err != nil {
		return nil, err
	}
	infos, err := s.meta.Files(username, folder)
	return infos, mapMeta(err, ErrFolderNotFound)
}

// Upload stores content as a new blob and records it under info in folder.
// The blob is committed before the metadata row so a recorded file always
// has its content; if recording fails the blob is deleted again.
func (s *Service) Upload(ctx context.Context, tok auth.Token, folder FolderCipher, info InfoCipher, content ContentCipher) (string, error) {
	username, err := s.user(tok)
	if err != nil {
		return "", err
	}

	tx, err := s.blobs.Create(ctx)
	if err != nil {
		return "", fmt.Errorf("files: reserve blob: %w", err)
	}
	defer tx.Close()

	id, err := tx.Commit(content.Bytes())
	if err != nil {
		return "", fmt.Errorf("files: write blob: %w", err)
	}

	if err := s.meta.PutFile(username, folder, info, id); err != nil {
		if derr := s.blobs.Delete(id); derr != nil {
			s.logger.Error("files: failed to delete unrecorded blob", "id", id, "error", derr)
		}
		return "", mapMeta(err, ErrFolderNotFound)
	}

	s.logger.Debug("files: uploaded", "user", username, "id", id, "size", content.Len())
	return id, nil
}

// Download returns the content ciphertext recorded under info in folder.
func (s *Service) Download(tok auth.Token, folder FolderCipher, info InfoCipher) (ContentCipher, error) {
	username, err := s.user(tok)
	if err != nil {
		return ContentCipher{}, err
	}

	id, err := s.meta.FileID(username, folder, info)
	if err != nil {
		return ContentCipher{}, mapMeta(err, ErrFileNotFound)
	}

	data, err := s.blobs.Get(id)
	if errors.Is(err, storage.ErrNotFound) {
		s.logger.Error("files: recorded blob missing", "user", username, "id", id)
		return ContentCipher{}, ErrFileNotFound
	}
	if err != nil {
		return ContentCipher{}, fmt.Errorf("files: read blob: %w", err)
	}
	return vault.CipherFromBytes[vault.FileContent](data), nil
}
