// Package account implements the server side of registration and login.
//
// The client fetches the account salt, computes the password verifier
// locally, and presents only the verifier; the server never sees the
// password or the vault key. Successful registration and login return a
// signed session token.
package account

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"github.com/bitfsorg/libvault-go/auth"
	"github.com/bitfsorg/libvault-go/metadata"
	"github.com/bitfsorg/libvault-go/storage"
	"github.com/bitfsorg/libvault-go/vault"
)

// MaxUsernameLen is the longest accepted username in bytes.
const MaxUsernameLen = 64

const (
	defaultTokenTTL   = 15 * time.Minute
	defaultLoginRate  = rate.Limit(0.2)
	defaultLoginBurst = 5
	limiterIdleTTL    = time.Hour
)

// Service handles salt lookup, account creation, login and deletion.
type Service struct {
	meta     *metadata.BoltStore
	auth     *auth.Authenticator
	blobs    storage.Store
	tokenTTL time.Duration
	limiter  *loginLimiter
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithTokenTTL sets the validity of issued tokens.
func WithTokenTTL(d time.Duration) Option {
	return func(s *Service) { s.tokenTTL = d }
}

// WithLoginLimit sets the per-username login rate (attempts per second)
// and burst.
func WithLoginLimit(perSecond float64, burst int) Option {
	return func(s *Service) {
		s.limiter = newLoginLimiter(rate.Limit(perSecond), burst, limiterIdleTTL)
	}
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the clock used for rate limiting.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates an account service. blobs is used to delete a removed
// account's files.
func NewService(meta *metadata.BoltStore, a *auth.Authenticator, blobs storage.Store, opts ...Option) *Service {
	s := &Service{
		meta:     meta,
		auth:     a,
		blobs:    blobs,
		tokenTTL: defaultTokenTTL,
		limiter:  newLoginLimiter(defaultLoginRate, defaultLoginBurst, limiterIdleTTL),
		logger:   slog.New(slog.DiscardHandler),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ValidateUsername checks that name is 1..MaxUsernameLen bytes of printable
// UTF-8.
func ValidateUsername(name string) error {
	if name == "" || len(name) > MaxUsernameLen || !utf8.ValidString(name) {
		return ErrInvalidUsername
	}
	for _, r := range name {
		if !unicode.IsPrint(r) {
			return ErrInvalidUsername
		}
	}
	return nil
}

// Salt returns the public salt of username so the client can compute its
// verifier and vault key.
func (s *Service) Salt(username string) (vault.Salt, error) {
	salt, err := s.meta.Salt(username)
	if errors.Is(err, metadata.ErrUnknownUser) {
		return vault.Salt{}, ErrUnknownUser
	}
	if err != nil {
		return vault.Salt{}, fmt.Errorf("account: salt lookup: %w", err)
	}
	return salt, nil
}

// CreateAccount records a new account with the client-generated salt and
// verifier and returns a session token.
func (s *Service) CreateAccount(username string, salt vault.Salt, verifier vault.PasswordHash) (auth.Token, error) {
	if err := ValidateUsername(username); err != nil {
		return auth.Token{}, err
	}

	// The account is stamped with its first token's issue time; Authenticate
	// rejects tokens issued before it.
	tok := s.auth.Sign(username, s.tokenTTL)
	err := s.meta.PutUser(username, salt, verifier, tok.IssuedAt)
	if errors.Is(err, metadata.ErrUserExists) {
		return auth.Token{}, ErrUsernameTaken
	}
	if err != nil {
		return auth.Token{}, fmt.Errorf("account: create: %w", err)
	}

	s.logger.Info("account: created", "user", username)
	return tok, nil
}

// Login checks verifier against the stored one in constant time and
// returns a session token on success. Attempts are rate limited per
// existing account; unknown usernames get no bucket.
func (s *Service) Login(username string, verifier vault.PasswordHash) (auth.Token, error) {
	stored, err := s.meta.Verifier(username)
	if errors.Is(err, metadata.ErrUnknownUser) {
		s.logger.Info("account: login failed", "user", username, "reason", "unknown user")
		return auth.Token{}, ErrUnknownUser
	}
	if err != nil {
		return auth.Token{}, fmt.Errorf("account: verifier lookup: %w", err)
	}

	if !s.limiter.allow(username, s.now()) {
		s.logger.Warn("account: login rate limited", "user", username)
		return auth.Token{}, ErrRateLimited
	}

	if !stored.Equal(verifier) {
		s.logger.Info("account: login failed", "user", username, "reason", "incorrect password")
		return auth.Token{}, ErrIncorrectPassword
	}

	s.limiter.forget(username)
	return s.auth.Sign(username, s.tokenTTL), nil
}

// Authenticate validates tok and confirms it was issued to the account
// that currently holds the username. Tokens of a deleted account stay
// rejected after the name is registered again.
func (s *Service) Authenticate(tok auth.Token) (string, error) {
	username, err := s.auth.Username(tok)
	if err != nil {
		return "", ErrUnauthorized
	}
	createdAt, err := s.meta.CreatedAt(username)
	if errors.Is(err, metadata.ErrUnknownUser) {
		return "", ErrUnauthorized
	}
	if err != nil {
		return "", fmt.Errorf("account: user lookup: %w", err)
	}
	if tok.IssuedAt.Before(createdAt) {
		return "", ErrUnauthorized
	}
	return username, nil
}

// DeleteAccount removes the token holder's account with its folders, files
// and stored blobs. Blob deletion failures are logged; the metadata rows are
// already gone so the account is unreachable either way.
func (s *Service) DeleteAccount(tok auth.Token) error {
	username, err := s.Authenticate(tok)
	if err != nil {
		return err
	}

	ids, err := s.meta.DeleteUser(username)
	if errors.Is(err, metadata.ErrUnknownUser) {
		return ErrUnauthorized
	}
	if err != nil {
		return fmt.Errorf("account: delete: %w", err)
	}

	for _, id := range ids {
		if err := s.blobs.Delete(id); err != nil && !errors.Is(err, storage.ErrNotFound) {
			s.logger.Error("account: failed to delete file", "user", username, "id", id, "error", err)
		}
	}
	s.logger.Info("account: deleted", "user", username, "files", len(ids))
	return nil
}
