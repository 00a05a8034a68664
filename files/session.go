package files

import (
	"context"
	"fmt"

	"github.com/bitfsorg/libvault-go/auth"
	"github.com/bitfsorg/libvault-go/vault"
)

// Accounts is the account API used to open a session.
type Accounts interface {
	Salt(username string) (vault.Salt, error)
	CreateAccount(username string, salt vault.Salt, verifier vault.PasswordHash) (auth.Token, error)
	Login(username string, verifier vault.PasswordHash) (auth.Token, error)
}

// Session is an authenticated user with their derived Vault.
type Session struct {
	Username string
	Token    auth.Token
	Vault    *vault.Vault
}

// Register creates an account: a fresh salt is generated locally, only the
// verifier is sent, and the vault key is derived on this side.
func Register(ctx context.Context, accounts Accounts, d *vault.Deriver, username string, password vault.Password) (*Session, error) {
	salt, err := vault.GenerateSalt()
	if err != nil {
		return nil, fmt.Errorf("files: generate salt: %w", err)
	}
	tok, err := accounts.CreateAccount(username, salt, password.Hash(salt))
	if err != nil {
		return nil, err
	}
	v, err := d.Derive(ctx, password, salt)
	if err != nil {
		return nil, err
	}
	return &Session{Username: username, Token: tok, Vault: v}, nil
}

// Login fetches the account salt, proves the password with its verifier and
// re-derives the vault key.
func Login(ctx context.Context, accounts Accounts, d *vault.Deriver, username string, password vault.Password) (*Session, error) {
	salt, err := accounts.Salt(username)
	if err != nil {
		return nil, err
	}
	tok, err := accounts.Login(username, password.Hash(salt))
	if err != nil {
		return nil, err
	}
	v, err := d.Derive(ctx, password, salt)
	if err != nil {
		return nil, err
	}
	return &Session{Username: username, Token: tok, Vault: v}, nil
}

// Client returns a file client bound to the session.
func (s *Session) Client(remote Remote, opts ...ClientOption) *Client {
	return NewClient(remote, s.Vault, s.Token, opts...)
}
