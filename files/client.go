package files

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/bitfsorg/libvault-go/auth"
	"github.com/bitfsorg/libvault-go/vault"
)

// DefaultUploadConcurrency bounds parallel uploads in AddFiles.
const DefaultUploadConcurrency = 4

// Folder is a folder as seen by its owner.
type Folder struct {
	ID   FolderCipher
	Name vault.Secret[vault.FolderName]
}

// File is a file descriptor as seen by its owner. ID is the descriptor
// ciphertext the server knows the file by.
type File struct {
	ID   InfoCipher
	Info vault.Secret[vault.FileInfo]
}

// NewFile is a file to upload.
type NewFile struct {
	Info    vault.Secret[vault.FileInfo]
	Content vault.Secret[vault.FileContent]
}

// Client encrypts requests to a Remote with the user's Vault and decrypts
// the answers. Listings and contents are cached by ciphertext, so each
// ciphertext is fetched and decrypted at most once.
type Client struct {
	remote      Remote
	vault       *vault.Vault
	token       auth.Token
	logger      *slog.Logger
	concurrency int

	mu       sync.Mutex
	files    map[string][]File                          // folder cipher key -> listing
	contents map[string]vault.Secret[vault.FileContent] // info cipher key -> content
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithClientLogger sets the client logger.
func WithClientLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithUploadConcurrency bounds parallel uploads. n < 1 means unbounded.
func WithUploadConcurrency(n int) ClientOption {
	return func(c *Client) { c.concurrency = n }
}

// NewClient creates a client for the session identified by tok.
func NewClient(remote Remote, v *vault.Vault, tok auth.Token, opts ...ClientOption) *Client {
	c := &Client{
		remote:      remote,
		vault:       v,
		token:       tok,
		logger:      slog.New(slog.DiscardHandler),
		concurrency: DefaultUploadConcurrency,
		files:       make(map[string][]File),
		contents:    make(map[string]vault.Secret[vault.FileContent]),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateFolder encrypts name and records it as a new folder.
func (c *Client) CreateFolder(name string) (Folder, error) {
	secret := vault.NewSecret(vault.FolderName{Name: name})
	id, err := vault.Encrypt(c.vault, secret)
	if err != nil {
		return Folder{}, err
	}
	if err := c.remote.CreateFolder(c.token, id); err != nil {
		return Folder{}, err
	}

	c.mu.Lock()
	c.files[id.Key()] = []File{}
	c.mu.Unlock()
	return Folder{ID: id, Name: secret}, nil
}

// Folders lists and decrypts the user's folders. Entries that fail to
// decrypt are logged and skipped.
func (c *Client) Folders() ([]Folder, error) {
	ids, err := c.remote.Folders(c.token)
	if err != nil {
		return nil, err
	}

	out := make([]Folder, 0, len(ids))
	for _, id := range ids {
		name, err := vault.Decrypt(c.vault, id)
		if err != nil {
			c.logger.Error("files: corrupted folder name", "error", err)
			continue
		}
		out = append(out, Folder{ID: id, Name: name})
	}
	return out, nil
}

// Files lists and decrypts the files of folder. The listing is fetched once
// per folder and kept up to date by AddFiles.
func (c *Client) Files(folder FolderCipher) ([]File, error) {
	c.mu.Lock()
	cached, ok := c.files[folder.Key()]
	c.mu.Unlock()
	if ok {
		return append([]File(nil), cached...), nil
	}

	ids, err := c.remote.Files(c.token, folder)
	if err != nil {
		return nil, err
	}

	out := make([]File, 0, len(ids))
	for _, id := range ids {
		info, err := vault.Decrypt(c.vault, id)
		if err != nil {
			c.logger.Error("files: corrupted file info", "error", err)
			continue
		}
		out = append(out, File{ID: id, Info: info})
	}

	c.mu.Lock()
	if cached, ok := c.files[folder.Key()]; ok {
		// A concurrent AddFiles populated the listing first.
		out = cached
	} else {
		c.files[folder.Key()] = out
	}
	c.mu.Unlock()
	return append([]File(nil), out...), nil
}

// AddFiles encrypts and uploads files to folder in parallel. On success the
// new files are appended to the cached listing and their contents cached.
// If any upload fails the first error is returned; uploads that did succeed
// remain on the server and show up on the next listing refresh.
func (c *Client) AddFiles(ctx context.Context, folder FolderCipher, newFiles []NewFile) ([]File, error) {
	added := make([]File, len(newFiles))
	contents := make([]ContentCipher, len(newFiles))
	for i, nf := range newFiles {
		id, err := vault.Encrypt(c.vault, nf.Info)
		if err != nil {
			return nil, fmt.Errorf("files: encrypt file info: %w", err)
		}
		content, err := vault.Encrypt(c.vault, nf.Content)
		if err != nil {
			return nil, fmt.Errorf("files: encrypt file content: %w", err)
		}
		added[i] = File{ID: id, Info: nf.Info}
		contents[i] = content
	}

	g, gctx := errgroup.WithContext(ctx)
	if c.concurrency > 0 {
		g.SetLimit(c.concurrency)
	}
	for i := range added {
		g.Go(func() error {
			_, err := c.remote.Upload(gctx, c.token, folder, added[i].ID, contents[i])
			return err
		})
	}
	if err := g.Wait(); err != nil {
		c.Invalidate(folder)
		return nil, err
	}

	c.mu.Lock()
	if cached, ok := c.files[folder.Key()]; ok {
		c.files[folder.Key()] = append(cached, added...)
	}
	for i, f := range added {
		c.contents[f.ID.Key()] = newFiles[i].Content
	}
	c.mu.Unlock()
	return added, nil
}

// Content returns the decrypted content of file in folder, downloading it
// on first use.
func (c *Client) Content(folder FolderCipher, file InfoCipher) (vault.Secret[vault.FileContent], error) {
	c.mu.Lock()
	cached, ok := c.contents[file.Key()]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}

	ct, err := c.remote.Download(c.token, folder, file)
	if err != nil {
		return vault.Secret[vault.FileContent]{}, err
	}
	content, err := vault.Decrypt(c.vault, ct)
	if err != nil {
		return vault.Secret[vault.FileContent]{}, err
	}

	c.mu.Lock()
	c.contents[file.Key()] = content
	c.mu.Unlock()
	return content, nil
}

// Invalidate drops the cached listing of folder so the next Files call
// refetches it.
func (c *Client) Invalidate(folder FolderCipher) {
	c.mu.Lock()
	delete(c.files, folder.Key())
	c.mu.Unlock()
}
