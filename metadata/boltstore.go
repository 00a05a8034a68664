// Package metadata records accounts, folders and files in a bbolt database.
//
// Folder names and file descriptors are stored only as ciphertext; the
// database never sees plaintext. Each ciphertext is its own identity: the
// same name encrypted twice is two distinct rows.
//
// Layout:
//
//	users/{username}                          -> gob(userRecord)
//	folders/{username}/{folder cipher}        -> created_at (u64be unix nanos)
//	files/{username}/{folder cipher}/{info}   -> file id
package metadata

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/bitfsorg/libvault-go/vault"
)

var (
	bucketUsers   = []byte("users")
	bucketFolders = []byte("folders")
	bucketFiles   = []byte("files")
)

// FolderCipher is an encrypted folder name.
type FolderCipher = vault.Cipher[vault.FolderName]

// InfoCipher is an encrypted file descriptor.
type InfoCipher = vault.Cipher[vault.FileInfo]

// userRecord is the gob-encoded value of a users row.
type userRecord struct {
	Salt      []byte
	Verifier  []byte
	CreatedAt int64
}

// BoltStore persists account, folder and file metadata in bbolt.
type BoltStore struct {
	db  *bbolt.DB
	now func() time.Time
}

// OpenBoltStore opens or creates the bbolt database at dbPath.
// The parent directory is created if it does not exist.
func OpenBoltStore(dbPath string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("metadata: create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("metadata: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketUsers, bucketFolders, bucketFiles} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("boltstore: create bucket %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("metadata: create buckets: %w", err)
	}

	return &BoltStore{db: db, now: time.Now}, nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error { return s.db.Close() }

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

// PutUser records a new account created at createdAt. It fails with
// ErrUserExists if the username is taken; the existing row is never
// overwritten.
func (s *BoltStore) PutUser(username string, salt vault.Salt, verifier vault.PasswordHash, createdAt time.Time) error {
	if username == "" {
		return ErrInvalidUsername
	}
	data, err := encodeGob(userRecord{
		Salt:      salt.Bytes(),
		Verifier:  verifier.Bytes(),
		CreatedAt: createdAt.UnixNano(),
	})
	if err != nil {
		return fmt.Errorf("metadata: encode user: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		users := tx.Bucket(bucketUsers)
		if users.Get([]byte(username)) != nil {
			return ErrUserExists
		}
		if err := users.Put([]byte(username), data); err != nil {
			return fmt.Errorf("boltstore: put user: %w", err)
		}
		return nil
	})
}

// Salt returns the account's KDF salt.
func (s *BoltStore) Salt(username string) (vault.Salt, error) {
	rec, err := s.user(username)
	if err != nil {
		return vault.Salt{}, err
	}
	salt, err := vault.SaltFromBytes(rec.Salt)
	if err != nil {
		return vault.Salt{}, fmt.Errorf("metadata: corrupt salt for %q: %w", username, err)
	}
	return salt, nil
}

// Verifier returns the account's stored password hash.
func (s *BoltStore) Verifier(username string) (vault.PasswordHash, error) {
	rec, err := s.user(username)
	if err != nil {
		return vault.PasswordHash{}, err
	}
	h, err := vault.PasswordHashFromBytes(rec.Verifier)
	if err != nil {
		return vault.PasswordHash{}, fmt.Errorf("metadata: corrupt verifier for %q: %w", username, err)
	}
	return h, nil
}

// CreatedAt returns when the current account named username was created.
// A username that was deleted and registered again reports the later time.
func (s *BoltStore) CreatedAt(username string) (time.Time, error) {
	rec, err := s.user(username)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(0, rec.CreatedAt), nil
}

func (s *BoltStore) user(username string) (*userRecord, error) {
	var rec userRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketUsers).Get([]byte(username))
		if data == nil {
			return ErrUnknownUser
		}
		if err := decodeGob(data, &rec); err != nil {
			return fmt.Errorf("boltstore: decode user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// DeleteUser removes an account with all of its folders and files, and
// returns the ids of the removed files so the caller can delete the blobs.
func (s *BoltStore) DeleteUser(username string) ([]string, error) {
	var ids []string
	err := s.db.Update(func(tx *bbolt.Tx) error {
		users := tx.Bucket(bucketUsers)
		if users.Get([]byte(username)) == nil {
			return ErrUnknownUser
		}

		if ub := tx.Bucket(bucketFiles).Bucket([]byte(username)); ub != nil {
			err := ub.ForEachBucket(func(folder []byte) error {
				return ub.Bucket(folder).ForEach(func(_, v []byte) error {
					ids = append(ids, string(v))
					return nil
				})
			})
			if err != nil {
				return fmt.Errorf("boltstore: collect file ids: %w", err)
			}
			if err := tx.Bucket(bucketFiles).DeleteBucket([]byte(username)); err != nil {
				return fmt.Errorf("boltstore: delete files: %w", err)
			}
		}
		if tx.Bucket(bucketFolders).Bucket([]byte(username)) != nil {
			if err := tx.Bucket(bucketFolders).DeleteBucket([]byte(username)); err != nil {
				return fmt.Errorf("boltstore: delete folders: %w", err)
			}
		}
		if err := users.Delete([]byte(username)); err != nil {
			return fmt.Errorf("boltstore: delete user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// ---------------------------------------------------------------------------
// Folders
// ---------------------------------------------------------------------------

// PutFolder records an encrypted folder name for username.
func (s *BoltStore) PutFolder(username string, name FolderCipher) error {
	created := make([]byte, 8)
	binary.BigEndian.PutUint64(created, uint64(s.now().UnixNano()))

	return s.db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketUsers).Get([]byte(username)) == nil {
			return ErrUnknownUser
		}
		ub, err := tx.Bucket(bucketFolders).CreateBucketIfNotExists([]byte(username))
		if err != nil {
			return fmt.Errorf("boltstore: create folder bucket: %w", err)
		}
		key := name.Bytes()
		if ub.Get(key) != nil {
			return ErrFolderExists
		}
		if err := ub.Put(key, created); err != nil {
			return fmt.Errorf("boltstore: put folder: %w", err)
		}
		return nil
	})
}

// Folders returns the encrypted folder names of username.
func (s *BoltStore) Folders(username string) ([]FolderCipher, error) {
	var out []FolderCipher
	err := s.db.View(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketUsers).Get([]byte(username)) == nil {
			return ErrUnknownUser
		}
		ub := tx.Bucket(bucketFolders).Bucket([]byte(username))
		if ub == nil {
			return nil
		}
		return ub.ForEach(func(k, _ []byte) error {
			out = append(out, vault.CipherFromBytes[vault.FolderName](k))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// hasFolder reports whether folder is recorded for username.
func hasFolder(tx *bbolt.Tx, username string, folder FolderCipher) bool {
	ub := tx.Bucket(bucketFolders).Bucket([]byte(username))
	return ub != nil && ub.Get(folder.Bytes()) != nil
}

// ---------------------------------------------------------------------------
// Files
// ---------------------------------------------------------------------------

// PutFile records that the blob fileID holds the file described by info in
// folder. The folder must exist.
func (s *BoltStore) PutFile(username string, folder FolderCipher, info InfoCipher, fileID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketUsers).Get([]byte(username)) == nil {
			return ErrUnknownUser
		}
		if !hasFolder(tx, username, folder) {
			return fmt.Errorf("%w: folder", ErrNotFound)
		}
		ub, err := tx.Bucket(bucketFiles).CreateBucketIfNotExists([]byte(username))
		if err != nil {
			return fmt.Errorf("boltstore: create user file bucket: %w", err)
		}
		fb, err := ub.CreateBucketIfNotExists(folder.Bytes())
		if err != nil {
			return fmt.Errorf("boltstore: create folder file bucket: %w", err)
		}
		key := info.Bytes()
		if fb.Get(key) != nil {
			return ErrFileExists
		}
		if err := fb.Put(key, []byte(fileID)); err != nil {
			return fmt.Errorf("boltstore: put file: %w", err)
		}
		return nil
	})
}

// Files returns the encrypted file descriptors in folder.
func (s *BoltStore) Files(username string, folder FolderCipher) ([]InfoCipher, error) {
	var out []InfoCipher
	err := s.db.View(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketUsers).Get([]byte(username)) == nil {
			return ErrUnknownUser
		}
		if !hasFolder(tx, username, folder) {
			return fmt.Errorf("%w: folder", ErrNotFound)
		}
		fb := fileBucket(tx, username, folder)
		if fb == nil {
			return nil
		}
		return fb.ForEach(func(k, _ []byte) error {
			out = append(out, vault.CipherFromBytes[vault.FileInfo](k))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FileID returns the blob id recorded for info in folder.
func (s *BoltStore) FileID(username string, folder FolderCipher, info InfoCipher) (string, error) {
	var id string
	err := s.db.View(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketUsers).Get([]byte(username)) == nil {
			return ErrUnknownUser
		}
		fb := fileBucket(tx, username, folder)
		if fb == nil {
			return fmt.Errorf("%w: file", ErrNotFound)
		}
		v := fb.Get(info.Bytes())
		if v == nil {
			return fmt.Errorf("%w: file", ErrNotFound)
		}
		id = string(v)
		return nil
	})
	return id, err
}

func fileBucket(tx *bbolt.Tx, username string, folder FolderCipher) *bbolt.Bucket {
	ub := tx.Bucket(bucketFiles).Bucket([]byte(username))
	if ub == nil {
		return nil
	}
	return ub.Bucket(folder.Bytes())
}

// encodeGob serializes a value using gob encoding.
func encodeGob(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeGob deserializes gob-encoded data into a value.
func decodeGob(data []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}
