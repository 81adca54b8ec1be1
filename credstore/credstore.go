// Package credstore persists per-session protocol credentials.
//
// Each session owns one directory under the store root, named by the
// session id. The credential blob inside is opaque to this package; it
// is written on every credential-rotation event and read by the
// protocol engine at connection start. When the store is constructed
// with a passphrase, blobs are sealed at rest in an authenticated
// encryption envelope.
package credstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

const credFileName = "creds.bin"

// ErrNoCredentials indicates no credential blob is persisted for the
// session.
var ErrNoCredentials = errors.New("no credentials for session")

// Store is a durable per-session credential store rooted at a
// directory.
type Store struct {
	root       string
	passphrase string
}

// Options configures optional store behavior.
type Options struct {
	// Passphrase, when non-empty, seals credential blobs at rest.
	Passphrase string
}

// New creates a store rooted at dir, creating the directory if needed.
func New(dir string, opts *Options) (*Store, error) {
	if dir == "" {
		return nil, errors.New("credstore: empty root directory")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("credstore: create root: %w", err)
	}
	s := &Store{root: dir}
	if opts != nil {
		s.passphrase = opts.Passphrase
	}
	return s, nil
}

// List returns the ids of every session with a persisted credential
// directory.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("credstore: list: %w", err)
	}
	var ids []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if id := strings.TrimSpace(e.Name()); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Save writes the credential blob for the session, sealing it when a
// passphrase is configured. The write is atomic: a rename over the
// previous blob.
func (s *Store) Save(id string, blob []byte) error {
	dir := s.Path(id)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("credstore: create session dir: %w", err)
	}
	data := blob
	if s.passphrase != "" {
		sealed, err := Seal(s.passphrase, blob)
		if err != nil {
			return fmt.Errorf("credstore: seal: %w", err)
		}
		data = sealed
	}
	tmp := filepath.Join(dir, credFileName+".tmp")
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("credstore: write: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(dir, credFileName)); err != nil {
		return fmt.Errorf("credstore: commit: %w", err)
	}
	logrus.WithFields(logrus.Fields{
		"session": id,
		"sealed":  s.passphrase != "",
		"bytes":   len(blob),
	}).Debug("Credentials persisted")
	return nil
}

// Load reads the credential blob for the session, opening the sealed
// envelope when a passphrase is configured.
func (s *Store) Load(id string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.Path(id), credFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoCredentials
		}
		return nil, fmt.Errorf("credstore: read: %w", err)
	}
	if s.passphrase == "" {
		return data, nil
	}
	blob, err := Open(s.passphrase, data)
	if err != nil {
		return nil, fmt.Errorf("credstore: open: %w", err)
	}
	return blob, nil
}

// Remove deletes the session's credential directory and everything in
// it.
func (s *Store) Remove(id string) error {
	if err := os.RemoveAll(s.Path(id)); err != nil {
		return fmt.Errorf("credstore: remove: %w", err)
	}
	return nil
}

// Path returns the session's credential directory.
func (s *Store) Path(id string) string {
	return filepath.Join(s.root, id)
}
