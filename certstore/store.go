// Package certstore persists enrolled certificate material per user and
// evaluates certificate expiry before reuse.
//
// Layout: one directory per deployment under the home directory
// (~/.sapauth/certs), two files per user: <user>-chain.pem holding the
// full PEM chain and <user>-key.pem holding the private key, restricted
// to owner read/write.
package certstore

import (
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/smnsjas/go-sapauth/enroll"
)

const (
	// storeSubdir is the fixed subpath under the home directory.
	storeSubdir = ".sapauth/certs"

	chainSuffix = "-chain.pem"
	keySuffix   = "-key.pem"

	// DefaultExpiryBufferDays is how close to NotAfter a certificate
	// may get before it is treated as expired and re-enrolled.
	DefaultExpiryBufferDays = 1
)

// ErrNotFound is returned by Load when either file is absent.
var ErrNotFound = errors.New("certstore: no stored certificate")

// Store persists certificate material for one user.
type Store struct {
	dir  string
	user string
	now  func() time.Time
}

// New creates a store rooted under the current user's home directory.
func New(username string) (*Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("certstore: resolve home directory: %w", err)
	}
	return NewAt(filepath.Join(home, storeSubdir), username)
}

// NewAt creates a store rooted at an explicit directory.
func NewAt(dir, username string) (*Store, error) {
	if username == "" {
		return nil, errors.New("certstore: username is required")
	}
	return &Store{dir: dir, user: username, now: time.Now}, nil
}

// Paths returns the chain and key file paths. Only these paths, never
// raw key material, cross process boundaries.
func (s *Store) Paths() (chainPath, keyPath string) {
	return filepath.Join(s.dir, s.user+chainSuffix),
		filepath.Join(s.dir, s.user+keySuffix)
}

// Save writes the material, creating the directory if absent. The key
// file is restricted to owner read/write.
func (s *Store) Save(m *enroll.Material) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("certstore: create %s: %w", s.dir, err)
	}

	chainPath, keyPath := s.Paths()
	if err := os.WriteFile(chainPath, []byte(m.FullChain), 0o644); err != nil {
		return fmt.Errorf("certstore: write chain: %w", err)
	}
	if err := os.WriteFile(keyPath, []byte(m.PrivateKey), 0o600); err != nil {
		return fmt.Errorf("certstore: write key: %w", err)
	}
	return nil
}

// Load reads the stored material back. Returns ErrNotFound if either
// file is missing.
func (s *Store) Load() (*enroll.Material, error) {
	chainPath, keyPath := s.Paths()

	chain, err := os.ReadFile(chainPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("certstore: read chain: %w", err)
	}
	key, err := os.ReadFile(keyPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("certstore: read key: %w", err)
	}

	return &enroll.Material{
		FullChain:  string(chain),
		PrivateKey: string(key),
	}, nil
}

// Exists is a fast existence probe of both files.
func (s *Store) Exists() bool {
	chainPath, keyPath := s.Paths()
	if _, err := os.Stat(chainPath); err != nil {
		return false
	}
	if _, err := os.Stat(keyPath); err != nil {
		return false
	}
	return true
}

// IsExpired parses the leaf certificate of the PEM chain and reports
// whether now + bufferDays reaches its NotAfter. A chain that cannot be
// parsed is treated as expired so it gets re-enrolled.
func (s *Store) IsExpired(certPEM string, bufferDays int) bool {
	block, _ := pem.Decode([]byte(certPEM))
	if block == nil || block.Type != "CERTIFICATE" {
		return true
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return true
	}

	buffer := time.Duration(bufferDays) * 24 * time.Hour
	return !s.now().Add(buffer).Before(cert.NotAfter)
}
