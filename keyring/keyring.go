// Package keyring stores the secrets behind credential references. The
// system keyring is used when a Secret Service is available; otherwise the
// secrets live in an AES-GCM encrypted file keyed to this machine and user.
//
// Callers hand descriptors opaque references; only this package ever sees
// the secret material itself.
package keyring

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	zkeyring "github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"

	"github.com/yllada/vpn-connector/common"
)

const serviceName = "vpn-connector"

const localStoreName = ".credentials"

// Store is a credential store backed by the system keyring with an
// encrypted local fallback. It satisfies the CredentialStore contract used
// by the backends.
type Store struct {
	mu       sync.RWMutex
	useLocal bool
	local    map[string]string
	file     string
	key      []byte
}

// New creates a store, probing the system keyring once to decide on the
// backing. The fallback file lives under the user config directory.
func New() (*Store, error) {
	dir, err := common.GetConfigDir()
	if err != nil {
		return nil, err
	}
	return NewAt(dir), nil
}

// NewAt creates a store with the fallback file under an explicit directory.
func NewAt(dir string) *Store {
	s := &Store{
		file: filepath.Join(dir, localStoreName),
	}

	probe := serviceName + "-probe"
	if err := zkeyring.Set(serviceName, probe, "probe"); err == nil {
		zkeyring.Delete(serviceName, probe)
	} else {
		common.LogInfo("system keyring unavailable, using encrypted local storage")
		s.useLocal = true
	}
	if s.useLocal {
		s.initLocal()
	}
	return s
}

// initLocal derives the file encryption key from machine-local data and
// loads any previously stored secrets.
func (s *Store) initLocal() {
	hostname, _ := os.Hostname()
	seed := fmt.Sprintf("%s-%s-%s-%d", serviceName, hostname, machineID(), os.Getuid())
	sum := sha256.Sum256([]byte(seed))
	s.key = sum[:]

	s.local = make(map[string]string)
	data, err := os.ReadFile(s.file)
	if err != nil {
		return
	}
	plain, err := s.decrypt(data)
	if err != nil {
		common.LogWarn("discarding unreadable credential store: %v", err)
		return
	}
	if err := yaml.Unmarshal(plain, &s.local); err != nil {
		common.LogWarn("discarding corrupt credential store: %v", err)
		s.local = make(map[string]string)
	}
}

func machineID() string {
	data, err := os.ReadFile("/etc/machine-id")
	if err != nil {
		return "unknown-machine"
	}
	return strings.TrimSpace(string(data))
}

func (s *Store) saveLocal() error {
	data, err := yaml.Marshal(s.local)
	if err != nil {
		return common.WrapError(err, "failed to encode credential store")
	}
	sealed, err := s.encrypt(data)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.file), 0700); err != nil {
		return common.WrapError(err, "failed to create credential directory")
	}
	if err := os.WriteFile(s.file, sealed, 0600); err != nil {
		return common.WrapError(err, "failed to write credential store")
	}
	return nil
}

func (s *Store) encrypt(plain []byte) ([]byte, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, common.WrapError(err, "failed to initialize cipher")
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, common.WrapError(err, "failed to initialize cipher")
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, common.WrapError(err, "failed to generate nonce")
	}
	sealed := gcm.Seal(nonce, nonce, plain, nil)
	return []byte(base64.StdEncoding.EncodeToString(sealed)), nil
}

func (s *Store) decrypt(data []byte) ([]byte, error) {
	sealed, err := base64.StdEncoding.DecodeString(string(data))
	if err != nil {
		return nil, common.WrapError(err, "credential store is not valid base64")
	}
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, common.WrapError(err, "failed to initialize cipher")
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, common.WrapError(err, "failed to initialize cipher")
	}
	if len(sealed) < gcm.NonceSize() {
		return nil, errors.New("credential store is truncated")
	}
	nonce, sealed := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	return gcm.Open(nil, nonce, sealed, nil)
}

// Store saves the secret behind a reference.
func (s *Store) Store(ref, secret string) error {
	if ref == "" {
		return fmt.Errorf("%w: empty reference", common.ErrCredentialStorage)
	}
	if secret == "" {
		return fmt.Errorf("%w: empty secret", common.ErrCredentialStorage)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.useLocal {
		if err := zkeyring.Set(serviceName, ref, secret); err == nil {
			return nil
		}
		// Keyring refused mid-session; switch to the local fallback.
		common.LogWarn("system keyring rejected write, switching to local storage")
		s.useLocal = true
		s.initLocal()
	}

	s.local[ref] = secret
	return s.saveLocal()
}

// Get resolves a reference to its secret.
func (s *Store) Get(ref string) (string, error) {
	if ref == "" {
		return "", fmt.Errorf("%w: empty reference", common.ErrCredentialsNotFound)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.useLocal {
		secret, ok := s.local[ref]
		if !ok {
			return "", fmt.Errorf("%w: %s", common.ErrCredentialsNotFound, ref)
		}
		return secret, nil
	}

	secret, err := zkeyring.Get(serviceName, ref)
	if err != nil {
		return "", fmt.Errorf("%w: %s", common.ErrCredentialsNotFound, ref)
	}
	return secret, nil
}

// Delete removes the secret behind a reference. Deleting an absent
// reference is not an error.
func (s *Store) Delete(ref string) error {
	if ref == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.useLocal {
		delete(s.local, ref)
		return s.saveLocal()
	}

	if err := zkeyring.Delete(serviceName, ref); err != nil && !errors.Is(err, zkeyring.ErrNotFound) {
		return fmt.Errorf("%w: %v", common.ErrCredentialStorage, err)
	}
	return nil
}
