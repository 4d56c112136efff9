package keyring

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/yllada/vpn-connector/common"
)

// localStore builds a store pinned to the encrypted file backend, so tests
// never depend on a session keyring being present.
func localStore(t *testing.T, dir string) *Store {
	t.Helper()
	s := &Store{
		useLocal: true,
		file:     filepath.Join(dir, localStoreName),
	}
	s.initLocal()
	return s
}

func TestStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := localStore(t, dir)

	if err := s.Store("vpn-connector/srv1", "user:pass"); err != nil {
		t.Fatalf("Store: %v", err)
	}

	secret, err := s.Get("vpn-connector/srv1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if secret != "user:pass" {
		t.Errorf("secret: got %q", secret)
	}

	// A fresh store over the same directory must decrypt what the first
	// one wrote.
	reopened := localStore(t, dir)
	secret, err = reopened.Get("vpn-connector/srv1")
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if secret != "user:pass" {
		t.Errorf("secret after reopen: got %q", secret)
	}
}

func TestStoreDelete(t *testing.T) {
	s := localStore(t, t.TempDir())

	if err := s.Store("ref", "secret"); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := s.Delete("ref"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get("ref"); !errors.Is(err, common.ErrCredentialsNotFound) {
		t.Errorf("Get after delete: got %v, want %v", err, common.ErrCredentialsNotFound)
	}

	// Deleting again is a no-op.
	if err := s.Delete("ref"); err != nil {
		t.Errorf("repeated Delete: %v", err)
	}
}

func TestStoreMissingReference(t *testing.T) {
	s := localStore(t, t.TempDir())
	if _, err := s.Get("never-stored"); !errors.Is(err, common.ErrCredentialsNotFound) {
		t.Errorf("Get: got %v, want %v", err, common.ErrCredentialsNotFound)
	}
}

func TestStoreRejectsEmptyInput(t *testing.T) {
	s := localStore(t, t.TempDir())
	if err := s.Store("", "secret"); err == nil {
		t.Error("Store with empty reference should fail")
	}
	if err := s.Store("ref", ""); err == nil {
		t.Error("Store with empty secret should fail")
	}
	if _, err := s.Get(""); err == nil {
		t.Error("Get with empty reference should fail")
	}
}

func TestStoreSurvivesTampering(t *testing.T) {
	dir := t.TempDir()
	s := localStore(t, dir)
	if err := s.Store("ref", "secret"); err != nil {
		t.Fatalf("Store: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, localStoreName), []byte("garbage"), 0600); err != nil {
		t.Fatalf("tampering: %v", err)
	}

	// A tampered file must not break startup; it just loses its contents.
	reopened := localStore(t, dir)
	if _, err := reopened.Get("ref"); !errors.Is(err, common.ErrCredentialsNotFound) {
		t.Errorf("Get from tampered store: got %v, want %v", err, common.ErrCredentialsNotFound)
	}
}

func TestStoreFileMode(t *testing.T) {
	dir := t.TempDir()
	s := localStore(t, dir)
	if err := s.Store("ref", "secret"); err != nil {
		t.Fatalf("Store: %v", err)
	}

	info, err := os.Stat(filepath.Join(dir, localStoreName))
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		t.Errorf("credential file mode: got %o, want 0600", mode)
	}
}
