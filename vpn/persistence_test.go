package vpn

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/yllada/vpn-connector/common"
)

func TestPersistenceRoundTrip(t *testing.T) {
	store := newStoreAt(t, t.TempDir())

	d := &Descriptor{
		Backend:        common.BackendNetworkManager,
		Protocol:       common.ProtocolWireGuard,
		ServerID:       "srv42",
		ServerName:     "Example#42",
		ServerIP:       "203.0.113.9",
		CredentialsRef: "vpn-connector/srv42",
		Prefix:         "nm-wg",
		UniqueID:       "nm-wg-7f2c",
		KillSwitch:     common.KillSwitchAlwaysOn,
	}
	if err := store.Save(d); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got == nil {
		t.Fatal("Load returned nil after Save")
	}
	if *got != *d {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, d)
	}
}

func TestPersistenceLoadAbsent(t *testing.T) {
	store := newStoreAt(t, t.TempDir())
	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != nil {
		t.Errorf("Load on empty store: got %+v, want nil", got)
	}
}

func TestPersistenceSaveReplaces(t *testing.T) {
	store := newStoreAt(t, t.TempDir())

	first := testDescriptor("srv1")
	first.UniqueID = "id1"
	second := testDescriptor("srv2")
	second.UniqueID = "id2"

	if err := store.Save(first); err != nil {
		t.Fatalf("Save first: %v", err)
	}
	if err := store.Save(second); err != nil {
		t.Fatalf("Save second: %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got == nil || got.ServerID != "srv2" {
		t.Errorf("Load after replace: got %+v, want srv2", got)
	}
}

func TestPersistenceClear(t *testing.T) {
	store := newStoreAt(t, t.TempDir())

	d := testDescriptor("srv1")
	d.UniqueID = "id1"
	if err := store.Save(d); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if got, _ := store.Load(); got != nil {
		t.Errorf("Load after clear: got %+v, want nil", got)
	}

	// Clearing an already-empty store is not an error.
	if err := store.Clear(); err != nil {
		t.Errorf("Clear on empty store: %v", err)
	}
}

func TestPersistenceDiscardsBadRecords(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"corrupt yaml", ":\n  - ]["},
		{"missing unique id", "backend: networkmanager\nprotocol: openvpn-udp\nserver_id: srv1\n"},
		{"missing backend", "protocol: openvpn-udp\nserver_id: srv1\nunique_id: id1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			store := newStoreAt(t, dir)
			path := filepath.Join(dir, common.ConnectionFileName)
			if err := os.WriteFile(path, []byte(tt.content), 0600); err != nil {
				t.Fatalf("writing record: %v", err)
			}

			got, err := store.Load()
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if got != nil {
				t.Errorf("bad record was not discarded: %+v", got)
			}
		})
	}
}

func TestPersistenceFileMode(t *testing.T) {
	dir := t.TempDir()
	store := newStoreAt(t, dir)

	d := testDescriptor("srv1")
	d.UniqueID = "id1"
	if err := store.Save(d); err != nil {
		t.Fatalf("Save: %v", err)
	}

	info, err := os.Stat(filepath.Join(dir, common.ConnectionFileName))
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		t.Errorf("record file mode: got %o, want 0600", mode)
	}
}
