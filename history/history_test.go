package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yllada/vpn-connector/common"
	"github.com/yllada/vpn-connector/vpn"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func sampleState(status vpn.ConnectionStatus, at time.Time) vpn.State {
	return vpn.State{
		Status: status,
		Descriptor: &vpn.Descriptor{
			Backend:    common.BackendNetworkManager,
			Protocol:   common.ProtocolOpenVPNUDP,
			ServerID:   "srv1",
			ServerName: "Test#1",
		},
		At: at,
	}
}

func TestJournalRecordAndRecent(t *testing.T) {
	j := openTestJournal(t)
	now := time.Now()

	j.Record(sampleState(vpn.StatusConnecting, now.Add(-2*time.Second)))
	j.Record(sampleState(vpn.StatusConnected, now.Add(-1*time.Second)))
	failed := sampleState(vpn.StatusError, now)
	failed.Reason = errors.New("tls handshake failed")
	j.Record(failed)

	entries, err := j.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("entries: got %d, want 3", len(entries))
	}
	if entries[0].Status != vpn.StatusError.String() {
		t.Errorf("newest entry: got %q, want %q", entries[0].Status, vpn.StatusError)
	}
	if entries[0].Reason != "tls handshake failed" {
		t.Errorf("reason: got %q", entries[0].Reason)
	}
	if entries[2].Status != vpn.StatusConnecting.String() {
		t.Errorf("oldest entry: got %q, want %q", entries[2].Status, vpn.StatusConnecting)
	}
	if entries[1].ServerID != "srv1" || entries[1].Backend != common.BackendNetworkManager {
		t.Errorf("descriptor fields not recorded: %+v", entries[1])
	}
}

func TestJournalRecentLimit(t *testing.T) {
	j := openTestJournal(t)
	for i := 0; i < 10; i++ {
		j.Record(sampleState(vpn.StatusConnected, time.Now()))
	}

	entries, err := j.Recent(context.Background(), 4)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 4 {
		t.Errorf("entries: got %d, want 4", len(entries))
	}
}

func TestJournalPrune(t *testing.T) {
	j := openTestJournal(t)
	now := time.Now()

	j.Record(sampleState(vpn.StatusConnected, now.Add(-48*time.Hour)))
	j.Record(sampleState(vpn.StatusDisconnected, now.Add(-47*time.Hour)))
	j.Record(sampleState(vpn.StatusConnected, now))

	pruned, err := j.Prune(context.Background(), now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if pruned != 2 {
		t.Errorf("pruned: got %d, want 2", pruned)
	}

	entries, err := j.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("remaining entries: got %d, want 1", len(entries))
	}
}

func TestJournalNilDescriptor(t *testing.T) {
	j := openTestJournal(t)
	j.Record(vpn.State{Status: vpn.StatusDisconnected, At: time.Now()})

	entries, err := j.Recent(context.Background(), 1)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 1 || entries[0].Backend != "" {
		t.Errorf("entry without descriptor: %+v", entries)
	}
}
