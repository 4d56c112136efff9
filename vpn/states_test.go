package vpn

import (
	"strings"
	"testing"
)

func TestConnectionStatusString(t *testing.T) {
	tests := []struct {
		status ConnectionStatus
		want   string
	}{
		{StatusDisconnected, "Disconnected"},
		{StatusConnecting, "Connecting..."},
		{StatusConnected, "Connected"},
		{StatusDisconnecting, "Disconnecting..."},
		{StatusError, "Error"},
		{StatusTransient, "Initializing"},
		{ConnectionStatus(99), "Unknown"},
	}

	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("String(%d): got %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestConnectionStatusIsTerminal(t *testing.T) {
	terminal := map[ConnectionStatus]bool{
		StatusDisconnected:  true,
		StatusConnecting:    false,
		StatusConnected:     false,
		StatusDisconnecting: false,
		StatusError:         true,
		StatusTransient:     false,
	}
	for status, want := range terminal {
		if got := status.IsTerminal(); got != want {
			t.Errorf("IsTerminal(%s): got %v, want %v", status, got, want)
		}
	}
}

func TestDescriptorValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(d *Descriptor)
		wantErr bool
	}{
		{"complete", func(d *Descriptor) {}, false},
		{"no unique id required", func(d *Descriptor) { d.UniqueID = "" }, false},
		{"missing backend", func(d *Descriptor) { d.Backend = "" }, true},
		{"missing protocol", func(d *Descriptor) { d.Protocol = " " }, true},
		{"missing server id", func(d *Descriptor) { d.ServerID = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := testDescriptor("srv1")
			tt.mutate(d)
			err := d.Validate()
			if tt.wantErr && err == nil {
				t.Error("Validate: expected an error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate: %v", err)
			}
		})
	}

	var nilDesc *Descriptor
	if err := nilDesc.Validate(); err == nil {
		t.Error("Validate on nil descriptor: expected an error")
	}
}

func TestDescriptorClone(t *testing.T) {
	d := testDescriptor("srv1")
	d.UniqueID = "id1"

	c := d.Clone()
	c.UniqueID = "id2"
	if d.UniqueID != "id1" {
		t.Error("mutating the clone changed the original")
	}

	var nilDesc *Descriptor
	if nilDesc.Clone() != nil {
		t.Error("Clone of nil descriptor should be nil")
	}
}

func TestDescriptorStringOmitsCredentials(t *testing.T) {
	d := testDescriptor("srv1")
	d.CredentialsRef = "keyring://secret-entry"

	s := d.String()
	if s == "" {
		t.Fatal("empty String()")
	}
	if strings.Contains(s, "secret-entry") {
		t.Errorf("String() leaks the credentials reference: %q", s)
	}
}
