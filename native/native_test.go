package native

import (
	"testing"

	"github.com/yllada/vpn-connector/common"
)

func TestParseState(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  string
	}{
		{
			"connected",
			[]string{"1693000000,CONNECTED,SUCCESS,10.2.0.2,198.51.100.7,1194,,", "END"},
			"CONNECTED",
		},
		{
			"connecting",
			[]string{"1693000000,WAIT,,,,,,", "END"},
			"WAIT",
		},
		{
			"last state wins",
			[]string{"1693000000,WAIT,,,,,,", "1693000002,CONNECTED,SUCCESS,10.2.0.2,,,,", "END"},
			"CONNECTED",
		},
		{
			"realtime notices skipped",
			[]string{">INFO:OpenVPN Management Interface", "1693000000,RECONNECTING,tls-error,,,,,", "END"},
			"RECONNECTING",
		},
		{
			"garbage ignored",
			[]string{"SUCCESS: pid=1234", "not,a,state"},
			"",
		},
		{"empty", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseState(tt.lines); got != tt.want {
				t.Errorf("parseState: got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRunPropsRoundTrip(t *testing.T) {
	dir := t.TempDir()

	in := &runProps{
		PID:        4242,
		MgmtSocket: "/run/x.sock",
		ConfigPath: "/run/x.ovpn",
		AuthPath:   "/run/x.auth",
	}
	if err := saveProps(dir, "native-ovpn-udp-aaaa", in); err != nil {
		t.Fatalf("saveProps: %v", err)
	}

	out, err := loadProps(dir, "native-ovpn-udp-aaaa")
	if err != nil {
		t.Fatalf("loadProps: %v", err)
	}
	if out == nil || *out != *in {
		t.Errorf("round trip mismatch: got %+v, want %+v", out, in)
	}

	removeProps(dir, "native-ovpn-udp-aaaa")
	gone, err := loadProps(dir, "native-ovpn-udp-aaaa")
	if err != nil {
		t.Fatalf("loadProps after remove: %v", err)
	}
	if gone != nil {
		t.Errorf("record survived removal: %+v", gone)
	}
}

func TestLoadPropsAbsent(t *testing.T) {
	got, err := loadProps(t.TempDir(), "nothing")
	if err != nil {
		t.Fatalf("loadProps: %v", err)
	}
	if got != nil {
		t.Errorf("absent record: got %+v, want nil", got)
	}
}

func TestFactoryNew(t *testing.T) {
	f := NewFactory(nil, t.TempDir())

	if f.BackendID() != common.BackendNative {
		t.Errorf("backend id: got %q", f.BackendID())
	}

	for _, protocol := range f.Protocols() {
		b, err := f.New(protocol)
		if err != nil {
			t.Fatalf("New(%s): %v", protocol, err)
		}
		if b.ProtocolID() != protocol {
			t.Errorf("protocol id: got %q, want %q", b.ProtocolID(), protocol)
		}
		if b.PersistencePrefix() == "" {
			t.Errorf("empty persistence prefix for %s", protocol)
		}
	}

	if _, err := f.New(common.ProtocolIKEv2); err == nil {
		t.Error("expected an error for an unsupported protocol")
	}
}

func TestPidAlive(t *testing.T) {
	if pidAlive(0) || pidAlive(-1) {
		t.Error("pidAlive accepted a non-positive pid")
	}
}
