package vpnconfig

import (
	"encoding/base64"
	"os"
	"strings"
	"testing"

	"github.com/yllada/vpn-connector/common"
	"github.com/yllada/vpn-connector/vpn"
)

func descriptorFor(protocol string) *vpn.Descriptor {
	return &vpn.Descriptor{
		Backend:  common.BackendNative,
		Protocol: protocol,
		ServerID: "srv1",
		ServerIP: "198.51.100.7",
	}
}

func TestRenderOpenVPN(t *testing.T) {
	tests := []struct {
		name     string
		protocol string
		port     int
		want     []string
		absent   []string
	}{
		{
			"udp defaults", common.ProtocolOpenVPNUDP, 0,
			[]string{"proto udp", "remote 198.51.100.7 1194", "cipher AES-256-GCM"},
			[]string{"pull-filter"},
		},
		{
			"tcp defaults", common.ProtocolOpenVPNTCP, 0,
			[]string{"proto tcp", "remote 198.51.100.7 443"},
			nil,
		},
		{
			"explicit port", common.ProtocolOpenVPNUDP, 5060,
			[]string{"remote 198.51.100.7 5060"},
			nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := descriptorFor(tt.protocol)
			d.ServerPort = tt.port

			cfg, err := RenderOpenVPN(d, false)
			if err != nil {
				t.Fatalf("RenderOpenVPN: %v", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(cfg, w) {
					t.Errorf("config missing %q:\n%s", w, cfg)
				}
			}
			for _, a := range tt.absent {
				if strings.Contains(cfg, a) {
					t.Errorf("config unexpectedly contains %q", a)
				}
			}
		})
	}
}

func TestRenderOpenVPNIPv6Filters(t *testing.T) {
	cfg, err := RenderOpenVPN(descriptorFor(common.ProtocolOpenVPNUDP), true)
	if err != nil {
		t.Fatalf("RenderOpenVPN: %v", err)
	}
	if !strings.Contains(cfg, `pull-filter ignore "route-ipv6"`) {
		t.Errorf("ipv6 filters missing:\n%s", cfg)
	}
}

func TestRenderWireGuard(t *testing.T) {
	priv := base64.StdEncoding.EncodeToString(make([]byte, 32))

	d := descriptorFor(common.ProtocolWireGuard)
	d.ServerPublicKey = "AdtJ8hO1NSbJ7U9krrYnMODHrYJwRsIN/C91gjbshW4="
	d.ServerPort = 443

	cfg, err := RenderWireGuard(d, priv, "10.2.0.2/32")
	if err != nil {
		t.Fatalf("RenderWireGuard: %v", err)
	}
	for _, w := range []string{
		"[Interface]",
		"PrivateKey = " + priv,
		"Address = 10.2.0.2/32",
		"[Peer]",
		"PublicKey = " + d.ServerPublicKey,
		"Endpoint = 198.51.100.7:443",
		"AllowedIPs = 0.0.0.0/0",
	} {
		if !strings.Contains(cfg, w) {
			t.Errorf("config missing %q:\n%s", w, cfg)
		}
	}
}

func TestRenderWireGuardRejectsBadKey(t *testing.T) {
	d := descriptorFor(common.ProtocolWireGuard)
	d.ServerPublicKey = "AdtJ8hO1NSbJ7U9krrYnMODHrYJwRsIN/C91gjbshW4="
	if _, err := RenderWireGuard(d, "not base64!!", ""); err == nil {
		t.Error("expected an error for a malformed private key")
	}

	d.ServerPublicKey = ""
	if _, err := RenderWireGuard(d, "AAAA", ""); err == nil {
		t.Error("expected an error without a server public key")
	}
}

func TestPublicKeyFromPrivate(t *testing.T) {
	// Zero scalars are clamped by X25519, so even an all-zero private key
	// derives a stable, well-known public key.
	priv := base64.StdEncoding.EncodeToString(make([]byte, 32))
	pub, err := PublicKeyFromPrivate(priv)
	if err != nil {
		t.Fatalf("PublicKeyFromPrivate: %v", err)
	}
	if pub == "" || pub == priv {
		t.Errorf("suspicious public key %q", pub)
	}

	again, err := PublicKeyFromPrivate(priv)
	if err != nil {
		t.Fatalf("PublicKeyFromPrivate: %v", err)
	}
	if pub != again {
		t.Error("derivation is not deterministic")
	}

	if _, err := PublicKeyFromPrivate("AAAA"); err == nil {
		t.Error("expected an error for a short key")
	}
}

func TestWriteFileMode(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteFile(dir, "client.ovpn", "client\n")
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		t.Errorf("config file mode: got %o, want 0600", mode)
	}
}

func TestAuthFileContent(t *testing.T) {
	got := AuthFileContent("user", "pass")
	if got != "user\npass\n" {
		t.Errorf("auth file content: got %q", got)
	}
}
