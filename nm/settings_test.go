package nm

import (
	"testing"

	"github.com/godbus/dbus/v5"

	"github.com/yllada/vpn-connector/common"
	"github.com/yllada/vpn-connector/vpn"
)

func testDescriptor(protocol string) *vpn.Descriptor {
	return &vpn.Descriptor{
		Backend:  common.BackendNetworkManager,
		Protocol: protocol,
		ServerID: "srv1",
		ServerIP: "198.51.100.7",
		Prefix:   persistencePrefixes[protocol],
	}
}

func vpnData(t *testing.T, s settings) map[string]string {
	t.Helper()
	data, ok := s["vpn"]["data"].Value().(map[string]string)
	if !ok {
		t.Fatalf("vpn data has type %T", s["vpn"]["data"].Value())
	}
	return data
}

func TestOpenVPNSettings(t *testing.T) {
	tests := []struct {
		name     string
		protocol string
		port     int
		wantPort string
		wantTCP  string
	}{
		{"udp default port", common.ProtocolOpenVPNUDP, 0, "1194", "no"},
		{"tcp default port", common.ProtocolOpenVPNTCP, 0, "443", "yes"},
		{"explicit port", common.ProtocolOpenVPNUDP, 5060, "5060", "no"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := testDescriptor(tt.protocol)
			d.ServerPort = tt.port

			s := openvpnSettings(d, "uuid-1", "user", "pass")
			data := vpnData(t, s)

			if data["remote"] != "198.51.100.7" {
				t.Errorf("remote: got %q", data["remote"])
			}
			if data["port"] != tt.wantPort {
				t.Errorf("port: got %q, want %q", data["port"], tt.wantPort)
			}
			if data["proto-tcp"] != tt.wantTCP {
				t.Errorf("proto-tcp: got %q, want %q", data["proto-tcp"], tt.wantTCP)
			}
			if data["username"] != "user" {
				t.Errorf("username: got %q", data["username"])
			}

			secrets, _ := s["vpn"]["secrets"].Value().(map[string]string)
			if secrets["password"] != "pass" {
				t.Error("password secret not carried in the vpn section")
			}
			if svc, _ := s["vpn"]["service-type"].Value().(string); svc != openvpnService {
				t.Errorf("service-type: got %q", svc)
			}
		})
	}
}

func TestWireGuardSettings(t *testing.T) {
	d := testDescriptor(common.ProtocolWireGuard)
	d.ServerPublicKey = "pubkey="

	s := wireguardSettings(d, "uuid-1", "privkey=")

	if typ, _ := s["connection"]["type"].Value().(string); typ != "wireguard" {
		t.Errorf("connection type: got %q", typ)
	}
	if _, ok := s["connection"]["interface-name"]; !ok {
		t.Error("wireguard profile has no interface name")
	}
	if key, _ := s["wireguard"]["private-key"].Value().(string); key != "privkey=" {
		t.Errorf("private key: got %q", key)
	}
}

func firstPeer(t *testing.T, s settings) map[string]dbus.Variant {
	t.Helper()
	peers, ok := s["wireguard"]["peers"].Value().([]map[string]dbus.Variant)
	if !ok || len(peers) == 0 {
		t.Fatalf("no peers in wireguard section: %v", s["wireguard"]["peers"].Value())
	}
	return peers[0]
}

func TestWireGuardPeer(t *testing.T) {
	d := testDescriptor(common.ProtocolWireGuard)
	d.ServerPublicKey = "pubkey="
	d.ServerPort = 443

	s := wireguardSettings(d, "uuid-1", "privkey=")
	peer := firstPeer(t, s)

	if got, _ := peer["public-key"].Value().(string); got != "pubkey=" {
		t.Errorf("peer public key: got %q", got)
	}
	if got, _ := peer["endpoint"].Value().(string); got != "198.51.100.7:443" {
		t.Errorf("peer endpoint: got %q", got)
	}
	if got, _ := peer["allowed-ips"].Value().([]string); len(got) != 1 || got[0] != "0.0.0.0/0" {
		t.Errorf("allowed ips: got %v", got)
	}
}

func TestIKEv2Settings(t *testing.T) {
	d := testDescriptor(common.ProtocolIKEv2)
	s := ikev2Settings(d, "uuid-1", "user", "pass")

	if svc, _ := s["vpn"]["service-type"].Value().(string); svc != strongswanService {
		t.Errorf("service-type: got %q", svc)
	}
	data := vpnData(t, s)
	if data["address"] != "198.51.100.7" || data["user"] != "user" || data["method"] != "eap" {
		t.Errorf("unexpected strongswan data: %v", data)
	}
}

func TestProfileID(t *testing.T) {
	d := testDescriptor(common.ProtocolOpenVPNUDP)
	if got := profileID(d); got != "nm-ovpn-udp-srv1" {
		t.Errorf("profile id: got %q, want %q", got, "nm-ovpn-udp-srv1")
	}
}

func TestIPv6Ignored(t *testing.T) {
	d := testDescriptor(common.ProtocolOpenVPNUDP)
	s := openvpnSettings(d, "uuid-1", "user", "pass")
	if method, _ := s["ipv6"]["method"].Value().(string); method != "ignore" {
		t.Errorf("ipv6 method: got %q, want ignore", method)
	}
}
