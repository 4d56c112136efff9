package nm

import (
	"fmt"
	"strconv"

	"github.com/godbus/dbus/v5"

	"github.com/yllada/vpn-connector/common"
	"github.com/yllada/vpn-connector/vpn"
)

const (
	openvpnService    = "org.freedesktop.NetworkManager.openvpn"
	strongswanService = "org.freedesktop.NetworkManager.strongswan"
)

// Default ports per protocol, used when the descriptor does not name one.
const (
	defaultPortOpenVPNUDP = 1194
	defaultPortOpenVPNTCP = 443
	defaultPortWireGuard  = 51820
)

// profileID builds the human-visible NetworkManager connection id. The
// prefix keeps profiles created here apart from user-managed ones.
func profileID(d *vpn.Descriptor) string {
	return fmt.Sprintf("%s-%s", d.Prefix, d.ServerID)
}

func connectionSection(d *vpn.Descriptor, uuid, connType string) map[string]dbus.Variant {
	section := map[string]dbus.Variant{
		"id":          dbus.MakeVariant(profileID(d)),
		"uuid":        dbus.MakeVariant(uuid),
		"type":        dbus.MakeVariant(connType),
		"autoconnect": dbus.MakeVariant(false),
	}
	if connType == "wireguard" {
		section["interface-name"] = dbus.MakeVariant(profileID(d))
	}
	return section
}

func ipSections(s settings) {
	s["ipv4"] = map[string]dbus.Variant{
		"method": dbus.MakeVariant("auto"),
	}
	// IPv6 stays out of the tunnel; the leak protection policy blocks it
	// host-wide while a connection exists.
	s["ipv6"] = map[string]dbus.Variant{
		"method": dbus.MakeVariant("ignore"),
	}
}

// openvpnSettings builds the profile for the NetworkManager OpenVPN plugin.
// The username travels in the profile data; the password rides along as a
// plugin secret so it never touches disk outside the keyring.
func openvpnSettings(d *vpn.Descriptor, uuid, username, password string) settings {
	tcp := d.Protocol == common.ProtocolOpenVPNTCP
	port := d.ServerPort
	if port == 0 {
		if tcp {
			port = defaultPortOpenVPNTCP
		} else {
			port = defaultPortOpenVPNUDP
		}
	}

	data := map[string]string{
		"remote":          d.ServerIP,
		"port":            strconv.Itoa(port),
		"connection-type": "password",
		"username":        username,
		"password-flags":  "0",
	}
	if tcp {
		data["proto-tcp"] = "yes"
	} else {
		data["proto-tcp"] = "no"
	}

	s := settings{
		"connection": connectionSection(d, uuid, "vpn"),
		"vpn": {
			"service-type": dbus.MakeVariant(openvpnService),
			"data":         dbus.MakeVariant(data),
			"secrets":      dbus.MakeVariant(map[string]string{"password": password}),
		},
	}
	ipSections(s)
	return s
}

// wireguardSettings builds a native WireGuard profile. The private key is
// the resolved credential; the peer is the server named by the descriptor.
func wireguardSettings(d *vpn.Descriptor, uuid, privateKey string) settings {
	port := d.ServerPort
	if port == 0 {
		port = defaultPortWireGuard
	}

	peer := map[string]dbus.Variant{
		"public-key":  dbus.MakeVariant(d.ServerPublicKey),
		"endpoint":    dbus.MakeVariant(fmt.Sprintf("%s:%d", d.ServerIP, port)),
		"allowed-ips": dbus.MakeVariant([]string{"0.0.0.0/0"}),
	}

	s := settings{
		"connection": connectionSection(d, uuid, "wireguard"),
		"wireguard": {
			"private-key":       dbus.MakeVariant(privateKey),
			"private-key-flags": dbus.MakeVariant(uint32(0)),
			"peers":             dbus.MakeVariant([]map[string]dbus.Variant{peer}),
		},
	}
	ipSections(s)
	return s
}

// ikev2Settings builds the profile for the NetworkManager strongSwan
// plugin, using EAP username/password authentication.
func ikev2Settings(d *vpn.Descriptor, uuid, username, password string) settings {
	s := settings{
		"connection": connectionSection(d, uuid, "vpn"),
		"vpn": {
			"service-type": dbus.MakeVariant(strongswanService),
			"data": dbus.MakeVariant(map[string]string{
				"address":        d.ServerIP,
				"user":           username,
				"method":         "eap",
				"virtual":        "yes",
				"password-flags": "0",
			}),
			"secrets": dbus.MakeVariant(map[string]string{"password": password}),
		},
	}
	ipSections(s)
	return s
}
