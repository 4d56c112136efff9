package vpnconfig

import (
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/curve25519"

	"github.com/yllada/vpn-connector/common"
	"github.com/yllada/vpn-connector/vpn"
)

// RenderWireGuard produces a wg-quick INI for the descriptor. The private
// key is the resolved credential; the address is the client tunnel address
// assigned by the provider.
func RenderWireGuard(d *vpn.Descriptor, privateKey, address string) (string, error) {
	if d.ServerPublicKey == "" {
		return "", fmt.Errorf("descriptor missing server public key")
	}
	if _, err := base64.StdEncoding.DecodeString(privateKey); err != nil {
		return "", common.WrapError(err, "private key is not valid base64")
	}

	port := d.ServerPort
	if port == 0 {
		port = 51820
	}

	var b strings.Builder
	b.WriteString("[Interface]\n")
	fmt.Fprintf(&b, "PrivateKey = %s\n", privateKey)
	if address != "" {
		fmt.Fprintf(&b, "Address = %s\n", address)
	}
	b.WriteString("DNS = 10.2.0.1\n")
	b.WriteString("\n[Peer]\n")
	fmt.Fprintf(&b, "PublicKey = %s\n", d.ServerPublicKey)
	b.WriteString("AllowedIPs = 0.0.0.0/0\n")
	fmt.Fprintf(&b, "Endpoint = %s:%d\n", d.ServerIP, port)
	return b.String(), nil
}

// PublicKeyFromPrivate derives the base64 X25519 public key for a base64
// private key, the same derivation wg(8) performs.
func PublicKeyFromPrivate(privateKey string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(privateKey)
	if err != nil {
		return "", common.WrapError(err, "private key is not valid base64")
	}
	if len(raw) != curve25519.ScalarSize {
		return "", fmt.Errorf("private key has %d bytes, want %d", len(raw), curve25519.ScalarSize)
	}

	pub, err := curve25519.X25519(raw, curve25519.Basepoint)
	if err != nil {
		return "", common.WrapError(err, "failed to derive public key")
	}
	return base64.StdEncoding.EncodeToString(pub), nil
}
