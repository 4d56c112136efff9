package vpn

import (
	"fmt"
	"strings"
)

// Descriptor identifies one logical VPN tunnel: which backend realizes it,
// over which protocol, to which server, and with which credentials. It is
// created when a caller requests a connection and persisted once the backend
// has assigned a UniqueID to the underlying OS-level profile.
//
// The pair (Prefix, UniqueID) identifies at most one live OS-level
// connection profile at any time. The prefix namespaces profile identifiers
// per backend+protocol so that profiles created by different connection
// managers never collide.
type Descriptor struct {
	// Backend is the backend identifier, e.g. "networkmanager" or "native".
	Backend string `yaml:"backend"`
	// Protocol is the protocol identifier, e.g. "openvpn-udp".
	Protocol string `yaml:"protocol"`
	// ServerID identifies the target server. Kept for bookkeeping so a
	// restored connection can still be attributed to its server.
	ServerID string `yaml:"server_id"`
	// ServerName is the human-readable server name, for diagnostics.
	ServerName string `yaml:"server_name,omitempty"`
	// ServerIP is the address the tunnel connects to.
	ServerIP string `yaml:"server_ip,omitempty"`
	// ServerPort is the port the tunnel connects to. Zero selects the
	// protocol default.
	ServerPort int `yaml:"server_port,omitempty"`
	// ServerPublicKey is the server's X25519 public key, required by
	// WireGuard and ignored by the other protocols.
	ServerPublicKey string `yaml:"server_public_key,omitempty"`
	// CredentialsRef is an opaque reference resolved through the
	// credential store at setup time. The descriptor never carries
	// secrets.
	CredentialsRef string `yaml:"credentials_ref,omitempty"`
	// Prefix namespaces the OS-level profile identifier per
	// backend+protocol.
	Prefix string `yaml:"persistence_prefix"`
	// UniqueID is assigned by the backend once the underlying OS profile
	// exists. Empty until setup has run.
	UniqueID string `yaml:"unique_id,omitempty"`
	// KillSwitch records the kill switch mode active when the connection
	// was established, so a restart restores the same policy.
	KillSwitch string `yaml:"killswitch,omitempty"`
}

// Validate checks that the descriptor carries enough information to request
// a connection. UniqueID is intentionally not required: it only exists after
// the backend's setup step.
func (d *Descriptor) Validate() error {
	if d == nil {
		return fmt.Errorf("nil descriptor")
	}
	if strings.TrimSpace(d.Backend) == "" {
		return fmt.Errorf("descriptor missing backend")
	}
	if strings.TrimSpace(d.Protocol) == "" {
		return fmt.Errorf("descriptor missing protocol")
	}
	if strings.TrimSpace(d.ServerID) == "" {
		return fmt.Errorf("descriptor missing server id")
	}
	return nil
}

// Clone returns a deep copy of the descriptor.
func (d *Descriptor) Clone() *Descriptor {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}

// String returns a compact identification of the descriptor for logging.
// The credentials reference is deliberately omitted.
func (d *Descriptor) String() string {
	if d == nil {
		return "<none>"
	}
	return fmt.Sprintf("%s/%s -> %s (%s)", d.Backend, d.Protocol, d.ServerName, d.ServerID)
}
