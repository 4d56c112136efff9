// Package native realizes VPN connections by running the tunnel processes
// directly: an openvpn process driven through its management socket, and
// wg-quick for WireGuard. It is the fallback when no NetworkManager service
// is available on the bus.
package native

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/yllada/vpn-connector/common"
	"github.com/yllada/vpn-connector/vpn"
)

// Factory creates native backends.
type Factory struct {
	creds  common.CredentialStore
	runDir string
}

// NewFactory wires a factory to a credential store. Runtime material
// (configs, sockets, process records) lives under runDir.
func NewFactory(creds common.CredentialStore, runDir string) *Factory {
	return &Factory{creds: creds, runDir: runDir}
}

// BackendID returns "native".
func (f *Factory) BackendID() string {
	return common.BackendNative
}

// Protocols lists the protocols realizable without a connection manager.
func (f *Factory) Protocols() []string {
	return []string{
		common.ProtocolOpenVPNTCP,
		common.ProtocolOpenVPNUDP,
		common.ProtocolWireGuard,
	}
}

// Priority ranks the native backend below NetworkManager whenever the
// required binaries exist, and out of consideration when they don't.
func (f *Factory) Priority() int {
	_, ovpnErr := exec.LookPath("openvpn")
	_, wgErr := exec.LookPath("wg-quick")
	if ovpnErr == nil || wgErr == nil {
		return 100
	}
	return 10000
}

// New returns a backend for the given protocol.
func (f *Factory) New(protocol string) (vpn.Backend, error) {
	switch protocol {
	case common.ProtocolOpenVPNTCP, common.ProtocolOpenVPNUDP:
		return &openvpnBackend{protocol: protocol, creds: f.creds, runDir: f.runDir}, nil
	case common.ProtocolWireGuard:
		return &wireguardBackend{creds: f.creds, runDir: f.runDir}, nil
	default:
		return nil, fmt.Errorf("%w: %q", common.ErrMissingProtocol, protocol)
	}
}

// runProps is the runtime record of one native tunnel, written next to its
// config so a restarted process can find the tunnel it left behind.
type runProps struct {
	PID        int    `yaml:"pid,omitempty"`
	MgmtSocket string `yaml:"mgmt_socket,omitempty"`
	ConfigPath string `yaml:"config_path"`
	AuthPath   string `yaml:"auth_path,omitempty"`
	Interface  string `yaml:"interface,omitempty"`
}

func propsPath(runDir, uniqueID string) string {
	return filepath.Join(runDir, uniqueID+".yaml")
}

func saveProps(runDir, uniqueID string, p *runProps) error {
	if err := os.MkdirAll(runDir, 0700); err != nil {
		return common.WrapError(err, "failed to create runtime directory")
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return common.WrapError(err, "failed to encode runtime record")
	}
	if err := os.WriteFile(propsPath(runDir, uniqueID), data, 0600); err != nil {
		return common.WrapError(err, "failed to write runtime record")
	}
	return nil
}

func loadProps(runDir, uniqueID string) (*runProps, error) {
	data, err := os.ReadFile(propsPath(runDir, uniqueID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, common.WrapError(err, "failed to read runtime record")
	}
	var p runProps
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, common.WrapError(err, "failed to decode runtime record")
	}
	return &p, nil
}

func removeProps(runDir, uniqueID string) {
	if err := os.Remove(propsPath(runDir, uniqueID)); err != nil && !os.IsNotExist(err) {
		common.LogWarn("removing runtime record for %s: %v", uniqueID, err)
	}
}

func removeFile(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		common.LogWarn("removing %s: %v", path, err)
	}
}
