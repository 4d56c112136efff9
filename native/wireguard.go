package native

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/google/uuid"

	"github.com/yllada/vpn-connector/common"
	"github.com/yllada/vpn-connector/vpn"
	"github.com/yllada/vpn-connector/vpnconfig"
)

// wireguardTunnelAddress is the provider-assigned client address inside the
// tunnel.
const wireguardTunnelAddress = "10.2.0.2/32"

// wireguardBackend realizes tunnels with wg-quick. The unique id doubles as
// the interface name, so it stays within the kernel's 15-character limit.
type wireguardBackend struct {
	creds  common.CredentialStore
	runDir string
}

func (b *wireguardBackend) ProtocolID() string {
	return common.ProtocolWireGuard
}

func (b *wireguardBackend) PersistencePrefix() string {
	return "native-wg"
}

func (b *wireguardBackend) Setup(ctx context.Context, d *vpn.Descriptor) (string, error) {
	if d.CredentialsRef == "" {
		return "", fmt.Errorf("%w: descriptor has no credentials reference", common.ErrCredentialsNotFound)
	}
	privateKey, err := b.creds.Get(d.CredentialsRef)
	if err != nil {
		return "", err
	}

	iface := "wgc" + uuid.NewString()[:8]

	cfg, err := vpnconfig.RenderWireGuard(d, privateKey, wireguardTunnelAddress)
	if err != nil {
		return "", err
	}
	cfgPath, err := vpnconfig.WriteFile(b.runDir, iface+".conf", cfg)
	if err != nil {
		return "", err
	}

	props := &runProps{ConfigPath: cfgPath, Interface: iface}
	if err := saveProps(b.runDir, iface, props); err != nil {
		removeFile(cfgPath)
		return "", err
	}
	return iface, nil
}

func (b *wireguardBackend) Up(ctx context.Context, uniqueID string) error {
	props, err := loadProps(b.runDir, uniqueID)
	if err != nil {
		return err
	}
	if props == nil {
		return fmt.Errorf("no runtime record for %s", uniqueID)
	}

	out, err := exec.CommandContext(ctx, "wg-quick", "up", props.ConfigPath).CombinedOutput()
	if err != nil {
		return fmt.Errorf("wg-quick up: %v: %s", err, strings.TrimSpace(string(out)))
	}
	common.LogInfo("wireguard interface %s up", props.Interface)
	return nil
}

func (b *wireguardBackend) Down(ctx context.Context, uniqueID string) error {
	props, err := loadProps(b.runDir, uniqueID)
	if err != nil {
		return err
	}
	if props == nil {
		return nil
	}

	out, err := exec.CommandContext(ctx, "wg-quick", "down", props.ConfigPath).CombinedOutput()
	if err != nil && !strings.Contains(string(out), "is not a WireGuard interface") {
		common.LogWarn("wg-quick down %s: %v: %s", props.Interface, err, strings.TrimSpace(string(out)))
	}

	removeFile(props.ConfigPath)
	removeProps(b.runDir, uniqueID)
	common.LogInfo("wireguard tunnel %s released", uniqueID)
	return nil
}

func (b *wireguardBackend) Probe(ctx context.Context, uniqueID string) (bool, error) {
	props, err := loadProps(b.runDir, uniqueID)
	if err != nil {
		return false, err
	}
	if props == nil {
		return false, nil
	}
	err = exec.CommandContext(ctx, "wg", "show", props.Interface).Run()
	return err == nil, nil
}
