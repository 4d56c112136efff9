package nm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yllada/vpn-connector/common"
	"github.com/yllada/vpn-connector/vpn"
)

// persistencePrefixes namespaces profile ids per protocol.
var persistencePrefixes = map[string]string{
	common.ProtocolOpenVPNTCP: "nm-ovpn-tcp",
	common.ProtocolOpenVPNUDP: "nm-ovpn-udp",
	common.ProtocolWireGuard:  "nm-wg",
	common.ProtocolIKEv2:      "nm-ikev2",
}

// Factory creates NetworkManager backends. One factory serves all the
// protocols NetworkManager plugins cover.
type Factory struct {
	client *Client
	creds  common.CredentialStore
}

// NewFactory wires a factory to a bus client and a credential store.
func NewFactory(client *Client, creds common.CredentialStore) *Factory {
	return &Factory{client: client, creds: creds}
}

// BackendID returns "networkmanager".
func (f *Factory) BackendID() string {
	return common.BackendNetworkManager
}

// Protocols lists every protocol this factory can realize.
func (f *Factory) Protocols() []string {
	return []string{
		common.ProtocolOpenVPNTCP,
		common.ProtocolOpenVPNUDP,
		common.ProtocolWireGuard,
		common.ProtocolIKEv2,
	}
}

// Priority prefers NetworkManager whenever its service answers on the bus.
func (f *Factory) Priority() int {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if f.client.Available(ctx) {
		return 10
	}
	return 1000
}

// New returns a backend for the given protocol.
func (f *Factory) New(protocol string) (vpn.Backend, error) {
	if _, ok := persistencePrefixes[protocol]; !ok {
		return nil, fmt.Errorf("%w: %q", common.ErrMissingProtocol, protocol)
	}
	return &backend{protocol: protocol, client: f.client, creds: f.creds}, nil
}

// backend realizes one protocol through NetworkManager profiles. The
// returned unique id is the profile's connection.uuid, which survives
// process restarts and is the key for every later lookup.
type backend struct {
	protocol string
	client   *Client
	creds    common.CredentialStore
}

func (b *backend) ProtocolID() string {
	return b.protocol
}

func (b *backend) PersistencePrefix() string {
	return persistencePrefixes[b.protocol]
}

func (b *backend) Setup(ctx context.Context, d *vpn.Descriptor) (string, error) {
	if d.ServerIP == "" {
		return "", fmt.Errorf("descriptor missing server address")
	}

	id := uuid.NewString()
	var s settings
	switch b.protocol {
	case common.ProtocolOpenVPNTCP, common.ProtocolOpenVPNUDP:
		username, password, err := b.resolveUserPass(d)
		if err != nil {
			return "", err
		}
		s = openvpnSettings(d, id, username, password)

	case common.ProtocolWireGuard:
		if d.ServerPublicKey == "" {
			return "", fmt.Errorf("descriptor missing server public key")
		}
		privateKey, err := b.resolveSecret(d)
		if err != nil {
			return "", err
		}
		s = wireguardSettings(d, id, privateKey)

	case common.ProtocolIKEv2:
		username, password, err := b.resolveUserPass(d)
		if err != nil {
			return "", err
		}
		s = ikev2Settings(d, id, username, password)

	default:
		return "", fmt.Errorf("%w: %q", common.ErrMissingProtocol, b.protocol)
	}

	if _, err := b.client.AddConnection(ctx, s); err != nil {
		return "", err
	}
	common.LogInfo("created NetworkManager profile %s (%s)", profileID(d), id)
	return id, nil
}

func (b *backend) Up(ctx context.Context, uniqueID string) error {
	profile, err := b.client.ConnectionByUUID(ctx, uniqueID)
	if err != nil {
		return err
	}
	if profile == "" {
		return fmt.Errorf("no profile with uuid %s", uniqueID)
	}

	active, err := b.client.Activate(ctx, profile)
	if err != nil {
		return err
	}
	return b.client.WaitActivated(ctx, active)
}

// Down deactivates and deletes the profile. Both steps tolerate the
// resource already being gone, so Down is safe after a failed or cancelled
// setup.
func (b *backend) Down(ctx context.Context, uniqueID string) error {
	active, err := b.client.ActiveByUUID(ctx, uniqueID)
	if err != nil {
		return err
	}
	if active != "" {
		if err := b.client.Deactivate(ctx, active); err != nil {
			common.LogWarn("deactivating %s: %v", uniqueID, err)
		}
	}

	profile, err := b.client.ConnectionByUUID(ctx, uniqueID)
	if err != nil {
		return err
	}
	if profile != "" {
		if err := b.client.DeleteConnection(ctx, profile); err != nil {
			return err
		}
	}
	common.LogInfo("removed NetworkManager profile %s", uniqueID)
	return nil
}

func (b *backend) Probe(ctx context.Context, uniqueID string) (bool, error) {
	active, err := b.client.ActiveByUUID(ctx, uniqueID)
	if err != nil {
		return false, err
	}
	if active == "" {
		return false, nil
	}
	state, err := b.client.ActiveState(ctx, active)
	if err != nil {
		return false, err
	}
	return state == activeStateActivated || state == activeStateActivating, nil
}

// resolveSecret fetches the raw secret behind the descriptor's credentials
// reference.
func (b *backend) resolveSecret(d *vpn.Descriptor) (string, error) {
	if d.CredentialsRef == "" {
		return "", fmt.Errorf("%w: descriptor has no credentials reference", common.ErrCredentialsNotFound)
	}
	return b.creds.Get(d.CredentialsRef)
}

// resolveUserPass fetches and splits a "username:password" credential.
func (b *backend) resolveUserPass(d *vpn.Descriptor) (string, string, error) {
	secret, err := b.resolveSecret(d)
	if err != nil {
		return "", "", err
	}
	username, password, ok := strings.Cut(secret, ":")
	if !ok {
		return "", "", fmt.Errorf("%w: credential is not in username:password form", common.ErrCredentialStorage)
	}
	return username, password, nil
}
