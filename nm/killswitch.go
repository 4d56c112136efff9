package nm

import (
	"context"

	"github.com/godbus/dbus/v5"

	"github.com/yllada/vpn-connector/common"
)

// killSwitchUUID is the fixed connection.uuid of the blocking profile, so
// that Enable and Disable always find the same profile, even one left over
// from a previous process.
const killSwitchUUID = "9a7b35c2-41de-4f5e-8c6a-d08f20c41d73"

const killSwitchID = "vpn-connector-killswitch"

// KillSwitch blocks non-tunnel traffic through a dummy interface whose
// routes win over every physical device: with the block profile active the
// default route points into the dummy device, so packets that would escape
// the tunnel are swallowed instead.
type KillSwitch struct {
	client *Client
}

// NewKillSwitch creates a kill switch service on the given bus client.
func NewKillSwitch(client *Client) *KillSwitch {
	return &KillSwitch{client: client}
}

func killSwitchSettings() settings {
	return settings{
		"connection": {
			"id":             dbus.MakeVariant(killSwitchID),
			"uuid":           dbus.MakeVariant(killSwitchUUID),
			"type":           dbus.MakeVariant("dummy"),
			"interface-name": dbus.MakeVariant(killSwitchID),
			"autoconnect":    dbus.MakeVariant(false),
		},
		"ipv4": {
			"method":       dbus.MakeVariant("manual"),
			"address-data": dbus.MakeVariant([]map[string]dbus.Variant{{"address": dbus.MakeVariant("100.85.0.1"), "prefix": dbus.MakeVariant(uint32(24))}}),
			"gateway":      dbus.MakeVariant("100.85.0.1"),
			"dns":          dbus.MakeVariant([]uint32{0}),
			"dns-priority": dbus.MakeVariant(int32(-1400)),
			"route-metric": dbus.MakeVariant(uint32(97)),
		},
		"ipv6": {
			"method":       dbus.MakeVariant("manual"),
			"address-data": dbus.MakeVariant([]map[string]dbus.Variant{{"address": dbus.MakeVariant("fdeb:446c:912d:8da::1"), "prefix": dbus.MakeVariant(uint32(64))}}),
			"gateway":      dbus.MakeVariant("fdeb:446c:912d:8da::1"),
			"dns":          dbus.MakeVariant([]string{"::1"}),
			"dns-priority": dbus.MakeVariant(int32(-1400)),
			"route-metric": dbus.MakeVariant(uint32(97)),
		},
	}
}

// Enable installs and activates the block profile. Finding the profile
// already present, e.g. after a crash, is not an error.
func (k *KillSwitch) Enable(ctx context.Context) error {
	profile, err := k.client.ConnectionByUUID(ctx, killSwitchUUID)
	if err != nil {
		return err
	}
	if profile == "" {
		if profile, err = k.client.AddConnection(ctx, killSwitchSettings()); err != nil {
			return err
		}
	}

	active, err := k.client.ActiveByUUID(ctx, killSwitchUUID)
	if err != nil {
		return err
	}
	if active != "" {
		return nil
	}

	activePath, err := k.client.Activate(ctx, profile)
	if err != nil {
		return err
	}
	if err := k.client.WaitActivated(ctx, activePath); err != nil {
		return err
	}
	common.LogInfo("kill switch block profile active")
	return nil
}

// Disable deactivates and removes the block profile.
func (k *KillSwitch) Disable(ctx context.Context) error {
	active, err := k.client.ActiveByUUID(ctx, killSwitchUUID)
	if err != nil {
		return err
	}
	if active != "" {
		if err := k.client.Deactivate(ctx, active); err != nil {
			return err
		}
	}

	profile, err := k.client.ConnectionByUUID(ctx, killSwitchUUID)
	if err != nil {
		return err
	}
	if profile != "" {
		if err := k.client.DeleteConnection(ctx, profile); err != nil {
			return err
		}
	}
	common.LogInfo("kill switch block profile removed")
	return nil
}
