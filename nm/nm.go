// Package nm realizes VPN connections through NetworkManager over D-Bus.
// Each tunnel becomes a NetworkManager connection profile, namespaced so
// that profiles created here never collide with user-managed ones.
package nm

import (
	"context"
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/yllada/vpn-connector/common"
)

const (
	busName      = "org.freedesktop.NetworkManager"
	managerPath  = dbus.ObjectPath("/org/freedesktop/NetworkManager")
	settingsPath = dbus.ObjectPath("/org/freedesktop/NetworkManager/Settings")

	managerIface      = "org.freedesktop.NetworkManager"
	settingsIface     = "org.freedesktop.NetworkManager.Settings"
	settingsConnIface = "org.freedesktop.NetworkManager.Settings.Connection"
	activeConnIface   = "org.freedesktop.NetworkManager.Connection.Active"
	deviceIface       = "org.freedesktop.NetworkManager.Device"
	propsIface        = "org.freedesktop.DBus.Properties"
)

// NM active connection states, per the NetworkManager D-Bus API.
const (
	activeStateUnknown      uint32 = 0
	activeStateActivating   uint32 = 1
	activeStateActivated    uint32 = 2
	activeStateDeactivating uint32 = 3
	activeStateDeactivated  uint32 = 4
)

// NM device states relevant to tunnel monitoring.
const (
	deviceStateActivated    uint32 = 100
	deviceStateDeactivating uint32 = 110
	deviceStateFailed       uint32 = 120
)

// settings is the NetworkManager connection settings shape: section name to
// key to value.
type settings map[string]map[string]dbus.Variant

// Client wraps one system bus connection to NetworkManager.
type Client struct {
	conn *dbus.Conn
}

// NewClient connects to the system bus. The caller owns the returned client
// and must Close it.
func NewClient() (*Client, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, common.WrapError(err, "failed to connect to system bus")
	}
	return &Client{conn: conn}, nil
}

// Close releases the bus connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Available reports whether the NetworkManager service answers on the bus.
func (c *Client) Available(ctx context.Context) bool {
	obj := c.conn.Object(busName, managerPath)
	var version string
	err := obj.CallWithContext(ctx, propsIface+".Get", 0, managerIface, "Version").Store(&version)
	return err == nil
}

// AddConnection registers a new connection profile and returns its object
// path.
func (c *Client) AddConnection(ctx context.Context, s settings) (dbus.ObjectPath, error) {
	obj := c.conn.Object(busName, settingsPath)
	var path dbus.ObjectPath
	err := obj.CallWithContext(ctx, settingsIface+".AddConnection", 0, s).Store(&path)
	if err != nil {
		return "", common.WrapError(err, "failed to add connection profile")
	}
	return path, nil
}

// ConnectionByUUID finds the settings profile carrying the given
// connection.uuid, or "" if none exists.
func (c *Client) ConnectionByUUID(ctx context.Context, uuid string) (dbus.ObjectPath, error) {
	obj := c.conn.Object(busName, settingsPath)
	var paths []dbus.ObjectPath
	if err := obj.CallWithContext(ctx, settingsIface+".ListConnections", 0).Store(&paths); err != nil {
		return "", common.WrapError(err, "failed to list connection profiles")
	}

	for _, path := range paths {
		var s settings
		conn := c.conn.Object(busName, path)
		if err := conn.CallWithContext(ctx, settingsConnIface+".GetSettings", 0).Store(&s); err != nil {
			continue
		}
		if section, ok := s["connection"]; ok {
			if v, ok := section["uuid"]; ok {
				if got, ok := v.Value().(string); ok && got == uuid {
					return path, nil
				}
			}
		}
	}
	return "", nil
}

// DeleteConnection removes a settings profile.
func (c *Client) DeleteConnection(ctx context.Context, path dbus.ObjectPath) error {
	obj := c.conn.Object(busName, path)
	if err := obj.CallWithContext(ctx, settingsConnIface+".Delete", 0).Err; err != nil {
		return common.WrapError(err, "failed to delete connection profile")
	}
	return nil
}

// Activate asks NetworkManager to bring the profile up, letting it choose
// the device, and returns the active connection path.
func (c *Client) Activate(ctx context.Context, profile dbus.ObjectPath) (dbus.ObjectPath, error) {
	obj := c.conn.Object(busName, managerPath)
	var active dbus.ObjectPath
	err := obj.CallWithContext(ctx, managerIface+".ActivateConnection", 0,
		profile, dbus.ObjectPath("/"), dbus.ObjectPath("/")).Store(&active)
	if err != nil {
		return "", common.WrapError(err, "failed to activate connection")
	}
	return active, nil
}

// Deactivate asks NetworkManager to bring the active connection down.
func (c *Client) Deactivate(ctx context.Context, active dbus.ObjectPath) error {
	obj := c.conn.Object(busName, managerPath)
	if err := obj.CallWithContext(ctx, managerIface+".DeactivateConnection", 0, active).Err; err != nil {
		return common.WrapError(err, "failed to deactivate connection")
	}
	return nil
}

// ActiveByUUID finds the active connection carrying the given uuid, or ""
// if the tunnel is not up.
func (c *Client) ActiveByUUID(ctx context.Context, uuid string) (dbus.ObjectPath, error) {
	obj := c.conn.Object(busName, managerPath)
	var actives []dbus.ObjectPath
	err := obj.CallWithContext(ctx, propsIface+".Get", 0, managerIface, "ActiveConnections").Store(&actives)
	if err != nil {
		return "", common.WrapError(err, "failed to list active connections")
	}

	for _, path := range actives {
		var v dbus.Variant
		active := c.conn.Object(busName, path)
		if err := active.CallWithContext(ctx, propsIface+".Get", 0, activeConnIface, "Uuid").Store(&v); err != nil {
			continue
		}
		if got, ok := v.Value().(string); ok && got == uuid {
			return path, nil
		}
	}
	return "", nil
}

// ActiveState reads the state of an active connection.
func (c *Client) ActiveState(ctx context.Context, active dbus.ObjectPath) (uint32, error) {
	obj := c.conn.Object(busName, active)
	var v dbus.Variant
	if err := obj.CallWithContext(ctx, propsIface+".Get", 0, activeConnIface, "State").Store(&v); err != nil {
		return activeStateUnknown, common.WrapError(err, "failed to read active connection state")
	}
	state, ok := v.Value().(uint32)
	if !ok {
		return activeStateUnknown, fmt.Errorf("unexpected state type %T", v.Value())
	}
	return state, nil
}

// WaitActivated polls the active connection until it is fully activated,
// fails, or the context expires. NetworkManager also emits StateChanged
// signals, but polling survives a restart of the service mid-activation.
func (c *Client) WaitActivated(ctx context.Context, active dbus.ObjectPath) error {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		state, err := c.ActiveState(ctx, active)
		if err != nil {
			return err
		}
		switch state {
		case activeStateActivated:
			return nil
		case activeStateDeactivating, activeStateDeactivated:
			return fmt.Errorf("activation failed, connection state %d", state)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
