// Package common provides shared constants, types, and utilities
// used across the VPN connector.
package common

import "time"

// Application metadata.
const (
	// AppName is the display name of the application.
	AppName = "VPN Connector"
	// ConfigDirName is the name of the configuration directory.
	ConfigDirName = "vpn-connector"
	// StateDirName is the name of the state directory under ~/.local/state.
	StateDirName = "vpn-connector"
)

// File names used by the application.
const (
	ConfigFileName      = "config.yaml"
	ConnectionFileName  = "connection.yaml"
	HistoryFileName     = "history.db"
	CredentialsFileName = ".credentials"
	LogFileName         = "vpn-connector.log"
)

// Backend identifiers.
const (
	BackendNetworkManager = "networkmanager"
	BackendNative         = "native"
)

// Protocol identifiers.
const (
	ProtocolOpenVPNTCP = "openvpn-tcp"
	ProtocolOpenVPNUDP = "openvpn-udp"
	ProtocolWireGuard  = "wireguard"
	ProtocolIKEv2      = "ikev2"
)

// Kill switch policy modes.
const (
	KillSwitchAlwaysOn       = "always-on"
	KillSwitchConnectionOnly = "connection-only"
	KillSwitchOff            = "off"
)

// Default timeouts and intervals.
const (
	// ConnectTimeout is the maximum time a backend may take to confirm a
	// connection attempt before the attempt is failed.
	ConnectTimeout = 30 * time.Second
	// DisconnectTimeout is the maximum time a backend teardown may take.
	DisconnectTimeout = 15 * time.Second
	// ReconnectDelay is the delay before attempting to reconnect.
	ReconnectDelay = 5 * time.Second
	// ManagementTimeout is the timeout for management interface commands.
	ManagementTimeout = 5 * time.Second
)
