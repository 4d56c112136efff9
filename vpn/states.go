// Package vpn implements the VPN connection lifecycle: the state machine
// that sequences connect/disconnect transitions, the subscriber mechanism,
// crash-recoverable persistence of the active connection, and the
// coordination of the kill switch and leak protection around each
// transition.
package vpn

import "time"

// ConnectionStatus represents the current state of the VPN connection.
type ConnectionStatus int

const (
	// StatusDisconnected indicates no active connection. Initial and
	// terminal state.
	StatusDisconnected ConnectionStatus = iota
	// StatusConnecting indicates a connection is being established.
	StatusConnecting
	// StatusConnected indicates an active, established connection.
	StatusConnected
	// StatusDisconnecting indicates the connection is being terminated.
	StatusDisconnecting
	// StatusError indicates the connection failed. Terminal until a new
	// connect request arrives.
	StatusError
	// StatusTransient is only occupied during state machine bootstrap,
	// before the real state has been derived from persisted parameters.
	StatusTransient
)

// String returns a human-readable representation of the connection status.
func (s ConnectionStatus) String() string {
	switch s {
	case StatusDisconnected:
		return "Disconnected"
	case StatusConnecting:
		return "Connecting..."
	case StatusConnected:
		return "Connected"
	case StatusDisconnecting:
		return "Disconnecting..."
	case StatusError:
		return "Error"
	case StatusTransient:
		return "Initializing"
	default:
		return "Unknown"
	}
}

// IsTerminal reports whether the status is one the machine can rest in.
func (s ConnectionStatus) IsTerminal() bool {
	return s == StatusDisconnected || s == StatusError
}

// State is an immutable snapshot of the connection state machine handed to
// subscribers. It carries a copy of the descriptor so that callbacks can
// never reach into machine internals.
type State struct {
	// Status is the connection status at the time of the snapshot.
	Status ConnectionStatus
	// Descriptor identifies the connection the status refers to.
	// Nil when no connection was ever requested.
	Descriptor *Descriptor
	// Reason carries the failure that led to StatusError, nil otherwise.
	Reason error
	// At is when the machine entered this state.
	At time.Time
}
