package vpn

// eventType identifies the kind of event placed on the connector's queue.
// All state mutation happens by processing these events one at a time.
type eventType int

const (
	// eventUp requests that a connection be started.
	eventUp eventType = iota
	// eventDown requests that the current connection be stopped.
	eventDown
	// eventCancel aborts an in-flight connection attempt.
	eventCancel
	// eventSucceeded reports that the in-flight backend operation
	// completed successfully.
	eventSucceeded
	// eventFailed reports that the in-flight backend operation failed.
	eventFailed
	// eventTimeout reports that no completion arrived for the in-flight
	// backend operation within the expected window.
	eventTimeout
	// eventNetworkDown signals loss of the underlying network.
	eventNetworkDown
	// eventNetworkUp signals that the underlying network came back.
	eventNetworkUp
	// eventDeviceDisconnected signals that the tunnel device was torn
	// down outside of this process.
	eventDeviceDisconnected
	// eventInitialize seeds the machine state from persistence. Sent
	// exactly once at startup.
	eventInitialize
)

// String returns the event name, for logging.
func (t eventType) String() string {
	switch t {
	case eventUp:
		return "Up"
	case eventDown:
		return "Down"
	case eventCancel:
		return "Cancel"
	case eventSucceeded:
		return "BackendSucceeded"
	case eventFailed:
		return "BackendFailed"
	case eventTimeout:
		return "Timeout"
	case eventNetworkDown:
		return "NetworkDown"
	case eventNetworkUp:
		return "NetworkUp"
	case eventDeviceDisconnected:
		return "DeviceDisconnected"
	case eventInitialize:
		return "Initialize"
	default:
		return "Unknown"
	}
}

// event is a single entry on the connector's ordered queue.
type event struct {
	typ eventType

	// descriptor is set on eventUp.
	descriptor *Descriptor

	// err is set on eventFailed.
	err error

	// op ties a completion (eventSucceeded, eventFailed, eventTimeout) to
	// the backend operation it belongs to. Completions from superseded
	// operations are discarded.
	op uint64

	// done, when non-nil, is resolved once the event's request reaches a
	// terminal state for that request. Used by Connect and Disconnect to
	// block their callers.
	done chan error
}
