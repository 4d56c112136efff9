package nm

import (
	"context"

	"github.com/godbus/dbus/v5"

	"github.com/yllada/vpn-connector/common"
)

// NetworkManager global states, per the D-Bus API.
const (
	nmStateAsleep          uint32 = 10
	nmStateDisconnected    uint32 = 20
	nmStateDisconnecting   uint32 = 30
	nmStateConnecting      uint32 = 40
	nmStateConnectedLocal  uint32 = 50
	nmStateConnectedSite   uint32 = 60
	nmStateConnectedGlobal uint32 = 70
)

// Device types carrying a tunnel.
const (
	deviceTypeTun       uint32 = 16
	deviceTypeWireGuard uint32 = 29
)

// Events receives the signals the monitor extracts from NetworkManager.
// The connection orchestrator satisfies this contract.
type Events interface {
	NotifyNetworkDown()
	NotifyNetworkUp()
	NotifyDeviceDisconnected()
}

// Monitor watches NetworkManager signals and translates them into
// orchestrator events: global connectivity loss and recovery, and tunnel
// devices torn down outside of this process.
type Monitor struct {
	client *Client
	events Events
	stop   chan struct{}
	done   chan struct{}
}

// NewMonitor creates a monitor delivering to the given receiver.
func NewMonitor(client *Client, events Events) *Monitor {
	return &Monitor{
		client: client,
		events: events,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start subscribes to the relevant signals and begins delivery.
func (m *Monitor) Start() error {
	conn := m.client.conn

	if err := conn.AddMatchSignal(
		dbus.WithMatchInterface(managerIface),
		dbus.WithMatchMember("StateChanged"),
	); err != nil {
		return common.WrapError(err, "failed to subscribe to state signals")
	}
	if err := conn.AddMatchSignal(
		dbus.WithMatchInterface(deviceIface),
		dbus.WithMatchMember("StateChanged"),
	); err != nil {
		return common.WrapError(err, "failed to subscribe to device signals")
	}

	signals := make(chan *dbus.Signal, 32)
	conn.Signal(signals)

	go m.run(signals)
	return nil
}

// Stop ends signal delivery. Safe to call once.
func (m *Monitor) Stop() {
	close(m.stop)
	<-m.done
}

func (m *Monitor) run(signals chan *dbus.Signal) {
	defer close(m.done)
	wasDown := false

	for {
		select {
		case <-m.stop:
			m.client.conn.RemoveSignal(signals)
			return

		case sig, ok := <-signals:
			if !ok {
				return
			}
			switch sig.Name {
			case managerIface + ".StateChanged":
				state, ok := signalState(sig, 0)
				if !ok {
					continue
				}
				switch {
				case state <= nmStateDisconnecting:
					common.LogInfo("network down (NetworkManager state %d)", state)
					wasDown = true
					m.events.NotifyNetworkDown()
				case state >= nmStateConnectedSite && wasDown:
					common.LogInfo("network restored (NetworkManager state %d)", state)
					wasDown = false
					m.events.NotifyNetworkUp()
				}

			case deviceIface + ".StateChanged":
				newState, ok := signalState(sig, 0)
				if !ok {
					continue
				}
				oldState, ok := signalState(sig, 1)
				if !ok {
					continue
				}
				if oldState != deviceStateActivated {
					continue
				}
				if newState != deviceStateDeactivating && newState != deviceStateFailed {
					continue
				}
				if !m.isTunnelDevice(sig.Path) {
					continue
				}
				common.LogInfo("tunnel device %s went down externally", sig.Path)
				m.events.NotifyDeviceDisconnected()
			}
		}
	}
}

func signalState(sig *dbus.Signal, idx int) (uint32, bool) {
	if len(sig.Body) <= idx {
		return 0, false
	}
	state, ok := sig.Body[idx].(uint32)
	return state, ok
}

func (m *Monitor) isTunnelDevice(path dbus.ObjectPath) bool {
	ctx, cancel := context.WithTimeout(context.Background(), common.ManagementTimeout)
	defer cancel()

	obj := m.client.conn.Object(busName, path)
	var v dbus.Variant
	if err := obj.CallWithContext(ctx, propsIface+".Get", 0, deviceIface, "DeviceType").Store(&v); err != nil {
		return false
	}
	devType, ok := v.Value().(uint32)
	return ok && (devType == deviceTypeTun || devType == deviceTypeWireGuard)
}
