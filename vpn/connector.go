package vpn

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yllada/vpn-connector/common"
)

// TransitionRecorder receives every completed state transition, for
// bookkeeping such as the connection history journal.
type TransitionRecorder interface {
	Record(s State)
}

// ReconnectPolicy decides whether a dropped network under an active
// connection should be answered with a reconnection attempt (true) or a
// transition to the error state (false).
type ReconnectPolicy func(d *Descriptor) bool

// Deps holds the collaborators injected into a Connector.
type Deps struct {
	Registry    *Registry
	Persistence *PersistenceStore
	KillSwitch  *KillSwitchCoordinator
	Leak        *LeakProtectionManager

	// Recorder is optional bookkeeping for completed transitions.
	Recorder TransitionRecorder
	// Reconnect is consulted on network loss. Nil means never reconnect.
	Reconnect ReconnectPolicy

	// ConnectTimeout bounds how long the machine may stay in Connecting
	// waiting for a backend completion. Zero selects the default.
	ConnectTimeout time.Duration
	// DisconnectTimeout bounds how long the machine may stay in
	// Disconnecting. Zero selects the default.
	DisconnectTimeout time.Duration

	// RememberLast keeps the persisted descriptor after a clean
	// disconnect instead of clearing it.
	RememberLast bool
}

// pendingConnect is a connection request that superseded an active one and
// starts as soon as the current connection is down.
type pendingConnect struct {
	descriptor *Descriptor
	done       chan error
}

// attempt tracks one in-flight connection attempt.
type attempt struct {
	descriptor *Descriptor
	backend    Backend
	ctx        context.Context
	cancel     context.CancelFunc

	// settled is closed once the attempt goroutine has finished; uniqueID
	// and upErr are immutable afterwards.
	settled  chan struct{}
	uniqueID string
	upErr    error
}

// Connector is the connection lifecycle orchestrator. All events, whether
// caller requests, backend completions, or network signals, are placed on one
// ordered queue and processed to completion one at a time by a single
// goroutine, which serializes every state mutation by construction.
//
// At most one logical VPN connection is active at a time. A connection
// requested while another one is active supersedes it: the machine tears
// the current one down first and then starts the new one, keeping the kill
// switch up across the handover.
type Connector struct {
	deps      Deps
	publisher *Publisher

	queueMu   sync.Mutex
	queueCond *sync.Cond
	queue     []event
	closed    bool

	stateMu sync.RWMutex
	state   State

	// The fields below are owned by the event-processing goroutine.
	descriptor      *Descriptor
	backend         Backend
	attempt         *attempt
	pending         *pendingConnect
	cancelRequested bool
	opSeq           uint64
	curOp           uint64
	watchdog        *time.Timer
	connectDone     chan error
	disconnectDone  []chan error

	wg sync.WaitGroup
}

// NewConnector creates a connector and starts its event-processing
// goroutine. The machine boots in the transient state; call Initialize to
// derive the real state from persistence.
func NewConnector(deps Deps) *Connector {
	if deps.ConnectTimeout <= 0 {
		deps.ConnectTimeout = common.ConnectTimeout
	}
	if deps.DisconnectTimeout <= 0 {
		deps.DisconnectTimeout = common.DisconnectTimeout
	}

	c := &Connector{
		deps:      deps,
		publisher: NewPublisher(),
		state:     State{Status: StatusTransient, At: time.Now()},
	}
	c.queueCond = sync.NewCond(&c.queueMu)

	c.wg.Add(1)
	go c.loop()
	return c
}

// =============================================================================
// Public API
// =============================================================================

// Initialize seeds the machine state from the persistence store: if a
// descriptor was persisted and its tunnel is still up at the OS level the
// machine resumes in the connected state without re-running setup;
// otherwise it starts disconnected.
func (c *Connector) Initialize(ctx context.Context) error {
	done := make(chan error, 1)
	c.enqueue(event{typ: eventInitialize, done: done})
	return c.wait(ctx, done)
}

// Connect requests a connection for the given descriptor and blocks until
// the attempt reaches a terminal state for this call: nil on Connected, the
// failure reason on Error, ErrCancelled if the attempt was cancelled.
//
// Requesting a connection while another attempt is connecting fails with
// ErrAlreadyConnecting unless Cancel was issued first. Requesting one while
// a connection is established or being torn down supersedes it.
func (c *Connector) Connect(ctx context.Context, d *Descriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}
	done := make(chan error, 1)
	c.enqueue(event{typ: eventUp, descriptor: d.Clone(), done: done})
	return c.wait(ctx, done)
}

// Disconnect stops the current connection and blocks until the machine is
// disconnected. Calling it while already disconnected is a no-op success.
func (c *Connector) Disconnect(ctx context.Context) error {
	if c.CurrentState().Status == StatusDisconnected {
		return nil
	}
	done := make(chan error, 1)
	c.enqueue(event{typ: eventDown, done: done})
	return c.wait(ctx, done)
}

// Cancel aborts an in-flight connection attempt. It is only valid while
// the machine is connecting; the backend's teardown path is guaranteed to
// run even if setup never completed.
func (c *Connector) Cancel() error {
	if c.CurrentState().Status != StatusConnecting {
		return fmt.Errorf("%w: not connecting", common.ErrNotConnected)
	}
	c.enqueue(event{typ: eventCancel})
	return nil
}

// CurrentState returns an immutable snapshot of the connection state.
func (c *Connector) CurrentState() State {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

// Subscribe registers a subscriber for state change notifications.
func (c *Connector) Subscribe(s Subscriber) SubscriberHandle {
	return c.publisher.Subscribe(s)
}

// Unsubscribe removes a previously registered subscriber.
func (c *Connector) Unsubscribe(h SubscriberHandle) {
	c.publisher.Unsubscribe(h)
}

// NotifyNetworkDown reports loss of the underlying network, observed by an
// external monitor.
func (c *Connector) NotifyNetworkDown() {
	c.enqueue(event{typ: eventNetworkDown})
}

// NotifyNetworkUp reports that the underlying network came back.
func (c *Connector) NotifyNetworkUp() {
	c.enqueue(event{typ: eventNetworkUp})
}

// NotifyDeviceDisconnected reports that the tunnel device disappeared
// outside of this process (e.g. another tool deleted the profile).
func (c *Connector) NotifyDeviceDisconnected() {
	c.enqueue(event{typ: eventDeviceDisconnected})
}

// Close stops the event-processing goroutine. Pending callers are resolved
// with ErrCancelled. Close does not tear down an established tunnel: a
// restart can resume it through Initialize.
func (c *Connector) Close() {
	c.queueMu.Lock()
	if c.closed {
		c.queueMu.Unlock()
		return
	}
	c.closed = true
	c.queueCond.Signal()
	c.queueMu.Unlock()
	c.wg.Wait()
}

// =============================================================================
// Event loop
// =============================================================================

func (c *Connector) enqueue(ev event) {
	c.queueMu.Lock()
	if c.closed {
		c.queueMu.Unlock()
		resolve(ev.done, common.ErrCancelled)
		return
	}
	c.queue = append(c.queue, ev)
	c.queueCond.Signal()
	c.queueMu.Unlock()
}

func (c *Connector) loop() {
	defer c.wg.Done()
	for {
		c.queueMu.Lock()
		for len(c.queue) == 0 && !c.closed {
			c.queueCond.Wait()
		}
		if len(c.queue) == 0 && c.closed {
			c.queueMu.Unlock()
			c.shutdown()
			return
		}
		ev := c.queue[0]
		c.queue = c.queue[1:]
		c.queueMu.Unlock()

		c.process(ev)
	}
}

func (c *Connector) shutdown() {
	if c.attempt != nil {
		c.attempt.cancel()
		c.attempt = nil
	}
	c.stopWatchdog()
	c.resolveConnect(common.ErrCancelled)
	c.resolveDisconnects(common.ErrCancelled)
	if c.pending != nil {
		resolve(c.pending.done, common.ErrCancelled)
		c.pending = nil
	}
}

func (c *Connector) process(ev event) {
	common.LogDebug("processing %s event in state %s", ev.typ, c.state.Status)

	switch ev.typ {
	case eventInitialize:
		c.handleInitialize(ev)
	case eventUp:
		c.handleUp(ev)
	case eventDown:
		c.handleDown(ev)
	case eventCancel:
		c.handleCancel()
	case eventSucceeded, eventFailed, eventTimeout:
		c.handleCompletion(ev)
	case eventNetworkDown:
		c.handleNetworkDown()
	case eventNetworkUp:
		// Reconnection decisions are taken on NetworkDown; the network
		// coming back on its own requires no transition.
	case eventDeviceDisconnected:
		c.handleDeviceDisconnected()
	}
}

// setState publishes a new state. The state value is updated and visible to
// readers before any side effect of the transition runs, so a subscriber
// can never observe a half-applied transition.
func (c *Connector) setState(status ConnectionStatus, reason error) State {
	snap := State{
		Status:     status,
		Descriptor: c.descriptor.Clone(),
		Reason:     reason,
		At:         time.Now(),
	}
	c.stateMu.Lock()
	c.state = snap
	c.stateMu.Unlock()

	if reason != nil {
		common.LogInfo("connection state: %s (%v)", status, reason)
	} else {
		common.LogInfo("connection state: %s", status)
	}
	if c.deps.Recorder != nil {
		c.deps.Recorder.Record(snap)
	}
	c.publisher.Notify(snap)
	return snap
}

// =============================================================================
// Event handlers
// =============================================================================

func (c *Connector) handleInitialize(ev event) {
	if c.state.Status != StatusTransient {
		common.LogWarn("initialize received in state %s, ignoring", c.state.Status)
		resolve(ev.done, nil)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), common.ManagementTimeout)
	defer cancel()

	d, err := c.deps.Persistence.Load()
	if err != nil {
		common.LogWarn("loading persisted connection: %v", err)
	}
	if d == nil {
		c.setState(StatusDisconnected, nil)
		c.bootKillSwitch(ctx)
		resolve(ev.done, nil)
		return
	}

	backend, err := c.deps.Registry.Backend(d.Backend, d.Protocol)
	if err != nil {
		common.LogWarn("persisted connection references unknown backend: %v", err)
		c.dropPersisted(ctx)
		resolve(ev.done, nil)
		return
	}

	up, err := backend.Probe(ctx, d.UniqueID)
	if err != nil {
		common.LogWarn("probing persisted connection %s: %v", d, err)
	}
	if !up {
		c.dropPersisted(ctx)
		resolve(ev.done, nil)
		return
	}

	// The tunnel survived the restart: resume without re-running setup.
	c.descriptor = d
	c.backend = backend
	c.setState(StatusConnected, nil)
	if err := c.deps.KillSwitch.Enable(ctx); err != nil {
		common.LogError("restoring kill switch: %v", err)
	}
	if err := c.deps.Leak.Apply(ctx); err != nil {
		common.LogError("restoring leak protection: %v", err)
	}
	resolve(ev.done, nil)
}

func (c *Connector) bootKillSwitch(ctx context.Context) {
	if c.deps.KillSwitch.Mode() == common.KillSwitchAlwaysOn {
		if err := c.deps.KillSwitch.Enable(ctx); err != nil {
			common.LogError("enabling always-on kill switch: %v", err)
		}
	}
}

func (c *Connector) dropPersisted(ctx context.Context) {
	if err := c.deps.Persistence.Clear(); err != nil {
		common.LogWarn("clearing stale connection record: %v", err)
	}
	c.setState(StatusDisconnected, nil)
	c.bootKillSwitch(ctx)
}

func (c *Connector) handleUp(ev event) {
	switch c.state.Status {
	case StatusTransient, StatusDisconnected, StatusError:
		c.startAttempt(ev.descriptor, ev.done)

	case StatusConnecting:
		if !c.cancelRequested {
			resolve(ev.done, common.ErrAlreadyConnecting)
			return
		}
		// The current attempt is already being cancelled; queue the new
		// connection to start once teardown finishes.
		c.setPending(ev.descriptor, ev.done)

	case StatusConnected:
		c.setPending(ev.descriptor, ev.done)
		c.beginDisconnect(nil)

	case StatusDisconnecting:
		c.setPending(ev.descriptor, ev.done)
	}
}

func (c *Connector) setPending(d *Descriptor, done chan error) {
	if c.pending != nil {
		resolve(c.pending.done, fmt.Errorf("%w: superseded by a newer request", common.ErrConflict))
	}
	c.pending = &pendingConnect{descriptor: d, done: done}
}

func (c *Connector) startAttempt(d *Descriptor, done chan error) {
	backend, err := c.deps.Registry.Backend(d.Backend, d.Protocol)
	if err != nil {
		resolve(done, err)
		return
	}

	d = d.Clone()
	if d.Prefix == "" {
		d.Prefix = backend.PersistencePrefix()
	}
	d.KillSwitch = c.deps.KillSwitch.Mode()

	ctx, cancel := context.WithCancel(context.Background())
	att := &attempt{
		descriptor: d.Clone(),
		backend:    backend,
		ctx:        ctx,
		cancel:     cancel,
		settled:    make(chan struct{}),
	}

	c.descriptor = d
	c.backend = backend
	c.attempt = att
	c.connectDone = done
	c.cancelRequested = false

	op := c.nextOp()
	c.armWatchdog(c.deps.ConnectTimeout, op)
	c.setState(StatusConnecting, nil)

	go c.runConnect(att, op)
}

// runConnect performs the connect side-effect chain for one attempt:
// kill switch first, then backend setup, then persistence, then
// activation. The steps are strictly sequential and every one honors the
// attempt's cancellation context.
func (c *Connector) runConnect(att *attempt, op uint64) {
	if err := c.deps.KillSwitch.Enable(att.ctx); err != nil {
		c.settle(att, op, err)
		return
	}

	uniqueID, err := att.backend.Setup(att.ctx, att.descriptor)
	if err != nil {
		c.settle(att, op, fmt.Errorf("%w: %v", common.ErrBackendSetup, err))
		return
	}
	att.uniqueID = uniqueID
	att.descriptor.UniqueID = uniqueID

	// Persist immediately after the backend assigns the profile id. A
	// connection without a durable record is degraded, not broken.
	if err := c.deps.Persistence.Save(att.descriptor); err != nil {
		common.LogWarn("persisting connection parameters: %v", err)
	}

	if err := att.backend.Up(att.ctx, uniqueID); err != nil {
		c.settle(att, op, fmt.Errorf("%w: %v", common.ErrBackendSetup, err))
		return
	}
	c.settle(att, op, nil)
}

// settle records the attempt outcome and delivers the completion event.
// The settled channel closes before the event is enqueued so that a
// teardown waiting on the attempt observes uniqueID and upErr.
func (c *Connector) settle(att *attempt, op uint64, err error) {
	att.upErr = err
	close(att.settled)
	if err != nil {
		c.enqueue(event{typ: eventFailed, err: err, op: op})
	} else {
		c.enqueue(event{typ: eventSucceeded, op: op})
	}
}

func (c *Connector) handleCancel() {
	if c.state.Status != StatusConnecting || c.attempt == nil {
		common.LogWarn("cancel received in state %s, ignoring", c.state.Status)
		return
	}

	att := c.attempt
	c.attempt = nil
	c.cancelRequested = true

	op := c.nextOp()
	c.armWatchdog(c.deps.DisconnectTimeout, op)
	c.setState(StatusDisconnecting, nil)

	att.cancel()
	go c.runCancelTeardown(att, op)
}

// runCancelTeardown waits for the cancelled attempt to settle and then runs
// the backend's teardown path, which must execute even if setup never
// completed. An attempt that won the race and came up anyway is simply
// torn down again.
func (c *Connector) runCancelTeardown(att *attempt, op uint64) {
	<-att.settled

	if att.uniqueID != "" {
		ctx, cancel := context.WithTimeout(context.Background(), c.deps.DisconnectTimeout)
		defer cancel()
		if err := att.backend.Down(ctx, att.uniqueID); err != nil {
			c.enqueue(event{
				typ: eventFailed,
				err: fmt.Errorf("%w: %v", common.ErrBackendTeardown, err),
				op:  op,
			})
			return
		}
	}
	c.enqueue(event{typ: eventSucceeded, op: op})
}

func (c *Connector) handleDown(ev event) {
	switch c.state.Status {
	case StatusDisconnected, StatusTransient:
		resolve(ev.done, nil)

	case StatusError:
		// Resources were already released on the way into the error
		// state; acknowledge and rest in Disconnected.
		c.setState(StatusDisconnected, nil)
		resolve(ev.done, nil)

	case StatusConnected:
		c.beginDisconnect(ev.done)

	case StatusConnecting:
		// A disconnect while connecting aborts the attempt the same way
		// an explicit cancel does.
		if ev.done != nil {
			c.disconnectDone = append(c.disconnectDone, ev.done)
		}
		c.handleCancel()

	case StatusDisconnecting:
		if ev.done != nil {
			c.disconnectDone = append(c.disconnectDone, ev.done)
		}
	}
}

func (c *Connector) beginDisconnect(done chan error) {
	if done != nil {
		c.disconnectDone = append(c.disconnectDone, done)
	}

	backend := c.backend
	uniqueID := c.descriptor.UniqueID
	op := c.nextOp()
	c.armWatchdog(c.deps.DisconnectTimeout, op)
	c.setState(StatusDisconnecting, nil)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.deps.DisconnectTimeout)
		defer cancel()
		if err := backend.Down(ctx, uniqueID); err != nil {
			c.enqueue(event{
				typ: eventFailed,
				err: fmt.Errorf("%w: %v", common.ErrBackendTeardown, err),
				op:  op,
			})
			return
		}
		c.enqueue(event{typ: eventSucceeded, op: op})
	}()
}

func (c *Connector) handleCompletion(ev event) {
	if ev.op != c.curOp || c.curOp == 0 {
		common.LogDebug("discarding completion for superseded operation %d", ev.op)
		return
	}
	c.stopWatchdog()
	c.curOp = 0

	err := ev.err
	if ev.typ == eventTimeout {
		err = common.ErrTimeout
	}

	switch c.state.Status {
	case StatusConnecting:
		att := c.attempt
		c.attempt = nil
		if att != nil {
			att.cancel()
			if att.uniqueID != "" {
				c.descriptor.UniqueID = att.uniqueID
			}
		}
		if err == nil && ev.typ != eventTimeout {
			c.enterConnected()
		} else {
			c.enterError(err)
		}

	case StatusDisconnecting:
		if err == nil && ev.typ != eventTimeout {
			c.enterDisconnected()
		} else {
			c.enterError(err)
		}

	default:
		common.LogWarn("completion received in state %s, ignoring", c.state.Status)
	}
}

// enterConnected finalizes a successful attempt: leak protection is applied
// and the kill switch routing confirmed before the connect caller resumes.
func (c *Connector) enterConnected() {
	c.setState(StatusConnected, nil)

	ctx, cancel := context.WithTimeout(context.Background(), common.ManagementTimeout)
	defer cancel()

	if err := c.deps.Leak.Apply(ctx); err != nil {
		// Staying connected without leak protection would defeat its
		// purpose: tear the connection down. enterError releases the
		// tunnel.
		common.LogError("applying leak protection: %v", err)
		c.enterError(err)
		return
	}
	if err := c.deps.KillSwitch.Enable(ctx); err != nil {
		common.LogError("confirming kill switch: %v", err)
		c.enterError(err)
		return
	}

	c.resolveConnect(nil)
}

// enterDisconnected finalizes a teardown. When a superseding connection is
// pending, protection policies stay in place across the handover and the
// new attempt starts immediately.
func (c *Connector) enterDisconnected() {
	c.cancelRequested = false
	c.setState(StatusDisconnected, nil)

	c.resolveConnect(common.ErrCancelled)
	c.resolveDisconnects(nil)

	if c.pending != nil {
		p := c.pending
		c.pending = nil
		c.startAttempt(p.descriptor, p.done)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), common.ManagementTimeout)
	defer cancel()

	if err := c.deps.Leak.Revert(ctx); err != nil {
		common.LogError("reverting leak protection: %v", err)
	}
	if err := c.deps.KillSwitch.Disable(ctx); err != nil {
		common.LogError("disabling kill switch: %v", err)
	}
	if !c.deps.RememberLast {
		if err := c.deps.Persistence.Clear(); err != nil {
			common.LogWarn("clearing connection record: %v", err)
		}
	}
}

// enterError moves the machine to the error state and releases every held
// resource best-effort: the failure that brought us here must not leave a
// stale profile, kill switch, or leak policy behind.
func (c *Connector) enterError(reason error) {
	c.cancelRequested = false
	c.setState(StatusError, reason)

	c.releaseTunnel()

	ctx, cancel := context.WithTimeout(context.Background(), common.ManagementTimeout)
	defer cancel()

	if err := c.deps.Leak.Revert(ctx); err != nil {
		common.LogError("reverting leak protection: %v", err)
	}
	if err := c.deps.KillSwitch.Disable(ctx); err != nil {
		common.LogError("disabling kill switch: %v", err)
	}
	if err := c.deps.Persistence.Clear(); err != nil {
		common.LogWarn("clearing connection record: %v", err)
	}

	c.resolveConnect(reason)
	c.resolveDisconnects(reason)

	if c.pending != nil {
		p := c.pending
		c.pending = nil
		resolve(p.done, reason)
	}
}

// releaseTunnel asks the backend to drop the OS-level profile, best-effort.
func (c *Connector) releaseTunnel() {
	if c.backend == nil || c.descriptor == nil || c.descriptor.UniqueID == "" {
		return
	}
	backend := c.backend
	uniqueID := c.descriptor.UniqueID
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.deps.DisconnectTimeout)
		defer cancel()
		if err := backend.Down(ctx, uniqueID); err != nil {
			common.LogWarn("releasing tunnel %s: %v", uniqueID, err)
		}
	}()
}

func (c *Connector) handleNetworkDown() {
	if c.state.Status != StatusConnected {
		common.LogDebug("network down in state %s, nothing to do", c.state.Status)
		return
	}

	if c.deps.Reconnect != nil && c.deps.Reconnect(c.descriptor) {
		common.LogInfo("network down, reconnecting %s", c.descriptor)

		// The reconnect is a full attempt so that Cancel and Disconnect
		// can preempt it exactly like a first connect. The profile
		// already exists, so uniqueID is known up front.
		ctx, cancel := context.WithCancel(context.Background())
		att := &attempt{
			descriptor: c.descriptor.Clone(),
			backend:    c.backend,
			ctx:        ctx,
			cancel:     cancel,
			settled:    make(chan struct{}),
			uniqueID:   c.descriptor.UniqueID,
		}
		c.attempt = att
		c.cancelRequested = false

		op := c.nextOp()
		c.armWatchdog(c.deps.ConnectTimeout, op)
		c.setState(StatusConnecting, nil)

		go c.runReconnect(att, op)
		return
	}

	c.enterError(fmt.Errorf("%w: network down", common.ErrBackendSetup))
}

// runReconnect cycles the existing tunnel after a network loss. The steps
// honor the attempt's cancellation context.
func (c *Connector) runReconnect(att *attempt, op uint64) {
	// Cycle the tunnel: a half-dead session would otherwise keep the
	// activation from converging.
	if err := att.backend.Down(att.ctx, att.uniqueID); err != nil {
		common.LogDebug("pre-reconnect teardown: %v", err)
	}
	if err := att.backend.Up(att.ctx, att.uniqueID); err != nil {
		c.settle(att, op, fmt.Errorf("%w: %v", common.ErrBackendSetup, err))
		return
	}
	c.settle(att, op, nil)
}

func (c *Connector) handleDeviceDisconnected() {
	switch c.state.Status {
	case StatusConnected:
		// Externally-triggered teardown: the tunnel is already gone.
		c.curOp = 0
		c.stopWatchdog()
		c.releaseTunnel()
		c.enterDisconnected()

	case StatusConnecting:
		if att := c.attempt; att != nil {
			att.cancel()
			c.attempt = nil
		}
		c.curOp = 0
		c.stopWatchdog()
		c.enterDisconnected()

	default:
		common.LogDebug("device disconnect in state %s, nothing to do", c.state.Status)
	}
}

// =============================================================================
// Helpers
// =============================================================================

func (c *Connector) nextOp() uint64 {
	c.opSeq++
	c.curOp = c.opSeq
	return c.opSeq
}

func (c *Connector) armWatchdog(d time.Duration, op uint64) {
	c.stopWatchdog()
	c.watchdog = time.AfterFunc(d, func() {
		c.enqueue(event{typ: eventTimeout, op: op})
	})
}

func (c *Connector) stopWatchdog() {
	if c.watchdog != nil {
		c.watchdog.Stop()
		c.watchdog = nil
	}
}

func (c *Connector) resolveConnect(err error) {
	if c.connectDone != nil {
		resolve(c.connectDone, err)
		c.connectDone = nil
	}
}

func (c *Connector) resolveDisconnects(err error) {
	for _, done := range c.disconnectDone {
		resolve(done, err)
	}
	c.disconnectDone = nil
}

func (c *Connector) wait(ctx context.Context, done chan error) error {
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func resolve(done chan error, err error) {
	if done == nil {
		return
	}
	select {
	case done <- err:
	default:
	}
}
