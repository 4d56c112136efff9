package vpn

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/yllada/vpn-connector/common"
)

// Backend is the contract every protocol/transport pair implements. The
// connector depends only on this interface, never on a concrete variant.
//
// Up and Down may take a long time and must honor context cancellation.
// Down must be safe to call even if Up never completed, so that a cancelled
// or failed attempt can always be cleaned up.
type Backend interface {
	// ProtocolID returns the protocol identifier, e.g. "openvpn-udp".
	ProtocolID() string

	// PersistencePrefix namespaces the OS-level profile identifiers this
	// backend creates, so profiles from different connection managers
	// never collide.
	PersistencePrefix() string

	// Setup creates and configures the underlying tunnel resource and
	// returns the stable identifier used for all subsequent lookups.
	Setup(ctx context.Context, d *Descriptor) (uniqueID string, err error)

	// Up activates the tunnel. Blocks until the tunnel is confirmed up,
	// the context is cancelled, or the attempt fails.
	Up(ctx context.Context, uniqueID string) error

	// Down tears the tunnel down and releases the OS-level profile.
	Down(ctx context.Context, uniqueID string) error

	// Probe reports whether the profile identified by uniqueID is still
	// up at the OS level. Used after a process restart to resume
	// visibility of an existing tunnel without re-running Setup.
	Probe(ctx context.Context, uniqueID string) (bool, error)
}

// Factory creates backends for the protocols a connection manager family
// supports.
type Factory interface {
	// BackendID returns the backend identifier, e.g. "networkmanager".
	BackendID() string

	// Protocols lists the protocol identifiers this factory supports.
	Protocols() []string

	// New returns a backend for the given protocol.
	New(protocol string) (Backend, error)

	// Priority orders factories when the caller does not name a backend.
	// Lower wins. Implementations should derive it from the environment,
	// e.g. whether the connection manager service is actually running.
	Priority() int
}

// Registry holds the available backend factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty backend registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory. A factory registered under an already-known
// backend id replaces the previous one.
func (r *Registry) Register(f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[f.BackendID()] = f
}

// Backend resolves a backend for the given backend id and protocol. An
// empty backend id selects, among the factories supporting the protocol,
// the one with the lowest priority value.
func (r *Registry) Backend(backendID, protocol string) (Backend, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if backendID != "" {
		f, ok := r.factories[backendID]
		if !ok {
			return nil, fmt.Errorf("%w: %q", common.ErrMissingBackend, backendID)
		}
		return f.New(protocol)
	}

	candidates := make([]Factory, 0, len(r.factories))
	for _, f := range r.factories {
		if supportsProtocol(f, protocol) {
			candidates = append(candidates, f)
		}
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: %q", common.ErrMissingProtocol, protocol)
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Priority() < candidates[j].Priority()
	})
	return candidates[0].New(protocol)
}

// Backends lists the registered backend ids.
func (r *Registry) Backends() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.factories))
	for id := range r.factories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func supportsProtocol(f Factory, protocol string) bool {
	for _, p := range f.Protocols() {
		if p == protocol {
			return true
		}
	}
	return false
}
