package vpn

import (
	"context"
	"fmt"
	"sync"

	"github.com/yllada/vpn-connector/common"
)

// KillSwitchService is the boundary to the mechanism that installs and
// removes the default-block network policy. Installing firewall rules can
// take non-trivial time, so both operations accept a context and block
// until the policy is actually applied.
//
// The packet-filtering implementation itself lives outside this package.
type KillSwitchService interface {
	Enable(ctx context.Context) error
	Disable(ctx context.Context) error
}

// KillSwitchCoordinator keeps the kill switch synchronized with tunnel
// state under one of three policy modes:
//
//   - always-on: enabled at startup, never disabled, not even when
//     disconnected.
//   - connection-only: enabled while a connection is being established,
//     active, or being torn down; disabled otherwise.
//   - off: the service is never invoked.
//
// Enable and Disable are idempotent by construction: asking to enable an
// already-enabled switch (or disable an already-disabled one) is a no-op.
type KillSwitchCoordinator struct {
	mu      sync.Mutex
	service KillSwitchService
	mode    string
	enabled bool
}

// NewKillSwitchCoordinator creates a coordinator with the given policy
// mode. Unrecognized modes fall back to connection-only, the safest mode
// that still allows traffic when no connection was requested.
func NewKillSwitchCoordinator(service KillSwitchService, mode string) *KillSwitchCoordinator {
	switch mode {
	case common.KillSwitchAlwaysOn, common.KillSwitchConnectionOnly, common.KillSwitchOff:
	default:
		common.LogWarn("unknown kill switch mode %q, using %q", mode, common.KillSwitchConnectionOnly)
		mode = common.KillSwitchConnectionOnly
	}
	return &KillSwitchCoordinator{service: service, mode: mode}
}

// Mode returns the policy mode the coordinator was configured with.
func (k *KillSwitchCoordinator) Mode() string {
	return k.mode
}

// Enabled reports whether the block policy is currently applied.
func (k *KillSwitchCoordinator) Enabled() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.enabled
}

// Enable applies the block policy. No-op when the policy mode is off or the
// policy is already applied.
func (k *KillSwitchCoordinator) Enable(ctx context.Context) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.mode == common.KillSwitchOff || k.enabled {
		return nil
	}
	if err := k.service.Enable(ctx); err != nil {
		return fmt.Errorf("%w: %v", common.ErrKillSwitchApply, err)
	}
	k.enabled = true
	return nil
}

// Disable removes the block policy. No-op when the policy mode is
// always-on, the mode is off, or the policy is not applied.
func (k *KillSwitchCoordinator) Disable(ctx context.Context) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.mode == common.KillSwitchAlwaysOn || k.mode == common.KillSwitchOff || !k.enabled {
		return nil
	}
	if err := k.service.Disable(ctx); err != nil {
		return fmt.Errorf("%w: %v", common.ErrKillSwitchApply, err)
	}
	k.enabled = false
	return nil
}
