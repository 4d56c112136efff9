package vpn

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/yllada/vpn-connector/common"
)

// IPv6PolicyApplier is the OS boundary for blocking the network family not
// carried by the tunnel. Revert must restore the pre-connection state
// exactly, including the case where no block was originally present.
type IPv6PolicyApplier interface {
	Apply(ctx context.Context) error
	Revert(ctx context.Context) error
}

// LeakProtectionManager applies the IPv6 traffic block while a connection
// is up, and guarantees it is reverted on every exit from the connected
// state, including failure paths. Apply and Revert are idempotent.
type LeakProtectionManager struct {
	mu      sync.Mutex
	applier IPv6PolicyApplier
	enabled bool // policy from configuration
	applied bool
}

// NewLeakProtectionManager creates a manager. When enabled is false, Apply
// and Revert are no-ops: the caller opted out of leak protection.
func NewLeakProtectionManager(applier IPv6PolicyApplier, enabled bool) *LeakProtectionManager {
	return &LeakProtectionManager{applier: applier, enabled: enabled}
}

// Applied reports whether the block is currently in place.
func (m *LeakProtectionManager) Applied() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applied
}

// Apply blocks the non-tunnel network family.
func (m *LeakProtectionManager) Apply(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.enabled || m.applied {
		return nil
	}
	if err := m.applier.Apply(ctx); err != nil {
		return fmt.Errorf("%w: %v", common.ErrLeakProtectionApply, err)
	}
	m.applied = true
	return nil
}

// Revert restores the pre-connection state.
func (m *LeakProtectionManager) Revert(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.applied {
		return nil
	}
	if err := m.applier.Revert(ctx); err != nil {
		return fmt.Errorf("%w: %v", common.ErrLeakProtectionApply, err)
	}
	m.applied = false
	return nil
}

// sysctlIPv6Applier disables IPv6 system-wide through sysctl. The
// pre-connection value is recorded in a file under the state directory so
// that a process restart, which resumes the tunnel and re-applies the
// policy, still restores the user's original setting on the eventual
// revert.
type sysctlIPv6Applier struct {
	recordPath string
	readValue  func(ctx context.Context) (string, error)
	writeValue func(ctx context.Context, value string) error
}

// NewSysctlIPv6Applier returns the default IPv6 policy applier for Linux.
// The baseline record lives under stateDir.
func NewSysctlIPv6Applier(stateDir string) IPv6PolicyApplier {
	return &sysctlIPv6Applier{
		recordPath: filepath.Join(stateDir, "ipv6.prev"),
		readValue:  readSysctlIPv6,
		writeValue: writeSysctlIPv6,
	}
}

const disableIPv6Key = "net.ipv6.conf.all.disable_ipv6"

func readSysctlIPv6(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, "sysctl", "-n", disableIPv6Key).Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func writeSysctlIPv6(ctx context.Context, value string) error {
	return exec.CommandContext(ctx, "sysctl", "-w", disableIPv6Key+"="+value).Run()
}

func (a *sysctlIPv6Applier) Apply(ctx context.Context) error {
	prev, err := a.baseline()
	if err != nil {
		return err
	}
	if prev == "" {
		// No record yet: this is the first apply since the block was
		// last reverted, so the current value is the one to restore.
		cur, err := a.readValue(ctx)
		if err != nil {
			return fmt.Errorf("read %s: %w", disableIPv6Key, err)
		}
		if cur == "1" {
			return nil // IPv6 already disabled, nothing to change or restore
		}
		if err := os.WriteFile(a.recordPath, []byte(cur+"\n"), 0600); err != nil {
			return fmt.Errorf("recording %s baseline: %w", disableIPv6Key, err)
		}
	}
	if err := a.writeValue(ctx, "1"); err != nil {
		return fmt.Errorf("write %s: %w", disableIPv6Key, err)
	}
	return nil
}

func (a *sysctlIPv6Applier) Revert(ctx context.Context) error {
	prev, err := a.baseline()
	if err != nil {
		return err
	}
	if prev == "" {
		return nil // nothing was changed
	}
	if err := a.writeValue(ctx, prev); err != nil {
		return fmt.Errorf("restore %s: %w", disableIPv6Key, err)
	}
	return os.Remove(a.recordPath)
}

// baseline returns the recorded pre-connection value, or "" when no block
// is in place.
func (a *sysctlIPv6Applier) baseline() (string, error) {
	data, err := os.ReadFile(a.recordPath)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading %s baseline: %w", disableIPv6Key, err)
	}
	return strings.TrimSpace(string(data)), nil
}
