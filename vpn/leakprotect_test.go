package vpn

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/yllada/vpn-connector/common"
)

type errorApplier struct{ err error }

func (e *errorApplier) Apply(ctx context.Context) error  { return e.err }
func (e *errorApplier) Revert(ctx context.Context) error { return e.err }

func TestLeakProtectionApplyRevert(t *testing.T) {
	applier := &fakeApplier{}
	m := NewLeakProtectionManager(applier, true)
	ctx := context.Background()

	if err := m.Apply(ctx); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !m.Applied() {
		t.Fatal("expected block to be in place after apply")
	}
	// Second apply is a no-op while the block holds.
	if err := m.Apply(ctx); err != nil {
		t.Fatalf("reapply: %v", err)
	}
	if applies, _ := applier.counts(); applies != 1 {
		t.Fatalf("expected 1 applier call, got %d", applies)
	}

	if err := m.Revert(ctx); err != nil {
		t.Fatalf("revert: %v", err)
	}
	if m.Applied() {
		t.Fatal("expected block removed after revert")
	}
	if err := m.Revert(ctx); err != nil {
		t.Fatalf("second revert: %v", err)
	}
	if _, reverts := applier.counts(); reverts != 1 {
		t.Fatalf("expected 1 revert call, got %d", reverts)
	}
}

func TestLeakProtectionDisabled(t *testing.T) {
	applier := &fakeApplier{}
	m := NewLeakProtectionManager(applier, false)
	ctx := context.Background()

	if err := m.Apply(ctx); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if m.Applied() {
		t.Fatal("disabled manager must not report an active block")
	}
	if err := m.Revert(ctx); err != nil {
		t.Fatalf("revert: %v", err)
	}
	if applies, reverts := applier.counts(); applies != 0 || reverts != 0 {
		t.Fatal("disabled manager must never touch the applier")
	}
}

func TestLeakProtectionApplierError(t *testing.T) {
	m := NewLeakProtectionManager(&errorApplier{err: errors.New("sysctl exploded")}, true)

	err := m.Apply(context.Background())
	if !errors.Is(err, common.ErrLeakProtectionApply) {
		t.Fatalf("expected ErrLeakProtectionApply, got %v", err)
	}
	if m.Applied() {
		t.Fatal("failed apply must not mark the block as active")
	}
}

// sysctlRecorder pins the sysctl exchange to fixed values so the applier's
// baseline handling can be exercised without touching the system.
func sysctlRecorder(record string, current string, writes *[]string) *sysctlIPv6Applier {
	return &sysctlIPv6Applier{
		recordPath: record,
		readValue: func(context.Context) (string, error) {
			return current, nil
		},
		writeValue: func(_ context.Context, v string) error {
			*writes = append(*writes, v)
			return nil
		},
	}
}

func TestSysctlBaselineSurvivesRestart(t *testing.T) {
	record := filepath.Join(t.TempDir(), "ipv6.prev")
	var writes []string
	ctx := context.Background()

	// First run: IPv6 enabled, block applied.
	if err := sysctlRecorder(record, "0", &writes).Apply(ctx); err != nil {
		t.Fatalf("first apply: %v", err)
	}

	// A new process resumes the tunnel and re-applies the block. The
	// blocked value "1" it now reads must not become the baseline.
	resumed := sysctlRecorder(record, "1", &writes)
	if err := resumed.Apply(ctx); err != nil {
		t.Fatalf("apply after restart: %v", err)
	}
	if err := resumed.Revert(ctx); err != nil {
		t.Fatalf("revert after restart: %v", err)
	}

	if len(writes) == 0 || writes[len(writes)-1] != "0" {
		t.Fatalf("sysctl writes %v, want the original 0 restored last", writes)
	}
	if _, err := os.Stat(record); !os.IsNotExist(err) {
		t.Error("baseline record survived the revert")
	}

	// With the record gone a further revert must not touch sysctl.
	n := len(writes)
	if err := resumed.Revert(ctx); err != nil {
		t.Fatalf("revert without a block: %v", err)
	}
	if len(writes) != n {
		t.Errorf("revert without a block wrote sysctl: %v", writes[n:])
	}
}

func TestSysctlAlreadyDisabled(t *testing.T) {
	record := filepath.Join(t.TempDir(), "ipv6.prev")
	var writes []string
	ctx := context.Background()

	a := sysctlRecorder(record, "1", &writes)
	if err := a.Apply(ctx); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if err := a.Revert(ctx); err != nil {
		t.Fatalf("revert: %v", err)
	}
	if len(writes) != 0 {
		t.Errorf("sysctl written for an already disabled system: %v", writes)
	}
	if _, err := os.Stat(record); !os.IsNotExist(err) {
		t.Error("baseline recorded for an already disabled system")
	}
}
