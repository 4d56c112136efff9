package vpn

import (
	"context"
	"errors"
	"testing"

	"github.com/yllada/vpn-connector/common"
)

func TestKillSwitchModes(t *testing.T) {
	tests := []struct {
		name         string
		mode         string
		wantEnables  int
		wantDisables int
	}{
		{"connection only", common.KillSwitchConnectionOnly, 1, 1},
		{"always on keeps policy", common.KillSwitchAlwaysOn, 1, 0},
		{"off never touches service", common.KillSwitchOff, 0, 0},
		{"unknown falls back to connection only", "bogus", 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeKillSwitch{}
			k := NewKillSwitchCoordinator(svc, tt.mode)
			ctx := context.Background()

			if err := k.Enable(ctx); err != nil {
				t.Fatalf("Enable: %v", err)
			}
			if err := k.Disable(ctx); err != nil {
				t.Fatalf("Disable: %v", err)
			}

			enables, disables := svc.counts()
			if enables != tt.wantEnables || disables != tt.wantDisables {
				t.Errorf("service calls: enable=%d disable=%d, want %d/%d",
					enables, disables, tt.wantEnables, tt.wantDisables)
			}
		})
	}
}

func TestKillSwitchIdempotent(t *testing.T) {
	svc := &fakeKillSwitch{}
	k := NewKillSwitchCoordinator(svc, common.KillSwitchConnectionOnly)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := k.Enable(ctx); err != nil {
			t.Fatalf("Enable %d: %v", i, err)
		}
	}
	if enables, _ := svc.counts(); enables != 1 {
		t.Errorf("repeated Enable reached the service %d times, want 1", enables)
	}
	if !k.Enabled() {
		t.Error("Enabled() false after Enable")
	}

	for i := 0; i < 3; i++ {
		if err := k.Disable(ctx); err != nil {
			t.Fatalf("Disable %d: %v", i, err)
		}
	}
	if _, disables := svc.counts(); disables != 1 {
		t.Errorf("repeated Disable reached the service %d times, want 1", disables)
	}
	if k.Enabled() {
		t.Error("Enabled() true after Disable")
	}
}

type failingKillSwitch struct{ err error }

func (f *failingKillSwitch) Enable(ctx context.Context) error  { return f.err }
func (f *failingKillSwitch) Disable(ctx context.Context) error { return f.err }

func TestKillSwitchServiceFailure(t *testing.T) {
	k := NewKillSwitchCoordinator(&failingKillSwitch{err: errors.New("nft: no such table")},
		common.KillSwitchConnectionOnly)

	err := k.Enable(context.Background())
	if !errors.Is(err, common.ErrKillSwitchApply) {
		t.Fatalf("Enable error: got %v, want %v", err, common.ErrKillSwitchApply)
	}
	if k.Enabled() {
		t.Error("Enabled() true after failed Enable")
	}
}
