package native

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/yllada/vpn-connector/common"
	"github.com/yllada/vpn-connector/vpn"
	"github.com/yllada/vpn-connector/vpnconfig"
)

// openvpnBackend drives an openvpn process through its management socket.
// The process is detached from our session so it survives a restart of this
// program; the runtime record stores the pid and socket path needed to find
// it again.
type openvpnBackend struct {
	protocol string
	creds    common.CredentialStore
	runDir   string
}

func (b *openvpnBackend) ProtocolID() string {
	return b.protocol
}

func (b *openvpnBackend) PersistencePrefix() string {
	if b.protocol == common.ProtocolOpenVPNTCP {
		return "native-ovpn-tcp"
	}
	return "native-ovpn-udp"
}

func (b *openvpnBackend) Setup(ctx context.Context, d *vpn.Descriptor) (string, error) {
	if d.CredentialsRef == "" {
		return "", fmt.Errorf("%w: descriptor has no credentials reference", common.ErrCredentialsNotFound)
	}
	secret, err := b.creds.Get(d.CredentialsRef)
	if err != nil {
		return "", err
	}
	username, password, ok := strings.Cut(secret, ":")
	if !ok {
		return "", fmt.Errorf("%w: credential is not in username:password form", common.ErrCredentialStorage)
	}

	uniqueID := b.PersistencePrefix() + "-" + uuid.NewString()[:8]

	cfg, err := vpnconfig.RenderOpenVPN(d, true)
	if err != nil {
		return "", err
	}
	cfgPath, err := vpnconfig.WriteFile(b.runDir, uniqueID+".ovpn", cfg)
	if err != nil {
		return "", err
	}
	authPath, err := vpnconfig.WriteFile(b.runDir, uniqueID+".auth", vpnconfig.AuthFileContent(username, password))
	if err != nil {
		removeFile(cfgPath)
		return "", err
	}

	props := &runProps{
		ConfigPath: cfgPath,
		AuthPath:   authPath,
		MgmtSocket: filepath.Join(b.runDir, uniqueID+".sock"),
	}
	if err := saveProps(b.runDir, uniqueID, props); err != nil {
		removeFile(cfgPath)
		removeFile(authPath)
		return "", err
	}
	return uniqueID, nil
}

func (b *openvpnBackend) Up(ctx context.Context, uniqueID string) error {
	props, err := loadProps(b.runDir, uniqueID)
	if err != nil {
		return err
	}
	if props == nil {
		return fmt.Errorf("no runtime record for %s", uniqueID)
	}

	openvpnPath, err := exec.LookPath("openvpn")
	if err != nil {
		return common.WrapError(err, "openvpn binary not found")
	}

	cmd := exec.Command(openvpnPath,
		"--config", props.ConfigPath,
		"--auth-user-pass", props.AuthPath,
		"--management", props.MgmtSocket, "unix",
		"--auth-nocache",
	)
	// New session: the tunnel must not die with this process.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return common.WrapError(err, "failed to start openvpn")
	}

	props.PID = cmd.Process.Pid
	if err := saveProps(b.runDir, uniqueID, props); err != nil {
		common.LogWarn("recording openvpn pid: %v", err)
	}
	go cmd.Wait()

	common.LogInfo("openvpn started for %s (pid %d)", uniqueID, props.PID)
	return b.waitConnected(ctx, props)
}

// waitConnected polls the management socket until the daemon reports
// CONNECTED. Cancellation terminates the daemon before returning.
func (b *openvpnBackend) waitConnected(ctx context.Context, props *runProps) error {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.terminate(props)
			return ctx.Err()
		case <-ticker.C:
		}

		if !pidAlive(props.PID) {
			return fmt.Errorf("openvpn process %d exited during activation", props.PID)
		}

		client, err := dialMgmt(ctx, props.MgmtSocket)
		if err != nil {
			// Socket appears once the daemon finishes starting up.
			continue
		}
		state, err := client.State(ctx)
		client.Close()
		if err != nil {
			continue
		}
		common.LogDebug("openvpn %s state: %s", props.MgmtSocket, state)
		if state == "CONNECTED" {
			return nil
		}
		if state == "EXITING" {
			return fmt.Errorf("openvpn is exiting before reaching the connected state")
		}
	}
}

func (b *openvpnBackend) Down(ctx context.Context, uniqueID string) error {
	props, err := loadProps(b.runDir, uniqueID)
	if err != nil {
		return err
	}
	if props == nil {
		return nil
	}

	b.terminate(props)

	removeFile(props.ConfigPath)
	removeFile(props.AuthPath)
	removeFile(props.MgmtSocket)
	removeProps(b.runDir, uniqueID)
	common.LogInfo("openvpn tunnel %s released", uniqueID)
	return nil
}

// terminate stops the daemon, first through the management interface and
// then, if it lingers, with signals.
func (b *openvpnBackend) terminate(props *runProps) {
	ctx, cancel := context.WithTimeout(context.Background(), common.ManagementTimeout)
	defer cancel()

	if client, err := dialMgmt(ctx, props.MgmtSocket); err == nil {
		if err := client.Terminate(); err != nil {
			common.LogDebug("terminating via management socket: %v", err)
		}
		client.Close()
	}

	if props.PID == 0 {
		return
	}
	deadline := time.Now().Add(5 * time.Second)
	for pidAlive(props.PID) {
		if time.Now().After(deadline) {
			common.LogWarn("openvpn pid %d did not exit, killing", props.PID)
			syscall.Kill(props.PID, syscall.SIGKILL)
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
}

func (b *openvpnBackend) Probe(ctx context.Context, uniqueID string) (bool, error) {
	props, err := loadProps(b.runDir, uniqueID)
	if err != nil {
		return false, err
	}
	if props == nil {
		return false, nil
	}
	if props.PID == 0 || !pidAlive(props.PID) {
		return false, nil
	}

	client, err := dialMgmt(ctx, props.MgmtSocket)
	if err != nil {
		return false, nil
	}
	defer client.Close()

	state, err := client.State(ctx)
	if err != nil {
		return false, nil
	}
	return state == "CONNECTED", nil
}

// pidAlive reports whether a process with the given pid exists.
func pidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	return syscall.Kill(pid, 0) == nil
}
