// Package cli provides the command-line interface for the VPN connector.
// It assembles the orchestrator, backends, and protection policies, and
// exposes connect/disconnect/status/history operations for the terminal.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"golang.org/x/term"

	"github.com/yllada/vpn-connector/common"
	"github.com/yllada/vpn-connector/config"
	"github.com/yllada/vpn-connector/history"
	"github.com/yllada/vpn-connector/keyring"
	"github.com/yllada/vpn-connector/native"
	"github.com/yllada/vpn-connector/nm"
	"github.com/yllada/vpn-connector/vpn"
)

// CLI bundles the assembled application.
type CLI struct {
	cfg       *config.Config
	connector *vpn.Connector
	journal   *history.Journal
	creds     *keyring.Store
	store     *vpn.PersistenceStore
	nmClient  *nm.Client
	monitor   *nm.Monitor
}

// ConnectOptions carries the connection parameters taken from flags.
type ConnectOptions struct {
	ServerID        string
	ServerName      string
	ServerIP        string
	ServerPort      int
	ServerPublicKey string
	Protocol        string
	Backend         string
}

// New assembles the application from configuration. The returned CLI owns
// the orchestrator; callers must Close it.
func New(ctx context.Context, cfg *config.Config) (*CLI, error) {
	stateDir, err := common.GetStateDir()
	if err != nil {
		return nil, err
	}

	creds, err := keyring.New()
	if err != nil {
		return nil, err
	}
	store, err := vpn.NewPersistenceStore()
	if err != nil {
		return nil, err
	}
	journal, err := history.Open(stateDir)
	if err != nil {
		return nil, err
	}

	registry := vpn.NewRegistry()
	nmClient, nmErr := nm.NewClient()
	if nmErr == nil {
		registry.Register(nm.NewFactory(nmClient, creds))
	} else {
		common.LogWarn("NetworkManager unavailable: %v", nmErr)
	}
	registry.Register(native.NewFactory(creds, filepath.Join(stateDir, "native")))

	// A surviving connection keeps the kill switch policy it was
	// established under, even if the configuration changed since.
	killSwitchMode := cfg.KillSwitchMode
	if prev, err := store.Load(); err == nil && prev != nil && prev.KillSwitch != "" {
		killSwitchMode = prev.KillSwitch
	}
	var killSwitchService vpn.KillSwitchService
	if nmClient != nil {
		killSwitchService = nm.NewKillSwitch(nmClient)
	} else {
		if killSwitchMode != common.KillSwitchOff {
			common.LogWarn("kill switch requires NetworkManager, disabling")
		}
		killSwitchMode = common.KillSwitchOff
		killSwitchService = noopKillSwitch{}
	}

	var reconnect vpn.ReconnectPolicy
	if cfg.AutoReconnect {
		reconnect = func(*vpn.Descriptor) bool { return true }
	}

	connector := vpn.NewConnector(vpn.Deps{
		Registry:       registry,
		Persistence:    store,
		KillSwitch:     vpn.NewKillSwitchCoordinator(killSwitchService, killSwitchMode),
		Leak:           vpn.NewLeakProtectionManager(vpn.NewSysctlIPv6Applier(stateDir), cfg.LeakProtection),
		Recorder:       journal,
		Reconnect:      reconnect,
		ConnectTimeout: cfg.ConnectTimeout(),
		RememberLast:   cfg.RememberLastConnection,
	})

	if err := connector.Initialize(ctx); err != nil {
		connector.Close()
		journal.Close()
		return nil, err
	}

	c := &CLI{
		cfg:       cfg,
		connector: connector,
		journal:   journal,
		creds:     creds,
		store:     store,
		nmClient:  nmClient,
	}

	if nmClient != nil {
		c.monitor = nm.NewMonitor(nmClient, connector)
		if err := c.monitor.Start(); err != nil {
			common.LogWarn("starting network monitor: %v", err)
			c.monitor = nil
		}
	}

	if cfg.HistoryRetentionDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -cfg.HistoryRetentionDays)
		if pruned, err := journal.Prune(ctx, cutoff); err == nil && pruned > 0 {
			common.LogDebug("pruned %d history entries", pruned)
		}
	}

	return c, nil
}

// Close releases the assembled resources. The tunnel itself stays up; a
// later run resumes it through persistence.
func (c *CLI) Close() {
	if c.monitor != nil {
		c.monitor.Stop()
	}
	c.connector.Close()
	c.journal.Close()
	if c.nmClient != nil {
		c.nmClient.Close()
	}
}

// noopKillSwitch stands in when no mechanism can install a block policy.
type noopKillSwitch struct{}

func (noopKillSwitch) Enable(context.Context) error  { return nil }
func (noopKillSwitch) Disable(context.Context) error { return nil }

// Connect establishes a connection for the given options, prompting for
// credentials if none are stored yet.
func (c *CLI) Connect(ctx context.Context, opts ConnectOptions) error {
	d := &vpn.Descriptor{
		Backend:         opts.Backend,
		Protocol:        opts.Protocol,
		ServerID:        opts.ServerID,
		ServerName:      opts.ServerName,
		ServerIP:        opts.ServerIP,
		ServerPort:      opts.ServerPort,
		ServerPublicKey: opts.ServerPublicKey,
		CredentialsRef:  credentialRef(opts.ServerID),
		KillSwitch:      c.cfg.KillSwitchMode,
	}
	if d.Protocol == "" {
		d.Protocol = c.cfg.Protocol
	}
	if d.Backend == "" {
		d.Backend = c.cfg.Backend
	}
	if d.Backend == "" {
		// No preference configured: NetworkManager when the service is
		// reachable, the process-managed backend otherwise.
		if c.nmClient != nil {
			d.Backend = common.BackendNetworkManager
		} else {
			d.Backend = common.BackendNative
		}
	}
	if err := d.Validate(); err != nil {
		return err
	}

	if _, err := c.creds.Get(d.CredentialsRef); err != nil {
		if err := c.promptAndStoreCredentials(d); err != nil {
			return err
		}
	}

	fmt.Printf("Connecting to %s...\n", displayName(d))
	if err := c.connector.Connect(ctx, d); err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	fmt.Printf("Connected to %s.\n", displayName(d))
	return nil
}

// Reconnect repeats the last remembered connection.
func (c *CLI) Reconnect(ctx context.Context) error {
	d, err := c.store.Load()
	if err != nil {
		return err
	}
	if d == nil {
		return fmt.Errorf("no previous connection to repeat")
	}

	d.UniqueID = "" // a fresh attempt creates its own profile

	fmt.Printf("Connecting to %s...\n", displayName(d))
	if err := c.connector.Connect(ctx, d); err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	fmt.Printf("Connected to %s.\n", displayName(d))
	return nil
}

// Disconnect stops the current connection.
func (c *CLI) Disconnect(ctx context.Context) error {
	state := c.connector.CurrentState()
	if state.Status == vpn.StatusDisconnected {
		fmt.Println("Not connected.")
		return nil
	}

	fmt.Println("Disconnecting...")
	if err := c.connector.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect failed: %w", err)
	}
	fmt.Println("Disconnected.")
	return nil
}

// Status prints the current connection state.
func (c *CLI) Status() error {
	state := c.connector.CurrentState()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "State:\t%s\n", state.Status)
	if state.Descriptor != nil {
		fmt.Fprintf(w, "Server:\t%s\n", displayName(state.Descriptor))
		fmt.Fprintf(w, "Protocol:\t%s\n", state.Descriptor.Protocol)
		fmt.Fprintf(w, "Backend:\t%s\n", state.Descriptor.Backend)
	}
	if state.Reason != nil {
		fmt.Fprintf(w, "Reason:\t%v\n", state.Reason)
	}
	fmt.Fprintf(w, "Kill switch:\t%s\n", c.cfg.KillSwitchMode)
	if !state.At.IsZero() {
		fmt.Fprintf(w, "Since:\t%s\n", state.At.Format(time.RFC1123))
	}
	return w.Flush()
}

// History prints the most recent state transitions.
func (c *CLI) History(ctx context.Context, limit int) error {
	entries, err := c.journal.Recent(ctx, limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No history recorded.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tSTATE\tSERVER\tPROTOCOL\tDETAIL")
	for _, e := range entries {
		server := e.ServerName
		if server == "" {
			server = e.ServerID
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			e.At.Format("2006-01-02 15:04:05"), e.Status, server, e.Protocol, e.Reason)
	}
	return w.Flush()
}

// SetCredentials prompts for and stores the credentials for a server.
func (c *CLI) SetCredentials(serverID, protocol string) error {
	if protocol == "" {
		protocol = c.cfg.Protocol
	}
	d := &vpn.Descriptor{ServerID: serverID, Protocol: protocol, CredentialsRef: credentialRef(serverID)}
	return c.promptAndStoreCredentials(d)
}

// promptAndStoreCredentials reads the secret for the descriptor's protocol
// from the terminal and stores it under the descriptor's reference.
func (c *CLI) promptAndStoreCredentials(d *vpn.Descriptor) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return fmt.Errorf("%w: no stored credentials and no terminal to prompt on", common.ErrCredentialsNotFound)
	}

	var secret string
	if d.Protocol == common.ProtocolWireGuard {
		fmt.Print("WireGuard private key: ")
		key, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return common.WrapError(err, "failed to read private key")
		}
		secret = string(key)
	} else {
		fmt.Print("Username: ")
		var username string
		if _, err := fmt.Scanln(&username); err != nil {
			return common.WrapError(err, "failed to read username")
		}
		fmt.Print("Password: ")
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return common.WrapError(err, "failed to read password")
		}
		secret = username + ":" + string(password)
	}

	if err := c.creds.Store(d.CredentialsRef, secret); err != nil {
		return err
	}
	fmt.Println("Credentials stored.")
	return nil
}

func credentialRef(serverID string) string {
	return "server/" + serverID
}

func displayName(d *vpn.Descriptor) string {
	if d.ServerName != "" {
		return d.ServerName
	}
	return d.ServerID
}
