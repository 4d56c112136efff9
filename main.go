// Package main provides the entry point for the VPN connector.
// VPN Connector manages the lifecycle of VPN connections on Linux: it
// establishes tunnels through NetworkManager or directly through the tunnel
// binaries, keeps the kill switch and IPv6 leak protection synchronized
// with the connection state, and persists the active connection so a
// restart resumes it.
//
// Usage:
//
//	vpn-connector [options]
//
// Environment:
//
//	NetworkManager is used when present on the system bus; otherwise
//	tunnels are run natively and require openvpn or wg-quick.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/yllada/vpn-connector/cli"
	"github.com/yllada/vpn-connector/common"
	"github.com/yllada/vpn-connector/config"
)

// Build-time variables injected via ldflags (-X main.appVersion=x.y.z)
// Default values are used for local development builds
var (
	appVersion = "dev"
	buildTime  = "unknown"
	commitSHA  = "unknown"
)

var (
	showVersion = flag.Bool("version", false, "Show version and exit")
	verbose     = flag.Bool("verbose", false, "Enable verbose logging")
	showHelp    = flag.Bool("help", false, "Show help message")

	connectFlag    = flag.Bool("connect", false, "Establish a connection")
	serverID       = flag.String("server", "", "Server identifier")
	serverName     = flag.String("name", "", "Human-readable server name")
	serverIP       = flag.String("ip", "", "Server address")
	serverPort     = flag.Int("port", 0, "Server port (0 selects the protocol default)")
	serverPubKey   = flag.String("pubkey", "", "Server public key (WireGuard)")
	protocol       = flag.String("protocol", "", "Protocol: openvpn-udp, openvpn-tcp, wireguard, ikev2")
	backend        = flag.String("backend", "", "Backend: networkmanager or native")
	lastConnection = flag.Bool("last", false, "Repeat the last remembered connection")
	disconnectFlag = flag.Bool("disconnect", false, "Stop the current connection")

	showStatus  = flag.Bool("status", false, "Show the current connection state")
	watchFlag   = flag.Bool("watch", false, "Show the connection state live")
	historyN    = flag.Int("history", 0, "Show the last n state transitions")
	setCredsFor = flag.String("set-credentials", "", "Store credentials for a server")
)

func main() {
	flag.Parse()

	if *showHelp {
		cli.PrintHelp()
		os.Exit(0)
	}
	if *showVersion {
		fmt.Printf("%s v%s\n", common.AppName, appVersion)
		if buildTime != "unknown" {
			fmt.Printf("  Build:  %s\n", buildTime)
			fmt.Printf("  Commit: %s\n", commitSHA)
		}
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logLevel := parseLogLevel(cfg.LogLevel)
	if *verbose {
		logLevel = common.LevelDebug
	}
	if err := common.InitLogger(common.LogConfig{
		Level:       logLevel,
		EnableFile:  cfg.LogToFile,
		MaxFileSize: 5 * 1024 * 1024, // 5MB
		MaxBackups:  5,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not initialize file logging: %v\n", err)
	}
	defer common.CloseLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	setupSignalHandler(cancel)

	app, err := cli.New(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	var cliErr error
	switch {
	case *connectFlag:
		cliErr = app.Connect(ctx, cli.ConnectOptions{
			ServerID:        *serverID,
			ServerName:      *serverName,
			ServerIP:        *serverIP,
			ServerPort:      *serverPort,
			ServerPublicKey: *serverPubKey,
			Protocol:        *protocol,
			Backend:         *backend,
		})
	case *lastConnection:
		cliErr = app.Reconnect(ctx)
	case *disconnectFlag:
		cliErr = app.Disconnect(ctx)
	case *watchFlag:
		cliErr = app.Watch(ctx)
	case *historyN > 0:
		cliErr = app.History(ctx, *historyN)
	case *setCredsFor != "":
		cliErr = app.SetCredentials(*setCredsFor, *protocol)
	case *showStatus:
		cliErr = app.Status()
	default:
		cliErr = app.Status()
	}

	if cliErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", cliErr)
		os.Exit(1)
	}
}

// setupSignalHandler configures graceful shutdown on SIGINT/SIGTERM.
// When a signal is received, it cancels the context so that a blocked
// connect or disconnect returns and cleanup runs.
func setupSignalHandler(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		common.LogInfo("Received signal %v, initiating graceful shutdown...", sig)
		cancel()
	}()
}

func parseLogLevel(level string) common.LogLevel {
	switch level {
	case "debug":
		return common.LevelDebug
	case "warn":
		return common.LevelWarn
	case "error":
		return common.LevelError
	default:
		return common.LevelInfo
	}
}
