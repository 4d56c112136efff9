package cli

import "fmt"

// PrintHelp prints CLI usage help.
func PrintHelp() {
	fmt.Println(`VPN Connector - VPN connection lifecycle manager

Usage:
  vpn-connector [options]

Connection:
  -connect            Establish a connection (requires -server and -ip)
  -server <id>        Server identifier
  -name <name>        Human-readable server name
  -ip <address>       Server address
  -port <port>        Server port (0 selects the protocol default)
  -protocol <proto>   openvpn-udp, openvpn-tcp, wireguard, or ikev2
  -backend <backend>  networkmanager or native (empty picks the best)
  -pubkey <key>       Server public key (WireGuard only)
  -last               Repeat the last remembered connection
  -disconnect         Stop the current connection

Inspection:
  -status             Show the current connection state
  -watch              Show the connection state live
  -history <n>        Show the last n state transitions

Credentials:
  -set-credentials <id>   Store credentials for a server

General:
  -version            Show version and exit
  -verbose            Enable verbose logging
  -help               Show this help

Examples:
  vpn-connector -connect -server nl-42 -ip 198.51.100.7 -protocol openvpn-udp
  vpn-connector -status
  vpn-connector -disconnect`)
}
