// Package vpnconfig renders the on-disk configuration files consumed by the
// native tunnel processes: OpenVPN client configs and wg-quick INI files.
// Rendered files carry credentials material and are always created 0600.
package vpnconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/yllada/vpn-connector/common"
	"github.com/yllada/vpn-connector/vpn"
)

// openvpnTemplate is the client config handed to the openvpn process. The
// management socket and credential file are passed on the command line, so
// the config only describes the transport.
const openvpnTemplate = `client
dev tun
proto {{ .Proto }}
remote {{ .ServerIP }} {{ .Port }}
resolv-retry infinite
nobind
persist-key
persist-tun
remote-cert-tls server
auth SHA512
cipher AES-256-GCM
verb 3
{{- if .DisableIPv6 }}
pull-filter ignore "route-ipv6"
pull-filter ignore "ifconfig-ipv6"
{{- end }}
`

var ovpnTmpl = template.Must(template.New("ovpn").Parse(openvpnTemplate))

type openvpnParams struct {
	Proto       string
	ServerIP    string
	Port        int
	DisableIPv6 bool
}

// RenderOpenVPN produces the client config for the descriptor.
func RenderOpenVPN(d *vpn.Descriptor, disableIPv6 bool) (string, error) {
	proto := "udp"
	port := 1194
	if d.Protocol == common.ProtocolOpenVPNTCP {
		proto = "tcp"
		port = 443
	}
	if d.ServerPort != 0 {
		port = d.ServerPort
	}

	var b strings.Builder
	err := ovpnTmpl.Execute(&b, openvpnParams{
		Proto:       proto,
		ServerIP:    d.ServerIP,
		Port:        port,
		DisableIPv6: disableIPv6,
	})
	if err != nil {
		return "", common.WrapError(err, "failed to render openvpn config")
	}
	return b.String(), nil
}

// WriteFile writes rendered configuration material into dir with
// credentials-grade permissions and returns the full path.
func WriteFile(dir, name, content string) (string, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", common.WrapError(err, "failed to create config directory")
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return "", common.WrapError(err, "failed to write config file")
	}
	return path, nil
}

// AuthFileContent is the two-line username/password file OpenVPN reads
// through --auth-user-pass.
func AuthFileContent(username, password string) string {
	return fmt.Sprintf("%s\n%s\n", username, password)
}
