package native

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/yllada/vpn-connector/common"
)

// mgmtClient speaks the OpenVPN management interface over a unix socket.
type mgmtClient struct {
	conn net.Conn
}

func dialMgmt(ctx context.Context, path string) (*mgmtClient, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return nil, common.WrapError(err, "failed to open management socket")
	}
	return &mgmtClient{conn: conn}, nil
}

func (m *mgmtClient) Close() error {
	return m.conn.Close()
}

// State queries the daemon state and returns the state name, e.g.
// "CONNECTED" or "RECONNECTING".
func (m *mgmtClient) State(ctx context.Context) (string, error) {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(common.ManagementTimeout)
	}
	if err := m.conn.SetDeadline(deadline); err != nil {
		return "", common.WrapError(err, "failed to set socket deadline")
	}

	if _, err := m.conn.Write([]byte("state\n")); err != nil {
		return "", common.WrapError(err, "failed to query daemon state")
	}

	var lines []string
	scanner := bufio.NewScanner(m.conn)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		lines = append(lines, line)
		if line == "END" {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return "", common.WrapError(err, "failed to read daemon state")
	}

	state := parseState(lines)
	if state == "" {
		return "", fmt.Errorf("no state in management output")
	}
	return state, nil
}

// Terminate asks the daemon to exit cleanly.
func (m *mgmtClient) Terminate() error {
	if err := m.conn.SetDeadline(time.Now().Add(common.ManagementTimeout)); err != nil {
		return common.WrapError(err, "failed to set socket deadline")
	}
	if _, err := m.conn.Write([]byte("signal SIGTERM\n")); err != nil {
		return common.WrapError(err, "failed to signal daemon")
	}
	return nil
}

// parseState extracts the daemon state from management interface output.
// State lines are comma-separated and start with a unix timestamp; the
// daemon may interleave real-time notices, which are skipped.
func parseState(lines []string) string {
	state := ""
	for _, line := range lines {
		if line == "" || line == "END" || strings.HasPrefix(line, ">") {
			continue
		}
		tokens := strings.Split(line, ",")
		if len(tokens) < 2 {
			continue
		}
		if _, err := strconv.ParseInt(tokens[0], 10, 64); err != nil {
			continue
		}
		state = tokens[1]
	}
	return state
}
