package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/yllada/vpn-connector/vpn"
)

var (
	titleStyle        = lipgloss.NewStyle().Bold(true)
	connectedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	transitionStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	disconnectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	helpStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// stateMsg delivers a state change into the TUI event loop.
type stateMsg vpn.State

// watchModel renders the live connection state.
type watchModel struct {
	spinner spinner.Model
	state   vpn.State
	since   time.Time
}

func newWatchModel(initial vpn.State) watchModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = transitionStyle
	return watchModel{spinner: s, state: initial, since: initial.At}
}

func (m watchModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
		return m, nil

	case stateMsg:
		m.state = vpn.State(msg)
		m.since = m.state.At
		return m, nil

	default:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
}

func (m watchModel) View() string {
	var line string
	switch m.state.Status {
	case vpn.StatusConnected:
		line = connectedStyle.Render("● " + m.state.Status.String())
	case vpn.StatusConnecting, vpn.StatusDisconnecting:
		line = m.spinner.View() + transitionStyle.Render(m.state.Status.String())
	case vpn.StatusError:
		line = errorStyle.Render("✗ " + m.state.Status.String())
	default:
		line = disconnectedStyle.Render("○ " + m.state.Status.String())
	}

	out := titleStyle.Render("VPN Connector") + "\n\n  " + line + "\n"
	if d := m.state.Descriptor; d != nil {
		out += fmt.Sprintf("  Server:   %s\n", displayName(d))
		out += fmt.Sprintf("  Protocol: %s\n", d.Protocol)
	}
	if m.state.Reason != nil {
		out += "  " + errorStyle.Render(m.state.Reason.Error()) + "\n"
	}
	if !m.since.IsZero() {
		out += fmt.Sprintf("  Since:    %s\n", m.since.Format("15:04:05"))
	}
	out += "\n" + helpStyle.Render("  q to quit")
	return out
}

// Watch renders the connection state live until the user quits.
func (c *CLI) Watch(ctx context.Context) error {
	program := tea.NewProgram(newWatchModel(c.connector.CurrentState()))

	handle := c.connector.Subscribe(func(s vpn.State) {
		program.Send(stateMsg(s))
	})
	defer c.connector.Unsubscribe(handle)

	go func() {
		<-ctx.Done()
		program.Quit()
	}()

	_, err := program.Run()
	return err
}
