package models

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	uart "github.com/0x007E/hal-avr-mega-uart"
	"github.com/0x007E/hal-avr-mega-uart/internal/tui/components"
	"github.com/0x007E/hal-avr-mega-uart/internal/tui/keys"
	"github.com/0x007E/hal-avr-mega-uart/internal/tui/styles"
)

// RxMsg reports one byte received by the local driver.
type RxMsg struct {
	Byte  byte
	Flags uart.Flags
	When  time.Time
}

// txDoneMsg reports data transmitted from the input line.
type txDoneMsg struct {
	Data []byte
	When time.Time
}

// LinkErrMsg reports a driver error from a background operation.
type LinkErrMsg struct{ Err error }

type handshakeTickMsg time.Time

// ConsoleModel is the interactive console: a frame log, an input line for
// outgoing data and a status bar with link and error-flag state.
type ConsoleModel struct {
	local *uart.Driver

	statusBar *components.StatusBar
	terminal  *components.Terminal
	input     *components.Input
	keys      keys.ConsoleKeys
	help      help.Model

	showHelp bool
	ready    bool
	width    int
	height   int
	err      error
}

func NewConsole(local *uart.Driver, info components.ConnectionInfo) *ConsoleModel {
	return &ConsoleModel{
		local:     local,
		statusBar: components.NewStatusBar("uartctl", info),
		terminal:  components.NewTerminal(80, 20),
		input:     components.NewInput("type data, enter to send"),
		keys:      keys.NewConsoleKeys(),
		help:      help.New(),
	}
}

func (m *ConsoleModel) Init() tea.Cmd {
	return handshakeTick()
}

func handshakeTick() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return handshakeTickMsg(t)
	})
}

// sendCmd transmits the input line followed by CRLF on the driver's
// transmit path. It runs in the bubbletea command goroutine, so flow
// control pauses stall the command, not the interface.
func (m *ConsoleModel) sendCmd(data []byte) tea.Cmd {
	return func() tea.Msg {
		for _, b := range data {
			if _, err := m.local.Send(b); err != nil {
				return LinkErrMsg{Err: err}
			}
		}
		return txDoneMsg{Data: data, When: time.Now()}
	}
}

func (m *ConsoleModel) forceHandshakeCmd(req uart.HandshakeState) tea.Cmd {
	return func() tea.Msg {
		if _, err := m.local.Handshake(req); err != nil {
			return LinkErrMsg{Err: err}
		}
		return handshakeTickMsg(time.Now())
	}
}

func (m *ConsoleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.statusBar.SetWidth(msg.Width)
		m.input.SetWidth(msg.Width)
		m.help.Width = msg.Width
		m.terminal.SetSize(msg.Width, msg.Height-6)
		m.ready = true
		return m, nil

	case RxMsg:
		m.terminal.AddEntry(components.FrameEntry{
			When:      msg.When,
			Direction: components.DirectionRx,
			Byte:      msg.Byte,
			Flags:     msg.Flags,
		})
		m.statusBar.CountFlags(msg.Flags)
		return m, nil

	case txDoneMsg:
		for _, b := range msg.Data {
			m.terminal.AddEntry(components.FrameEntry{
				When:      msg.When,
				Direction: components.DirectionTx,
				Byte:      b,
			})
		}
		return m, nil

	case LinkErrMsg:
		m.err = msg.Err
		return m, nil

	case handshakeTickMsg:
		if state, err := m.local.Handshake(uart.HandshakeQuery); err == nil {
			m.statusBar.SetHandshake(state)
		}
		return m, handshakeTick()

	case tea.KeyMsg:
		if m.input.Focused() {
			switch {
			case key.Matches(msg, m.keys.Escape):
				m.input.Blur()
				return m, nil
			case msg.Type == tea.KeyEnter:
				data := append([]byte(m.input.Value()), '\r', '\n')
				m.input.Reset()
				return m, m.sendCmd(data)
			}
			return m, m.input.Update(msg)
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.showHelp = !m.showHelp
			return m, nil
		case key.Matches(msg, m.keys.InsertMode):
			m.input.Focus()
			return m, nil
		case key.Matches(msg, m.keys.Clear):
			m.terminal.Clear()
			return m, nil
		case key.Matches(msg, m.keys.ToggleHex):
			m.terminal.ToggleHex()
			return m, nil
		case key.Matches(msg, m.keys.Pause):
			return m, m.forceHandshakeCmd(uart.HandshakePause)
		case key.Matches(msg, m.keys.Resume):
			return m, m.forceHandshakeCmd(uart.HandshakeReady)
		}
		return m, nil
	}

	_, cmd := m.terminal.Update(msg)
	return m, cmd
}

func (m *ConsoleModel) View() string {
	if !m.ready {
		return "initializing..."
	}
	sections := []string{
		m.statusBar.View(),
		styles.ContentBorderStyle.Width(m.width).Render(m.terminal.View()),
		m.input.View(),
	}
	if m.err != nil {
		sections = append(sections, styles.ErrorStyle.Render(m.err.Error()))
	}
	if m.showHelp {
		sections = append(sections, m.help.FullHelpView(m.keys.FullHelp()))
	} else {
		sections = append(sections, m.help.ShortHelpView(m.keys.ShortHelp()))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}
