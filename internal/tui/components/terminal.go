package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	uart "github.com/0x007E/hal-avr-mega-uart"
	"github.com/0x007E/hal-avr-mega-uart/internal/tui/styles"
)

// Direction of a logged frame relative to the local driver.
type Direction int

const (
	DirectionTx Direction = iota
	DirectionRx
)

// FrameEntry is one byte on the wire with its reception metadata.
type FrameEntry struct {
	When      time.Time
	Direction Direction
	Byte      byte
	Flags     uart.Flags
}

// Terminal renders the frame log in a scrolling viewport.
type Terminal struct {
	viewport viewport.Model
	entries  []FrameEntry
	showHex  bool
}

func NewTerminal(width, height int) *Terminal {
	return &Terminal{
		viewport: viewport.New(width, height),
		showHex:  true,
	}
}

func (t *Terminal) SetSize(width, height int) {
	t.viewport.Width = width
	t.viewport.Height = height
	t.refresh()
}

func (t *Terminal) AddEntry(e FrameEntry) {
	t.entries = append(t.entries, e)
	t.refresh()
}

func (t *Terminal) Clear() {
	t.entries = nil
	t.viewport.SetContent("")
}

func (t *Terminal) ToggleHex() {
	t.showHex = !t.showHex
	t.refresh()
}

func (t *Terminal) refresh() {
	lines := make([]string, 0, len(t.entries))
	for _, e := range t.entries {
		lines = append(lines, t.format(e))
	}
	t.viewport.SetContent(strings.Join(lines, "\n"))
	t.viewport.GotoBottom()
}

func (t *Terminal) format(e FrameEntry) string {
	ts := styles.TimestampStyle.Render(e.When.Format("15:04:05.000"))

	arrow := styles.TxStyle.Render("→")
	if e.Direction == DirectionRx {
		arrow = styles.RxStyle.Render("←")
	}

	var data string
	switch {
	case t.showHex && printable(e.Byte):
		data = fmt.Sprintf("0x%02X %q", e.Byte, string(rune(e.Byte)))
	case t.showHex:
		data = fmt.Sprintf("0x%02X", e.Byte)
	case printable(e.Byte):
		data = string(rune(e.Byte))
	default:
		data = styles.ControlStyle.Render(fmt.Sprintf("<%02X>", e.Byte))
	}

	line := fmt.Sprintf("%s %s %s", ts, arrow, data)
	if !e.Flags.OK() {
		line += " " + styles.FlagStyle.Render("["+e.Flags.String()+"]")
	}
	return line
}

func printable(b byte) bool {
	return b >= 0x20 && b < 0x7f
}

func (t *Terminal) Update(msg tea.Msg) (viewport.Model, tea.Cmd) {
	// Keep key messages away from the viewport so the console bindings win.
	switch msg.(type) {
	case tea.WindowSizeMsg:
		return t.viewport.Update(msg)
	default:
		return t.viewport, nil
	}
}

func (t *Terminal) View() string {
	return t.viewport.View()
}
