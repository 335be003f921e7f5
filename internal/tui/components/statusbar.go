package components

import (
	"fmt"
	"strings"

	uart "github.com/0x007E/hal-avr-mega-uart"
	"github.com/0x007E/hal-avr-mega-uart/internal/tui/styles"
)

// ConnectionInfo summarizes the driver configuration and link state shown in
// the status bar.
type ConnectionInfo struct {
	ClockHz     int
	BaudRate    int
	DataBits    int
	StopBits    int
	Parity      uart.Parity
	FlowControl uart.FlowControl
	Handshake   uart.HandshakeState
}

// FlagCounters accumulates advisory error flags over the session.
type FlagCounters struct {
	FrameErrors  int
	Overruns     int
	ParityErrors int
	Overflows    int
}

// Count adds the flags of one received frame.
func (fc *FlagCounters) Count(flags uart.Flags) {
	if flags&uart.FlagFrameError != 0 {
		fc.FrameErrors++
	}
	if flags&uart.FlagDataOverrun != 0 {
		fc.Overruns++
	}
	if flags&uart.FlagParityError != 0 {
		fc.ParityErrors++
	}
	if flags&uart.FlagBufferOverflow != 0 {
		fc.Overflows++
	}
}

type StatusBar struct {
	title    string
	width    int
	info     ConnectionInfo
	counters FlagCounters
}

func NewStatusBar(title string, info ConnectionInfo) *StatusBar {
	return &StatusBar{title: title, info: info}
}

func (sb *StatusBar) SetWidth(width int) {
	sb.width = width
}

func (sb *StatusBar) SetHandshake(state uart.HandshakeState) {
	sb.info.Handshake = state
}

func (sb *StatusBar) CountFlags(flags uart.Flags) {
	sb.counters.Count(flags)
}

// parityLetter renders the frame shorthand, e.g. 8N1.
func parityLetter(p uart.Parity) string {
	switch p {
	case uart.ParityEven:
		return "E"
	case uart.ParityOdd:
		return "O"
	default:
		return "N"
	}
}

func (sb *StatusBar) View() string {
	frame := fmt.Sprintf("%d %d%s%d",
		sb.info.BaudRate, sb.info.DataBits, parityLetter(sb.info.Parity), sb.info.StopBits)

	link := styles.LinkReadyStyle.Render("ready")
	if sb.info.Handshake == uart.HandshakePause {
		link = styles.LinkPausedStyle.Render("paused")
	}

	parts := []string{
		styles.TitleStyle.Render(sb.title),
		frame,
		"flow: " + sb.info.FlowControl.String(),
		"link: " + link,
		fmt.Sprintf("FE:%d OV:%d PE:%d",
			sb.counters.FrameErrors, sb.counters.Overruns, sb.counters.ParityErrors),
	}
	bar := strings.Join(parts, "  │  ")
	if sb.width > 0 {
		return styles.StatusBarStyle.Width(sb.width).Render(bar)
	}
	return styles.StatusBarStyle.Render(bar)
}
