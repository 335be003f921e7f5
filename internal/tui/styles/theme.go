package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/0x007E/hal-avr-mega-uart/internal/tui/colors"
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colors.Mauve).
			Background(colors.Surface0).
			Padding(0, 1)

	// Handshake state styles
	LinkReadyStyle = lipgloss.NewStyle().
			Foreground(colors.Green).
			Bold(true)

	LinkPausedStyle = lipgloss.NewStyle().
			Foreground(colors.Yellow).
			Bold(true)

	// Frame log styles
	TimestampStyle = lipgloss.NewStyle().
			Foreground(colors.Overlay0)

	TxStyle = lipgloss.NewStyle().
		Foreground(colors.Blue)

	RxStyle = lipgloss.NewStyle().
		Foreground(colors.Teal)

	FlagStyle = lipgloss.NewStyle().
			Foreground(colors.Red).
			Bold(true)

	ControlStyle = lipgloss.NewStyle().
			Foreground(colors.Peach)

	ContentBorderStyle = lipgloss.NewStyle().
				BorderTop(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(colors.Surface1)

	InputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colors.Surface2).
			Padding(0, 1)

	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colors.Red)

	StatusBarStyle = lipgloss.NewStyle().
			Foreground(colors.Subtext0).
			Background(colors.Surface0)
)
