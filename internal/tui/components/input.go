package components

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/0x007E/hal-avr-mega-uart/internal/tui/styles"
)

// Input wraps the textinput used to compose outgoing data.
type Input struct {
	textInput textinput.Model
}

func NewInput(placeholder string) *Input {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 256
	ti.Prompt = "> "
	return &Input{textInput: ti}
}

func (i *Input) SetWidth(width int) {
	usable := width - 6 // border, padding and prompt
	if usable < 20 {
		usable = 20
	}
	i.textInput.Width = usable
}

func (i *Input) Focus() { i.textInput.Focus() }
func (i *Input) Blur()  { i.textInput.Blur() }

func (i *Input) Focused() bool { return i.textInput.Focused() }

func (i *Input) Value() string { return i.textInput.Value() }

func (i *Input) Reset() { i.textInput.SetValue("") }

func (i *Input) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	i.textInput, cmd = i.textInput.Update(msg)
	return cmd
}

func (i *Input) View() string {
	return styles.InputStyle.Render(i.textInput.View())
}
