// Package input provides text input components for the TUI.
package input

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/styles"
)

const (
	minInputWidth = 20
	maxQuestion   = 2000
	maxQuery      = 512
)

// Input wraps a bubbles textinput with a label.
type Input struct {
	textinput textinput.Model
	styles    *styles.Styles
	label     string
	width     int
}

// New creates a focused input rendered after label.
func New(s *styles.Styles, label, placeholder string, charLimit int) *Input {
	if s == nil {
		s = styles.DefaultStyles()
	}

	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Focus()
	ti.CharLimit = charLimit
	ti.Width = 50

	return &Input{
		textinput: ti,
		styles:    s,
		label:     label,
		width:     50,
	}
}

// NewSearchInput creates the query input of the search view.
func NewSearchInput(s *styles.Styles) *Input {
	return New(s, "Search: ", "Enter search query...", maxQuery)
}

// NewQuestionInput creates the question input of the chat view.
func NewQuestionInput(s *styles.Styles) *Input {
	return New(s, "Ask: ", "Ask a question about your documents...", maxQuestion)
}

// Init initialises the input.
func (in *Input) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles input messages.
func (in *Input) Update(msg tea.Msg) (*Input, tea.Cmd) {
	var cmd tea.Cmd
	in.textinput, cmd = in.textinput.Update(msg)
	return in, cmd
}

// View renders the label and input box.
func (in *Input) View() string {
	label := in.styles.Title.Render(in.label)
	field := in.styles.InputField.Render(in.textinput.View())
	//nolint:misspell // lipgloss.Center is the correct constant from the library
	return lipgloss.JoinHorizontal(lipgloss.Center, label, field)
}

// Label returns the prompt shown before the input.
func (in *Input) Label() string {
	return in.label
}

// Value returns the current input value.
func (in *Input) Value() string {
	return in.textinput.Value()
}

// SetValue sets the input value.
func (in *Input) SetValue(value string) {
	in.textinput.SetValue(value)
}

// Focus sets focus on the input.
func (in *Input) Focus() tea.Cmd {
	return in.textinput.Focus()
}

// Blur removes focus from the input.
func (in *Input) Blur() {
	in.textinput.Blur()
}

// Focused returns whether the input is focused.
func (in *Input) Focused() bool {
	return in.textinput.Focused()
}

// SetWidth sets the width of the input, leaving room for the label.
func (in *Input) SetWidth(width int) {
	in.width = width
	in.textinput.Width = max(width-lipgloss.Width(in.label)-4, minInputWidth)
}

// Width returns the current width.
func (in *Input) Width() int {
	return in.width
}

// Reset clears the input.
func (in *Input) Reset() {
	in.textinput.Reset()
}
