// Package status renders the one-line status bar under each view.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/styles"
)

// State is what the owning view is doing.
type State string

const (
	StateReady     State = "ready"
	StateSearching State = "searching"
	StateStreaming State = "streaming"
	StateError     State = "error"
)

// Bar shows the view state on the left and key hints on the right. It is
// passive: views set it directly rather than sending it messages.
type Bar struct {
	styles  *styles.Styles
	keymap  *keymap.KeyMap
	state   State
	message string
	results int
	width   int
}

// NewBar creates a status bar. Nil arguments use the defaults.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &Bar{styles: s, keymap: km, state: StateReady, width: 80}
}

// View renders the bar at its width. The message is cut short before the
// key hints are.
func (s *Bar) View() string {
	inner := s.width - s.styles.StatusBar.GetHorizontalFrameSize()
	right := s.renderHints()
	room := max(inner-lipgloss.Width(right)-1, 0)
	left := s.renderState(room)

	padding := max(inner-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return s.styles.StatusBar.Width(s.width).Render(left + strings.Repeat(" ", padding) + right)
}

func (s *Bar) renderState(room int) string {
	switch s.state {
	case StateSearching:
		return s.styles.Muted.Render("Searching...")
	case StateStreaming:
		return s.styles.Muted.Render("Answering...")
	case StateError:
		text := "Error"
		if s.message != "" {
			text += ": " + s.message
		}
		return s.styles.Error.Render(styles.Truncate(text, room))
	}
	switch {
	case s.message != "":
		return s.styles.Normal.Render(styles.Truncate(s.message, room))
	case s.results > 0:
		return s.styles.Normal.Render(fmt.Sprintf("%d results", s.results))
	}
	return s.styles.Muted.Render("Ready")
}

func (s *Bar) renderHints() string {
	var bindings []key.Binding
	switch {
	case s.state == StateStreaming:
		bindings = s.keymap.StreamingHelp()
	case s.state == StateReady && s.results > 0:
		bindings = s.keymap.ResultsHelp()
	default:
		bindings = s.keymap.ShortHelp()
	}

	hints := make([]string, len(bindings))
	for i, b := range bindings {
		h := b.Help()
		hints[i] = h.Key + ": " + h.Desc
	}
	return s.styles.Muted.Render(strings.Join(hints, " | "))
}

// SetState sets the state, keeping any message.
func (s *Bar) SetState(state State) {
	s.state = state
}

// State returns the current state.
func (s *Bar) State() State {
	return s.state
}

// SetMessage shows message in place of the default state text.
func (s *Bar) SetMessage(message string) {
	s.message = message
}

// Message returns the current message.
func (s *Bar) Message() string {
	return s.message
}

// SetResults shows a result count and the result navigation hints.
func (s *Bar) SetResults(n int) {
	s.state = StateReady
	s.message = ""
	s.results = n
}

// Fail shows err.
func (s *Bar) Fail(err error) {
	s.state = StateError
	s.message = err.Error()
}

// SetWidth sets the bar width.
func (s *Bar) SetWidth(width int) {
	s.width = width
}

// Clear resets to the ready state.
func (s *Bar) Clear() {
	s.state = StateReady
	s.message = ""
	s.results = 0
}
