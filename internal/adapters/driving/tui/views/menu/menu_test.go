package menu

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/messages"
)

func press(v *View, s string) (*View, tea.Cmd) {
	var msg tea.KeyMsg
	switch s {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "up":
		msg = tea.KeyMsg{Type: tea.KeyUp}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
	return v.Update(msg)
}

func TestNewView(t *testing.T) {
	v := NewView(nil)

	assert.Zero(t, v.Selected())
	assert.Nil(t, v.Init())
	assert.Equal(t, "Initialising...", v.View())
}

func TestView_CursorWraps(t *testing.T) {
	v := NewView(nil)

	v, _ = press(v, "up")
	assert.Equal(t, len(entries)-1, v.Selected())

	v, _ = press(v, "j")
	assert.Zero(t, v.Selected())

	v, _ = press(v, "j")
	v, _ = press(v, "k")
	assert.Zero(t, v.Selected())
}

func TestView_Enter(t *testing.T) {
	tests := []struct {
		cursor int
		want   tea.Msg
	}{
		{0, messages.ViewChanged{View: messages.ViewChat}},
		{1, messages.ViewChanged{View: messages.ViewSearch}},
		{2, messages.ViewChanged{View: messages.ViewCollections}},
		{3, messages.ViewChanged{View: messages.ViewHelp}},
		{4, messages.Quit{}},
	}
	for _, tt := range tests {
		t.Run(entries[tt.cursor].label, func(t *testing.T) {
			v := NewView(nil)
			v.cursor = tt.cursor

			_, cmd := press(v, "enter")
			require.NotNil(t, cmd)
			assert.Equal(t, tt.want, cmd())
		})
	}
}

func TestView_Shortcuts(t *testing.T) {
	v := NewView(nil)

	v, cmd := press(v, "c")
	require.NotNil(t, cmd)
	assert.Equal(t, messages.ViewChanged{View: messages.ViewCollections}, cmd())
	assert.Equal(t, 2, v.Selected())

	_, cmd = press(v, "q")
	require.NotNil(t, cmd)
	assert.Equal(t, messages.Quit{}, cmd())

	_, cmd = press(v, "x")
	assert.Nil(t, cmd)
}

func TestView_Render(t *testing.T) {
	v := NewView(nil)
	v, _ = v.Update(tea.WindowSizeMsg{Width: 100, Height: 30})

	out := v.View()

	assert.Contains(t, out, "sercha-rag")
	assert.Contains(t, out, "[a] Ask")
	assert.Contains(t, out, "vector store collections and cache")
	assert.Contains(t, out, "[q] Quit")
}
