// Package menu is the TUI landing screen.
package menu

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/styles"
)

// entry is a menu destination; quit entries close the app.
type entry struct {
	shortcut string
	label    string
	hint     string
	target   messages.ViewType
	quit     bool
}

var entries = []entry{
	{"a", "Ask", "question answering over the index", messages.ViewChat, false},
	{"s", "Search", "semantic search and similar documents", messages.ViewSearch, false},
	{"c", "Collections", "vector store collections and cache", messages.ViewCollections, false},
	{"?", "Help", "key bindings", messages.ViewHelp, false},
	{"q", "Quit", "", 0, true},
}

// View is the landing menu.
type View struct {
	styles *styles.Styles
	cursor int
	width  int
	height int
	ready  bool
}

// NewView creates the menu.
func NewView(s *styles.Styles) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{styles: s, width: 80, height: 24}
}

// Init implements the view contract; the menu has nothing to load.
func (v *View) Init() tea.Cmd { return nil }

// Update moves the cursor or leaves the menu. Movement wraps.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
	case tea.KeyMsg:
		switch k := msg.String(); k {
		case "up", "k":
			v.cursor = (v.cursor + len(entries) - 1) % len(entries)
		case "down", "j", "tab":
			v.cursor = (v.cursor + 1) % len(entries)
		case "enter":
			return v, choose(entries[v.cursor])
		default:
			for i, e := range entries {
				if e.shortcut == k {
					v.cursor = i
					return v, choose(e)
				}
			}
		}
	}
	return v, nil
}

func choose(e entry) tea.Cmd {
	if e.quit {
		return func() tea.Msg { return messages.Quit{} }
	}
	return func() tea.Msg { return messages.ViewChanged{View: e.target} }
}

// View renders the menu.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	var b strings.Builder
	b.WriteString(v.styles.Title.Render("sercha-rag") + "\n")
	b.WriteString(v.styles.Muted.Render("Answers grounded on your documents") + "\n\n")

	for i, e := range entries {
		label := fmt.Sprintf("[%s] %-12s", e.shortcut, e.label)
		if i == v.cursor {
			b.WriteString(v.styles.Selected.Render(label))
		} else {
			b.WriteString(v.styles.Normal.Render(label))
		}
		if e.hint != "" {
			b.WriteString("  " + v.styles.Muted.Render(e.hint))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n" + v.styles.Help.Render("j/k move · enter open · letter jumps"))
	return b.String()
}

// SetDimensions records the terminal size.
func (v *View) SetDimensions(width, height int) {
	v.width, v.height = width, height
	v.ready = true
}

// Selected is the cursor position.
func (v *View) Selected() int { return v.cursor }
