// Package styles holds the TUI palette and the lipgloss styles built on it.
package styles

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Score bands for colouring relevance scores.
const (
	StrongScore = 0.75
	WeakScore   = 0.4
)

// Theme is the colour palette.
type Theme struct {
	Accent    lipgloss.Color
	Secondary lipgloss.Color
	Text      lipgloss.Color
	Muted     lipgloss.Color
	Success   lipgloss.Color
	Error     lipgloss.Color
	Border    lipgloss.Color
	Bar       lipgloss.Color
}

// DefaultTheme is a dark palette.
func DefaultTheme() *Theme {
	return &Theme{
		Accent:    lipgloss.Color("#7C3AED"),
		Secondary: lipgloss.Color("#06B6D4"),
		Text:      lipgloss.Color("#CDD6F4"),
		Muted:     lipgloss.Color("#6C7086"),
		Success:   lipgloss.Color("#A6E3A1"),
		Error:     lipgloss.Color("#F38BA8"),
		Border:    lipgloss.Color("#45475A"),
		Bar:       lipgloss.Color("#181825"),
	}
}

// Styles are the lipgloss styles every view shares.
type Styles struct {
	theme *Theme

	Title      lipgloss.Style
	Subtitle   lipgloss.Style
	Normal     lipgloss.Style
	Muted      lipgloss.Style
	Selected   lipgloss.Style
	Error      lipgloss.Style
	Success    lipgloss.Style
	InputField lipgloss.Style
	StatusBar  lipgloss.Style
	Help       lipgloss.Style

	// Answer is generated answer text; Citation the sources under it.
	Answer   lipgloss.Style
	Citation lipgloss.Style
}

// NewStyles builds styles from theme, or the default theme when nil.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}
	fg := func(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }

	return &Styles{
		theme:      theme,
		Title:      fg(theme.Accent).Bold(true),
		Subtitle:   fg(theme.Secondary).Bold(true),
		Normal:     fg(theme.Text),
		Muted:      fg(theme.Muted),
		Selected:   fg(theme.Text).Background(theme.Accent).Bold(true),
		Error:      fg(theme.Error),
		Success:    fg(theme.Success),
		InputField: lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(theme.Border).Padding(0, 1),
		StatusBar:  fg(theme.Muted).Background(theme.Bar).Padding(0, 1),
		Help:       fg(theme.Muted),
		Answer:     fg(theme.Text).PaddingLeft(2),
		Citation:   fg(theme.Secondary).PaddingLeft(2),
	}
}

// DefaultStyles returns styles for the default theme.
func DefaultStyles() *Styles {
	return NewStyles(DefaultTheme())
}

// Theme returns the palette the styles were built from.
func (s *Styles) Theme() *Theme {
	return s.theme
}

// Score renders a relevance score, coloured by band.
func (s *Styles) Score(score float64) string {
	style := s.Normal
	switch {
	case score >= StrongScore:
		style = s.Success
	case score < WeakScore:
		style = s.Muted
	}
	return style.Render(fmt.Sprintf("%.2f", score))
}
