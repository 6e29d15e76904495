// Package collections provides the collection overview for the TUI.
package collections

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// ErrNoSystemService indicates the vector store is not reachable.
var ErrNoSystemService = errors.New("system service not available")

// View lists collections and the search cache state.
type View struct {
	styles        *styles.Styles
	systemService driving.SystemService
	ctx           context.Context

	collections []domain.Collection
	stats       domain.CacheStats
	selected    int
	width       int
	height      int
	ready       bool
	err         error
	loading     bool
	notice      string
}

// NewView creates a new collections view.
func NewView(s *styles.Styles, systemService driving.SystemService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles:        s,
		systemService: systemService,
		ctx:           context.Background(),
	}
}

// WithContext sets the context for service calls.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init loads the collections.
func (v *View) Init() tea.Cmd {
	v.loading = true
	return v.load()
}

func (v *View) load() tea.Cmd {
	ctx := v.ctx
	svc := v.systemService
	return func() tea.Msg {
		if svc == nil {
			return messages.CollectionsLoaded{Err: ErrNoSystemService}
		}
		collections, err := svc.ListCollections(ctx)
		return messages.CollectionsLoaded{Collections: collections, Stats: svc.CacheStats(), Err: err}
	}
}

func (v *View) clearCache() tea.Cmd {
	ctx := v.ctx
	svc := v.systemService
	return func() tea.Msg {
		if svc == nil {
			return messages.CacheCleared{Err: ErrNoSystemService}
		}
		return messages.CacheCleared{Err: svc.ClearCache(ctx)}
	}
}

// Update handles messages for the collections view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.CollectionsLoaded:
		v.loading = false
		v.err = msg.Err
		if msg.Err == nil {
			v.collections = msg.Collections
			v.stats = msg.Stats
			v.selected = min(v.selected, max(len(v.collections)-1, 0))
		}
		return v, nil

	case messages.CacheCleared:
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.notice = "Search cache cleared"
		return v, v.load()
	}
	return v, nil
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	case "up", "k":
		if v.selected > 0 {
			v.selected--
		}
	case "down", "j":
		if v.selected < len(v.collections)-1 {
			v.selected++
		}
	case "r":
		v.loading = true
		v.notice = ""
		return v, v.load()
	case "c":
		return v, v.clearCache()
	}
	return v, nil
}

// View renders the collection table.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("Collections"))
	b.WriteString("\n\n")

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading..."))
	case v.err != nil:
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
	case len(v.collections) == 0:
		b.WriteString(v.styles.Muted.Render("No collections. Index documents with 'sercha-rag ingest'."))
	default:
		for i, c := range v.collections {
			line := fmt.Sprintf("%-24s %9s points  dim %-5d %-10s %s",
				c.Name, humanize.Comma(int64(c.PointCount)), c.Dimension, c.Distance, c.Status)
			if i == v.selected {
				b.WriteString(v.styles.Selected.Render("> " + line))
			} else {
				b.WriteString(v.styles.Normal.Render("  " + line))
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\n\n")
	if v.stats.Enabled {
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf("Search cache: %d / %d entries", v.stats.Size, v.stats.MaxSize)))
	} else {
		b.WriteString(v.styles.Muted.Render("Search cache: disabled"))
	}
	if v.notice != "" {
		b.WriteString("\n" + v.styles.Success.Render(v.notice))
	}

	b.WriteString("\n\n")
	b.WriteString(v.styles.Help.Render("[j/k] navigate  [r] reload  [c] clear cache  [esc] back"))
	return b.String()
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
}

// Collections returns the loaded collections.
func (v *View) Collections() []domain.Collection {
	return v.collections
}

// Selected returns the index of the highlighted collection.
func (v *View) Selected() int {
	return v.selected
}

// Err returns the last load error.
func (v *View) Err() error {
	return v.err
}
