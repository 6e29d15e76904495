package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/views/chat"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/views/collections"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/views/menu"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/views/search"
)

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	ports  *Ports
	ctx    context.Context
	styles *styles.Styles

	menuView        *menu.View
	searchView      *search.View
	chatView        *chat.View
	collectionsView *collections.View

	currentView messages.ViewType

	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()
	return &App{
		ports:           ports,
		ctx:             context.Background(),
		styles:          s,
		menuView:        menu.NewView(s),
		searchView:      search.NewView(s, km, ports.Search),
		chatView:        chat.NewView(s, km, ports.Chat),
		collectionsView: collections.NewView(s, ports.System),
		currentView:     messages.ViewMenu,
	}, nil
}

// WithContext sets the context every view passes to the services.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.searchView.WithContext(ctx)
	a.chatView.WithContext(ctx)
	a.collectionsView.WithContext(ctx)
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.SetWindowTitle("sercha-rag")
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			a.chatView.Reset()
			return a, tea.Quit
		}
		if a.currentView == messages.ViewHelp {
			if msg.Type == tea.KeyEsc {
				a.currentView = messages.ViewMenu
			}
			return a, nil
		}

	case messages.ViewChanged:
		a.currentView = msg.View
		switch msg.View {
		case messages.ViewSearch:
			a.searchView.Reset()
			return a, a.searchView.Init()
		case messages.ViewChat:
			return a, a.chatView.Init()
		case messages.ViewCollections:
			return a, a.collectionsView.Init()
		case messages.ViewMenu, messages.ViewHelp:
		}
		return a, nil

	// Async results go to their view whichever view is showing.
	case messages.SearchCompleted, messages.SimilarCompleted:
		a.searchView, cmd = a.searchView.Update(msg)
		return a, cmd

	case messages.AnswerStarted, messages.AnswerEvent:
		a.chatView, cmd = a.chatView.Update(msg)
		return a, cmd

	case messages.CollectionsLoaded, messages.CacheCleared:
		a.collectionsView, cmd = a.collectionsView.Update(msg)
		return a, cmd

	case messages.Quit:
		a.chatView.Reset()
		return a, tea.Quit
	}

	switch a.currentView {
	case messages.ViewMenu:
		a.menuView, cmd = a.menuView.Update(msg)
	case messages.ViewSearch:
		a.searchView, cmd = a.searchView.Update(msg)
	case messages.ViewChat:
		a.chatView, cmd = a.chatView.Update(msg)
	case messages.ViewCollections:
		a.collectionsView, cmd = a.collectionsView.Update(msg)
	case messages.ViewHelp:
	}
	return a, cmd
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	switch a.currentView {
	case messages.ViewSearch:
		return a.searchView.View()
	case messages.ViewChat:
		return a.chatView.View()
	case messages.ViewCollections:
		return a.collectionsView.View()
	case messages.ViewHelp:
		return a.viewHelp()
	default:
		return a.menuView.View()
	}
}

func (a *App) viewHelp() string {
	return a.styles.Title.Render("Help") + `

Ask:
  (type)      Enter a question
  enter       Ask
  esc         Stop the answer, or back to menu
  pgup/pgdn   Scroll the conversation

Search:
  enter       Search, or find documents similar to the selected result
  n           New search
  j/k, ↑/↓    Navigate results
  esc         Back to menu

Collections:
  r           Reload
  c           Clear the search cache
  esc         Back to menu

ctrl+c quits from anywhere.

[esc] back to menu`
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// CurrentView returns the current view type.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// Ready returns whether the app has been initialised.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions on every view.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.menuView.SetDimensions(width, height)
	a.searchView.SetDimensions(width, height)
	a.chatView.SetDimensions(width, height)
	a.collectionsView.SetDimensions(width, height)
}
