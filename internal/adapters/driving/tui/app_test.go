package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	app, err := NewApp(&Ports{
		Search: &mockSearchService{results: []domain.SearchResult{{Title: "Leave Policy", DocumentID: "doc-1", Score: 0.9}}},
		Chat:   mockChatService{},
		System: &mockSystemService{collections: []domain.Collection{{Name: "documents", Dimension: 768}}},
	})
	require.NoError(t, err)
	return app
}

// update applies msg and runs the returned command once, feeding its message back.
func update(a *App, msg tea.Msg) *App {
	model, cmd := a.Update(msg)
	a = model.(*App)
	if cmd != nil {
		if next := cmd(); next != nil {
			if _, isBatch := next.(tea.BatchMsg); !isBatch {
				model, _ = a.Update(next)
				a = model.(*App)
			}
		}
	}
	return a
}

func TestNewApp_InvalidPorts(t *testing.T) {
	_, err := NewApp(&Ports{})

	assert.ErrorIs(t, err, ErrMissingSearchService)
}

func TestNewApp_StartsOnMenu(t *testing.T) {
	app := newTestApp(t)

	assert.Equal(t, messages.ViewMenu, app.CurrentView())
	assert.False(t, app.Ready())
	assert.Equal(t, "Initialising...", app.View())
	assert.NotNil(t, app.Init())
}

func TestApp_WindowSizeReachesViews(t *testing.T) {
	app := newTestApp(t)

	app = update(app, tea.WindowSizeMsg{Width: 100, Height: 30})

	assert.True(t, app.Ready())
	assert.True(t, app.searchView.Ready())
	assert.True(t, app.chatView.Ready())
	assert.Contains(t, app.View(), "sercha-rag")
}

func TestApp_WithContext(t *testing.T) {
	app := newTestApp(t)
	type ctxKey string
	ctx := context.WithValue(context.Background(), ctxKey("k"), "v")

	assert.Same(t, app, app.WithContext(ctx))
	assert.Equal(t, ctx, app.ctx)
}

func TestApp_MenuNavigation(t *testing.T) {
	app := newTestApp(t)
	app.SetDimensions(100, 30)

	app = update(app, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, messages.ViewChat, app.CurrentView())

	app = update(app, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, messages.ViewMenu, app.CurrentView())
}

func TestApp_SearchFlow(t *testing.T) {
	app := newTestApp(t)
	app.SetDimensions(100, 30)
	app = update(app, messages.ViewChanged{View: messages.ViewSearch})

	app = update(app, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("leave")})
	app = update(app, tea.KeyMsg{Type: tea.KeyEnter})

	require.Len(t, app.searchView.Results(), 1)
	assert.Contains(t, app.View(), "Leave Policy")
}

func TestApp_ChatStartFailureShowsError(t *testing.T) {
	app := newTestApp(t)
	app.SetDimensions(100, 30)
	app = update(app, messages.ViewChanged{View: messages.ViewChat})

	app = update(app, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("hello")})
	app = update(app, tea.KeyMsg{Type: tea.KeyEnter})

	assert.ErrorIs(t, app.chatView.Err(), domain.ErrLLMUnavailable)
}

func TestApp_CollectionsLoadOnEnter(t *testing.T) {
	app := newTestApp(t)
	app.SetDimensions(100, 30)

	app = update(app, messages.ViewChanged{View: messages.ViewCollections})

	require.Len(t, app.collectionsView.Collections(), 1)
	assert.Contains(t, app.View(), "documents")
}

func TestApp_AsyncResultsRouteToOwningView(t *testing.T) {
	app := newTestApp(t)
	app.SetDimensions(100, 30)

	app = update(app, messages.SearchCompleted{Results: []domain.SearchResult{{Title: "Late"}}})

	assert.Equal(t, messages.ViewMenu, app.CurrentView())
	assert.Len(t, app.searchView.Results(), 1)
}

func TestApp_Help(t *testing.T) {
	app := newTestApp(t)
	app.SetDimensions(100, 30)

	app = update(app, messages.ViewChanged{View: messages.ViewHelp})
	assert.Contains(t, app.View(), "Clear the search cache")

	app = update(app, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	assert.Equal(t, messages.ViewHelp, app.CurrentView(), "help ignores other keys")

	app = update(app, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, messages.ViewMenu, app.CurrentView())
}

func TestApp_Quit(t *testing.T) {
	app := newTestApp(t)

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	_, cmd = app.Update(messages.Quit{})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
