package list

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func sampleResults() []domain.SearchResult {
	return []domain.SearchResult{
		{ID: "a", Title: "Leave Policy", Content: "Annual leave is 30 days.", Score: 0.95, Collection: "hr", DocumentID: "doc-1"},
		{ID: "b", Title: "Expenses", Content: "Submit receipts\nwithin a month.", Score: 0.85, Collection: "finance", DocumentID: "doc-2"},
		{ID: "c", Content: "Untitled chunk", Score: 0.75, DocumentID: "doc-3"},
	}
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func TestNewResultList(t *testing.T) {
	list := NewResultList(styles.DefaultStyles())

	require.NotNil(t, list)
	assert.Equal(t, 0, list.Selected())
	assert.True(t, list.IsEmpty())
	assert.Nil(t, list.Init())
	assert.Nil(t, list.SelectedResult())
}

func TestNewResultList_NilStyles(t *testing.T) {
	assert.NotNil(t, NewResultList(nil).styles)
}

func TestResultList_SetResultsResetsSelection(t *testing.T) {
	list := NewResultList(nil)
	list.SetResults(sampleResults())
	list.SetSelected(2)

	list.SetResults(sampleResults()[:1])

	assert.Equal(t, 1, list.Count())
	assert.Equal(t, 0, list.Selected())
}

func TestResultList_Navigation(t *testing.T) {
	list := NewResultList(nil)
	list.SetResults(sampleResults())

	list, _ = list.Update(keyMsg("down"))
	list, _ = list.Update(keyMsg("j"))
	list, _ = list.Update(keyMsg("j"))
	assert.Equal(t, 2, list.Selected(), "stops at the last result")

	list, _ = list.Update(keyMsg("up"))
	list, _ = list.Update(keyMsg("k"))
	list, _ = list.Update(keyMsg("k"))
	assert.Equal(t, 0, list.Selected(), "stops at the first result")
}

func TestResultList_SetSelected_IgnoresOutOfRange(t *testing.T) {
	list := NewResultList(nil)
	list.SetResults(sampleResults())

	list.SetSelected(1)
	list.SetSelected(7)
	list.SetSelected(-1)

	assert.Equal(t, 1, list.Selected())
	assert.Equal(t, "doc-2", list.SelectedResult().DocumentID)
}

func TestResultList_View(t *testing.T) {
	list := NewResultList(nil)
	list.SetDimensions(100, 30)
	list.SetResults(sampleResults())

	view := list.View()

	assert.Contains(t, view, "Results (3)")
	assert.Contains(t, view, "Leave Policy")
	assert.Contains(t, view, "0.95")
	assert.Contains(t, view, "Submit receipts within a month.")
	assert.Contains(t, view, "doc-3", "untitled results fall back to the document ID")
	assert.NotContains(t, view, "finance")
}

func TestResultList_View_ShowCollection(t *testing.T) {
	list := NewResultList(nil)
	list.SetDimensions(100, 30)
	list.SetResults(sampleResults())
	list.ShowCollection(true)

	view := list.View()

	assert.Contains(t, view, "hr")
	assert.Contains(t, view, "finance")
}

func TestResultList_View_Empty(t *testing.T) {
	assert.Contains(t, NewResultList(nil).View(), "No results")
}

func TestResultList_View_ScrollsToSelection(t *testing.T) {
	list := NewResultList(nil)
	list.SetDimensions(80, 7) // room for one result
	list.SetResults(sampleResults())
	list.SetSelected(2)

	view := list.View()

	assert.Contains(t, view, "Untitled chunk")
	assert.NotContains(t, view, "Leave Policy")
}
