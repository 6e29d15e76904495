// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// SearchCompleted carries search results back to the model.
type SearchCompleted struct {
	Query   string
	Results []domain.SearchResult
	Err     error
}

// SimilarCompleted carries documents similar to DocumentID.
type SimilarCompleted struct {
	DocumentID string
	Results    []domain.SearchResult
	Err        error
}

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewMenu is the main navigation menu.
	ViewMenu ViewType = iota
	// ViewSearch is the search input and results view.
	ViewSearch
	// ViewChat asks questions and streams grounded answers.
	ViewChat
	// ViewCollections lists vector store collections.
	ViewCollections
	// ViewHelp is the help/keybindings view.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewMenu:
		return "menu"
	case ViewSearch:
		return "search"
	case ViewChat:
		return "chat"
	case ViewCollections:
		return "collections"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}

// AnswerStarted carries an open answer stream. Question identifies the
// turn so late events from a cancelled stream can be dropped.
type AnswerStarted struct {
	Question string
	Stream   driving.AnswerStream
	Err      error
}

// AnswerEvent is one event read from an answer stream.
type AnswerEvent struct {
	Question string
	Event    domain.StreamEvent
	Sources  []domain.SearchResult
}

// CollectionsLoaded carries the collections from the system service.
type CollectionsLoaded struct {
	Collections []domain.Collection
	Stats       domain.CacheStats
	Err         error
}

// CacheCleared signals the search cache was emptied.
type CacheCleared struct {
	Err error
}
