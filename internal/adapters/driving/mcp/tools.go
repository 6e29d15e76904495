package mcp

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query      string `json:"query" jsonschema:"the search query to find documents"`
	TopK       int    `json:"top_k,omitempty" jsonschema:"maximum number of results to return (default 5)"`
	Collection string `json:"collection,omitempty" jsonschema:"collection to search (default: the configured collection)"`
	All        bool   `json:"all,omitempty" jsonschema:"search every configured collection and fuse the results"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single search result.
type SearchResultOutput struct {
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title"`
	Collection string  `json:"collection"`
	Score      float64 `json:"score"`
	Rank       int     `json:"rank"`
	Content    string  `json:"content"`
}

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question   string `json:"question" jsonschema:"the question to answer from indexed documents"`
	TopK       int    `json:"top_k,omitempty" jsonschema:"number of passages to ground the answer on (default 5)"`
	Collection string `json:"collection,omitempty" jsonschema:"collection to search"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer  string               `json:"answer"`
	Model   string               `json:"model"`
	Sources []SearchResultOutput `json:"sources"`
}

// GetDocumentInput is the input schema for the get_document tool.
type GetDocumentInput struct {
	DocumentID string `json:"document_id" jsonschema:"the document id returned by search"`
	Collection string `json:"collection,omitempty" jsonschema:"collection holding the document"`
}

// DocumentOutput is the output schema for the get_document tool.
type DocumentOutput struct {
	DocumentID  string         `json:"document_id"`
	Title       string         `json:"title"`
	Collection  string         `json:"collection"`
	TotalChunks int            `json:"total_chunks"`
	UploadedAt  string         `json:"uploaded_at"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// ListCollectionsInput takes no arguments.
type ListCollectionsInput struct{}

// ListCollectionsOutput is the output schema for the list_collections tool.
type ListCollectionsOutput struct {
	Collections []domain.Collection `json:"collections"`
}

// registerTools registers a tool for every configured port.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Semantic search over indexed documents",
	}, s.handleSearch)

	if s.ports.Chat != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "ask",
			Description: "Answer a question grounded on indexed documents",
		}, s.handleAsk)
	}
	if s.ports.Document != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "get_document",
			Description: "Show a stored document's title, chunk count and metadata",
		}, s.handleGetDocument)
	}
	if s.ports.System != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "list_collections",
			Description: "List vector collections with their sizes",
		}, s.handleListCollections)
	}
}

func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	var (
		results []domain.SearchResult
		err     error
	)
	if input.All {
		results, err = s.ports.Search.SearchAll(ctx, input.Query, input.TopK)
	} else {
		results, err = s.ports.Search.Search(ctx, domain.SearchRequest{
			Query:      input.Query,
			TopK:       input.TopK,
			Collection: input.Collection,
		})
	}
	if err != nil {
		return nil, SearchOutput{}, err
	}

	return nil, SearchOutput{Results: toOutputs(results), Count: len(results)}, nil
}

func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	answer, err := s.ports.Chat.Chat(ctx, domain.ChatRequest{
		Message:    input.Question,
		TopK:       input.TopK,
		Collection: input.Collection,
	})
	if err != nil {
		return nil, AskOutput{}, err
	}
	return nil, AskOutput{
		Answer:  answer.Answer,
		Model:   answer.Model,
		Sources: toOutputs(answer.Sources),
	}, nil
}

func (s *Server) handleGetDocument(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetDocumentInput,
) (*mcp.CallToolResult, DocumentOutput, error) {
	info, err := s.ports.Document.GetDocument(ctx, input.DocumentID, input.Collection)
	if err != nil {
		return nil, DocumentOutput{}, err
	}
	return nil, DocumentOutput{
		DocumentID:  info.DocumentID,
		Title:       info.Title,
		Collection:  info.Collection,
		TotalChunks: info.TotalChunks,
		UploadedAt:  info.UploadedAt.UTC().Format(time.RFC3339),
		Metadata:    info.Metadata,
	}, nil
}

func (s *Server) handleListCollections(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListCollectionsInput,
) (*mcp.CallToolResult, ListCollectionsOutput, error) {
	collections, err := s.ports.System.ListCollections(ctx)
	if err != nil {
		return nil, ListCollectionsOutput{}, err
	}
	return nil, ListCollectionsOutput{Collections: collections}, nil
}

func toOutputs(results []domain.SearchResult) []SearchResultOutput {
	out := make([]SearchResultOutput, len(results))
	for i, r := range results {
		out[i] = SearchResultOutput{
			DocumentID: r.DocumentID,
			Title:      r.Title,
			Collection: r.Collection,
			Score:      r.Score,
			Rank:       r.Rank,
			Content:    r.Content,
		}
	}
	return out
}
