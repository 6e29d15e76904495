package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

const uriScheme = "sercha-rag://"

// registerResources registers resources for the configured ports.
func (s *Server) registerResources() {
	if s.ports.System != nil {
		s.server.AddResource(&mcp.Resource{
			URI:         uriScheme + "collections",
			Name:        "collections",
			Description: "Vector collections with dimension, metric and point count",
			MIMEType:    "application/json",
		}, s.handleCollectionsResource)
	}

	if s.ports.Document != nil {
		s.server.AddResourceTemplate(&mcp.ResourceTemplate{
			URITemplate: uriScheme + "collections/{collection}/documents/{documentId}",
			Name:        "document",
			Description: "Summary of a stored document",
			MIMEType:    "application/json",
		}, s.handleDocumentResource)
	}
}

func (s *Server) handleCollectionsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	collections, err := s.ports.System.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing collections: %w", err)
	}
	return jsonResource(req.Params.URI, collections)
}

func (s *Server) handleDocumentResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	collection, docID := extractDocumentRef(req.Params.URI)
	if docID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	info, err := s.ports.Document.GetDocument(ctx, docID, collection)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("getting document: %w", err)
	}
	return jsonResource(req.Params.URI, info)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling resource: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractDocumentRef parses sercha-rag://collections/{collection}/documents/{documentId}.
func extractDocumentRef(uri string) (collection, documentID string) {
	rest, ok := strings.CutPrefix(uri, uriScheme+"collections/")
	if !ok {
		return "", ""
	}
	collection, documentID, ok = strings.Cut(rest, "/documents/")
	if !ok || collection == "" || strings.Contains(documentID, "/") {
		return "", ""
	}
	return collection, documentID
}
