// Package plaintext is the fallback normaliser for text-like files.
package plaintext

import (
	"context"
	"maps"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles plain text documents.
type Normaliser struct{}

// New creates a new plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{
		"text/plain",
		"text/markdown",
		"text/html",
		"text/csv",
		"text/yaml",
		"text/toml",
		"text/x-go",
		"text/x-python",
		"text/x-sql",
		"application/json",
		"application/xml",
	}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 5 // Fallback normaliser
}

// Normalise keeps the content as is. Invalid UTF-8 is rejected because
// it would be embedded as garbage.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ValidationErrorf("nil document")
	}
	if !utf8.Valid(raw.Content) {
		return nil, domain.ValidationErrorf("%s is not valid UTF-8 text", raw.URI)
	}

	doc := Build(raw, TitleFromMetadataOrURI(raw), string(raw.Content), "text")
	return &driven.NormaliseResult{Document: *doc}, nil
}

// Build assembles a document from normalised content, carrying raw metadata
// plus the source URI, MIME type and format.
func Build(raw *domain.RawDocument, title, content, format string) *domain.Document {
	metadata := make(map[string]any, len(raw.Metadata)+3)
	maps.Copy(metadata, raw.Metadata)
	delete(metadata, domain.PayloadTitle)
	if raw.URI != "" {
		metadata[domain.MetadataSource] = raw.URI
	}
	if raw.MIMEType != "" {
		metadata[domain.MetadataMIMEType] = raw.MIMEType
	}
	metadata[domain.MetadataFormat] = format
	return domain.NewDocument(strings.TrimSpace(content), title, metadata)
}

// TitleFromMetadataOrURI prefers a "title" metadata entry, then the file name.
func TitleFromMetadataOrURI(raw *domain.RawDocument) string {
	if title, ok := raw.Metadata[domain.PayloadTitle].(string); ok && title != "" {
		return title
	}
	return TitleFromURI(raw.URI)
}

// TitleFromURI turns "notes/release_plan-v2.md" into "release plan v2".
func TitleFromURI(uri string) string {
	if uri == "" {
		return ""
	}
	filename := filepath.Base(uri)
	filename = strings.TrimSuffix(filename, filepath.Ext(filename))
	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")
	return filename
}
