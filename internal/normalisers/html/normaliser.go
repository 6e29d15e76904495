package html

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/normalisers/markdown"
	"github.com/custodia-labs/sercha-rag/internal/normalisers/plaintext"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// MetaBaseURL is the metadata key holding the page URL, used to resolve relative links.
const MetaBaseURL = "base_url"

// Normaliser handles HTML documents.
type Normaliser struct{}

// New creates a new HTML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

var (
	titleTag = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	dropTags = regexp.MustCompile(`(?is)<(script|style|noscript|svg|head)[^>]*>.*?</(script|style|noscript|svg|head)>`)
)

// Normalise converts the page to Markdown, which keeps headings and lists
// as paragraph boundaries for the chunker, then strips the Markdown syntax.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ValidationErrorf("nil document")
	}
	page := string(raw.Content)

	title := plaintext.TitleFromMetadataOrURI(raw)
	if _, ok := raw.Metadata[domain.PayloadTitle].(string); !ok {
		if t := Title(page); t != "" {
			title = t
		}
	}

	base, _ := raw.Metadata[MetaBaseURL].(string)
	md, err := htmltomarkdown.ConvertString(dropTags.ReplaceAllString(page, ""), converter.WithDomain(base))
	if err != nil {
		return nil, fmt.Errorf("convert %s to markdown: %w", raw.URI, err)
	}

	doc := plaintext.Build(raw, title, markdown.Strip(md), "html")
	return &driven.NormaliseResult{Document: *doc}, nil
}

// Title returns the unescaped <title> text, or "".
func Title(page string) string {
	m := titleTag.FindStringSubmatch(page)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(m[1]))
}
