// Package markdown normalises Markdown documents to plain text.
package markdown

import (
	"context"
	"regexp"
	"strings"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/normalisers/plaintext"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles Markdown documents.
type Normaliser struct{}

// New creates a new Markdown normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/markdown", "text/x-markdown"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise takes the title from the first H1 and strips formatting.
// Fenced code is kept, without its fences, since it is often what users search for.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ValidationErrorf("nil document")
	}
	text := string(raw.Content)

	title := plaintext.TitleFromMetadataOrURI(raw)
	if _, ok := raw.Metadata[domain.PayloadTitle].(string); !ok {
		if h1 := FirstHeading(text); h1 != "" {
			title = h1
		}
	}

	doc := plaintext.Build(raw, title, Strip(text), "markdown")
	return &driven.NormaliseResult{Document: *doc}, nil
}

var (
	frontMatter   = regexp.MustCompile(`(?s)\A---\n.*?\n---\n`)
	codeFence     = regexp.MustCompile("(?m)^[ \\t]*(```|~~~).*$")
	inlineCode    = regexp.MustCompile("`([^`]+)`")
	images        = regexp.MustCompile(`!\[([^\]]*)\]\([^)]+\)`)
	links         = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	headings      = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	bold          = regexp.MustCompile(`(\*\*|__)([^\n]+?)(\*\*|__)`)
	italic        = regexp.MustCompile(`\*(\S(?:[^*\n]*\S)?)\*`)
	blockquote    = regexp.MustCompile(`(?m)^>\s?`)
	hr            = regexp.MustCompile(`(?m)^[ \t]*([-*_][ \t]*){3,}$`)
	listMarkers   = regexp.MustCompile(`(?m)^([ \t]*)[-*+][ \t]+`)
	htmlTags      = regexp.MustCompile(`</?[a-zA-Z][^>]*>`)
	multiNewlines = regexp.MustCompile(`\n{3,}`)
)

// FirstHeading returns the text of the first "# " heading, or "".
func FirstHeading(text string) string {
	for line := range strings.Lines(text) {
		line = strings.TrimSpace(line)
		if after, ok := strings.CutPrefix(line, "# "); ok {
			return strings.TrimSpace(after)
		}
	}
	return ""
}

// Strip removes Markdown syntax and keeps the readable text.
func Strip(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = frontMatter.ReplaceAllString(text, "")
	text = codeFence.ReplaceAllString(text, "")
	text = images.ReplaceAllString(text, "$1")
	text = links.ReplaceAllString(text, "$1")
	text = inlineCode.ReplaceAllString(text, "$1")
	text = hr.ReplaceAllString(text, "")
	text = headings.ReplaceAllString(text, "")
	text = blockquote.ReplaceAllString(text, "")
	text = listMarkers.ReplaceAllString(text, "$1")
	text = bold.ReplaceAllString(text, "$2")
	text = italic.ReplaceAllString(text, "$1")
	text = htmlTags.ReplaceAllString(text, "")
	text = multiNewlines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
