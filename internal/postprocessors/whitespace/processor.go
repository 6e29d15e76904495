// Package whitespace normalises line endings and blank runs before chunking.
package whitespace

import (
	"context"
	"regexp"
	"strings"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

var (
	trailingSpace = regexp.MustCompile(`[ \t]+\n`)
	blankRuns     = regexp.MustCompile(`\n{3,}`)
)

// Processor cleans document content when it runs before the chunker, and
// trims chunks (dropping empty ones) when it runs after.
type Processor struct{}

// New creates a whitespace processor.
func New() *Processor {
	return &Processor{}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "whitespace"
}

// Process normalises doc.Content in place, or the given chunks when non-nil.
func (p *Processor) Process(_ context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	if chunks == nil {
		doc.Content = Normalise(doc.Content)
		return nil, nil
	}

	out := make([]domain.Chunk, 0, len(chunks))
	for _, c := range chunks {
		c.Content = strings.TrimSpace(c.Content)
		if c.Content == "" {
			continue
		}
		out = append(out, c)
	}
	for i := range out {
		out[i].Index = i
		out[i].TotalChunks = len(out)
	}
	return out, nil
}

// Normalise converts CRLF to LF, strips trailing spaces and collapses blank runs.
func Normalise(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = trailingSpace.ReplaceAllString(text, "\n")
	text = blankRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
