// Package postprocessors turns a document into the chunks that get embedded.
package postprocessors

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

var errNilDocument = errors.New("document is nil")

// Pipeline runs chunking stages in order. Stages before the one that
// creates chunks receive nil and may rewrite the document itself.
type Pipeline struct {
	stages []driven.PostProcessor
}

// NewPipeline returns a pipeline running stages in the order given.
func NewPipeline(stages ...driven.PostProcessor) *Pipeline {
	return &Pipeline{stages: stages}
}

// Process chunks doc. The returned chunks carry doc.ID and are numbered
// 0..n-1 with TotalChunks = n whatever the stages produced.
func (p *Pipeline) Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, errNilDocument
	}

	var chunks []domain.Chunk
	for _, stage := range p.stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var err error
		chunks, err = stage.Process(ctx, doc, chunks)
		if err != nil {
			return nil, fmt.Errorf("processor %s: %w", stage.Name(), err)
		}
	}

	for i := range chunks {
		chunks[i].DocumentID = doc.ID
		chunks[i].Index = i
		chunks[i].TotalChunks = len(chunks)
	}
	logger.Debug("chunked %s into %d chunks", doc.ID, len(chunks))
	return chunks, nil
}

// Add appends a stage.
func (p *Pipeline) Add(stage driven.PostProcessor) {
	p.stages = append(p.stages, stage)
}

// Stages returns the stage names in run order.
func (p *Pipeline) Stages() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name()
	}
	return names
}
