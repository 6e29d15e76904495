package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// SourceIngester stores normalised documents and prunes replaced versions.
type SourceIngester interface {
	Ingest(ctx context.Context, input domain.DocumentInput, collection string) domain.IngestResult
	PruneSource(ctx context.Context, source, keep, collection string) (int, error)
}

// FileSyncReport summarises a file sync run.
type FileSyncReport struct {
	Processed int
	Failed    int
	Deleted   int
	Results   []domain.IngestResult
}

// FileSync ingests raw files from a connector: normalise, ingest, then
// prune points left over from the file's previous content.
type FileSync struct {
	ingester   SourceIngester
	registry   driven.NormaliserRegistry
	collection string
}

// NewFileSync creates a FileSync writing to collection.
func NewFileSync(ingester SourceIngester, registry driven.NormaliserRegistry, collection string) *FileSync {
	return &FileSync{ingester: ingester, registry: registry, collection: collection}
}

// Ingest consumes docs until the channel closes. Per-file failures are
// counted and logged; a connector error stops the run.
func (f *FileSync) Ingest(ctx context.Context, docs <-chan domain.RawDocument, errs <-chan error) (*FileSyncReport, error) {
	report := &FileSyncReport{}
	for {
		select {
		case <-ctx.Done():
			return report, ctx.Err()

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err != nil {
				return report, fmt.Errorf("connector error: %w", err)
			}

		case raw, ok := <-docs:
			if !ok {
				return report, drain(errs)
			}
			result := f.ingestOne(ctx, &raw)
			report.Results = append(report.Results, result)
			if result.Success() {
				report.Processed++
			} else {
				report.Failed++
			}
		}
	}
}

// drain returns the first error left on errs once the walk is over.
// A nil channel has already been drained.
func drain(errs <-chan error) error {
	if errs == nil {
		return nil
	}
	for err := range errs {
		if err != nil {
			return fmt.Errorf("connector error: %w", err)
		}
	}
	return nil
}

// Run applies watched changes until ctx is cancelled or changes closes.
func (f *FileSync) Run(ctx context.Context, changes <-chan domain.RawDocumentChange) (*FileSyncReport, error) {
	report := &FileSyncReport{}
	for {
		select {
		case <-ctx.Done():
			return report, nil
		case change, ok := <-changes:
			if !ok {
				return report, nil
			}
			if change.Type == domain.ChangeDeleted {
				if n, err := f.Remove(ctx, change.Document.URI); err != nil {
					report.Failed++
					logger.Warn("Failed to remove %s: %v", change.Document.URI, err)
				} else if n > 0 {
					report.Deleted++
				}
				continue
			}
			result := f.ingestOne(ctx, &change.Document)
			report.Results = append(report.Results, result)
			if result.Success() {
				report.Processed++
			} else {
				report.Failed++
			}
		}
	}
}

// Remove deletes every point ingested from uri.
func (f *FileSync) Remove(ctx context.Context, uri string) (int, error) {
	logger.Debug("Deleting: %s", uri)
	return f.ingester.PruneSource(ctx, uri, "", f.collection)
}

func (f *FileSync) ingestOne(ctx context.Context, raw *domain.RawDocument) domain.IngestResult {
	logger.Debug("Processing: %s", raw.URI)
	res, err := f.registry.Normalise(ctx, raw)
	if err != nil {
		result := domain.IngestResult{Title: raw.URI, Collection: f.collection, State: domain.StateNew}
		result.Fail(fmt.Errorf("normalise %s: %w", raw.URI, err))
		if errors.Is(err, domain.ErrUnsupportedType) || errors.Is(err, domain.ErrEmptyDocument) {
			logger.Debug("Skipping %s: %v", raw.URI, err)
		} else {
			logger.Warn("Failed to normalise %s: %v", raw.URI, err)
		}
		return result
	}

	doc := res.Document
	result := f.ingester.Ingest(ctx, domain.DocumentInput{
		Content:  doc.Content,
		Title:    doc.Title,
		Metadata: doc.Metadata,
	}, f.collection)
	if !result.Success() {
		logger.Warn("Failed to ingest %s: %s", raw.URI, result.Reason)
		return result
	}

	if _, err := f.ingester.PruneSource(ctx, raw.URI, result.DocumentID, f.collection); err != nil {
		logger.Warn("Failed to prune old versions of %s: %v", raw.URI, err)
	}
	return result
}
