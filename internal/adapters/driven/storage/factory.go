package storage

import (
	"errors"
	"fmt"
	"io"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/qdrant"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Backend is an opened vector store with the task store that lives beside it.
// Close releases both.
type Backend struct {
	Vectors *MetadataCache
	Tasks   driven.TaskStore

	closers []io.Closer
}

// Open creates the backend named in settings. The sqlite backend keeps
// tasks in the same database; memory and qdrant keep them in memory.
func Open(settings domain.VectorStoreSettings) (*Backend, error) {
	var (
		vectors driven.VectorStore
		tasks   driven.TaskStore
		closers []io.Closer
	)

	switch settings.Backend {
	case domain.VectorBackendMemory, "":
		vectors = memory.NewVectorStore()
		tasks = memory.NewTaskStore()

	case domain.VectorBackendSQLite:
		db, err := sqlite.NewStore(settings.Path)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		vectors = db.VectorStore(settings.UpsertBatchSize)
		tasks = db.TaskStore()
		closers = append(closers, db)
		logger.Info("Using sqlite vector store at %s", db.Path())

	case domain.VectorBackendQdrant:
		store := qdrant.New(qdrant.Config{
			URL:       settings.URL,
			APIKey:    settings.APIKey,
			BatchSize: settings.UpsertBatchSize,
		})
		vectors = store
		tasks = memory.NewTaskStore()
		closers = append(closers, store)
		logger.Info("Using qdrant vector store at %s", settings.URL)

	default:
		return nil, domain.ValidationErrorf("unknown vector store backend %q", settings.Backend)
	}

	return &Backend{
		Vectors: NewMetadataCache(vectors, settings.MetadataTTL),
		Tasks:   tasks,
		closers: closers,
	}, nil
}

// Close releases the underlying connections.
func (b *Backend) Close() error {
	var errs []error
	for _, c := range b.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
