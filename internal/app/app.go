// Package app assembles the services behind every transport from the
// persisted settings.
package app

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/ai"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/config/file"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/services"
	"github.com/custodia-labs/sercha-rag/internal/logger"
	"github.com/custodia-labs/sercha-rag/internal/normalisers"
	"github.com/custodia-labs/sercha-rag/internal/postprocessors"
)

// HomeEnv names the variable that relocates the configuration directory.
const HomeEnv = "SERCHA_RAG_HOME"

// Options configure New.
type Options struct {
	// ConfigDir holds config.toml and prompts/. Empty uses $SERCHA_RAG_HOME
	// or ~/.sercha-rag.
	ConfigDir string

	// LookupEnv overrides os.LookupEnv for settings overrides.
	LookupEnv func(string) (string, bool)
}

// App holds the assembled services. RAG is nil when no embedding provider
// is usable; chat is disabled inside RAG when no LLM is.
type App struct {
	ConfigDir   string
	Settings    *services.SettingsService
	Config      *domain.AppSettings
	Normalisers *normalisers.Registry
	Backend     *storage.Backend
	RAG         *services.RAGService
	Ingest      *services.IngestionPipeline
	Scheduler   *services.Scheduler

	// EmbeddingErr explains why RAG is nil.
	EmbeddingErr error

	closers []io.Closer
}

// New loads settings and builds every service they describe. Provider
// failures are logged and leave the dependent services disabled; storage
// and configuration failures are returned.
func New(opts Options) (*App, error) {
	settingsSvc, dir, err := NewSettings(opts)
	if err != nil {
		return nil, err
	}

	cfg, err := settingsSvc.Get()
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}
	if cfg.VectorStore.Backend == domain.VectorBackendSQLite && cfg.VectorStore.Path == "" {
		cfg.VectorStore.Path = filepath.Join(dir, "data", "vectors.db")
	}

	prompts, err := file.NewPromptStore(filepath.Join(dir, "prompts"))
	if err != nil {
		return nil, fmt.Errorf("loading prompts: %w", err)
	}

	backend, err := storage.Open(cfg.VectorStore)
	if err != nil {
		return nil, err
	}

	a := &App{
		ConfigDir:   dir,
		Settings:    settingsSvc,
		Config:      cfg,
		Normalisers: normalisers.Default(),
		Backend:     backend,
		Scheduler:   services.NewScheduler(domain.DefaultSchedulerConfig(), backend.Tasks),
		closers:     []io.Closer{backend},
	}

	if err := a.buildRAG(cfg, prompts); err != nil {
		a.Close() //nolint:errcheck // already failing
		return nil, err
	}
	return a, nil
}

// NewSettings opens only the settings service, so configuration stays
// editable when the rest of the application cannot start.
func NewSettings(opts Options) (*services.SettingsService, string, error) {
	dir, err := configDir(opts.ConfigDir)
	if err != nil {
		return nil, "", err
	}
	configStore, err := file.NewConfigStore(dir)
	if err != nil {
		return nil, "", fmt.Errorf("loading config: %w", err)
	}
	var settingsOpts []services.SettingsOption
	if opts.LookupEnv != nil {
		settingsOpts = append(settingsOpts, services.WithEnvLookup(opts.LookupEnv))
	}
	return services.NewSettingsService(configStore, ai.NewConfigValidator(), settingsOpts...), dir, nil
}

func (a *App) buildRAG(cfg *domain.AppSettings, prompts driven.PromptStore) error {
	registry := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(registry)
	chunker, err := postprocessors.BuildPipeline(registry, cfg.Pipeline)
	if err != nil {
		return fmt.Errorf("building chunking pipeline: %w", err)
	}

	backend, err := ai.CreateEmbeddingBackend(&cfg.Embedding, cfg.Timeouts.Request)
	if err == nil && backend == nil {
		err = fmt.Errorf("%w: provider %q is not configured", domain.ErrEmbeddingUnavailable, cfg.Embedding.Provider)
	}
	if err != nil {
		a.EmbeddingErr = err
		logger.Warn("Search and ingestion disabled: %v", err)
		return nil
	}
	a.closers = append(a.closers, backend)

	embedder := services.NewEmbeddingProvider(backend, services.EmbeddingConfig{
		BatchSize:         cfg.Batch.EmbeddingBatchSize,
		MaxRetries:        cfg.Batch.MaxRetries,
		Concurrency:       cfg.Batch.Concurrency,
		RequestsPerSecond: cfg.Batch.RequestsPerSecond,
		Timeout:           cfg.Timeouts.Request,
	})

	collections := cfg.SearchCollections()
	search := services.NewSearchOrchestrator(a.Backend.Vectors, embedder, services.SearchConfig{
		DefaultCollection: cfg.VectorStore.Collection,
		Collections:       collections,
		DefaultTopK:       cfg.Search.DefaultTopK,
		MaxTopK:           cfg.Search.MaxTopK,
		ScoreThreshold:    cfg.Search.ScoreThreshold,
		CacheEnabled:      cfg.Cache.Enabled,
		CacheTTL:          cfg.Cache.TTL,
		CacheMaxSize:      cfg.Cache.MaxSize,
		BranchTimeout:     cfg.Timeouts.Request,
	})
	a.Ingest = services.NewIngestionPipeline(a.Backend.Vectors, embedder, chunker,
		cfg.VectorStore.Collection, services.WithInvalidator(search))

	deps := services.RAGDeps{
		Search:   search,
		Ingest:   a.Ingest,
		Store:    a.Backend.Vectors,
		Embedder: embedder,
		MaxBatch: cfg.Batch.UploadBatchSize,
	}

	llm, err := ai.CreateLLMService(&cfg.LLM, cfg.Timeouts.LLM)
	switch {
	case err != nil:
		logger.Warn("Chat disabled: %v", err)
	case llm == nil:
		logger.Warn("Chat disabled: LLM provider %q is not configured", cfg.LLM.Provider)
	default:
		a.closers = append(a.closers, llm)
		deps.Answers = services.NewAnswerGenerator(llm, prompts, services.AnswerConfig{
			HistoryTurns: cfg.Search.HistoryTurns,
			Temperature:  cfg.LLM.Temperature,
			MaxTokens:    cfg.LLM.MaxTokens,
			Timeout:      cfg.Timeouts.LLM,
		})
		deps.LLM = llm
	}

	a.RAG = services.NewRAGService(deps)
	a.Scheduler.MaintenanceTasks(a.RAG, collections)
	return nil
}

// FileSync returns a file ingester writing to collection, or the default
// collection when empty.
func (a *App) FileSync(collection string) (*services.FileSync, error) {
	if a.Ingest == nil {
		return nil, a.EmbeddingErr
	}
	if collection == "" {
		collection = a.Config.VectorStore.Collection
	}
	return services.NewFileSync(a.Ingest, a.Normalisers, collection), nil
}

// Close releases providers and storage in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func configDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	if env := os.Getenv(HomeEnv); env != "" {
		return env, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".sercha-rag"), nil
}
