package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"

	// AIProviderVoyage is Voyage AI cloud API (embeddings only).
	AIProviderVoyage AIProvider = "voyage"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic, AIProviderVoyage:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic || p == AIProviderVoyage
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	case AIProviderVoyage:
		return "Voyage AI (cloud)"
	default:
		return unknownDescription
	}
}

// VectorBackend identifies a vector store implementation.
type VectorBackend string

// Available vector store backends.
const (
	VectorBackendMemory VectorBackend = "memory"
	VectorBackendSQLite VectorBackend = "sqlite"
	VectorBackendQdrant VectorBackend = "qdrant"
)

// IsValid returns true if the backend is recognised.
func (b VectorBackend) IsValid() bool {
	switch b {
	case VectorBackendMemory, VectorBackendSQLite, VectorBackendQdrant:
		return true
	default:
		return false
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint. Empty uses the provider default.
	BaseURL string

	// APIKey is the API key for cloud providers.
	APIKey string

	// Dimensions overrides the model's known vector size.
	Dimensions int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || e.Provider == AIProviderAnthropic {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint. Empty uses the provider default.
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string

	// Temperature is the default sampling temperature (0..2).
	Temperature float64

	// MaxTokens bounds completion length.
	MaxTokens int
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() || l.Provider == AIProviderVoyage {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// VectorStoreSettings selects and configures the vector store backend.
type VectorStoreSettings struct {
	Backend VectorBackend

	// URL is the Qdrant endpoint.
	URL string

	// APIKey authenticates against Qdrant Cloud.
	APIKey string

	// Path is the sqlite database file.
	Path string

	// Collection is the default collection name.
	Collection string

	// UpsertBatchSize bounds points per upsert request.
	UpsertBatchSize int

	// MetadataTTL is how long collection info stays cached.
	MetadataTTL time.Duration
}

// SearchSettings holds retrieval configuration.
type SearchSettings struct {
	DefaultTopK    int
	MaxTopK        int
	ScoreThreshold float64

	// Collections are searched together when no collection is named.
	Collections []string

	// HistoryTurns is how many prior turns feed a RAG prompt.
	HistoryTurns int
}

// CacheSettings configures the search result cache.
type CacheSettings struct {
	Enabled bool
	TTL     time.Duration
	MaxSize int
}

// BatchSettings configures embedding batching and retries.
type BatchSettings struct {
	EmbeddingBatchSize int
	UploadBatchSize    int
	MaxRetries         int
	Concurrency        int

	// RequestsPerSecond limits embedding dispatches. Zero disables limiting.
	RequestsPerSecond float64
}

// TimeoutSettings bounds external calls.
type TimeoutSettings struct {
	Request time.Duration
	LLM     time.Duration
}

// ServerSettings configures the HTTP API.
type ServerSettings struct {
	Addr string
}

// AppSettings holds all application settings.
type AppSettings struct {
	Embedding   EmbeddingSettings
	LLM         LLMSettings
	VectorStore VectorStoreSettings
	Search      SearchSettings
	Cache       CacheSettings
	Pipeline    PipelineConfig
	Batch       BatchSettings
	Timeouts    TimeoutSettings
	Server      ServerSettings
}

// Defaults for AppSettings.
const (
	DefaultCollection      = "documents"
	DefaultTopK            = 5
	DefaultMaxTopK         = 20
	DefaultScoreThreshold  = 0.3
	DefaultHistoryTurns    = 6
	DefaultPlainTurns      = 10
	DefaultCacheTTL        = 300 * time.Second
	DefaultCacheMaxSize    = 100
	DefaultChunkSize       = 1000
	DefaultChunkOverlap    = 200
	DefaultEmbedBatchSize  = 100
	DefaultUploadBatchSize = 100
	DefaultMaxRetries      = 3
	DefaultConcurrency     = 4
	DefaultTemperature     = 0.7
	DefaultMaxTokens       = 2000
	DefaultRequestTimeout  = 30 * time.Second
	DefaultLLMTimeout      = 120 * time.Second
	DefaultServerAddr      = "127.0.0.1:8000"
)

// DefaultAppSettings returns settings with sensible defaults.
// Providers default to local Ollama and the in-memory vector store.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			Provider: AIProviderOllama,
			Model:    DefaultEmbeddingModels()[AIProviderOllama],
		},
		LLM: LLMSettings{
			Provider:    AIProviderOllama,
			Model:       DefaultLLMModels()[AIProviderOllama],
			Temperature: DefaultTemperature,
			MaxTokens:   DefaultMaxTokens,
		},
		VectorStore: VectorStoreSettings{
			Backend:         VectorBackendMemory,
			URL:             "http://localhost:6333",
			Collection:      DefaultCollection,
			UpsertBatchSize: DefaultUploadBatchSize,
			MetadataTTL:     DefaultCacheTTL,
		},
		Search: SearchSettings{
			DefaultTopK:    DefaultTopK,
			MaxTopK:        DefaultMaxTopK,
			ScoreThreshold: DefaultScoreThreshold,
			HistoryTurns:   DefaultHistoryTurns,
		},
		Cache: CacheSettings{
			Enabled: true,
			TTL:     DefaultCacheTTL,
			MaxSize: DefaultCacheMaxSize,
		},
		Pipeline: DefaultPipelineConfig(),
		Batch: BatchSettings{
			EmbeddingBatchSize: DefaultEmbedBatchSize,
			UploadBatchSize:    DefaultUploadBatchSize,
			MaxRetries:         DefaultMaxRetries,
			Concurrency:        DefaultConcurrency,
		},
		Timeouts: TimeoutSettings{
			Request: DefaultRequestTimeout,
			LLM:     DefaultLLMTimeout,
		},
		Server: ServerSettings{
			Addr: DefaultServerAddr,
		},
	}
}

// MaskSecret hides all but the last four characters of an API key.
// Keys of eight characters or fewer are hidden entirely.
func MaskSecret(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}

// SearchCollections returns the collections searched when none is named.
func (s AppSettings) SearchCollections() []string {
	if len(s.Search.Collections) > 0 {
		return s.Search.Collections
	}
	return []string{s.VectorStore.Collection}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderVoyage,
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
		AIProviderVoyage: "voyage-3-large",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
		// Voyage models
		"voyage-3-large": 1024,
		"voyage-3":       1024,
		"voyage-3-lite":  512,
	}
}

// PipelineConfig holds post-processor pipeline configuration.
// Uses generic map-based config for extensibility - new processors can be added
// without modifying this struct.
type PipelineConfig struct {
	// Processors is the ordered list of processor names to run.
	Processors []string

	// ProcessorConfigs holds per-processor configuration as generic maps.
	// Key is processor name, value is processor-specific config.
	ProcessorConfigs map[string]map[string]any
}

// GetProcessorConfig returns config for a specific processor, or nil if not set.
func (c *PipelineConfig) GetProcessorConfig(name string) map[string]any {
	if c.ProcessorConfigs == nil {
		return nil
	}
	return c.ProcessorConfigs[name]
}

// DefaultPipelineConfig returns the default pipeline configuration:
// whitespace normalisation followed by the recursive chunker.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Processors: []string{"whitespace", "chunker"},
		ProcessorConfigs: map[string]map[string]any{
			"chunker": {
				"chunk_size": DefaultChunkSize,
				"overlap":    DefaultChunkOverlap,
			},
		},
	}
}
