package services

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// EnvPrefix prefixes environment variables that override any config key:
// SERCHA_RAG_LLM_MODEL overrides llm.model.
const EnvPrefix = "SERCHA_RAG_"

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider   = "embedding.provider"
	keyEmbedModel      = "embedding.model"
	keyEmbedBaseURL    = "embedding.base_url"
	keyEmbedAPIKey     = "embedding.api_key"
	keyEmbedDimensions = "embedding.dimensions"

	keyLLMProvider    = "llm.provider"
	keyLLMModel       = "llm.model"
	keyLLMBaseURL     = "llm.base_url"
	keyLLMAPIKey      = "llm.api_key"
	keyLLMTemperature = "llm.temperature"
	keyLLMMaxTokens   = "llm.max_tokens"

	keyVectorBackend     = "vector_store.backend"
	keyVectorURL         = "vector_store.url"
	keyVectorAPIKey      = "vector_store.api_key"
	keyVectorPath        = "vector_store.path"
	keyVectorCollection  = "vector_store.collection"
	keyVectorUpsertBatch = "vector_store.upsert_batch_size"
	keyVectorMetadataTTL = "vector_store.metadata_ttl"

	keySearchTopK         = "search.default_top_k"
	keySearchMaxTopK      = "search.max_top_k"
	keySearchThreshold    = "search.score_threshold"
	keySearchCollections  = "search.collections"
	keySearchHistoryTurns = "search.history_turns"

	keyCacheEnabled = "cache.enabled"
	keyCacheTTL     = "cache.ttl"
	keyCacheMaxSize = "cache.max_size"

	keyChunkSize    = "chunking.chunk_size"
	keyChunkOverlap = "chunking.overlap"
	keyPipeline     = "pipeline.processors"

	keyBatchEmbed       = "batch.embedding_batch_size"
	keyBatchUpload      = "batch.upload_batch_size"
	keyBatchRetries     = "batch.max_retries"
	keyBatchConcurrency = "batch.concurrency"
	keyBatchRPS         = "batch.requests_per_second"

	keyTimeoutRequest = "timeouts.request"
	keyTimeoutLLM     = "timeouts.llm"

	keyServerAddr = "server.addr"
)

type keyKind int

const (
	kindString keyKind = iota
	kindInt
	kindFloat
	kindBool
	kindDuration
	kindList
)

// knownKeys lists every settable key and how its value is parsed.
var knownKeys = map[string]keyKind{
	keyEmbedProvider:      kindString,
	keyEmbedModel:         kindString,
	keyEmbedBaseURL:       kindString,
	keyEmbedAPIKey:        kindString,
	keyEmbedDimensions:    kindInt,
	keyLLMProvider:        kindString,
	keyLLMModel:           kindString,
	keyLLMBaseURL:         kindString,
	keyLLMAPIKey:          kindString,
	keyLLMTemperature:     kindFloat,
	keyLLMMaxTokens:       kindInt,
	keyVectorBackend:      kindString,
	keyVectorURL:          kindString,
	keyVectorAPIKey:       kindString,
	keyVectorPath:         kindString,
	keyVectorCollection:   kindString,
	keyVectorUpsertBatch:  kindInt,
	keyVectorMetadataTTL:  kindDuration,
	keySearchTopK:         kindInt,
	keySearchMaxTopK:      kindInt,
	keySearchThreshold:    kindFloat,
	keySearchCollections:  kindList,
	keySearchHistoryTurns: kindInt,
	keyCacheEnabled:       kindBool,
	keyCacheTTL:           kindDuration,
	keyCacheMaxSize:       kindInt,
	keyChunkSize:          kindInt,
	keyChunkOverlap:       kindInt,
	keyPipeline:           kindList,
	keyBatchEmbed:         kindInt,
	keyBatchUpload:        kindInt,
	keyBatchRetries:       kindInt,
	keyBatchConcurrency:   kindInt,
	keyBatchRPS:           kindFloat,
	keyTimeoutRequest:     kindDuration,
	keyTimeoutLLM:         kindDuration,
	keyServerAddr:         kindString,
}

// SettingsOption configures a SettingsService.
type SettingsOption func(*SettingsService)

// WithEnvLookup replaces os.LookupEnv, for tests.
func WithEnvLookup(lookup func(string) (string, bool)) SettingsOption {
	return func(s *SettingsService) {
		s.lookupEnv = lookup
	}
}

// SettingsService builds application settings from the config store,
// environment overrides and defaults, in that order of precedence after
// SERCHA_RAG_* variables.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	lookupEnv   func(string) (string, bool)
}

// NewSettingsService creates a new settings service. aiValidator may be nil.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator, opts ...SettingsOption) *SettingsService {
	s := &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		lookupEnv:   os.LookupEnv,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	d := domain.DefaultAppSettings()
	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider:   s.getProvider(keyEmbedProvider, d.Embedding.Provider),
			BaseURL:    s.getString(keyEmbedBaseURL, ""),
			APIKey:     s.getString(keyEmbedAPIKey, ""),
			Dimensions: s.getInt(keyEmbedDimensions, 0),
		},
		LLM: domain.LLMSettings{
			Provider:    s.getProvider(keyLLMProvider, d.LLM.Provider),
			BaseURL:     s.getString(keyLLMBaseURL, ""),
			APIKey:      s.getString(keyLLMAPIKey, ""),
			Temperature: s.getFloat(keyLLMTemperature, d.LLM.Temperature),
			MaxTokens:   s.getInt(keyLLMMaxTokens, d.LLM.MaxTokens),
		},
		VectorStore: domain.VectorStoreSettings{
			Backend:         domain.VectorBackend(s.getString(keyVectorBackend, string(d.VectorStore.Backend))),
			URL:             s.getString(keyVectorURL, d.VectorStore.URL),
			APIKey:          s.getString(keyVectorAPIKey, ""),
			Path:            s.getString(keyVectorPath, ""),
			Collection:      s.getString(keyVectorCollection, d.VectorStore.Collection),
			UpsertBatchSize: s.getInt(keyVectorUpsertBatch, d.VectorStore.UpsertBatchSize),
			MetadataTTL:     s.getDuration(keyVectorMetadataTTL, d.VectorStore.MetadataTTL),
		},
		Search: domain.SearchSettings{
			DefaultTopK:    s.getInt(keySearchTopK, d.Search.DefaultTopK),
			MaxTopK:        s.getInt(keySearchMaxTopK, d.Search.MaxTopK),
			ScoreThreshold: s.getFloat(keySearchThreshold, d.Search.ScoreThreshold),
			Collections:    s.getList(keySearchCollections),
			HistoryTurns:   s.getInt(keySearchHistoryTurns, d.Search.HistoryTurns),
		},
		Cache: domain.CacheSettings{
			Enabled: s.getBool(keyCacheEnabled, d.Cache.Enabled),
			TTL:     s.getDuration(keyCacheTTL, d.Cache.TTL),
			MaxSize: s.getInt(keyCacheMaxSize, d.Cache.MaxSize),
		},
		Pipeline: s.pipelineConfig(),
		Batch: domain.BatchSettings{
			EmbeddingBatchSize: s.getInt(keyBatchEmbed, d.Batch.EmbeddingBatchSize),
			UploadBatchSize:    s.getInt(keyBatchUpload, d.Batch.UploadBatchSize),
			MaxRetries:         s.getInt(keyBatchRetries, d.Batch.MaxRetries),
			Concurrency:        s.getInt(keyBatchConcurrency, d.Batch.Concurrency),
			RequestsPerSecond:  s.getFloat(keyBatchRPS, 0),
		},
		Timeouts: domain.TimeoutSettings{
			Request: s.getDuration(keyTimeoutRequest, d.Timeouts.Request),
			LLM:     s.getDuration(keyTimeoutLLM, d.Timeouts.LLM),
		},
		Server: domain.ServerSettings{
			Addr: s.getString(keyServerAddr, d.Server.Addr),
		},
	}

	// Models default per provider, so they resolve after the provider.
	settings.Embedding.Model = s.getString(keyEmbedModel, domain.DefaultEmbeddingModels()[settings.Embedding.Provider])
	settings.LLM.Model = s.getString(keyLLMModel, domain.DefaultLLMModels()[settings.LLM.Provider])

	s.applyProviderKeys(settings)
	return settings, nil
}

// applyProviderKeys fills missing API keys from the providers' usual variables.
func (s *SettingsService) applyProviderKeys(settings *domain.AppSettings) {
	providerEnv := map[domain.AIProvider]string{
		domain.AIProviderOpenAI:    "OPENAI_API_KEY",
		domain.AIProviderAnthropic: "ANTHROPIC_API_KEY",
		domain.AIProviderVoyage:    "VOYAGE_API_KEY",
	}
	if settings.Embedding.APIKey == "" {
		if v, ok := s.lookupEnv(providerEnv[settings.Embedding.Provider]); ok {
			settings.Embedding.APIKey = v
		}
	}
	if settings.LLM.APIKey == "" {
		if v, ok := s.lookupEnv(providerEnv[settings.LLM.Provider]); ok {
			settings.LLM.APIKey = v
		}
	}
	if v, ok := s.lookupEnv("QDRANT_URL"); ok && !s.isSet(keyVectorURL) {
		settings.VectorStore.URL = v
	}
	if v, ok := s.lookupEnv("QDRANT_API_KEY"); ok && settings.VectorStore.APIKey == "" {
		settings.VectorStore.APIKey = v
	}
}

// Set validates and stores a single key. Values are parsed by key type.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := knownKeys[key]
	if !ok {
		return domain.ValidationErrorf("unknown setting %q", key)
	}
	parsed, err := parseValue(kind, value)
	if err != nil {
		return domain.ValidationErrorf("%s: %v", key, err)
	}
	if err := checkValue(key, parsed); err != nil {
		return err
	}
	if d, ok := parsed.(time.Duration); ok {
		parsed = d.String()
	}
	if err := s.configStore.Set(key, parsed); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Lookup returns the effective raw value of a key, honouring environment overrides.
func (s *SettingsService) Lookup(key string) (any, bool) {
	if v, ok := s.envOverride(key); ok {
		return v, true
	}
	return s.configStore.Get(key)
}

// Keys returns every known setting key, sorted.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(knownKeys))
	for k := range knownKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate checks settings are complete and consistent.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf("%w: provider %q needs a model and API key", domain.ErrEmbeddingUnavailable, settings.Embedding.Provider)
	}
	if !settings.LLM.IsConfigured() {
		return fmt.Errorf("%w: provider %q needs a model and API key", domain.ErrLLMUnavailable, settings.LLM.Provider)
	}
	if !settings.VectorStore.Backend.IsValid() {
		return domain.ValidationErrorf("unknown vector store backend %q", settings.VectorStore.Backend)
	}
	if settings.Search.DefaultTopK < 1 || settings.Search.DefaultTopK > settings.Search.MaxTopK {
		return domain.ValidationErrorf("search.default_top_k must be between 1 and search.max_top_k")
	}
	if cfg := settings.Pipeline.GetProcessorConfig("chunker"); cfg != nil {
		size, _ := cfg["chunk_size"].(int)
		overlap, _ := cfg["overlap"].(int)
		if size > 0 && overlap >= size {
			return domain.ValidationErrorf("chunking.overlap must be smaller than chunking.chunk_size")
		}
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateProviders pings the configured embedding and LLM providers.
func (s *SettingsService) ValidateProviders(ctx context.Context) error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	if err := s.aiValidator.ValidateEmbedding(ctx, &settings.Embedding); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	if err := s.aiValidator.ValidateLLM(ctx, &settings.LLM); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
	}
	return nil
}

// pipelineConfig merges chunking keys into the default pipeline.
func (s *SettingsService) pipelineConfig() domain.PipelineConfig {
	cfg := domain.DefaultPipelineConfig()
	if processors := s.getList(keyPipeline); len(processors) > 0 {
		cfg.Processors = processors
	}
	chunker := cfg.ProcessorConfigs["chunker"]
	chunker["chunk_size"] = s.getInt(keyChunkSize, domain.DefaultChunkSize)
	chunker["overlap"] = s.getInt(keyChunkOverlap, domain.DefaultChunkOverlap)
	return cfg
}

// Helper methods for reading config with defaults.

func (s *SettingsService) envOverride(key string) (string, bool) {
	name := EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
	return s.lookupEnv(name)
}

func (s *SettingsService) isSet(key string) bool {
	if _, ok := s.envOverride(key); ok {
		return true
	}
	_, ok := s.configStore.Get(key)
	return ok
}

func (s *SettingsService) getString(key, defaultVal string) string {
	if v, ok := s.envOverride(key); ok {
		return v
	}
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if v, ok := s.envOverride(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		return defaultVal
	}
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if v, ok := s.envOverride(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		return defaultVal
	}
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if v, ok := s.envOverride(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
		return defaultVal
	}
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

// getDuration accepts duration strings ("90s", "2m") or whole seconds.
func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	if v, ok := s.envOverride(key); ok {
		if d, err := parseDuration(v); err == nil {
			return d
		}
		return defaultVal
	}
	raw, exists := s.configStore.Get(key)
	if !exists {
		return defaultVal
	}
	switch v := raw.(type) {
	case string:
		if d, err := parseDuration(v); err == nil {
			return d
		}
	case int, int64, float64:
		if secs := s.configStore.GetInt(key); secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultVal
}

func (s *SettingsService) getList(key string) []string {
	if v, ok := s.envOverride(key); ok {
		return splitList(v)
	}
	return s.configStore.GetStringSlice(key)
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.getString(key, "")
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func parseValue(kind keyKind, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch kind {
	case kindInt:
		return strconv.Atoi(value)
	case kindFloat:
		return strconv.ParseFloat(value, 64)
	case kindBool:
		return strconv.ParseBool(value)
	case kindDuration:
		return parseDuration(value)
	case kindList:
		return splitList(value), nil
	default:
		return value, nil
	}
}

// checkValue enforces per-key ranges and enumerations.
func checkValue(key string, value any) error {
	switch key {
	case keyEmbedProvider:
		p := domain.AIProvider(value.(string))
		if !p.IsValid() || p == domain.AIProviderAnthropic {
			return domain.ValidationErrorf("%s: %q does not provide embeddings", key, p)
		}
	case keyLLMProvider:
		p := domain.AIProvider(value.(string))
		if !p.IsValid() || p == domain.AIProviderVoyage {
			return domain.ValidationErrorf("%s: %q does not provide chat completions", key, p)
		}
	case keyVectorBackend:
		if !domain.VectorBackend(value.(string)).IsValid() {
			return domain.ValidationErrorf("%s: unknown backend %q", key, value)
		}
	case keyLLMTemperature:
		if t := value.(float64); t < 0 || t > 2 {
			return domain.ValidationErrorf("%s must be between 0 and 2", key)
		}
	case keySearchThreshold:
		if t := value.(float64); t < 0 || t > 1 {
			return domain.ValidationErrorf("%s must be between 0 and 1", key)
		}
	case keyChunkOverlap:
		if value.(int) < 0 {
			return domain.ValidationErrorf("%s must not be negative", key)
		}
	default:
		switch v := value.(type) {
		case int:
			if v <= 0 {
				return domain.ValidationErrorf("%s must be positive", key)
			}
		case time.Duration:
			if v <= 0 {
				return domain.ValidationErrorf("%s must be positive", key)
			}
		}
	}
	return nil
}

func parseDuration(v string) (time.Duration, error) {
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(v)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
