package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// maxJSONBody bounds JSON request bodies.
const maxJSONBody = 4 << 20

type chatRequest struct {
	Message     string                    `json:"message"`
	History     []domain.ConversationTurn `json:"conversation_history"`
	TopK        int                       `json:"top_k"`
	Temperature *float64                  `json:"temperature"`
	Collection  string                    `json:"collection_name"`
	Stream      bool                      `json:"stream"`
}

func (r chatRequest) toDomain() domain.ChatRequest {
	return domain.ChatRequest{
		Message:     r.Message,
		History:     r.History,
		TopK:        r.TopK,
		Temperature: r.Temperature,
		Collection:  r.Collection,
		Stream:      r.Stream,
	}
}

type chatResponse struct {
	Answer         string                `json:"answer"`
	SearchResults  []domain.SearchResult `json:"search_results"`
	Model          string                `json:"model"`
	Usage          domain.TokenUsage     `json:"usage"`
	GroundingCount int                   `json:"grounding_count"`
	Success        bool                  `json:"success"`
	Timestamp      time.Time             `json:"timestamp"`
}

type searchRequest struct {
	Query      string        `json:"query"`
	TopK       int           `json:"top_k"`
	Collection string        `json:"collection_name"`
	Threshold  *float64      `json:"score_threshold"`
	Filters    domain.Filter `json:"filters"`
}

type searchResponse struct {
	Results   []domain.SearchResult `json:"results"`
	Total     int                   `json:"total"`
	Query     string                `json:"query"`
	Timestamp time.Time             `json:"timestamp"`
}

type uploadRequest struct {
	Content    string         `json:"content"`
	Title      string         `json:"title"`
	Metadata   map[string]any `json:"metadata"`
	Collection string         `json:"collection_name"`
}

type batchRequest struct {
	Documents  []domain.DocumentInput `json:"documents"`
	Collection string                 `json:"collection_name"`
}

type uploadResponse struct {
	domain.IngestResult
	Success   bool      `json:"success"`
	Timestamp time.Time `json:"timestamp"`
}

type messageResponse struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
}

type collectionsResponse struct {
	Collections []domain.Collection `json:"collections"`
	Total       int                 `json:"total"`
}

type healthResponse struct {
	domain.HealthStatus
	Timestamp time.Time `json:"timestamp"`
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return domain.ValidationErrorf("request body exceeds %d bytes", tooLarge.Limit)
		}
		return domain.ValidationErrorf("invalid JSON body: %v", err)
	}
	return nil
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.ValidationErrorf("%s must be an integer", key)
	}
	return n, nil
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if s.svc.Chat == nil {
		writeError(w, domain.ErrLLMUnavailable)
		return
	}
	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Stream {
		s.streamChat(w, r, req.toDomain())
		return
	}

	answer, err := s.svc.Chat.Chat(r.Context(), req.toDomain())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.chatResponse(answer))
}

func (s *Server) handlePlainChat(w http.ResponseWriter, r *http.Request) {
	if s.svc.Chat == nil {
		writeError(w, domain.ErrLLMUnavailable)
		return
	}
	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	answer, err := s.svc.Chat.PlainChat(r.Context(), req.toDomain())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.chatResponse(answer))
}

func (s *Server) chatResponse(a *domain.Answer) chatResponse {
	results := a.Sources
	if results == nil {
		results = []domain.SearchResult{}
	}
	return chatResponse{
		Answer:         a.Answer,
		SearchResults:  results,
		Model:          a.Model,
		Usage:          a.Usage,
		GroundingCount: a.GroundingCount,
		Success:        true,
		Timestamp:      s.now().UTC(),
	}
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	results, err := s.svc.Search.Search(r.Context(), domain.SearchRequest{
		Query:      req.Query,
		TopK:       req.TopK,
		Collection: req.Collection,
		Threshold:  req.Threshold,
		Filter:     req.Filters,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.searchResponse(req.Query, results))
}

func (s *Server) handleSearchAll(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	results, err := s.svc.Search.SearchAll(r.Context(), req.Query, req.TopK)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.searchResponse(req.Query, results))
}

func (s *Server) searchResponse(query string, results []domain.SearchResult) searchResponse {
	if results == nil {
		results = []domain.SearchResult{}
	}
	return searchResponse{Results: results, Total: len(results), Query: query, Timestamp: s.now().UTC()}
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	doc := domain.DocumentInput{Content: req.Content, Title: req.Title, Metadata: req.Metadata}
	s.upload(w, r, doc, req.Collection)
}

func (s *Server) upload(w http.ResponseWriter, r *http.Request, doc domain.DocumentInput, collection string) {
	res, err := s.svc.Documents.UploadDocument(r.Context(), doc, collection)
	if err != nil {
		writeError(w, err)
		return
	}
	if res.Err != nil {
		writeError(w, fmt.Errorf("ingesting %q: %w", res.Title, res.Err))
		return
	}
	writeJSON(w, http.StatusCreated, uploadResponse{IngestResult: *res, Success: true, Timestamp: s.now().UTC()})
}

func (s *Server) handleUploadBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	report, err := s.svc.Documents.UploadBatch(r.Context(), req.Documents, req.Collection)
	if err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusOK
	if report.Failed > 0 && report.Succeeded > 0 {
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, report)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	info, err := s.svc.Documents.GetDocument(r.Context(), r.PathValue("id"), r.URL.Query().Get("collection_name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	deleted, err := s.svc.Documents.DeleteDocument(r.Context(), id, r.URL.Query().Get("collection_name"))
	if err != nil {
		writeError(w, err)
		return
	}
	if !deleted {
		writeError(w, fmt.Errorf("document %s: %w", id, domain.ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: fmt.Sprintf("document %s deleted", id), Success: true})
}

func (s *Server) handleSimilar(w http.ResponseWriter, r *http.Request) {
	topK, err := queryInt(r, "top_k")
	if err != nil {
		writeError(w, err)
		return
	}
	id := r.PathValue("id")
	results, err := s.svc.Search.Similar(r.Context(), id, topK, r.URL.Query().Get("collection_name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.searchResponse(id, results))
}

func (s *Server) handleCollections(w http.ResponseWriter, r *http.Request) {
	collections, err := s.svc.System.ListCollections(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if collections == nil {
		collections = []domain.Collection{}
	}
	writeJSON(w, http.StatusOK, collectionsResponse{Collections: collections, Total: len(collections)})
}

func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.System.ClearCache(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "search cache cleared", Success: true})
}

func (s *Server) handleCacheStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.System.CacheStats())
}

// handleHealth answers 503 unless every component is healthy.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health, err := s.svc.System.HealthCheck(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusOK
	if health.Status != domain.HealthOK {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, healthResponse{HealthStatus: *health, Timestamp: s.now().UTC()})
}

// configResponse is the effective configuration with secrets masked.
type configResponse struct {
	CollectionName       string   `json:"collection_name"`
	SearchCollections    []string `json:"search_collections"`
	SearchScoreThreshold float64  `json:"search_score_threshold"`
	DefaultSearchK       int      `json:"default_search_k"`
	MaxSearchK           int      `json:"max_search_k"`
	VectorBackend        string   `json:"vector_backend"`
	VectorSize           int      `json:"vector_size,omitempty"`
	EmbeddingProvider    string   `json:"embedding_provider"`
	EmbeddingModel       string   `json:"embedding_model"`
	EmbeddingAPIKey      string   `json:"embedding_api_key,omitempty"`
	LLMProvider          string   `json:"llm_provider"`
	LLMModel             string   `json:"llm_model"`
	LLMAPIKey            string   `json:"llm_api_key,omitempty"`
	CacheEnabled         bool     `json:"cache_enabled"`
	CacheTTLSeconds      int      `json:"cache_ttl_seconds"`
}

func (s *Server) handleConfig(w http.ResponseWriter, _ *http.Request) {
	if s.svc.Settings == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: errorDetail{
			Type: errTypeUnavailable, Message: "settings are not configured",
		}})
		return
	}
	cfg, err := s.svc.Settings.Get()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, configResponse{
		CollectionName:       cfg.VectorStore.Collection,
		SearchCollections:    cfg.SearchCollections(),
		SearchScoreThreshold: cfg.Search.ScoreThreshold,
		DefaultSearchK:       cfg.Search.DefaultTopK,
		MaxSearchK:           cfg.Search.MaxTopK,
		VectorBackend:        string(cfg.VectorStore.Backend),
		VectorSize:           cfg.Embedding.Dimensions,
		EmbeddingProvider:    cfg.Embedding.Provider.String(),
		EmbeddingModel:       cfg.Embedding.Model,
		EmbeddingAPIKey:      domain.MaskSecret(cfg.Embedding.APIKey),
		LLMProvider:          cfg.LLM.Provider.String(),
		LLMModel:             cfg.LLM.Model,
		LLMAPIKey:            domain.MaskSecret(cfg.LLM.APIKey),
		CacheEnabled:         cfg.Cache.Enabled,
		CacheTTLSeconds:      int(cfg.Cache.TTL.Seconds()),
	})
}
