package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Retry timing defaults.
const (
	DefaultRetryBaseDelay = 500 * time.Millisecond
	DefaultRetryMaxDelay  = 10 * time.Second
)

// EmbeddingConfig configures batching and retry behaviour.
type EmbeddingConfig struct {
	// BatchSize bounds texts per backend call.
	BatchSize int

	// MaxRetries is the total number of attempts per call.
	MaxRetries int

	// Concurrency bounds sub-batches in flight.
	Concurrency int

	// BaseDelay is the first backoff; each retry doubles it up to MaxDelay.
	BaseDelay time.Duration
	MaxDelay  time.Duration

	// RequestsPerSecond limits backend calls. Zero disables limiting.
	RequestsPerSecond float64

	// Timeout bounds a single backend call. Zero means no extra bound.
	Timeout time.Duration
}

// EmbedBatch is the result of embedding documents.
type EmbedBatch struct {
	// Vectors holds one vector per input text, in input order.
	Vectors [][]float32

	// ZeroFilled lists input indexes whose embedding failed and were
	// replaced by a zero vector.
	ZeroFilled []int
}

// EmbeddingOption configures an EmbeddingProvider.
type EmbeddingOption func(*EmbeddingProvider)

// WithSleeper replaces the backoff sleep, for tests.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) EmbeddingOption {
	return func(p *EmbeddingProvider) {
		p.sleep = sleep
	}
}

// WithJitter replaces the random jitter source, for tests.
func WithJitter(jitter func(max time.Duration) time.Duration) EmbeddingOption {
	return func(p *EmbeddingProvider) {
		p.jitter = jitter
	}
}

// EmbeddingProvider wraps an EmbeddingBackend with batching, bounded
// concurrency, rate limiting and retries.
type EmbeddingProvider struct {
	backend driven.EmbeddingBackend
	cfg     EmbeddingConfig
	limiter *rate.Limiter
	sleep   func(ctx context.Context, d time.Duration) error
	jitter  func(max time.Duration) time.Duration
}

// NewEmbeddingProvider creates a provider. Zero config fields take defaults.
func NewEmbeddingProvider(backend driven.EmbeddingBackend, cfg EmbeddingConfig, opts ...EmbeddingOption) *EmbeddingProvider {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = domain.DefaultEmbedBatchSize
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = domain.DefaultMaxRetries
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = domain.DefaultConcurrency
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultRetryBaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultRetryMaxDelay
	}

	p := &EmbeddingProvider{
		backend: backend,
		cfg:     cfg,
		sleep:   sleepContext,
		jitter:  uniformJitter,
	}
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Dimensions returns the backend vector size.
func (p *EmbeddingProvider) Dimensions() int {
	return p.backend.Dimensions()
}

// ModelName returns the backend model name.
func (p *EmbeddingProvider) ModelName() string {
	return p.backend.ModelName()
}

// Ping checks the backend is reachable.
func (p *EmbeddingProvider) Ping(ctx context.Context) error {
	return p.backend.Ping(ctx)
}

// EmbedQuery embeds a single query. The final error after retries is returned.
func (p *EmbeddingProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := p.embedWithRetry(ctx, []string{text}, domain.EmbedQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return vectors[0], nil
}

// EmbedDocuments embeds texts for indexing. Items that cannot be embedded
// are replaced by zero vectors and listed in ZeroFilled. Cancellation,
// dimension mismatches and provider auth failures abort the whole call.
func (p *EmbeddingProvider) EmbedDocuments(ctx context.Context, texts []string) (*EmbedBatch, error) {
	out := &EmbedBatch{Vectors: make([][]float32, len(texts))}
	if len(texts) == 0 {
		return out, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)

	for start := 0; start < len(texts); start += p.cfg.BatchSize {
		end := min(start+p.cfg.BatchSize, len(texts))
		g.Go(func() error {
			zeros, err := p.embedSubBatch(gctx, texts[start:end], out.Vectors[start:end], start)
			if err != nil {
				return err
			}
			if len(zeros) > 0 {
				mu.Lock()
				out.ZeroFilled = append(out.ZeroFilled, zeros...)
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("embed documents: %w", err)
	}
	sort.Ints(out.ZeroFilled)
	return out, nil
}

// embedSubBatch fills dst for one sub-batch, falling back to per-item calls.
func (p *EmbeddingProvider) embedSubBatch(ctx context.Context, texts []string, dst [][]float32, offset int) ([]int, error) {
	vectors, err := p.embedWithRetry(ctx, texts, domain.EmbedDocument)
	if err == nil {
		copy(dst, vectors)
		return nil, nil
	}
	if isFatal(ctx, err) {
		return nil, err
	}

	if len(texts) == 1 {
		logger.Warn("Embedding chunk %d failed, storing zero vector: %v", offset, err)
		dst[0] = make([]float32, p.Dimensions())
		return []int{offset}, nil
	}

	logger.Warn("Embedding batch of %d failed, retrying items individually: %v", len(texts), err)

	var zeros []int
	for i, text := range texts {
		v, err := p.embedWithRetry(ctx, []string{text}, domain.EmbedDocument)
		if err != nil {
			if isFatal(ctx, err) {
				return nil, err
			}
			logger.Warn("Embedding chunk %d failed, storing zero vector: %v", offset+i, err)
			dst[i] = make([]float32, p.Dimensions())
			zeros = append(zeros, offset+i)
			continue
		}
		dst[i] = v[0]
	}
	return zeros, nil
}

// embedWithRetry calls the backend up to MaxRetries times, backing off between
// transient failures. Permanent failures return immediately.
func (p *EmbeddingProvider) embedWithRetry(ctx context.Context, texts []string, mode domain.EmbedMode) ([][]float32, error) {
	var lastErr error
	for attempt := 0; attempt < p.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := p.backoff(attempt)
			logger.Debug("Embedding retry %d/%d in %s: %v", attempt+1, p.cfg.MaxRetries, delay, lastErr)
			if err := p.sleep(ctx, delay); err != nil {
				return nil, err
			}
		}
		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		vectors, err := p.call(ctx, texts, mode)
		if err == nil {
			return vectors, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !domain.IsTransient(err) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("after %d attempts: %w", p.cfg.MaxRetries, lastErr)
}

func (p *EmbeddingProvider) call(ctx context.Context, texts []string, mode domain.EmbedMode) ([][]float32, error) {
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	vectors, err := p.backend.Embed(ctx, texts, mode)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, &domain.ProviderError{
			Provider: p.backend.ModelName(),
			Err:      fmt.Errorf("returned %d vectors for %d inputs", len(vectors), len(texts)),
		}
	}
	dims := p.backend.Dimensions()
	for _, v := range vectors {
		if len(v) != dims {
			return nil, &domain.DimensionMismatchError{Collection: p.backend.ModelName(), Expected: dims, Got: len(v)}
		}
	}
	return vectors, nil
}

// backoff returns BaseDelay·2^(attempt-1) capped at MaxDelay, plus jitter.
func (p *EmbeddingProvider) backoff(attempt int) time.Duration {
	d := p.cfg.BaseDelay << (attempt - 1)
	if d > p.cfg.MaxDelay || d <= 0 {
		d = p.cfg.MaxDelay
	}
	return d + p.jitter(p.cfg.BaseDelay)
}

// isFatal reports errors that must not be hidden behind a zero vector.
func isFatal(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return true
	}
	if errors.Is(err, domain.ErrDimensionMismatch) {
		return true
	}
	var pe *domain.ProviderError
	if errors.As(err, &pe) {
		return pe.StatusCode == http.StatusUnauthorized || pe.StatusCode == http.StatusForbidden
	}
	return false
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func uniformJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(limit)))
}
