package postprocessors

import (
	"strings"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/postprocessors/chunker"
	"github.com/custodia-labs/sercha-rag/internal/postprocessors/whitespace"
)

// RegisterDefaults registers the built-in stages.
func RegisterDefaults(r *Registry) {
	r.Register("chunker", buildChunker)
	r.Register("whitespace", func(map[string]any) (driven.PostProcessor, error) {
		return whitespace.New(), nil
	})
}

// BuildPipeline constructs the configured stages. The chain must include
// the chunker, otherwise nothing would be embedded.
func BuildPipeline(r *Registry, cfg domain.PipelineConfig) (*Pipeline, error) {
	p := NewPipeline()
	for _, name := range cfg.Processors {
		stage, err := r.Build(name, cfg.GetProcessorConfig(name))
		if err != nil {
			return nil, err
		}
		p.Add(stage)
	}
	if !hasStage(p, "chunker") {
		return nil, domain.ValidationErrorf("pipeline %q has no chunker", strings.Join(cfg.Processors, ","))
	}
	return p, nil
}

func hasStage(p *Pipeline, name string) bool {
	for _, s := range p.Stages() {
		if s == name {
			return true
		}
	}
	return false
}

// buildChunker reads chunk_size and overlap, both in characters.
func buildChunker(cfg map[string]any) (driven.PostProcessor, error) {
	size, hasSize, err := intSetting(cfg, "chunk_size")
	if err != nil {
		return nil, err
	}
	overlap, hasOverlap, err := intSetting(cfg, "overlap")
	if err != nil {
		return nil, err
	}

	if !hasSize {
		size = chunker.DefaultChunkSize
	}
	if !hasOverlap {
		overlap = min(chunker.DefaultChunkOverlap, size/4)
	}
	switch {
	case size <= 0:
		return nil, domain.ValidationErrorf("chunk_size must be positive, got %d", size)
	case overlap < 0 || overlap >= size:
		return nil, domain.ValidationErrorf("overlap must be in [0, %d), got %d", size, overlap)
	}
	return chunker.New(size, overlap), nil
}

// intSetting reads an integer from a decoded TOML table, which yields
// int64, or from JSON or defaults, which yield float64 or int.
func intSetting(cfg map[string]any, key string) (int, bool, error) {
	val, ok := cfg[key]
	if !ok {
		return 0, false, nil
	}
	switch v := val.(type) {
	case int:
		return v, true, nil
	case int64:
		return int(v), true, nil
	case float64:
		if v != float64(int(v)) {
			return 0, true, domain.ValidationErrorf("%s must be a whole number, got %v", key, v)
		}
		return int(v), true, nil
	default:
		return 0, true, domain.ValidationErrorf("%s must be a number, got %T", key, val)
	}
}
