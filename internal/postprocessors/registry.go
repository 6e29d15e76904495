package postprocessors

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// BuilderFunc creates a stage from its [pipeline.<name>] table in config.toml.
type BuilderFunc func(cfg map[string]any) (driven.PostProcessor, error)

// Registry maps stage names to builders.
type Registry struct {
	builders map[string]BuilderFunc
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{builders: make(map[string]BuilderFunc)}
}

// Register adds or replaces the builder for name.
func (r *Registry) Register(name string, builder BuilderFunc) {
	r.builders[name] = builder
}

// Build creates the stage called name. Unknown names are validation errors
// listing what is available.
func (r *Registry) Build(name string, cfg map[string]any) (driven.PostProcessor, error) {
	builder, ok := r.builders[name]
	if !ok {
		return nil, domain.ValidationErrorf("unknown processor %q (available: %s)",
			name, strings.Join(r.Names(), ", "))
	}
	stage, err := builder(cfg)
	if err != nil {
		return nil, fmt.Errorf("building processor %s: %w", name, err)
	}
	return stage, nil
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	return slices.Sorted(maps.Keys(r.builders))
}
