package file

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

//go:embed defaults
var defaults embed.FS

var _ driven.PromptStore = (*PromptStore)(nil)

// PromptStore serves prompt templates from <dir>/<name>.txt. The directory is
// seeded with the built-in prompts on first Load; a missing or unreadable file
// falls back to the built-in version.
type PromptStore struct {
	dir string

	seed    sync.Once
	seedErr error

	mu    sync.RWMutex
	cache map[string]string
}

// NewPromptStore creates a store rooted at dir, or ~/.sercha-rag/prompts when
// dir is empty. Nothing touches the disk until the first Load.
func NewPromptStore(dir string) (*PromptStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		dir = filepath.Join(home, ".sercha-rag", "prompts")
	}
	return &PromptStore{dir: dir, cache: make(map[string]string)}, nil
}

// Dir is the directory prompts are read from.
func (s *PromptStore) Dir() string { return s.dir }

// Load returns the named template.
func (s *PromptStore) Load(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\.`) {
		return "", domain.ValidationErrorf("invalid prompt name %q", name)
	}
	s.seed.Do(func() { s.seedErr = s.writeDefaults() })

	s.mu.RLock()
	text, ok := s.cache[name]
	s.mu.RUnlock()
	if ok {
		return text, nil
	}

	if s.seedErr == nil {
		if data, err := os.ReadFile(filepath.Join(s.dir, name+".txt")); err == nil {
			text = strings.TrimSpace(string(data))
		}
	}
	if text == "" {
		var err error
		if text, err = builtin(name); err != nil {
			return "", err
		}
	}

	s.mu.Lock()
	if cached, ok := s.cache[name]; ok {
		text = cached
	} else {
		s.cache[name] = text
	}
	s.mu.Unlock()
	return text, nil
}

// Reload drops cached templates so edits on disk are picked up.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	clear(s.cache)
	s.mu.Unlock()
}

// writeDefaults copies every embedded file the user does not already have.
func (s *PromptStore) writeDefaults() error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create prompt directory: %w", err)
	}
	entries, err := defaults.ReadDir("defaults")
	if err != nil {
		return err
	}
	for _, e := range entries {
		target := filepath.Join(s.dir, e.Name())
		if _, err := os.Stat(target); !errors.Is(err, fs.ErrNotExist) {
			continue
		}
		data, err := defaults.ReadFile(path.Join("defaults", e.Name()))
		if err != nil {
			return err
		}
		if err := os.WriteFile(target, data, 0o600); err != nil {
			return fmt.Errorf("write %s: %w", e.Name(), err)
		}
	}
	return nil
}

func builtin(name string) (string, error) {
	data, err := defaults.ReadFile(path.Join("defaults", name+".txt"))
	if err != nil {
		return "", fmt.Errorf("prompt %q: %w", name, domain.ErrNotFound)
	}
	return strings.TrimSpace(string(data)), nil
}
