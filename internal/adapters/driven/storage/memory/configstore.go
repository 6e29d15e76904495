package memory

import (
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/config/kv"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigStore keeps settings for the life of the process only.
type ConfigStore struct {
	kv.Map
}

func NewConfigStore() *ConfigStore { return &ConfigStore{} }

func (s *ConfigStore) Set(key string, value any) error {
	s.Put(key, value)
	return nil
}

func (s *ConfigStore) Save() error  { return nil }
func (s *ConfigStore) Load() error  { return nil }
func (s *ConfigStore) Path() string { return ":memory:" }
