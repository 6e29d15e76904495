// Package kv is the flat, dotted-key map shared by the config stores.
package kv

import (
	"maps"
	"slices"
	"sync"
)

// Map is a concurrency-safe map of dotted keys to TOML-shaped values:
// strings, bools, int64 or float64 numbers, and []any arrays. Go-native
// int and []string are accepted too. The zero value is ready to use.
type Map struct {
	mu     sync.RWMutex
	values map[string]any
}

func (m *Map) Get(key string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *Map) GetString(key string) string {
	v, _ := m.Get(key)
	s, _ := v.(string)
	return s
}

func (m *Map) GetBool(key string) bool {
	v, _ := m.Get(key)
	b, _ := v.(bool)
	return b
}

// GetInt truncates floats.
func (m *Map) GetInt(key string) int {
	v, _ := m.Get(key)
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

// GetFloat widens integers.
func (m *Map) GetFloat(key string) float64 {
	v, _ := m.Get(key)
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}

// GetStringSlice drops non-string elements of a mixed array.
func (m *Map) GetStringSlice(key string) []string {
	v, _ := m.Get(key)
	switch items := v.(type) {
	case []string:
		return items
	case []any:
		out := make([]string, 0, len(items))
		for _, item := range items {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Keys is sorted.
func (m *Map) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.values))
}

func (m *Map) Put(key string, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values == nil {
		m.values = make(map[string]any)
	}
	m.values[key] = value
}

// Replace swaps in values wholesale.
func (m *Map) Replace(values map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values = values
}

// Snapshot is a shallow copy of the current values.
func (m *Map) Snapshot() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.values)
}
