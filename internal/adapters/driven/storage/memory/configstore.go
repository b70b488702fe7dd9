// Package memory provides in-memory implementations of driven ports.
package memory

import (
	"sync"

	"github.com/custodia-labs/kindex/internal/core/ports/driven"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigStore keeps configuration values in memory. With a base store it
// acts as a staging overlay: reads fall through to the base for keys not
// set here, and writes never reach the base.
type ConfigStore struct {
	base driven.ConfigStore

	mu     sync.RWMutex
	values map[string]any
}

// NewConfigStore creates an empty in-memory store.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{values: make(map[string]any)}
}

// NewOverlay creates a store layered over base.
func NewOverlay(base driven.ConfigStore) *ConfigStore {
	s := NewConfigStore()
	s.base = base
	return s
}

// Get returns the overlay value for key, else the base value.
func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	val, ok := s.values[key]
	s.mu.RUnlock()
	if ok || s.base == nil {
		return val, ok
	}
	return s.base.Get(key)
}

// GetString returns "" if the key is missing or not a string.
func (s *ConfigStore) GetString(key string) string {
	str, _ := s.lookup(key).(string)
	return str
}

// GetInt returns 0 if the key is missing or not numeric.
func (s *ConfigStore) GetInt(key string) int {
	switch v := s.lookup(key).(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// GetFloat returns 0 if the key is missing or not numeric.
func (s *ConfigStore) GetFloat(key string) float64 {
	switch v := s.lookup(key).(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}

// GetBool returns false if the key is missing or not a boolean.
func (s *ConfigStore) GetBool(key string) bool {
	b, _ := s.lookup(key).(bool)
	return b
}

// GetStringSlice returns nil if the key is missing or not a list.
func (s *ConfigStore) GetStringSlice(key string) []string {
	switch v := s.lookup(key).(type) {
	case []string:
		return v
	case []any:
		result := make([]string, 0, len(v))
		for _, item := range v {
			if str, ok := item.(string); ok {
				result = append(result, str)
			}
		}
		return result
	default:
		return nil
	}
}

// Set stores a value in memory only.
func (s *ConfigStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// Changes returns a copy of the values set on this store.
func (s *ConfigStore) Changes() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Save is a no-op.
func (s *ConfigStore) Save() error {
	return nil
}

// Load is a no-op.
func (s *ConfigStore) Load() error {
	return nil
}

// Path returns the base store's path, or ":memory:".
func (s *ConfigStore) Path() string {
	if s.base != nil {
		return s.base.Path()
	}
	return ":memory:"
}

func (s *ConfigStore) lookup(key string) any {
	v, _ := s.Get(key)
	return v
}
