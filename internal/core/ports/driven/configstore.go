package driven

import "github.com/custodia-labs/kindex/internal/core/domain"

// ConfigStore provides access to application configuration.
// Implementations handle persistence (e.g., TOML files) and type conversion.
// Keys are dotted paths such as "indexing.chunk_size".
type ConfigStore interface {
	// Get retrieves a configuration value by key.
	Get(key string) (any, bool)

	// GetString returns "" if the key is missing or not a string.
	GetString(key string) string

	// GetInt returns 0 if the key is missing or not numeric.
	GetInt(key string) int

	// GetFloat returns 0 if the key is missing or not numeric.
	GetFloat(key string) float64

	// GetBool returns false if the key is missing or not a boolean.
	GetBool(key string) bool

	// GetStringSlice returns nil if the key is missing or not a list.
	GetStringSlice(key string) []string

	// Set stores a configuration value and persists immediately.
	Set(key string, value any) error

	// Save persists the current configuration to storage.
	Save() error

	// Load reads configuration from storage.
	Load() error

	// Path returns the configuration file path.
	Path() string
}

// AIConfigValidator checks that configured AI providers are reachable.
type AIConfigValidator interface {
	// ValidateEmbedding builds the embedding service and pings it.
	ValidateEmbedding(config *domain.EmbeddingSettings) error

	// ValidateLLM builds the completion service and pings it.
	ValidateLLM(config *domain.LLMSettings) error
}
