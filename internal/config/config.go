// Package config assembles the kindex runtime configuration from
// ~/.kindex/config.toml, an optional .env file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/kindex/internal/adapters/driven/config/file"
	"github.com/custodia-labs/kindex/internal/core/domain"
	"github.com/custodia-labs/kindex/internal/core/ports/driven"
)

// Config keys in config.toml.
//
//nolint:gosec // G101: these are key names, not credentials.
const (
	KeyDataDir = "data_dir"

	KeyEmbedProvider = "embedding.provider"
	KeyEmbedModel    = "embedding.model"
	KeyEmbedBaseURL  = "embedding.base_url"
	KeyEmbedAPIKey   = "embedding.api_key"
	KeyEmbedMaxChars = "embedding.max_input_chars"
	KeyEmbedRPS      = "embedding.requests_per_second"

	KeyLLMProvider = "llm.provider"
	KeyLLMModel    = "llm.model"
	KeyLLMBaseURL  = "llm.base_url"
	KeyLLMAPIKey   = "llm.api_key"
	KeyLLMRPS      = "llm.requests_per_second"

	KeyVectorBackend    = "vector.backend"
	KeyVectorURL        = "vector.url"
	KeyVectorAPIKey     = "vector.api_key"
	KeyVectorCollection = "vector.collection"
	KeyVectorDimensions = "vector.dimensions"

	KeyChunkSize          = "indexing.chunk_size"
	KeyChunkOverlap       = "indexing.chunk_overlap_words"
	KeyMaxConcurrent      = "indexing.max_concurrent_processing"
	KeyMaxFiles           = "indexing.max_files"
	KeyRecursive          = "indexing.recursive"
	KeyGenerateEmbeddings = "indexing.generate_embeddings"
	KeyExtractConcepts    = "indexing.extract_concepts"
	KeyGenerateSummary    = "indexing.generate_summary"

	KeyGraphSliceChars = "graph.slice_chars"
	KeyGraphMaxSlices  = "graph.max_slices"
	KeyNeo4jURI        = "graph.neo4j.uri"
	KeyNeo4jUser       = "graph.neo4j.user"
	KeyNeo4jPassword   = "graph.neo4j.password"
	KeyNeo4jDatabase   = "graph.neo4j.database"

	KeyServerAddr = "server.addr"
)

// Environment overrides.
//
//nolint:gosec // G101: these are variable names, not credentials.
const (
	EnvConfigDir    = "KINDEX_CONFIG_DIR"
	EnvDataDir      = "KINDEX_DATA_DIR"
	EnvOpenAIKey    = "OPENAI_API_KEY"
	EnvAnthropicKey = "ANTHROPIC_API_KEY"
	EnvOllamaHost   = "OLLAMA_HOST"
	EnvQdrantURL    = "KINDEX_QDRANT_URL"
	EnvQdrantAPIKey = "KINDEX_QDRANT_API_KEY"
	EnvNeo4jURI     = "KINDEX_NEO4J_URI"
	EnvNeo4jUser    = "KINDEX_NEO4J_USER"
	EnvNeo4jPass    = "KINDEX_NEO4J_PASSWORD"
	EnvServerAddr   = "KINDEX_ADDR"
)

// Config is the resolved runtime configuration.
type Config struct {
	// ConfigDir holds config.toml and the prompts directory.
	ConfigDir string

	// DataDir holds the metadata database.
	DataDir string

	domain.AppSettings
}

// PromptDir returns the directory holding prompt templates.
func (c *Config) PromptDir() string {
	return filepath.Join(c.ConfigDir, "prompts")
}

// DefaultConfigDir returns $KINDEX_CONFIG_DIR or ~/.kindex.
func DefaultConfigDir() (string, error) {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".kindex"), nil
}

// Load reads .env from the working directory (if present), then
// config.toml from configDir, then applies environment overrides.
// An empty configDir uses DefaultConfigDir.
func Load(configDir string) (*Config, *file.ConfigStore, error) {
	_ = godotenv.Load()

	if configDir == "" {
		dir, err := DefaultConfigDir()
		if err != nil {
			return nil, nil, err
		}
		configDir = dir
	}

	store, err := file.NewConfigStore(configDir)
	if err != nil {
		return nil, nil, fmt.Errorf("open config: %w", err)
	}

	cfg := FromStore(store)
	cfg.ConfigDir = configDir
	if cfg.DataDir == "" {
		cfg.DataDir = filepath.Join(configDir, "data")
	}
	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, store, nil
}

// FromStore builds a Config from stored keys, falling back to defaults.
func FromStore(store driven.ConfigStore) *Config {
	d := domain.DefaultAppSettings()
	r := reader{store: store}

	cfg := &Config{DataDir: store.GetString(KeyDataDir)}
	cfg.Embedding = domain.EmbeddingSettings{
		Provider:          domain.AIProvider(store.GetString(KeyEmbedProvider)),
		Model:             store.GetString(KeyEmbedModel),
		BaseURL:           store.GetString(KeyEmbedBaseURL),
		APIKey:            store.GetString(KeyEmbedAPIKey),
		MaxInputChars:     r.getInt(KeyEmbedMaxChars, d.Embedding.MaxInputChars),
		RequestsPerSecond: r.getFloat(KeyEmbedRPS, d.Embedding.RequestsPerSecond),
	}
	cfg.LLM = domain.LLMSettings{
		Provider:          domain.AIProvider(store.GetString(KeyLLMProvider)),
		Model:             store.GetString(KeyLLMModel),
		BaseURL:           store.GetString(KeyLLMBaseURL),
		APIKey:            store.GetString(KeyLLMAPIKey),
		RequestsPerSecond: r.getFloat(KeyLLMRPS, d.LLM.RequestsPerSecond),
	}
	cfg.Vector = domain.VectorSettings{
		Backend:    domain.VectorBackend(r.getString(KeyVectorBackend, string(d.Vector.Backend))),
		URL:        store.GetString(KeyVectorURL),
		APIKey:     store.GetString(KeyVectorAPIKey),
		Collection: r.getString(KeyVectorCollection, d.Vector.Collection),
		Dimensions: r.getInt(KeyVectorDimensions, d.Vector.Dimensions),
	}
	cfg.Indexing = domain.IndexingSettings{
		ChunkSize:               r.getInt(KeyChunkSize, d.Indexing.ChunkSize),
		ChunkOverlapWords:       r.getInt(KeyChunkOverlap, d.Indexing.ChunkOverlapWords),
		MaxConcurrentProcessing: r.getInt(KeyMaxConcurrent, d.Indexing.MaxConcurrentProcessing),
		MaxFiles:                r.getInt(KeyMaxFiles, d.Indexing.MaxFiles),
		Recursive:               r.getBool(KeyRecursive, d.Indexing.Recursive),
		GenerateEmbeddings:      r.getBool(KeyGenerateEmbeddings, d.Indexing.GenerateEmbeddings),
		ExtractConcepts:         r.getBool(KeyExtractConcepts, d.Indexing.ExtractConcepts),
		GenerateSummary:         r.getBool(KeyGenerateSummary, d.Indexing.GenerateSummary),
	}
	cfg.Graph = domain.GraphSettings{
		SliceChars:    r.getInt(KeyGraphSliceChars, d.Graph.SliceChars),
		MaxSlices:     r.getInt(KeyGraphMaxSlices, d.Graph.MaxSlices),
		Neo4jURI:      store.GetString(KeyNeo4jURI),
		Neo4jUser:     store.GetString(KeyNeo4jUser),
		Neo4jPassword: store.GetString(KeyNeo4jPassword),
		Neo4jDatabase: r.getString(KeyNeo4jDatabase, d.Graph.Neo4jDatabase),
	}
	cfg.Server = domain.ServerSettings{
		Addr: r.getString(KeyServerAddr, d.Server.Addr),
	}

	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = domain.DefaultEmbeddingModels()[cfg.Embedding.Provider]
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = domain.DefaultLLMModels()[cfg.LLM.Provider]
	}
	return cfg
}

// applyEnv overlays environment variables. Keys are only taken from the
// environment when the config file leaves them empty.
func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvDataDir); v != "" {
		cfg.DataDir = v
	}

	providerKey := func(p domain.AIProvider) string {
		switch p {
		case domain.AIProviderOpenAI:
			return os.Getenv(EnvOpenAIKey)
		case domain.AIProviderAnthropic:
			return os.Getenv(EnvAnthropicKey)
		default:
			return ""
		}
	}
	if cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = providerKey(cfg.Embedding.Provider)
	}
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = providerKey(cfg.LLM.Provider)
	}
	if host := os.Getenv(EnvOllamaHost); host != "" {
		if !strings.Contains(host, "://") {
			host = "http://" + host
		}
		if cfg.Embedding.Provider == domain.AIProviderOllama && cfg.Embedding.BaseURL == "" {
			cfg.Embedding.BaseURL = host
		}
		if cfg.LLM.Provider == domain.AIProviderOllama && cfg.LLM.BaseURL == "" {
			cfg.LLM.BaseURL = host
		}
	}

	if v := os.Getenv(EnvQdrantURL); v != "" {
		cfg.Vector.URL = v
		cfg.Vector.Backend = domain.VectorBackendQdrant
	}
	if v := os.Getenv(EnvQdrantAPIKey); v != "" {
		cfg.Vector.APIKey = v
	}
	if v := os.Getenv(EnvNeo4jURI); v != "" {
		cfg.Graph.Neo4jURI = v
	}
	if v := os.Getenv(EnvNeo4jUser); v != "" {
		cfg.Graph.Neo4jUser = v
	}
	if v := os.Getenv(EnvNeo4jPass); v != "" {
		cfg.Graph.Neo4jPassword = v
	}
	if v := os.Getenv(EnvServerAddr); v != "" {
		cfg.Server.Addr = v
	}
}

// Validate rejects configurations that cannot work. Unset AI providers
// are valid: the engine then runs lexical-only.
func (c *Config) Validate() error {
	var errs []error

	if p := c.Embedding.Provider; p != "" && !p.SupportsEmbeddings() {
		errs = append(errs, fmt.Errorf("%s: %q does not provide embeddings", KeyEmbedProvider, p))
	}
	if p := c.LLM.Provider; p != "" && !p.IsValid() {
		errs = append(errs, fmt.Errorf("%s: unknown provider %q", KeyLLMProvider, p))
	}
	if !c.Vector.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("%s: unknown backend %q", KeyVectorBackend, c.Vector.Backend))
	}
	if c.Indexing.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", KeyChunkSize))
	}
	if c.Indexing.ChunkOverlapWords < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative", KeyChunkOverlap))
	}
	if c.Indexing.MaxConcurrentProcessing <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", KeyMaxConcurrent))
	}
	if c.Graph.SliceChars <= 0 || c.Graph.MaxSlices <= 0 {
		errs = append(errs, fmt.Errorf("%s and %s must be positive", KeyGraphSliceChars, KeyGraphMaxSlices))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: invalid configuration: %w", domain.ErrInvalidInput, errors.Join(errs...))
	}
	return nil
}

// Set parses a command-line value and stores it under key. Values for
// known numeric and boolean keys are converted; anything else is stored
// as a string.
func Set(store driven.ConfigStore, key, raw string) error {
	var value any = raw
	switch key {
	case KeyEmbedMaxChars, KeyVectorDimensions, KeyChunkSize, KeyChunkOverlap,
		KeyMaxConcurrent, KeyMaxFiles, KeyGraphSliceChars, KeyGraphMaxSlices:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%w: %s expects an integer", domain.ErrInvalidInput, key)
		}
		value = n
	case KeyEmbedRPS, KeyLLMRPS:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("%w: %s expects a number", domain.ErrInvalidInput, key)
		}
		value = f
	case KeyRecursive, KeyGenerateEmbeddings, KeyExtractConcepts, KeyGenerateSummary:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("%w: %s expects true or false", domain.ErrInvalidInput, key)
		}
		value = b
	}
	return store.Set(key, value)
}

// reader applies defaults for keys absent from the store.
type reader struct {
	store driven.ConfigStore
}

func (r reader) has(key string) bool {
	_, ok := r.store.Get(key)
	return ok
}

func (r reader) getString(key, def string) string {
	if v := r.store.GetString(key); v != "" {
		return v
	}
	return def
}

func (r reader) getInt(key string, def int) int {
	if !r.has(key) {
		return def
	}
	return r.store.GetInt(key)
}

func (r reader) getFloat(key string, def float64) float64 {
	if !r.has(key) {
		return def
	}
	return r.store.GetFloat(key)
}

func (r reader) getBool(key string, def bool) bool {
	if !r.has(key) {
		return def
	}
	return r.store.GetBool(key)
}
