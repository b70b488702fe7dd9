package domain

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or completions.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API (completions only).
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// SupportsEmbeddings returns true if the provider can generate embeddings.
func (p AIProvider) SupportsEmbeddings() bool {
	return p == AIProviderOllama || p == AIProviderOpenAI
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	Provider AIProvider
	Model    string

	// BaseURL is the API endpoint. Optional for OpenAI.
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// MaxInputChars truncates input text before it is sent.
	MaxInputChars int

	// RequestsPerSecond throttles embedding calls. Zero disables throttling.
	RequestsPerSecond float64
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.SupportsEmbeddings() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds completion provider configuration.
type LLMSettings struct {
	Provider AIProvider
	Model    string
	BaseURL  string
	APIKey   string

	// RequestsPerSecond throttles completion calls. Zero disables throttling.
	RequestsPerSecond float64
}

// AllLLMProviders returns providers that support completions.
func AllLLMProviders() []AIProvider {
	return []AIProvider{AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic}
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// VectorBackend selects the vector index implementation.
type VectorBackend string

// Available vector backends.
const (
	// VectorBackendLocal scans chunk embeddings held in the metadata store.
	VectorBackendLocal VectorBackend = "local"

	// VectorBackendQdrant uses an external Qdrant collection.
	VectorBackendQdrant VectorBackend = "qdrant"
)

// IsValid returns true if the backend is recognised.
func (b VectorBackend) IsValid() bool {
	return b == VectorBackendLocal || b == VectorBackendQdrant
}

// Description returns a human-readable description of the backend.
func (b VectorBackend) Description() string {
	switch b {
	case VectorBackendLocal:
		return "Local (in-process cosine scan)"
	case VectorBackendQdrant:
		return "Qdrant (external service)"
	default:
		return unknownDescription
	}
}

// VectorSettings holds vector index configuration.
type VectorSettings struct {
	Backend    VectorBackend
	URL        string
	APIKey     string
	Collection string

	// Dimensions is the embedding vector size. Zero means "infer from model".
	Dimensions int
}

// IndexingSettings holds defaults for indexing runs.
type IndexingSettings struct {
	ChunkSize               int
	ChunkOverlapWords       int
	MaxConcurrentProcessing int
	MaxFiles                int
	Recursive               bool
	GenerateEmbeddings      bool
	ExtractConcepts         bool
	GenerateSummary         bool
}

// GraphSettings holds concept graph configuration.
type GraphSettings struct {
	// SliceChars bounds the text sent in one concept-extraction call.
	SliceChars int

	// MaxSlices caps the number of extraction calls per document.
	MaxSlices int

	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string
	Neo4jDatabase string
}

// ServerSettings holds HTTP API configuration.
type ServerSettings struct {
	Addr string
}

// AppSettings holds all application settings.
type AppSettings struct {
	Embedding EmbeddingSettings
	LLM       LLMSettings
	Vector    VectorSettings
	Indexing  IndexingSettings
	Graph     GraphSettings
	Server    ServerSettings
}

// Indexing defaults.
const (
	DefaultChunkSize               = 1000
	DefaultChunkOverlapWords       = 50
	DefaultMaxConcurrentProcessing = 5
	DefaultMaxFiles                = 10000
	DefaultEmbeddingMaxInputChars  = 8000
	DefaultGraphSliceChars         = 6000
	DefaultGraphMaxSlices          = 8
	DefaultQdrantCollection        = "kindex_chunks"
	DefaultServerAddr              = "127.0.0.1:7391"
)

// DefaultAppSettings returns settings with sensible defaults.
// AI features are left unconfigured; the engine runs lexical-only
// until a provider is set.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			MaxInputChars: DefaultEmbeddingMaxInputChars,
		},
		Vector: VectorSettings{
			Backend:    VectorBackendLocal,
			Collection: DefaultQdrantCollection,
		},
		Indexing: IndexingSettings{
			ChunkSize:               DefaultChunkSize,
			ChunkOverlapWords:       DefaultChunkOverlapWords,
			MaxConcurrentProcessing: DefaultMaxConcurrentProcessing,
			MaxFiles:                DefaultMaxFiles,
			Recursive:               true,
			GenerateEmbeddings:      true,
			ExtractConcepts:         true,
		},
		Graph: GraphSettings{
			SliceChars:    DefaultGraphSliceChars,
			MaxSlices:     DefaultGraphMaxSlices,
			Neo4jDatabase: "neo4j",
		},
		Server: ServerSettings{Addr: DefaultServerAddr},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{AIProviderOllama, AIProviderOpenAI}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-haiku-latest",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}

// PipelineConfig holds post-processor pipeline configuration.
// Uses generic map-based config so new processors can be added
// without modifying this struct.
type PipelineConfig struct {
	// Processors is the ordered list of processor names to run.
	Processors []string

	// ProcessorConfigs holds per-processor configuration keyed by processor name.
	ProcessorConfigs map[string]map[string]any
}

// GetProcessorConfig returns config for a specific processor, or nil if not set.
func (c *PipelineConfig) GetProcessorConfig(name string) map[string]any {
	if c.ProcessorConfigs == nil {
		return nil
	}
	return c.ProcessorConfigs[name]
}

// ChunkingPipelineConfig returns a chunker-only pipeline for the given sizes.
func ChunkingPipelineConfig(chunkSize, overlapWords int) PipelineConfig {
	return PipelineConfig{
		Processors: []string{"chunker"},
		ProcessorConfigs: map[string]map[string]any{
			"chunker": {
				"chunk_size": chunkSize,
				"overlap":    overlapWords,
			},
		},
	}
}

// DefaultPipelineConfig returns the default pipeline configuration.
func DefaultPipelineConfig() PipelineConfig {
	return ChunkingPipelineConfig(DefaultChunkSize, DefaultChunkOverlapWords)
}
