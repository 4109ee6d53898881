package domain

const unknownDescription = "Unknown"

// Chunking defaults.
const (
	DefaultChunkSize    = 900
	DefaultChunkOverlap = 150
)

// DefaultEmbeddingBatchSize bounds the number of texts per embedding call.
const DefaultEmbeddingBatchSize = 32

// DefaultHashingDimensions is the vector size of the offline hashing embedder.
const DefaultHashingDimensions = 384

// EmbeddingProvider identifies the service that turns text into vectors.
type EmbeddingProvider string

// Available embedding providers.
const (
	// EmbeddingProviderHashing is the deterministic offline feature-hashing embedder.
	EmbeddingProviderHashing EmbeddingProvider = "hashing"

	// EmbeddingProviderOllama is a local Ollama instance.
	EmbeddingProviderOllama EmbeddingProvider = "ollama"

	// EmbeddingProviderOpenAI is the OpenAI cloud API.
	EmbeddingProviderOpenAI EmbeddingProvider = "openai"
)

// IsValid returns true if the provider is recognised.
func (p EmbeddingProvider) IsValid() bool {
	switch p {
	case EmbeddingProviderHashing, EmbeddingProviderOllama, EmbeddingProviderOpenAI:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p EmbeddingProvider) RequiresAPIKey() bool {
	return p == EmbeddingProviderOpenAI
}

// IsLocal returns true if this provider runs without network access to a cloud API.
func (p EmbeddingProvider) IsLocal() bool {
	return p == EmbeddingProviderHashing || p == EmbeddingProviderOllama
}

// String returns the string representation.
func (p EmbeddingProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p EmbeddingProvider) Description() string {
	switch p {
	case EmbeddingProviderHashing:
		return "Hashing (offline, deterministic)"
	case EmbeddingProviderOllama:
		return "Ollama (local)"
	case EmbeddingProviderOpenAI:
		return "OpenAI (cloud)"
	default:
		return unknownDescription
	}
}

// ChunkSettings configures the chunker.
type ChunkSettings struct {
	// Size is the maximum chunk length in characters.
	Size int

	// Overlap is the number of characters shared by consecutive chunks.
	Overlap int
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider EmbeddingProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (Ollama, or an OpenAI-compatible server).
	BaseURL string

	// APIKey is the API key (OpenAI).
	APIKey string

	// Dimensions is the expected vector size. Zero means the provider's default.
	Dimensions int

	// BatchSize is the number of texts embedded per request.
	BatchSize int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// SearchSettings holds retrieval behaviour configuration.
type SearchSettings struct {
	// TopK is the default number of evidence items.
	TopK int

	// Overfetch multiplies TopK for the raw index query.
	Overfetch int
}

// CompactSettings configures compaction.
type CompactSettings struct {
	// PurgeMetadata hard-deletes soft-deleted rows after a successful rebuild.
	PurgeMetadata bool
}

// AppSettings holds all application settings.
type AppSettings struct {
	Chunk     ChunkSettings
	Embedding EmbeddingSettings
	Search    SearchSettings
	Compact   CompactSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// The hashing embedder is used so that a fresh install works offline.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Chunk: ChunkSettings{
			Size:    DefaultChunkSize,
			Overlap: DefaultChunkOverlap,
		},
		Embedding: EmbeddingSettings{
			Provider:   EmbeddingProviderHashing,
			Model:      DefaultEmbeddingModels()[EmbeddingProviderHashing],
			Dimensions: DefaultHashingDimensions,
			BatchSize:  DefaultEmbeddingBatchSize,
		},
		Search: SearchSettings{
			TopK:      DefaultTopK,
			Overfetch: DefaultOverfetch,
		},
	}
}

// AllEmbeddingProviders returns every supported embedding provider.
func AllEmbeddingProviders() []EmbeddingProvider {
	return []EmbeddingProvider{
		EmbeddingProviderHashing,
		EmbeddingProviderOllama,
		EmbeddingProviderOpenAI,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[EmbeddingProvider]string {
	return map[EmbeddingProvider]string{
		EmbeddingProviderHashing: "feature-hash-v1",
		EmbeddingProviderOllama:  "nomic-embed-text",
		EmbeddingProviderOpenAI:  "text-embedding-3-small",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Offline
		"feature-hash-v1": DefaultHashingDimensions,
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
