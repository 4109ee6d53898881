package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestEmbeddingProvider_IsValid tests valid and invalid providers
func TestEmbeddingProvider_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		provider EmbeddingProvider
		expected bool
	}{
		{name: "hashing", provider: EmbeddingProviderHashing, expected: true},
		{name: "ollama", provider: EmbeddingProviderOllama, expected: true},
		{name: "openai", provider: EmbeddingProviderOpenAI, expected: true},
		{name: "anthropic has no embeddings", provider: EmbeddingProvider("anthropic"), expected: false},
		{name: "empty", provider: EmbeddingProvider(""), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.provider.IsValid())
		})
	}
}

// TestEmbeddingProvider_Properties tests provider helpers
func TestEmbeddingProvider_Properties(t *testing.T) {
	assert.True(t, EmbeddingProviderOpenAI.RequiresAPIKey())
	assert.False(t, EmbeddingProviderOllama.RequiresAPIKey())
	assert.True(t, EmbeddingProviderHashing.IsLocal())
	assert.False(t, EmbeddingProviderOpenAI.IsLocal())
	assert.Equal(t, unknownDescription, EmbeddingProvider("x").Description())
}

// TestEmbeddingSettings_IsConfigured tests configuration checks
func TestEmbeddingSettings_IsConfigured(t *testing.T) {
	assert.True(t, EmbeddingSettings{Provider: EmbeddingProviderHashing}.IsConfigured())
	assert.False(t, EmbeddingSettings{Provider: EmbeddingProviderOpenAI}.IsConfigured())
	assert.True(t, EmbeddingSettings{Provider: EmbeddingProviderOpenAI, APIKey: "sk-test"}.IsConfigured())
	assert.False(t, EmbeddingSettings{}.IsConfigured())
}

// TestDefaultAppSettings tests default values
func TestDefaultAppSettings(t *testing.T) {
	s := DefaultAppSettings()

	assert.Equal(t, 900, s.Chunk.Size)
	assert.Equal(t, 150, s.Chunk.Overlap)
	assert.Equal(t, EmbeddingProviderHashing, s.Embedding.Provider)
	assert.Equal(t, DefaultHashingDimensions, s.Embedding.Dimensions)
	assert.Equal(t, 32, s.Embedding.BatchSize)
	assert.Equal(t, 5, s.Search.TopK)
	assert.Equal(t, 5, s.Search.Overfetch)
	assert.False(t, s.Compact.PurgeMetadata)
	assert.True(t, s.Embedding.IsConfigured())
}

// TestEmbeddingDimensions tests known model dimensions
func TestEmbeddingDimensions(t *testing.T) {
	dims := EmbeddingDimensions()
	for provider, model := range DefaultEmbeddingModels() {
		_, ok := dims[model]
		assert.True(t, ok, "default model for %s has known dimensions", provider)
	}
}
