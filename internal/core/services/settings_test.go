package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/recall/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/recall/internal/core/domain"
)

func noEnv(string) string { return "" }

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), noEnv)

	settings, err := service.Get()
	require.NoError(t, err)

	assert.Equal(t, domain.DefaultAppSettings(), *settings)
	assert.Equal(t, domain.DefaultAppSettings(), service.GetDefaults())
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	store := memory.NewConfigStore(map[string]any{
		KeyChunkSize:      500,
		KeyChunkOverlap:   0,
		KeyEmbedProvider:  "openai",
		KeyEmbedModel:     "text-embedding-3-large",
		KeyEmbedAPIKey:    "sk-test",
		KeySearchTopK:     "8",
		KeyCompactPurge:   true,
		KeyEmbedBatchSize: int64(16),
		KeyOverfetch:      3,
	})
	service := NewSettingsService(store, noEnv)

	settings, err := service.Get()
	require.NoError(t, err)

	assert.Equal(t, 500, settings.Chunk.Size)
	assert.Equal(t, 0, settings.Chunk.Overlap)
	assert.Equal(t, domain.EmbeddingProviderOpenAI, settings.Embedding.Provider)
	assert.Equal(t, "text-embedding-3-large", settings.Embedding.Model)
	assert.Equal(t, 3072, settings.Embedding.Dimensions)
	assert.Equal(t, "sk-test", settings.Embedding.APIKey)
	assert.Equal(t, 16, settings.Embedding.BatchSize)
	assert.Equal(t, 8, settings.Search.TopK)
	assert.Equal(t, 3, settings.Search.Overfetch)
	assert.True(t, settings.Compact.PurgeMetadata)
}

func TestSettingsService_Get_InvalidProviderReturnsDefault(t *testing.T) {
	store := memory.NewConfigStore(map[string]any{KeyEmbedProvider: "invalid_provider"})
	settings, err := NewSettingsService(store, noEnv).Get()
	require.NoError(t, err)
	assert.Equal(t, domain.EmbeddingProviderHashing, settings.Embedding.Provider)
}

func TestSettingsService_Get_ProviderDefaultModel(t *testing.T) {
	store := memory.NewConfigStore(map[string]any{KeyEmbedProvider: "ollama"})
	settings, err := NewSettingsService(store, noEnv).Get()
	require.NoError(t, err)
	assert.Equal(t, "nomic-embed-text", settings.Embedding.Model)
	assert.Equal(t, 768, settings.Embedding.Dimensions)
}

func TestSettingsService_Get_APIKeyFromEnvironment(t *testing.T) {
	store := memory.NewConfigStore(map[string]any{KeyEmbedProvider: "openai"})
	env := func(key string) string {
		if key == EnvOpenAIAPIKey {
			return "sk-env"
		}
		return ""
	}

	settings, err := NewSettingsService(store, env).Get()
	require.NoError(t, err)
	assert.Equal(t, "sk-env", settings.Embedding.APIKey)
	assert.True(t, settings.Embedding.IsConfigured())
}

func TestSettingsService_SaveRoundTrip(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, noEnv)

	settings := domain.DefaultAppSettings()
	settings.Chunk.Size = 400
	settings.Chunk.Overlap = 0
	settings.Embedding.Dimensions = 128
	settings.Compact.PurgeMetadata = true
	require.NoError(t, service.Save(&settings))

	got, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, settings, *got)

	_, hasKey := store.Get(KeyEmbedAPIKey)
	assert.False(t, hasKey, "empty api key must not be written")
}

func TestSettingsService_Save_KnownDimensionsStoredAsZero(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, noEnv)

	settings := domain.DefaultAppSettings()
	require.NoError(t, service.Save(&settings))
	assert.Equal(t, 0, store.GetInt(KeyEmbedDims))
}

func TestSettingsService_Save_DoesNotPersistEnvironmentKey(t *testing.T) {
	store := memory.NewConfigStore()
	env := func(string) string { return "sk-env" }
	service := NewSettingsService(store, env)

	settings := domain.DefaultAppSettings()
	settings.Embedding.Provider = domain.EmbeddingProviderOpenAI
	settings.Embedding.APIKey = "sk-env"
	require.NoError(t, service.Save(&settings))

	_, hasKey := store.Get(KeyEmbedAPIKey)
	assert.False(t, hasKey)
}

func TestSettingsService_SetEmbeddingProvider(t *testing.T) {
	tests := []struct {
		name      string
		provider  domain.EmbeddingProvider
		model     string
		apiKey    string
		wantErr   bool
		wantModel string
		wantURL   string
		wantDims  int
	}{
		{
			name:     "invalid provider",
			provider: "anthropic",
			wantErr:  true,
		},
		{
			name:     "openai requires key",
			provider: domain.EmbeddingProviderOpenAI,
			wantErr:  true,
		},
		{
			name:      "ollama default model",
			provider:  domain.EmbeddingProviderOllama,
			wantModel: "nomic-embed-text",
			wantURL:   "http://localhost:11434",
			wantDims:  768,
		},
		{
			name:      "openai explicit model",
			provider:  domain.EmbeddingProviderOpenAI,
			model:     "text-embedding-3-large",
			apiKey:    "sk-test",
			wantModel: "text-embedding-3-large",
			wantDims:  3072,
		},
		{
			name:      "hashing",
			provider:  domain.EmbeddingProviderHashing,
			wantModel: "feature-hash-v1",
			wantDims:  domain.DefaultHashingDimensions,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := NewSettingsService(memory.NewConfigStore(), noEnv)

			err := service.SetEmbeddingProvider(tt.provider, tt.model, tt.apiKey)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidInput)
				return
			}
			require.NoError(t, err)

			settings, err := service.Get()
			require.NoError(t, err)
			assert.Equal(t, tt.provider, settings.Embedding.Provider)
			assert.Equal(t, tt.wantModel, settings.Embedding.Model)
			assert.Equal(t, tt.wantURL, settings.Embedding.BaseURL)
			assert.Equal(t, tt.wantDims, settings.Embedding.Dimensions)
			assert.Equal(t, tt.apiKey, settings.Embedding.APIKey)
		})
	}
}

func TestSettingsService_SetChunking(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), noEnv)

	require.NoError(t, service.SetChunking(600, 100))
	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.ChunkSettings{Size: 600, Overlap: 100}, settings.Chunk)

	assert.ErrorIs(t, service.SetChunking(0, 0), domain.ErrInvalidInput)
	assert.ErrorIs(t, service.SetChunking(100, 100), domain.ErrInvalidInput)
	assert.ErrorIs(t, service.SetChunking(100, -1), domain.ErrInvalidInput)
}

func TestSettingsService_Validate(t *testing.T) {
	tests := []struct {
		name    string
		values  map[string]any
		wantErr error
	}{
		{"defaults", nil, nil},
		{"bad overlap", map[string]any{KeyChunkOverlap: 900}, domain.ErrInvalidInput},
		{"openai without key", map[string]any{KeyEmbedProvider: "openai"}, domain.ErrEmbeddingUnavailable},
		{"zero top_k", map[string]any{KeySearchTopK: 0}, domain.ErrInvalidInput},
		{"zero overfetch", map[string]any{KeyOverfetch: 0}, domain.ErrInvalidInput},
		{"zero batch", map[string]any{KeyEmbedBatchSize: 0}, domain.ErrInvalidInput},
		{"negative dims", map[string]any{KeyEmbedDims: -1}, domain.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := NewSettingsService(memory.NewConfigStore(tt.values), noEnv)
			err := service.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestKeys(t *testing.T) {
	keys := Keys()
	assert.Contains(t, keys, KeyCompactPurge)
	assert.Len(t, keys, 11)
}

func TestSettingsService_Value(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(map[string]any{
		KeyChunkSize:    600,
		KeyCompactPurge: true,
	}), noEnv)

	tests := []struct {
		key  string
		want string
	}{
		{KeyChunkSize, "600"},
		{KeyChunkOverlap, "150"},
		{KeyEmbedProvider, "hashing"},
		{KeyEmbedModel, "feature-hash-v1"},
		{KeyEmbedDims, "384"},
		{KeySearchTopK, "5"},
		{KeyCompactPurge, "true"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, err := service.Value(tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := service.Value("no.such.key")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSettingsService_SetValue(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), noEnv)

	require.NoError(t, service.SetValue(KeySearchTopK, " 12 "))
	require.NoError(t, service.SetValue(KeyCompactPurge, "true"))
	require.NoError(t, service.SetValue(KeyChunkOverlap, "0"))

	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, 12, settings.Search.TopK)
	assert.True(t, settings.Compact.PurgeMetadata)
	assert.Equal(t, 0, settings.Chunk.Overlap)
}

func TestSettingsService_SetValue_ProviderResetsModel(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), noEnv)

	require.NoError(t, service.SetValue(KeyEmbedProvider, "ollama"))

	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.EmbeddingProviderOllama, settings.Embedding.Provider)
	assert.Equal(t, "nomic-embed-text", settings.Embedding.Model)
	assert.Equal(t, "http://localhost:11434", settings.Embedding.BaseURL)
	assert.Equal(t, 768, settings.Embedding.Dimensions)

	require.NoError(t, service.SetValue(KeyEmbedModel, "mxbai-embed-large"))
	settings, err = service.Get()
	require.NoError(t, err)
	assert.Equal(t, 1024, settings.Embedding.Dimensions)
}

func TestSettingsService_SetValue_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown key", "no.such.key", "1"},
		{"not an integer", KeySearchTopK, "many"},
		{"zero top_k", KeySearchTopK, "0"},
		{"overlap not below size", KeyChunkOverlap, "900"},
		{"negative dimensions", KeyEmbedDims, "-1"},
		{"bad provider", KeyEmbedProvider, "cohere"},
		{"bad bool", KeyCompactPurge, "sometimes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewConfigStore()
			service := NewSettingsService(store, noEnv)

			err := service.SetValue(tt.key, tt.value)
			require.ErrorIs(t, err, domain.ErrInvalidInput)
			_, exists := store.Get(tt.key)
			assert.False(t, exists, "nothing is written")
		})
	}
}

func TestSettingsService_SetValue_APIKey(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, noEnv)

	require.NoError(t, service.SetValue(KeyEmbedAPIKey, "sk-abc"))
	assert.Equal(t, "sk-abc", store.GetString(KeyEmbedAPIKey))

	require.NoError(t, service.SetValue(KeyEmbedAPIKey, ""))
	assert.Empty(t, store.GetString(KeyEmbedAPIKey))
}
