package services

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
	"github.com/custodia-labs/recall/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	KeyChunkSize      = "chunk.size"
	KeyChunkOverlap   = "chunk.overlap"
	KeyEmbedProvider  = "embedding.provider"
	KeyEmbedModel     = "embedding.model"
	KeyEmbedBaseURL   = "embedding.base_url"
	KeyEmbedAPIKey    = "embedding.api_key"
	KeyEmbedDims      = "embedding.dimensions"
	KeyEmbedBatchSize = "embedding.batch_size"
	KeySearchTopK     = "search.top_k"
	KeyOverfetch      = "search.overfetch"
	KeyCompactPurge   = "compact.purge_metadata"
)

// EnvOpenAIAPIKey is read when no API key is configured for OpenAI.
//
//nolint:gosec // G101: environment variable name.
const EnvOpenAIAPIKey = "OPENAI_API_KEY"

// Keys returns every settings key in display order.
func Keys() []string {
	return []string{
		KeyChunkSize, KeyChunkOverlap,
		KeyEmbedProvider, KeyEmbedModel, KeyEmbedBaseURL, KeyEmbedAPIKey,
		KeyEmbedDims, KeyEmbedBatchSize,
		KeySearchTopK, KeyOverfetch,
		KeyCompactPurge,
	}
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
// getenv resolves environment fallbacks; nil uses os.Getenv.
func NewSettingsService(configStore driven.ConfigStore, getenv func(string) string) *SettingsService {
	if getenv == nil {
		getenv = os.Getenv
	}
	return &SettingsService{
		configStore: configStore,
		getenv:      getenv,
	}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	provider := s.getProvider(defaults.Embedding.Provider)
	model := s.getString(KeyEmbedModel, domain.DefaultEmbeddingModels()[provider])

	settings := &domain.AppSettings{
		Chunk: domain.ChunkSettings{
			Size:    s.getInt(KeyChunkSize, defaults.Chunk.Size),
			Overlap: s.getInt(KeyChunkOverlap, defaults.Chunk.Overlap),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:   provider,
			Model:      model,
			BaseURL:    s.configStore.GetString(KeyEmbedBaseURL),
			APIKey:     s.configStore.GetString(KeyEmbedAPIKey),
			Dimensions: s.configStore.GetInt(KeyEmbedDims),
			BatchSize:  s.getInt(KeyEmbedBatchSize, defaults.Embedding.BatchSize),
		},
		Search: domain.SearchSettings{
			TopK:      s.getInt(KeySearchTopK, defaults.Search.TopK),
			Overfetch: s.getInt(KeyOverfetch, defaults.Search.Overfetch),
		},
		Compact: domain.CompactSettings{
			PurgeMetadata: s.getBool(KeyCompactPurge, defaults.Compact.PurgeMetadata),
		},
	}

	if settings.Embedding.Dimensions == 0 {
		settings.Embedding.Dimensions = domain.EmbeddingDimensions()[model]
	}
	if settings.Embedding.APIKey == "" && provider == domain.EmbeddingProviderOpenAI {
		settings.Embedding.APIKey = s.getenv(EnvOpenAIAPIKey)
	}

	return settings, nil
}

// Save persists application settings.
// An empty API key is not written, so a key from the environment is
// never copied into the config file.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	// Known model dimensions are stored as zero so a later model change
	// picks up the new model's size.
	dims := settings.Embedding.Dimensions
	if dims == domain.EmbeddingDimensions()[settings.Embedding.Model] {
		dims = 0
	}

	values := []struct {
		key   string
		value any
	}{
		{KeyChunkSize, settings.Chunk.Size},
		{KeyChunkOverlap, settings.Chunk.Overlap},
		{KeyEmbedProvider, settings.Embedding.Provider.String()},
		{KeyEmbedModel, settings.Embedding.Model},
		{KeyEmbedBaseURL, settings.Embedding.BaseURL},
		{KeyEmbedDims, dims},
		{KeyEmbedBatchSize, settings.Embedding.BatchSize},
		{KeySearchTopK, settings.Search.TopK},
		{KeyOverfetch, settings.Search.Overfetch},
		{KeyCompactPurge, settings.Compact.PurgeMetadata},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	if settings.Embedding.APIKey != "" && settings.Embedding.APIKey != s.getenv(EnvOpenAIAPIKey) {
		if err := s.configStore.Set(KeyEmbedAPIKey, settings.Embedding.APIKey); err != nil {
			return fmt.Errorf("save %s: %w", KeyEmbedAPIKey, err)
		}
	}

	return nil
}

// SetEmbeddingProvider configures the embedding provider.
// Changing the provider or model changes the vector dimension, so
// existing indices must be rebuilt with compact afterwards.
func (s *SettingsService) SetEmbeddingProvider(provider domain.EmbeddingProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: invalid embedding provider: %s", domain.ErrInvalidInput, provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" && s.getenv(EnvOpenAIAPIKey) == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidInput, provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider
	if model != "" {
		settings.Embedding.Model = model
	} else {
		settings.Embedding.Model = domain.DefaultEmbeddingModels()[provider]
	}

	if provider != domain.EmbeddingProviderOllama || settings.Embedding.BaseURL == "" {
		settings.Embedding.BaseURL = defaultBaseURL(provider)
	}

	settings.Embedding.APIKey = apiKey
	settings.Embedding.Dimensions = domain.EmbeddingDimensions()[settings.Embedding.Model]

	return s.Save(settings)
}

// SetChunking configures chunk size and overlap.
func (s *SettingsService) SetChunking(size, overlap int) error {
	if err := validateChunking(size, overlap); err != nil {
		return err
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}
	settings.Chunk.Size = size
	settings.Chunk.Overlap = overlap
	return s.Save(settings)
}

// Value returns the effective value of a single settings key as text.
func (s *SettingsService) Value(key string) (string, error) {
	settings, err := s.Get()
	if err != nil {
		return "", err
	}

	switch key {
	case KeyChunkSize:
		return strconv.Itoa(settings.Chunk.Size), nil
	case KeyChunkOverlap:
		return strconv.Itoa(settings.Chunk.Overlap), nil
	case KeyEmbedProvider:
		return settings.Embedding.Provider.String(), nil
	case KeyEmbedModel:
		return settings.Embedding.Model, nil
	case KeyEmbedBaseURL:
		return settings.Embedding.BaseURL, nil
	case KeyEmbedAPIKey:
		return settings.Embedding.APIKey, nil
	case KeyEmbedDims:
		return strconv.Itoa(settings.Embedding.Dimensions), nil
	case KeyEmbedBatchSize:
		return strconv.Itoa(settings.Embedding.BatchSize), nil
	case KeySearchTopK:
		return strconv.Itoa(settings.Search.TopK), nil
	case KeyOverfetch:
		return strconv.Itoa(settings.Search.Overfetch), nil
	case KeyCompactPurge:
		return strconv.FormatBool(settings.Compact.PurgeMetadata), nil
	default:
		return "", fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}
}

// SetValue parses and stores a single settings key. The resulting
// settings are validated before anything is written.
func (s *SettingsService) SetValue(key, value string) error {
	value = strings.TrimSpace(value)
	if key == KeyEmbedAPIKey {
		if err := s.configStore.Set(KeyEmbedAPIKey, value); err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
		return nil
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	switch key {
	case KeyEmbedProvider:
		provider := domain.EmbeddingProvider(value)
		if !provider.IsValid() {
			return fmt.Errorf("%w: invalid embedding provider: %s", domain.ErrInvalidInput, value)
		}
		if provider != settings.Embedding.Provider {
			settings.Embedding.Provider = provider
			settings.Embedding.Model = domain.DefaultEmbeddingModels()[provider]
			settings.Embedding.BaseURL = defaultBaseURL(provider)
			settings.Embedding.Dimensions = domain.EmbeddingDimensions()[settings.Embedding.Model]
		}
	case KeyEmbedModel:
		if value == "" {
			value = domain.DefaultEmbeddingModels()[settings.Embedding.Provider]
		}
		settings.Embedding.Model = value
		settings.Embedding.Dimensions = domain.EmbeddingDimensions()[value]
	case KeyEmbedBaseURL:
		settings.Embedding.BaseURL = value
	case KeyCompactPurge:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: %s must be true or false", domain.ErrInvalidInput, key)
		}
		settings.Compact.PurgeMetadata = b
	default:
		target := s.intField(settings, key)
		if target == nil {
			return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidInput, key)
		}
		*target = n
	}

	if err := validateSettings(settings); err != nil {
		return err
	}
	return s.Save(settings)
}

// intField returns a pointer to the integer field behind key, or nil.
func (s *SettingsService) intField(settings *domain.AppSettings, key string) *int {
	switch key {
	case KeyChunkSize:
		return &settings.Chunk.Size
	case KeyChunkOverlap:
		return &settings.Chunk.Overlap
	case KeyEmbedDims:
		return &settings.Embedding.Dimensions
	case KeyEmbedBatchSize:
		return &settings.Embedding.BatchSize
	case KeySearchTopK:
		return &settings.Search.TopK
	case KeyOverfetch:
		return &settings.Search.Overfetch
	default:
		return nil
	}
}

// Validate checks that current settings are usable.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if err := validateSettings(settings); err != nil {
		return err
	}
	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf("%w: embedding provider %q is not configured",
			domain.ErrEmbeddingUnavailable, settings.Embedding.Provider)
	}
	return nil
}

func validateSettings(settings *domain.AppSettings) error {
	if err := validateChunking(settings.Chunk.Size, settings.Chunk.Overlap); err != nil {
		return err
	}
	if settings.Embedding.Dimensions < 0 {
		return fmt.Errorf("%w: embedding dimensions must not be negative", domain.ErrInvalidInput)
	}
	if settings.Embedding.BatchSize < 1 {
		return fmt.Errorf("%w: embedding batch size must be positive", domain.ErrInvalidInput)
	}
	if settings.Search.TopK < 1 {
		return fmt.Errorf("%w: search top_k must be positive", domain.ErrInvalidInput)
	}
	if settings.Search.Overfetch < 1 {
		return fmt.Errorf("%w: search overfetch must be at least 1", domain.ErrInvalidInput)
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// defaultBaseURL returns the endpoint a provider uses when none is configured.
func defaultBaseURL(provider domain.EmbeddingProvider) string {
	if provider == domain.EmbeddingProviderOllama {
		return "http://localhost:11434"
	}
	return ""
}

func validateChunking(size, overlap int) error {
	if size < 1 {
		return fmt.Errorf("%w: chunk size must be positive", domain.ErrInvalidInput)
	}
	if overlap < 0 || overlap >= size {
		return fmt.Errorf("%w: chunk overlap must be in [0, %d)", domain.ErrInvalidInput, size)
	}
	return nil
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getProvider(defaultVal domain.EmbeddingProvider) domain.EmbeddingProvider {
	val := s.configStore.GetString(KeyEmbedProvider)
	if val == "" {
		return defaultVal
	}
	provider := domain.EmbeddingProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}
