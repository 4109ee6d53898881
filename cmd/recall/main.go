// Command recall is a local semantic search tool for PDF, text and
// Markdown documents.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/recall/internal/adapters/driven/ai"
	"github.com/custodia-labs/recall/internal/adapters/driven/config/file"
	"github.com/custodia-labs/recall/internal/adapters/driven/loaders"
	"github.com/custodia-labs/recall/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/recall/internal/adapters/driven/vector"
	"github.com/custodia-labs/recall/internal/adapters/driving/cli"
	"github.com/custodia-labs/recall/internal/core/ports/driving"
	"github.com/custodia-labs/recall/internal/core/services"
	"github.com/custodia-labs/recall/internal/logger"
	"github.com/custodia-labs/recall/internal/postprocessors/chunker"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// A missing .env is fine; OPENAI_API_KEY may come from the environment.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := cli.Execute(ctx, version, cli.Hooks{
		OpenSettings: openSettings,
		OpenCore:     openCore,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func openSettings(dataDir string) (driving.SettingsService, error) {
	return newSettings(dataDir)
}

func newSettings(dataDir string) (*services.SettingsService, error) {
	configStore, err := file.NewConfigStore(dataDir)
	if err != nil {
		return nil, err
	}
	return services.NewSettingsService(configStore, os.Getenv), nil
}

// openCore wires the stores, the embedding provider and the services.
func openCore(ctx context.Context, dataDir string) (*cli.Core, error) {
	settingsSvc, err := newSettings(dataDir)
	if err != nil {
		return nil, err
	}
	if err := settingsSvc.Validate(); err != nil {
		return nil, fmt.Errorf("%w\nRun 'recall config' to fix", err)
	}
	settings, err := settingsSvc.Get()
	if err != nil {
		return nil, err
	}

	embedder, err := ai.CreateAndValidateEmbeddingService(ctx, &settings.Embedding)
	if err != nil {
		return nil, err
	}

	store, err := sqlite.NewStore(dataDir)
	if err != nil {
		_ = embedder.Close()
		return nil, err
	}

	index, err := vector.New(filepath.Join(dataDir, "index"), embedder.Dimensions())
	if err != nil {
		_ = store.Close()
		_ = embedder.Close()
		return nil, err
	}

	registry := loaders.Default(nil)
	chunks := chunker.New(
		chunker.WithChunkSize(settings.Chunk.Size),
		chunker.WithOverlap(settings.Chunk.Overlap),
	)
	metadata := store.MetadataStore()

	ingest := services.NewIngestService(metadata, index, embedder, registry, chunks,
		services.WithBatchSize(settings.Embedding.BatchSize),
		services.WithPurgeOnCompact(settings.Compact.PurgeMetadata),
	)
	search := services.NewSearchService(metadata, index, embedder, settings.Search)

	logger.Debug("Data directory %s, embedding %s/%s (%d dims)",
		dataDir, settings.Embedding.Provider, embedder.ModelName(), embedder.Dimensions())

	return &cli.Core{
		Ingest:   ingest,
		Search:   search,
		Supports: registry.Supports,
		Close: func() error {
			return errors.Join(index.Close(), store.Close(), embedder.Close())
		},
	}, nil
}
