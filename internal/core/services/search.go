package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
	"github.com/custodia-labs/recall/internal/core/ports/driving"
	"github.com/custodia-labs/recall/internal/logger"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// SearchService is the retrieval entry point. Index hits are resolved
// against the metadata store, which drops chunks that were soft-deleted
// or superseded since their vectors were written.
type SearchService struct {
	store    driven.MetadataStore
	index    driven.VectorIndexManager
	embedder driven.EmbeddingService
	defaults domain.SearchSettings
}

// NewSearchService creates a new search service. defaults fill in zero
// fields of the options passed to Search.
func NewSearchService(
	store driven.MetadataStore,
	index driven.VectorIndexManager,
	embedder driven.EmbeddingService,
	defaults domain.SearchSettings,
) *SearchService {
	if defaults.TopK < 1 {
		defaults.TopK = domain.DefaultTopK
	}
	if defaults.Overfetch < 1 {
		defaults.Overfetch = domain.DefaultOverfetch
	}
	return &SearchService{
		store:    store,
		index:    index,
		embedder: embedder,
		defaults: defaults,
	}
}

// Search returns up to TopK evidence items for a natural-language query.
func (s *SearchService) Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.Evidence, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.Evidence{}, nil
	}

	topK := opts.TopK
	if topK < 1 {
		topK = s.defaults.TopK
	}
	overfetch := opts.Overfetch
	if overfetch < 1 {
		overfetch = s.defaults.Overfetch
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := s.index.Search(ctx, vec, topK*overfetch)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	evidence := make([]domain.Evidence, 0, topK)
	for _, hit := range hits {
		chunk, err := s.store.ResolveChunk(ctx, hit.ChunkID)
		if errors.Is(err, domain.ErrNotFound) {
			logger.Debug("Skipping stale chunk %d", hit.ChunkID)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("resolve chunk %d: %w", hit.ChunkID, err)
		}

		evidence = append(evidence, domain.Evidence{
			ChunkID:  chunk.ChunkID,
			Score:    hit.Score,
			Path:     chunk.Path,
			FileName: filepath.Base(chunk.Path),
			Type:     chunk.Type,
			Page:     chunk.Page,
			Content:  chunk.Content,
			Snippet:  Snippet(chunk.Content),
		})
		if len(evidence) >= topK {
			break
		}
	}

	logger.Debug("Search %q: %d hits, %d resolved", query, len(hits), len(evidence))
	return evidence, nil
}

// Snippet flattens newlines to spaces and truncates to SnippetLength runes.
func Snippet(content string) string {
	flat := strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(content)
	runes := []rune(flat)
	if len(runes) > domain.SnippetLength {
		return string(runes[:domain.SnippetLength])
	}
	return flat
}
