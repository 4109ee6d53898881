package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/recall/internal/core/domain"
)

func TestServer_handleSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("returns evidence", func(t *testing.T) {
		mockSearch := &mockSearchService{
			results: []domain.Evidence{
				{
					ChunkID:  42,
					Score:    0.95,
					Path:     "/docs/paper.pdf",
					FileName: "paper.pdf",
					Type:     domain.DocTypePDF,
					Page:     domain.IntPtr(2),
					Content:  "This is the content",
					Snippet:  "This is the content",
				},
			},
		}

		server, err := NewServer(&Ports{Search: mockSearch})
		require.NoError(t, err)

		_, output, err := server.handleSearch(ctx, nil, SearchInput{Query: "test", Limit: 3})
		require.NoError(t, err)

		assert.Equal(t, "test", mockSearch.lastQuery)
		assert.Equal(t, 3, mockSearch.lastOpts.TopK)
		assert.Equal(t, 1, output.Count)
		require.Len(t, output.Results, 1)

		got := output.Results[0]
		assert.Equal(t, int64(42), got.ChunkID)
		assert.Equal(t, 0.95, got.Score)
		assert.Equal(t, "/docs/paper.pdf", got.Path)
		assert.Equal(t, "paper.pdf", got.FileName)
		assert.Equal(t, "pdf", got.DocType)
		require.NotNil(t, got.Page)
		assert.Equal(t, 2, *got.Page)
		assert.Equal(t, "This is the content", got.Content)
	})

	t.Run("zero limit uses service default", func(t *testing.T) {
		mockSearch := &mockSearchService{}
		server, err := NewServer(&Ports{Search: mockSearch})
		require.NoError(t, err)

		_, output, err := server.handleSearch(ctx, nil, SearchInput{Query: "test"})
		require.NoError(t, err)
		assert.Zero(t, mockSearch.lastOpts.TopK)
		assert.Equal(t, 0, output.Count)
		assert.NotNil(t, output.Results)
	})

	t.Run("returns error on search failure", func(t *testing.T) {
		mockSearch := &mockSearchService{err: domain.ErrIndexNotBuilt}
		server, err := NewServer(&Ports{Search: mockSearch})
		require.NoError(t, err)

		_, _, err = server.handleSearch(ctx, nil, SearchInput{Query: "test"})
		assert.ErrorIs(t, err, domain.ErrIndexNotBuilt)
	})
}

func TestServer_handleStats(t *testing.T) {
	ctx := context.Background()

	t.Run("combines metadata and index stats", func(t *testing.T) {
		ingest := &mockIngestService{
			stats:      domain.Stats{Documents: 3, Chunks: 10},
			indexStats: domain.IndexStats{Dimension: 384, BaseCount: 8, DeltaCount: 4},
		}
		server, err := NewServer(&Ports{Search: &mockSearchService{}, Ingest: ingest})
		require.NoError(t, err)

		_, output, err := server.handleStats(ctx, nil, StatsInput{})
		require.NoError(t, err)
		assert.Equal(t, StatsOutput{
			Documents:  3,
			Chunks:     10,
			Dimension:  384,
			BaseCount:  8,
			DeltaCount: 4,
		}, output)
	})

	t.Run("returns error", func(t *testing.T) {
		ingest := &mockIngestService{err: errors.New("database locked")}
		server, err := NewServer(&Ports{Search: &mockSearchService{}, Ingest: ingest})
		require.NoError(t, err)

		_, _, err = server.handleStats(ctx, nil, StatsInput{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database locked")
	})
}
