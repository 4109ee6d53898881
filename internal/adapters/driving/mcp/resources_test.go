package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/recall/internal/core/domain"
)

func TestExtractQuery(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{"plain query", "recall://search/invoices", "invoices"},
		{"escaped query", "recall://search/quarterly%20revenue%3F", "quarterly revenue?"},
		{"invalid prefix", "file://search/invoices", ""},
		{"blank query", "recall://search/%20", ""},
		{"bad escape", "recall://search/%zz", ""},
		{"empty URI", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractQuery(tt.uri))
		})
	}
}

func newReadRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func TestServer_handleStatsResource(t *testing.T) {
	ingest := &mockIngestService{
		stats:      domain.Stats{Documents: 2, Chunks: 5},
		indexStats: domain.IndexStats{Dimension: 64, BaseCount: 5},
	}
	server, err := NewServer(&Ports{Search: &mockSearchService{}, Ingest: ingest})
	require.NoError(t, err)

	result, err := server.handleStatsResource(context.Background(), newReadRequest("recall://stats"))
	require.NoError(t, err)
	require.Len(t, result.Contents, 1)
	assert.Equal(t, "recall://stats", result.Contents[0].URI)
	assert.Equal(t, "application/json", result.Contents[0].MIMEType)

	var got StatsOutput
	require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &got))
	assert.Equal(t, 2, got.Documents)
	assert.Equal(t, 5, got.BaseCount)
}

func TestServer_handleSearchResource(t *testing.T) {
	ctx := context.Background()

	t.Run("returns evidence as JSON", func(t *testing.T) {
		mockSearch := &mockSearchService{
			results: []domain.Evidence{{ChunkID: 7, Path: "/docs/a.txt", FileName: "a.txt", Type: domain.DocTypeText}},
		}
		server, err := NewServer(&Ports{Search: mockSearch})
		require.NoError(t, err)

		result, err := server.handleSearchResource(ctx, newReadRequest("recall://search/alpha%20beta"))
		require.NoError(t, err)
		assert.Equal(t, "alpha beta", mockSearch.lastQuery)

		var got []EvidenceOutput
		require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &got))
		require.Len(t, got, 1)
		assert.Equal(t, int64(7), got[0].ChunkID)
		assert.Equal(t, "txt", got[0].DocType)
	})

	t.Run("empty query is not found", func(t *testing.T) {
		server, err := NewServer(&Ports{Search: &mockSearchService{}})
		require.NoError(t, err)

		_, err = server.handleSearchResource(ctx, newReadRequest("recall://search/"))
		assert.Error(t, err)
	})

	t.Run("search error", func(t *testing.T) {
		mockSearch := &mockSearchService{err: errors.New("boom")}
		server, err := NewServer(&Ports{Search: mockSearch})
		require.NoError(t, err)

		_, err = server.handleSearchResource(ctx, newReadRequest("recall://search/x"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "boom")
	})
}
