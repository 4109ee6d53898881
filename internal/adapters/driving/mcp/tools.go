package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/recall/internal/core/domain"
)

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"natural-language question or keywords"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of evidence items to return (default 5)"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []EvidenceOutput `json:"results"`
	Count   int              `json:"count"`
}

// EvidenceOutput is a single retrieved chunk with its provenance.
type EvidenceOutput struct {
	ChunkID  int64   `json:"chunk_id"`
	Score    float64 `json:"score"`
	Path     string  `json:"path"`
	FileName string  `json:"filename"`
	DocType  string  `json:"doc_type"`
	Page     *int    `json:"page,omitempty"`
	Snippet  string  `json:"snippet"`
	Content  string  `json:"content"`
}

// StatsInput is the (empty) input schema for the stats tool.
type StatsInput struct{}

// StatsOutput is the output schema for the stats tool.
type StatsOutput struct {
	Documents  int `json:"documents"`
	Chunks     int `json:"chunks"`
	Dimension  int `json:"dimension"`
	BaseCount  int `json:"base_count"`
	DeltaCount int `json:"delta_count"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Search the local knowledge base and return ranked evidence with source paths and pages",
	}, s.handleSearch)

	if s.ports.Ingest != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "stats",
			Description: "Count indexed documents and chunks and describe the vector index",
		}, s.handleStats)
	}
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	results, err := s.ports.Search.Search(ctx, input.Query, domain.SearchOptions{TopK: input.Limit})
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]EvidenceOutput, len(results)),
		Count:   len(results),
	}
	for i := range results {
		output.Results[i] = toEvidenceOutput(&results[i])
	}

	return nil, output, nil
}

// handleStats handles the stats tool invocation.
func (s *Server) handleStats(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ StatsInput,
) (*mcp.CallToolResult, StatsOutput, error) {
	output, err := s.collectStats(ctx)
	if err != nil {
		return nil, StatsOutput{}, err
	}
	return nil, output, nil
}

func (s *Server) collectStats(ctx context.Context) (StatsOutput, error) {
	stats, err := s.ports.Ingest.Stats(ctx)
	if err != nil {
		return StatsOutput{}, err
	}
	index, err := s.ports.Ingest.IndexStats(ctx)
	if err != nil {
		return StatsOutput{}, err
	}
	return StatsOutput{
		Documents:  stats.Documents,
		Chunks:     stats.Chunks,
		Dimension:  index.Dimension,
		BaseCount:  index.BaseCount,
		DeltaCount: index.DeltaCount,
	}, nil
}

func toEvidenceOutput(ev *domain.Evidence) EvidenceOutput {
	return EvidenceOutput{
		ChunkID:  ev.ChunkID,
		Score:    ev.Score,
		Path:     ev.Path,
		FileName: ev.FileName,
		DocType:  ev.Type.String(),
		Page:     ev.Page,
		Snippet:  ev.Snippet,
		Content:  ev.Content,
	}
}
