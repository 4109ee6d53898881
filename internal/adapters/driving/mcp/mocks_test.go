package mcp

import (
	"context"

	"github.com/custodia-labs/recall/internal/core/domain"
)

// mockSearchService is a mock implementation of driving.SearchService.
type mockSearchService struct {
	results   []domain.Evidence
	err       error
	lastQuery string
	lastOpts  domain.SearchOptions
}

func (m *mockSearchService) Search(
	_ context.Context,
	query string,
	opts domain.SearchOptions,
) ([]domain.Evidence, error) {
	m.lastQuery = query
	m.lastOpts = opts
	return m.results, m.err
}

// mockIngestService is a mock implementation of driving.IngestService.
type mockIngestService struct {
	stats      domain.Stats
	indexStats domain.IndexStats
	err        error
}

func (m *mockIngestService) Sync(_ context.Context, _ string, _ bool) (*domain.IngestReport, error) {
	return &domain.IngestReport{}, m.err
}

func (m *mockIngestService) TrySync(_ context.Context, _ string, _ bool) (*domain.IngestReport, error) {
	return &domain.IngestReport{}, m.err
}

func (m *mockIngestService) Add(_ context.Context, _ []string, _ bool) (*domain.IngestReport, error) {
	return &domain.IngestReport{}, m.err
}

func (m *mockIngestService) Delete(_ context.Context, _ []string) (*domain.IngestReport, error) {
	return &domain.IngestReport{}, m.err
}

func (m *mockIngestService) Compact(_ context.Context) (*domain.IndexStats, error) {
	return &m.indexStats, m.err
}

func (m *mockIngestService) RebuildIndex(ctx context.Context) (*domain.IndexStats, error) {
	return m.Compact(ctx)
}

func (m *mockIngestService) Stats(_ context.Context) (*domain.Stats, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &m.stats, nil
}

func (m *mockIngestService) IndexStats(_ context.Context) (*domain.IndexStats, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &m.indexStats, nil
}

func (m *mockIngestService) Status() domain.IngestStatus {
	return domain.IngestStatus{}
}
