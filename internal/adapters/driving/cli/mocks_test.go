package cli

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/services"
)

// mockIngestService implements driving.IngestService for testing.
type mockIngestService struct {
	mu sync.Mutex

	report     *domain.IngestReport
	stats      domain.Stats
	indexStats domain.IndexStats
	status     domain.IngestStatus
	err        error
	delay      time.Duration

	syncFolder  string
	syncForce   bool
	addPaths    []string
	addForce    bool
	deletePaths []string
	compacted   int
}

func (m *mockIngestService) result() (*domain.IngestReport, error) {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	if m.report == nil {
		return &domain.IngestReport{}, m.err
	}
	return m.report, m.err
}

func (m *mockIngestService) Sync(_ context.Context, folder string, force bool) (*domain.IngestReport, error) {
	m.mu.Lock()
	m.syncFolder, m.syncForce = folder, force
	m.mu.Unlock()
	return m.result()
}

func (m *mockIngestService) TrySync(ctx context.Context, folder string, force bool) (*domain.IngestReport, error) {
	return m.Sync(ctx, folder, force)
}

func (m *mockIngestService) Add(_ context.Context, paths []string, force bool) (*domain.IngestReport, error) {
	m.mu.Lock()
	m.addPaths, m.addForce = paths, force
	m.mu.Unlock()
	return m.result()
}

func (m *mockIngestService) Delete(_ context.Context, paths []string) (*domain.IngestReport, error) {
	m.mu.Lock()
	m.deletePaths = paths
	m.mu.Unlock()
	return m.result()
}

func (m *mockIngestService) Compact(_ context.Context) (*domain.IndexStats, error) {
	m.mu.Lock()
	m.compacted++
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return &m.indexStats, nil
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
	return m.status
}

// mockSearchService implements driving.SearchService for testing.
type mockSearchService struct {
	results   []domain.Evidence
	err       error
	lastQuery string
	lastOpts  domain.SearchOptions
}

func (m *mockSearchService) Search(_ context.Context, query string, opts domain.SearchOptions) ([]domain.Evidence, error) {
	m.lastQuery = query
	m.lastOpts = opts
	return m.results, m.err
}

// mockSettingsService implements driving.SettingsService for testing.
type mockSettingsService struct {
	values      map[string]string
	validateErr error
	setErr      error

	provider domain.EmbeddingProvider
	model    string
	apiKey   string
}

func newMockSettings() *mockSettingsService {
	return &mockSettingsService{values: map[string]string{
		services.KeyChunkSize:     "900",
		services.KeyEmbedProvider: "hashing",
		services.KeyEmbedAPIKey:   "",
	}}
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := domain.DefaultAppSettings()
	return &s, nil
}

func (m *mockSettingsService) Save(_ *domain.AppSettings) error { return nil }

func (m *mockSettingsService) SetEmbeddingProvider(provider domain.EmbeddingProvider, model, apiKey string) error {
	m.provider, m.model, m.apiKey = provider, model, apiKey
	return m.setErr
}

func (m *mockSettingsService) SetChunking(_, _ int) error { return nil }

func (m *mockSettingsService) Value(key string) (string, error) {
	return m.values[key], nil
}

func (m *mockSettingsService) SetValue(key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.values[key] = value
	return nil
}

func (m *mockSettingsService) Validate() error { return m.validateErr }

func (m *mockSettingsService) GetDefaults() domain.AppSettings { return domain.DefaultAppSettings() }

// testServices holds the mocks installed by setupServices.
type testServices struct {
	ingest   *mockIngestService
	search   *mockSearchService
	settings *mockSettingsService
	out      *bytes.Buffer
}

// setupServices installs mocks, resets flag state and captures output.
func setupServices(t *testing.T) *testServices {
	t.Helper()

	ts := &testServices{
		ingest:   &mockIngestService{},
		search:   &mockSearchService{},
		settings: newMockSettings(),
		out:      new(bytes.Buffer),
	}

	oldIngest, oldSearch, oldSettings := ingestService, searchService, settingsService
	oldHooks, oldInterval := hooks, progressInterval
	ingestService, searchService, settingsService = ts.ingest, ts.search, ts.settings
	hooks = Hooks{}
	progressInterval = 5 * time.Millisecond

	dataDir, verbose = "", false
	syncForce, addForce = false, false
	searchLimit, searchJSON, statsJSON = 0, false, false

	rootCmd.SetOut(ts.out)
	rootCmd.SetErr(ts.out)

	t.Cleanup(func() {
		ingestService, searchService, settingsService = oldIngest, oldSearch, oldSettings
		hooks, progressInterval = oldHooks, oldInterval
		supportsPath, closeCore = nil, nil
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})
	return ts
}

// run executes the root command with args.
func (ts *testServices) run(args ...string) error {
	return ts.runContext(context.Background(), args...)
}

func (ts *testServices) runContext(ctx context.Context, args ...string) error {
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}
