package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/recall/internal/adapters/driven/embedding"
	"github.com/custodia-labs/recall/internal/adapters/driven/embedding/hashing"
	"github.com/custodia-labs/recall/internal/adapters/driven/loaders"
	"github.com/custodia-labs/recall/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/recall/internal/adapters/driven/vector"
	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
	"github.com/custodia-labs/recall/internal/postprocessors/chunker"
)

const testDims = 64

// faultyIndex fails AppendDelta while appendErr is set.
type faultyIndex struct {
	driven.VectorIndexManager
	appendErr error
}

func (f *faultyIndex) AppendDelta(ctx context.Context, ids []int64, vectors [][]float32) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	return f.VectorIndexManager.AppendDelta(ctx, ids, vectors)
}

// faultyEmbedder fails every call while err is set.
type faultyEmbedder struct {
	driven.EmbeddingService
	err   error
	calls int
}

func (f *faultyEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.EmbeddingService.Embed(ctx, text)
}

func (f *faultyEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.EmbeddingService.EmbedBatch(ctx, texts)
}

// testEnv wires an IngestService and a SearchService over real adapters.
type testEnv struct {
	t        *testing.T
	docs     string
	store    *memory.MetadataStore
	manager  *vector.Manager
	index    *faultyIndex
	embedder *faultyEmbedder
	ingest   *IngestService
	search   *SearchService
}

func newTestEnv(t *testing.T, opts ...IngestOption) *testEnv {
	t.Helper()

	manager, err := vector.New(filepath.Join(t.TempDir(), "index"), testDims)
	require.NoError(t, err)
	t.Cleanup(func() { _ = manager.Close() })

	store := memory.NewMetadataStore()
	index := &faultyIndex{VectorIndexManager: manager}
	embedder := &faultyEmbedder{
		EmbeddingService: embedding.NewNormalizing(hashing.NewEmbeddingService(testDims), 8),
	}
	chunks := chunker.New(chunker.WithChunkSize(domain.DefaultChunkSize), chunker.WithOverlap(domain.DefaultChunkOverlap))

	return &testEnv{
		t:        t,
		docs:     t.TempDir(),
		store:    store,
		manager:  manager,
		index:    index,
		embedder: embedder,
		ingest:   NewIngestService(store, index, embedder, loaders.Default(nil), chunks, opts...),
		search:   NewSearchService(store, index, embedder, domain.SearchSettings{}),
	}
}

// write creates or replaces a file under the docs folder and bumps its
// mtime so that change detection never depends on clock resolution.
func (e *testEnv) write(name, content string) string {
	e.t.Helper()
	path := filepath.Join(e.docs, name)
	require.NoError(e.t, os.MkdirAll(filepath.Dir(path), 0o755))

	var mtime time.Time
	if info, err := os.Stat(path); err == nil {
		mtime = info.ModTime().Add(time.Second)
	} else {
		mtime = time.Now().Add(-time.Hour)
	}
	require.NoError(e.t, os.WriteFile(path, []byte(content), 0o600))
	require.NoError(e.t, os.Chtimes(path, mtime, mtime))
	return path
}

func (e *testEnv) stats() domain.Stats {
	e.t.Helper()
	stats, err := e.store.Stats(context.Background())
	require.NoError(e.t, err)
	return stats
}

func (e *testEnv) indexStats() domain.IndexStats {
	e.t.Helper()
	stats, err := e.manager.Stats(context.Background())
	require.NoError(e.t, err)
	return stats
}

func (e *testEnv) activeChunkIDs() []int64 {
	e.t.Helper()
	chunks, err := e.store.ListActiveChunks(context.Background())
	require.NoError(e.t, err)
	ids := make([]int64, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
	}
	return ids
}

func (e *testEnv) docChunkIDs(path string) []int64 {
	e.t.Helper()
	doc, err := e.store.GetDocument(context.Background(), path)
	require.NoError(e.t, err)
	ids, err := e.store.ActiveChunkIDs(context.Background(), doc.ID)
	require.NoError(e.t, err)
	return ids
}

// words returns roughly n characters of space-separated prose.
func words(seed string, n int) string {
	var b strings.Builder
	for i := 0; b.Len() < n; i++ {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(seed)
		b.WriteString(string(rune('a' + i%26)))
	}
	return b.String()[:n]
}
