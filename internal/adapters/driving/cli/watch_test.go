package cli

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/recall/internal/core/domain"
)

func TestWatchCmd_SyncsThenStopsOnCancel(t *testing.T) {
	ts := setupServices(t)
	ts.ingest.report = &domain.IngestReport{Scanned: 1, Added: 1, NewChunks: 1}
	folder := filepath.Join(t.TempDir(), "docs")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, ts.runContext(ctx, "watch", folder))

	assert.DirExists(t, folder)
	assert.Equal(t, folder, ts.ingest.syncFolder)
	assert.Contains(t, ts.out.String(), "added 1")
	assert.Contains(t, ts.out.String(), "Watching for changes.")
}

func TestWatchCmd_InitialSyncError(t *testing.T) {
	ts := setupServices(t)
	ts.ingest.err = domain.ErrEmbeddingUnavailable

	err := ts.runContext(context.Background(), "watch", t.TempDir())
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}
