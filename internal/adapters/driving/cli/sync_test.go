package cli

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/recall/internal/core/domain"
)

func TestSyncCmd_Use(t *testing.T) {
	assert.Equal(t, "sync [folder]", syncCmd.Use)
}

func TestSyncCmd_WithFolder(t *testing.T) {
	ts := setupServices(t)
	ts.ingest.report = &domain.IngestReport{Scanned: 4, Added: 2, Updated: 1, Unchanged: 1, NewChunks: 7}

	require.NoError(t, ts.run("sync", "/docs", "--force"))

	assert.Equal(t, "/docs", ts.ingest.syncFolder)
	assert.True(t, ts.ingest.syncForce)
	assert.Contains(t, ts.out.String(), "Synchronising /docs...")
	assert.Contains(t, ts.out.String(), "Scanned 4, added 2, updated 1, unchanged 1, removed 0 (7 new chunks)")
}

func TestSyncCmd_DefaultsToRawFolder(t *testing.T) {
	ts := setupServices(t)
	dir := t.TempDir()

	require.NoError(t, ts.run("--data-dir", dir, "sync"))

	assert.Equal(t, filepath.Join(dir, RawDirName), ts.ingest.syncFolder)
	assert.False(t, ts.ingest.syncForce)
}

func TestSyncCmd_ReportsFailures(t *testing.T) {
	ts := setupServices(t)
	ts.ingest.report = &domain.IngestReport{
		Scanned: 2,
		Added:   1,
		Failed: []domain.FileError{
			{Path: "/docs/scan.pdf", Err: errors.New("pdftotext not found")},
		},
	}

	require.NoError(t, ts.run("sync", "/docs"))
	assert.Contains(t, ts.out.String(), "1 file(s) failed:")
	assert.Contains(t, ts.out.String(), "/docs/scan.pdf: pdftotext not found")
}

func TestSyncCmd_Error(t *testing.T) {
	ts := setupServices(t)
	ts.ingest.err = domain.ErrDimensionMismatch

	err := ts.run("sync", "/docs")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	assert.Contains(t, err.Error(), "sync failed")
}

func TestSyncCmd_ShowsProgress(t *testing.T) {
	ts := setupServices(t)
	ts.ingest.delay = 50 * time.Millisecond
	ts.ingest.status = domain.IngestStatus{
		Running:   true,
		Operation: domain.OperationSync,
		Total:     3,
		Processed: 2,
	}

	require.NoError(t, ts.run("sync", "/docs"))
	assert.Contains(t, ts.out.String(), "Processing... 2/3")
}

func TestSyncCmd_TooManyArgs(t *testing.T) {
	ts := setupServices(t)
	assert.Error(t, ts.run("sync", "a", "b"))
}
