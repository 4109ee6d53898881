package driving

import (
	"context"

	"github.com/custodia-labs/recall/internal/core/domain"
)

// IngestService keeps the metadata store and the vector indices in step
// with files on disk.
type IngestService interface {
	// Sync reconciles a folder: documents missing from disk are soft-deleted,
	// then every supported file is added or updated. force re-ingests
	// files whose fingerprint is unchanged.
	Sync(ctx context.Context, folder string, force bool) (*domain.IngestReport, error)

	// TrySync is Sync, except that it returns domain.ErrIngestInProgress
	// instead of waiting when another operation is running.
	TrySync(ctx context.Context, folder string, force bool) (*domain.IngestReport, error)

	// Add ingests the given files.
	Add(ctx context.Context, paths []string, force bool) (*domain.IngestReport, error)

	// Delete soft-deletes the given files. Paths never ingested are
	// reported in NotFound.
	Delete(ctx context.Context, paths []string) (*domain.IngestReport, error)

	// Compact re-embeds all active chunks into a fresh Base and empties Delta.
	Compact(ctx context.Context) (*domain.IndexStats, error)

	// RebuildIndex is an alias of Compact.
	RebuildIndex(ctx context.Context) (*domain.IndexStats, error)

	// Stats counts active documents and chunks.
	Stats(ctx context.Context) (*domain.Stats, error)

	// IndexStats describes the Base and Delta indices.
	IndexStats(ctx context.Context) (*domain.IndexStats, error)

	// Status reports progress of the running operation.
	Status() domain.IngestStatus
}
