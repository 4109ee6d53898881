package driven

import (
	"context"

	"github.com/custodia-labs/recall/internal/core/domain"
)

// VectorIndexManager owns the Base and Delta vector indices.
//
// Base is a snapshot built from all active chunks at the last compaction.
// Delta holds vectors appended since then. Both are append-only between
// compactions, so a chunk that was soft-deleted or superseded keeps its
// vector until the next RebuildBase. Callers filter stale hits against the
// metadata store.
type VectorIndexManager interface {
	// RebuildBase atomically replaces Base with the given vectors and resets
	// Delta to empty. ids and vectors are parallel slices. On failure the
	// previous Base stays intact.
	RebuildBase(ctx context.Context, ids []int64, vectors [][]float32) error

	// AppendDelta adds vectors to Delta, creating it on first use.
	// Base is never touched.
	AppendDelta(ctx context.Context, ids []int64, vectors [][]float32) error

	// Search returns at most k hits across Base and Delta, ordered by
	// descending score. Each chunk ID appears once, with its best score.
	// Returns domain.ErrIndexNotBuilt when neither index exists.
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// Stats describes both indices.
	Stats(ctx context.Context) (domain.IndexStats, error)

	// BaseIDs returns the chunk IDs held by Base, ascending.
	BaseIDs(ctx context.Context) ([]int64, error)

	// Close releases resources.
	Close() error
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// ChunkID is the matched chunk.
	ChunkID int64

	// Score is the inner product of the query and the stored vector.
	// For L2-normalised vectors this is the cosine similarity.
	Score float64
}
