package vector

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/recall/internal/adapters/driven/vector/flat"
	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
	"github.com/custodia-labs/recall/internal/logger"
)

// Ensure Manager implements the interface.
var _ driven.VectorIndexManager = (*Manager)(nil)

// File names inside the index directory.
const (
	BaseFileName  = "base.idx"
	DeltaFileName = "delta.idx"
)

// Manager maintains the Base and Delta index files.
//
// Searches hold the read lock. Writes hold the write lock, so a search
// never observes Base and Delta from different generations of one rebuild.
type Manager struct {
	mu        sync.RWMutex
	dimension int
	base      *indexFile
	delta     *indexFile
	closed    bool
}

// New creates a manager for the index files in dir, creating dir if needed.
// dimension is the configured embedding size; zero accepts the dimension
// of whatever is on disk or first written.
func New(dir string, dimension int) (*Manager, error) {
	if dir == "" {
		return nil, fmt.Errorf("vector: directory cannot be empty: %w", domain.ErrInvalidInput)
	}
	if dimension < 0 {
		return nil, fmt.Errorf("vector: negative dimension: %w", domain.ErrInvalidInput)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	return &Manager{
		dimension: dimension,
		base:      newIndexFile(filepath.Join(dir, BaseFileName)),
		delta:     newIndexFile(filepath.Join(dir, DeltaFileName)),
	}, nil
}

// RebuildBase replaces Base with the given vectors and then resets Delta
// to an empty index of the same dimension.
func (m *Manager) RebuildBase(ctx context.Context, ids []int64, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("rebuild base: %d ids for %d vectors: %w", len(ids), len(vectors), domain.ErrInvalidInput)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return domain.ErrIndexClosed
	}

	dim, err := m.rebuildDimension(vectors)
	if err != nil {
		return fmt.Errorf("rebuild base: %w", err)
	}

	next, err := flat.New(dim)
	if err != nil {
		return fmt.Errorf("rebuild base: %w", err)
	}
	if err := next.Add(ids, vectors); err != nil {
		return fmt.Errorf("rebuild base: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := m.base.replace(next); err != nil {
		return fmt.Errorf("rebuild base: %w", err)
	}
	logger.Info("base rebuilt: %d vectors, generation %s", next.Len(), next.Generation())

	empty, err := flat.New(dim)
	if err != nil {
		return fmt.Errorf("reset delta: %w", err)
	}
	// Base already holds every active vector, so a stale Delta left behind
	// here only yields duplicates that Search collapses.
	if err := m.delta.replace(empty); err != nil {
		return fmt.Errorf("reset delta: %w", err)
	}
	return nil
}

// rebuildDimension picks the dimension of a new Base. Called with m.mu held.
func (m *Manager) rebuildDimension(vectors [][]float32) (int, error) {
	if len(vectors) > 0 {
		dim := len(vectors[0])
		if m.dimension > 0 && dim != m.dimension {
			return 0, fmt.Errorf("vectors have dimension %d, configured %d: %w",
				dim, m.dimension, domain.ErrDimensionMismatch)
		}
		return dim, nil
	}

	if m.dimension > 0 {
		return m.dimension, nil
	}
	for _, f := range []*indexFile{m.base, m.delta} {
		idx, err := f.current()
		if err != nil {
			return 0, err
		}
		if idx != nil {
			return idx.Dimension(), nil
		}
	}
	return 0, fmt.Errorf("no vectors and no known dimension: %w", domain.ErrInvalidInput)
}

// AppendDelta adds vectors to Delta, creating it with the dimension of
// the first vector when absent.
func (m *Manager) AppendDelta(ctx context.Context, ids []int64, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("append delta: %d ids for %d vectors: %w", len(ids), len(vectors), domain.ErrInvalidInput)
	}
	if len(ids) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return domain.ErrIndexClosed
	}

	dim := len(vectors[0])
	if m.dimension > 0 && dim != m.dimension {
		return fmt.Errorf("append delta: vectors have dimension %d, configured %d: %w",
			dim, m.dimension, domain.ErrDimensionMismatch)
	}

	base, err := m.base.current()
	if err != nil {
		return fmt.Errorf("append delta: %w", err)
	}
	if base != nil && base.Dimension() != dim {
		return fmt.Errorf("append delta: vectors have dimension %d, base has %d: %w",
			dim, base.Dimension(), domain.ErrDimensionMismatch)
	}

	current, err := m.delta.current()
	if err != nil {
		return fmt.Errorf("append delta: %w", err)
	}

	var next *flat.Index
	if current == nil {
		if next, err = flat.New(dim); err != nil {
			return fmt.Errorf("append delta: %w", err)
		}
	} else {
		next = current.Clone()
	}
	if err := next.Add(ids, vectors); err != nil {
		return fmt.Errorf("append delta: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := m.delta.replace(next); err != nil {
		return fmt.Errorf("append delta: %w", err)
	}
	logger.Debug("delta append: %d vectors, %d total", len(ids), next.Len())
	return nil
}

// Search queries Base and Delta concurrently and merges the results.
func (m *Manager) Search(ctx context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, domain.ErrIndexClosed
	}

	base, err := m.base.current()
	if err != nil {
		return nil, err
	}
	delta, err := m.delta.current()
	if err != nil {
		return nil, err
	}
	if base == nil && delta == nil {
		return nil, domain.ErrIndexNotBuilt
	}
	if m.dimension > 0 && len(query) != m.dimension {
		return nil, fmt.Errorf("query has dimension %d, configured %d: %w",
			len(query), m.dimension, domain.ErrDimensionMismatch)
	}
	if k <= 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var baseHits, deltaHits []driven.VectorHit
	var g errgroup.Group
	if base != nil {
		g.Go(func() error {
			hits, err := base.Search(query, k)
			if err != nil {
				return fmt.Errorf("searching base: %w", err)
			}
			baseHits = hits
			return nil
		})
	}
	if delta != nil {
		g.Go(func() error {
			hits, err := delta.Search(query, k)
			if err != nil {
				return fmt.Errorf("searching delta: %w", err)
			}
			deltaHits = hits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return mergeHits(k, baseHits, deltaHits), nil
}

// mergeHits concatenates result lists, keeps the best score per chunk ID,
// ranks them and caps the result at k.
func mergeHits(k int, lists ...[]driven.VectorHit) []driven.VectorHit {
	best := make(map[int64]float64)
	for _, hits := range lists {
		for _, h := range hits {
			if s, ok := best[h.ChunkID]; !ok || h.Score > s {
				best[h.ChunkID] = h.Score
			}
		}
	}

	merged := make([]driven.VectorHit, 0, len(best))
	for id, score := range best {
		merged = append(merged, driven.VectorHit{ChunkID: id, Score: score})
	}
	flat.SortHits(merged)
	if len(merged) > k {
		merged = merged[:k]
	}
	return merged
}

// Stats describes both indices.
func (m *Manager) Stats(_ context.Context) (domain.IndexStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return domain.IndexStats{}, domain.ErrIndexClosed
	}

	var stats domain.IndexStats
	base, err := m.base.current()
	if err != nil {
		return stats, err
	}
	delta, err := m.delta.current()
	if err != nil {
		return stats, err
	}

	if base != nil {
		stats.Dimension = base.Dimension()
		stats.BaseCount = base.Len()
		stats.BaseGeneration = base.Generation().String()
		stats.BaseBuiltAt = base.BuiltAt()
	}
	if delta != nil {
		stats.Dimension = delta.Dimension()
		stats.DeltaCount = delta.Len()
	}
	return stats, nil
}

// BaseIDs returns the chunk IDs held by Base, ascending.
func (m *Manager) BaseIDs(_ context.Context) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, domain.ErrIndexClosed
	}

	base, err := m.base.current()
	if err != nil || base == nil {
		return nil, err
	}
	return base.IDs(), nil
}

// Close releases resources. Further calls fail with domain.ErrIndexClosed.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
