package flat

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
)

// Index is an in-memory exact inner-product index.
// It is not safe for concurrent mutation; readers may share it once built.
type Index struct {
	dimension  int
	ids        []int64
	vectors    []float32 // row-major, len(ids) * dimension
	positions  map[int64]int
	generation uuid.UUID
	builtAt    time.Time
}

// New creates an empty index of the given dimension.
func New(dimension int) (*Index, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("flat: dimension must be positive: %w", domain.ErrInvalidInput)
	}
	return &Index{
		dimension:  dimension,
		positions:  make(map[int64]int),
		generation: uuid.New(),
		builtAt:    time.Now().UTC(),
	}, nil
}

// Dimension returns the vector size.
func (x *Index) Dimension() int { return x.dimension }

// Len returns the number of stored vectors.
func (x *Index) Len() int { return len(x.ids) }

// Generation identifies this snapshot. It changes whenever a new index is built.
func (x *Index) Generation() uuid.UUID { return x.generation }

// BuiltAt returns when the index was created.
func (x *Index) BuiltAt() time.Time { return x.builtAt }

// IDs returns the stored IDs in ascending order.
func (x *Index) IDs() []int64 {
	out := slices.Clone(x.ids)
	slices.Sort(out)
	return out
}

// Add stores vectors under the given IDs. ids and vectors are parallel.
// Re-adding an ID replaces its vector. Nothing is stored if any vector has
// the wrong dimension.
func (x *Index) Add(ids []int64, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("flat: %d ids for %d vectors: %w", len(ids), len(vectors), domain.ErrInvalidInput)
	}
	for i, v := range vectors {
		if len(v) != x.dimension {
			return fmt.Errorf("flat: vector %d has dimension %d, index has %d: %w",
				ids[i], len(v), x.dimension, domain.ErrDimensionMismatch)
		}
	}

	for i, id := range ids {
		if pos, ok := x.positions[id]; ok {
			copy(x.vectors[pos*x.dimension:(pos+1)*x.dimension], vectors[i])
			continue
		}
		x.positions[id] = len(x.ids)
		x.ids = append(x.ids, id)
		x.vectors = append(x.vectors, vectors[i]...)
	}
	return nil
}

// Clone returns a deep copy sharing the same generation.
func (x *Index) Clone() *Index {
	positions := make(map[int64]int, len(x.positions))
	for id, pos := range x.positions {
		positions[id] = pos
	}
	return &Index{
		dimension:  x.dimension,
		ids:        slices.Clone(x.ids),
		vectors:    slices.Clone(x.vectors),
		positions:  positions,
		generation: x.generation,
		builtAt:    x.builtAt,
	}
}

// Search returns the k stored vectors with the highest inner product
// against query, best first. Ties are broken by ascending ID.
func (x *Index) Search(query []float32, k int) ([]driven.VectorHit, error) {
	if len(query) != x.dimension {
		return nil, fmt.Errorf("flat: query has dimension %d, index has %d: %w",
			len(query), x.dimension, domain.ErrDimensionMismatch)
	}
	if k <= 0 || len(x.ids) == 0 {
		return nil, nil
	}

	hits := make([]driven.VectorHit, len(x.ids))
	for i, id := range x.ids {
		row := x.vectors[i*x.dimension : (i+1)*x.dimension]
		hits[i] = driven.VectorHit{ChunkID: id, Score: dot(query, row)}
	}

	SortHits(hits)
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// SortHits orders hits by descending score, then ascending chunk ID.
func SortHits(hits []driven.VectorHit) {
	slices.SortFunc(hits, func(a, b driven.VectorHit) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		case a.ChunkID < b.ChunkID:
			return -1
		case a.ChunkID > b.ChunkID:
			return 1
		default:
			return 0
		}
	})
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
