package embedding

import (
	"context"
	"fmt"
	"math"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
)

// Ensure Normalizing implements the interface.
var _ driven.EmbeddingService = (*Normalizing)(nil)

// Normalizing wraps an embedding service. It splits batches to at most
// batchSize texts, rejects vectors of the wrong dimension and scales
// every vector to unit length.
type Normalizing struct {
	inner     driven.EmbeddingService
	batchSize int
}

// NewNormalizing wraps inner. A batchSize below one uses the default.
func NewNormalizing(inner driven.EmbeddingService, batchSize int) *Normalizing {
	if batchSize < 1 {
		batchSize = domain.DefaultEmbeddingBatchSize
	}
	return &Normalizing{inner: inner, batchSize: batchSize}
}

// Unwrap returns the wrapped service.
func (n *Normalizing) Unwrap() driven.EmbeddingService {
	return n.inner
}

// BatchSize returns the maximum number of texts per inner call.
func (n *Normalizing) BatchSize() int {
	return n.batchSize
}

// Embed generates a unit-length embedding for a single text.
func (n *Normalizing) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := n.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch generates unit-length embeddings in input order.
func (n *Normalizing) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	dim := n.inner.Dimensions()
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += n.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+n.batchSize, len(texts))

		vectors, err := n.inner.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		if len(vectors) != end-start {
			return nil, fmt.Errorf("embedding: got %d vectors for %d texts", len(vectors), end-start)
		}
		for i, v := range vectors {
			if dim > 0 && len(v) != dim {
				return nil, fmt.Errorf("%w: text %d has %d dimensions, expected %d",
					domain.ErrDimensionMismatch, start+i, len(v), dim)
			}
			out = append(out, Normalize(v))
		}
	}
	return out, nil
}

// Dimensions returns the embedding vector size.
func (n *Normalizing) Dimensions() int {
	return n.inner.Dimensions()
}

// ModelName returns the name of the embedding model being used.
func (n *Normalizing) ModelName() string {
	return n.inner.ModelName()
}

// Ping checks the wrapped service.
func (n *Normalizing) Ping(ctx context.Context) error {
	return n.inner.Ping(ctx)
}

// Close releases the wrapped service.
func (n *Normalizing) Close() error {
	return n.inner.Close()
}

// Normalize returns a unit-length copy of v.
// A zero vector is returned unchanged.
func Normalize(v []float32) []float32 {
	out := make([]float32, len(v))
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return out
	}
	inv := 1 / math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) * inv)
	}
	return out
}
