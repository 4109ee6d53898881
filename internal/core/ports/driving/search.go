package driving

import (
	"context"

	"github.com/custodia-labs/recall/internal/core/domain"
)

// SearchService provides retrieval to external actors.
type SearchService interface {
	// Search returns up to opts.TopK evidence items for a natural-language query.
	// An empty query returns an empty result.
	Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.Evidence, error)
}
