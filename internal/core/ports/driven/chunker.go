package driven

import (
	"context"

	"github.com/custodia-labs/recall/internal/core/domain"
)

// Chunker splits loaded text into overlapping segments.
type Chunker interface {
	// Process chunks a document. Paginated documents are chunked per page
	// and ordinals run across the whole document.
	Process(ctx context.Context, doc *domain.LoadedDocument) ([]domain.Segment, error)
}
