package driven

import (
	"context"

	"github.com/custodia-labs/recall/internal/core/domain"
)

// MetadataStore persists documents and chunks.
//
// Nothing is hard-deleted during normal operation: deletes set a flag.
// Chunk IDs are allocated monotonically and never reused, so a vector
// written under an ID always refers to the same chunk text.
type MetadataStore interface {
	// UpsertDocument inserts or updates a document by path and returns its ID.
	// Updating clears the soft-delete flag.
	UpsertDocument(ctx context.Context, doc *domain.Document) (int64, error)

	// GetDocument returns the document at path, including soft-deleted ones.
	// Returns domain.ErrNotFound if the path was never ingested.
	GetDocument(ctx context.Context, path string) (*domain.Document, error)

	// MarkDocumentDeleted soft-deletes a document. Idempotent.
	MarkDocumentDeleted(ctx context.Context, documentID int64) error

	// MarkChunksDeletedForDocument soft-deletes every chunk of a document. Idempotent.
	MarkChunksDeletedForDocument(ctx context.Context, documentID int64) error

	// InsertChunk stores a new active chunk and returns its allocated ID.
	// page is nil for unpaginated sources.
	InsertChunk(ctx context.Context, documentID int64, ordinal int, content string, page *int) (int64, error)

	// ListActiveChunks returns every chunk whose chunk and document are both
	// active, in ascending ID order.
	ListActiveChunks(ctx context.Context) ([]domain.ActiveChunk, error)

	// ResolveChunk joins an active chunk with its document.
	// Returns domain.ErrNotFound if the chunk is absent or either side is soft-deleted.
	ResolveChunk(ctx context.Context, chunkID int64) (*domain.ResolvedChunk, error)

	// ListActiveDocuments returns all active documents.
	ListActiveDocuments(ctx context.Context) ([]domain.Document, error)

	// ActiveChunkIDs returns the active chunk IDs of a document, ascending.
	ActiveChunkIDs(ctx context.Context, documentID int64) ([]int64, error)

	// SetChunksDeleted sets the soft-delete flag on the given chunks.
	SetChunksDeleted(ctx context.Context, chunkIDs []int64, deleted bool) error

	// Stats counts active documents and active chunks of active documents.
	Stats(ctx context.Context) (domain.Stats, error)

	// PurgeDeleted hard-deletes soft-deleted chunks and documents.
	PurgeDeleted(ctx context.Context) (domain.PurgeResult, error)

	// InTx runs fn against a store bound to a single transaction.
	// The transaction commits if fn returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(MetadataStore) error) error

	// Close releases resources.
	Close() error
}
