package domain

import "time"

// DefaultTopK is the number of evidence items returned when the caller
// does not ask for a specific amount.
const DefaultTopK = 5

// DefaultOverfetch multiplies top-k when querying the index, so that hits
// for soft-deleted chunks can be dropped without starving the result.
const DefaultOverfetch = 5

// SnippetLength is the maximum rune length of an evidence snippet.
const SnippetLength = 240

// SearchOptions configures a retrieval query.
type SearchOptions struct {
	// TopK is the maximum number of evidence items.
	TopK int

	// Overfetch multiplies TopK for the raw index query.
	Overfetch int
}

// Evidence is a ranked retrieval result resolved against the metadata store.
type Evidence struct {
	// ChunkID is the matched chunk.
	ChunkID int64 `json:"chunk_id"`

	// Score is the inner product of the normalised query and chunk vectors.
	Score float64 `json:"score"`

	// Path is the absolute source path.
	Path string `json:"path"`

	// FileName is the base name of Path.
	FileName string `json:"filename"`

	// Type is the source document type.
	Type DocType `json:"doc_type"`

	// Page is the source page for paginated documents.
	Page *int `json:"page,omitempty"`

	// Content is the full chunk text.
	Content string `json:"content"`

	// Snippet is a single-line, truncated preview of Content.
	Snippet string `json:"snippet"`
}

// Stats counts active metadata rows.
type Stats struct {
	Documents int `json:"documents"`
	Chunks    int `json:"chunks"`
}

// IndexStats describes the on-disk Base and Delta indices.
type IndexStats struct {
	// Dimension is the shared vector dimension, zero when nothing is built.
	Dimension int `json:"dimension"`

	// BaseCount is the number of vector records in Base.
	BaseCount int `json:"base_count"`

	// DeltaCount is the number of vector records in Delta.
	DeltaCount int `json:"delta_count"`

	// BaseGeneration identifies the current Base snapshot.
	BaseGeneration string `json:"base_generation,omitempty"`

	// BaseBuiltAt is when the current Base snapshot was written.
	BaseBuiltAt time.Time `json:"base_built_at,omitempty"`
}

// FileError records a per-file ingestion failure.
type FileError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e FileError) Error() string {
	return e.Path + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e FileError) Unwrap() error {
	return e.Err
}

// IngestReport summarises a sync, add or delete pass.
type IngestReport struct {
	// Scanned is the number of candidate files examined.
	Scanned int

	// Added is the number of first-time documents.
	Added int

	// Updated is the number of re-ingested documents.
	Updated int

	// Unchanged is the number of documents skipped by fingerprint.
	Unchanged int

	// Deleted is the number of documents soft-deleted.
	Deleted int

	// NotFound lists delete targets that were never ingested.
	NotFound []string

	// NewChunks is the number of chunks inserted.
	NewChunks int

	// Failed lists files whose ingestion failed.
	Failed []FileError
}

// Changed reports whether the pass modified any document.
func (r *IngestReport) Changed() bool {
	return r.Added+r.Updated+r.Deleted > 0
}

// PurgeResult counts metadata rows hard-deleted after compaction.
type PurgeResult struct {
	Documents int
	Chunks    int
}

// Ingestion operations reported by IngestStatus.
const (
	OperationSync    = "sync"
	OperationAdd     = "add"
	OperationDelete  = "delete"
	OperationCompact = "compact"
)

// IngestStatus is a point-in-time view of the running ingestion.
type IngestStatus struct {
	// Running is true while an operation holds the ingestion lock.
	Running bool

	// Operation names the running operation.
	Operation string

	// Total is the number of items the operation will process.
	Total int

	// Processed is the number of items handled so far.
	Processed int

	// Failed is the number of items that failed so far.
	Failed int
}
