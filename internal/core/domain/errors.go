package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist or is soft-deleted.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotImplemented indicates functionality is not yet available.
	ErrNotImplemented = errors.New("not implemented")

	// ErrUnsupportedType indicates a file type no loader recognises.
	// Reported per file; never aborts a folder sync.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrIngestInProgress indicates another ingestion or compaction is running.
	ErrIngestInProgress = errors.New("ingestion in progress")

	// Configuration Errors. These are fatal and never retried.

	// ErrIndexNotBuilt indicates neither a Base nor a Delta index exists.
	// Distinguishes "no index" from "no matches".
	ErrIndexNotBuilt = errors.New("index not built")

	// ErrDimensionMismatch indicates vectors of a different dimension than
	// the index or the configured embedding model.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// Storage Errors.

	// ErrCorruptIndex indicates an index file failed validation on load.
	ErrCorruptIndex = errors.New("corrupt index file")

	// ErrIndexClosed indicates the index manager has been closed.
	ErrIndexClosed = errors.New("index closed")
)
