package domain

import (
	"path/filepath"
	"strings"
	"time"
)

// DocType is the logical type of an ingested file.
type DocType string

// Supported document types.
const (
	DocTypePDF      DocType = "pdf"
	DocTypeText     DocType = "txt"
	DocTypeMarkdown DocType = "md"
)

// IsValid returns true if the document type is recognised.
func (t DocType) IsValid() bool {
	switch t {
	case DocTypePDF, DocTypeText, DocTypeMarkdown:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (t DocType) String() string {
	return string(t)
}

// DocTypeFromPath maps a file extension to its document type.
// Returns false for extensions no loader understands.
func DocTypeFromPath(path string) (DocType, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return DocTypePDF, true
	case ".txt":
		return DocTypeText, true
	case ".md", ".markdown":
		return DocTypeMarkdown, true
	default:
		return "", false
	}
}

// IsHidden reports whether the last element of path starts with a dot.
// Folder scans and the watcher skip hidden files and directories.
func IsHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

// Document is the metadata record of one ingested file.
// Documents are identified by their absolute path and are never
// hard-deleted during normal operation.
type Document struct {
	// ID is the store-assigned identifier.
	ID int64

	// Path is the absolute, cleaned file path. Unique.
	Path string

	// Type is the logical document type.
	Type DocType

	// Hash is the hex SHA-256 of the file bytes.
	Hash string

	// ModTime is the file modification time at ingestion.
	ModTime time.Time

	// Size is the file size in bytes at ingestion.
	Size int64

	// Deleted is the soft-delete flag.
	Deleted bool
}

// Unchanged reports whether the recorded fingerprint still matches a stat
// of the file. Only mtime and size are compared; the hash is not recomputed.
func (d *Document) Unchanged(modTime time.Time, size int64) bool {
	return !d.Deleted && d.ModTime.Equal(modTime) && d.Size == size
}

// Chunk is a searchable segment of a document.
// Its ID is the join key between the metadata store and the vector index
// and is never reused or mutated.
type Chunk struct {
	// ID is the globally unique, monotonic chunk identifier.
	ID int64

	// DocumentID links to the owning Document.
	DocumentID int64

	// Ordinal is the position within the document, starting at zero.
	Ordinal int

	// Page is the 1-based source page, nil for unpaginated sources.
	Page *int

	// Content is the chunk text.
	Content string

	// ContentHash is the hex SHA-256 of Content.
	ContentHash string

	// Deleted is the soft-delete flag.
	Deleted bool
}

// ActiveChunk is the minimal projection used to rebuild the index.
type ActiveChunk struct {
	ID      int64
	Content string
}

// ResolvedChunk is an active chunk joined with its owning document.
type ResolvedChunk struct {
	ChunkID int64
	Path    string
	Type    DocType
	Page    *int
	Content string
}

// Segment is one unit of chunker output, before it is persisted.
type Segment struct {
	// Ordinal is the position within the whole document.
	Ordinal int

	// Page is the source page, nil for unpaginated sources.
	Page *int

	// Text is the trimmed segment content.
	Text string
}

// Page is the text of one page of a paginated source.
type Page struct {
	// Number is 1-based.
	Number int
	Text   string
}

// LoadedDocument is the text extracted from a file by a loader.
type LoadedDocument struct {
	// Path is the file the text came from.
	Path string

	// Type is the logical document type.
	Type DocType

	// Text is the full text.
	Text string

	// Pages is set for paginated sources. When present, chunking
	// is applied per page.
	Pages []Page
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}
