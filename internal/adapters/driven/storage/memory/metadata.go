package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
)

// Ensure MetadataStore implements the interface.
var _ driven.MetadataStore = (*MetadataStore)(nil)

// MetadataStore is an in-memory implementation of driven.MetadataStore
// for tests and dry runs.
//
// InTx serialises transactions and restores a snapshot on failure.
// Readers outside a transaction may observe its uncommitted writes.
type MetadataStore struct {
	mu   sync.RWMutex
	txMu sync.Mutex

	documents map[int64]domain.Document
	byPath    map[string]int64
	chunks    map[int64]domain.Chunk

	lastDocID   int64
	lastChunkID int64
}

// NewMetadataStore creates an empty in-memory metadata store.
func NewMetadataStore() *MetadataStore {
	return &MetadataStore{
		documents: make(map[int64]domain.Document),
		byPath:    make(map[string]int64),
		chunks:    make(map[int64]domain.Chunk),
	}
}

// UpsertDocument inserts or updates a document by path.
func (s *MetadataStore) UpsertDocument(_ context.Context, doc *domain.Document) (int64, error) {
	if doc == nil || doc.Path == "" {
		return 0, fmt.Errorf("upsert document: %w", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byPath[doc.Path]
	if !ok {
		s.lastDocID++
		id = s.lastDocID
		s.byPath[doc.Path] = id
	}

	stored := *doc
	stored.ID = id
	stored.Deleted = false
	s.documents[id] = stored
	return id, nil
}

// GetDocument retrieves a document by path, including soft-deleted ones.
func (s *MetadataStore) GetDocument(_ context.Context, path string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byPath[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	doc := s.documents[id]
	return &doc, nil
}

// MarkDocumentDeleted soft-deletes a document.
func (s *MetadataStore) MarkDocumentDeleted(_ context.Context, documentID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc, ok := s.documents[documentID]; ok {
		doc.Deleted = true
		s.documents[documentID] = doc
	}
	return nil
}

// MarkChunksDeletedForDocument soft-deletes every chunk of a document.
func (s *MetadataStore) MarkChunksDeletedForDocument(_ context.Context, documentID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, c := range s.chunks {
		if c.DocumentID == documentID && !c.Deleted {
			c.Deleted = true
			s.chunks[id] = c
		}
	}
	return nil
}

// InsertChunk stores a new chunk and returns its ID.
func (s *MetadataStore) InsertChunk(
	_ context.Context, documentID int64, ordinal int, content string, page *int,
) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.documents[documentID]; !ok {
		return 0, fmt.Errorf("saving chunk: document %d: %w", documentID, domain.ErrNotFound)
	}

	s.lastChunkID++
	c := domain.Chunk{
		ID:         s.lastChunkID,
		DocumentID: documentID,
		Ordinal:    ordinal,
		Content:    content,
	}
	if page != nil {
		c.Page = domain.IntPtr(*page)
	}
	s.chunks[c.ID] = c
	return c.ID, nil
}

// activeLocked reports whether a chunk and its document are both active.
func (s *MetadataStore) activeLocked(c domain.Chunk) bool {
	if c.Deleted {
		return false
	}
	doc, ok := s.documents[c.DocumentID]
	return ok && !doc.Deleted
}

// ListActiveChunks returns every active chunk of an active document by ascending ID.
func (s *MetadataStore) ListActiveChunks(_ context.Context) ([]domain.ActiveChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.ActiveChunk
	for _, c := range s.chunks {
		if s.activeLocked(c) {
			out = append(out, domain.ActiveChunk{ID: c.ID, Content: c.Content})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ResolveChunk joins an active chunk with its active document.
func (s *MetadataStore) ResolveChunk(_ context.Context, chunkID int64) (*domain.ResolvedChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.chunks[chunkID]
	if !ok || !s.activeLocked(c) {
		return nil, domain.ErrNotFound
	}
	doc := s.documents[c.DocumentID]
	return &domain.ResolvedChunk{
		ChunkID: c.ID,
		Path:    doc.Path,
		Type:    doc.Type,
		Page:    c.Page,
		Content: c.Content,
	}, nil
}

// ListActiveDocuments returns all active documents ordered by path.
func (s *MetadataStore) ListActiveDocuments(_ context.Context) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Document
	for _, doc := range s.documents {
		if !doc.Deleted {
			out = append(out, doc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// ActiveChunkIDs returns the active chunk IDs of a document.
func (s *MetadataStore) ActiveChunkIDs(_ context.Context, documentID int64) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []int64
	for _, c := range s.chunks {
		if c.DocumentID == documentID && !c.Deleted {
			ids = append(ids, c.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// SetChunksDeleted sets the soft-delete flag on the given chunks.
func (s *MetadataStore) SetChunksDeleted(_ context.Context, chunkIDs []int64, deleted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range chunkIDs {
		if c, ok := s.chunks[id]; ok {
			c.Deleted = deleted
			s.chunks[id] = c
		}
	}
	return nil
}

// Stats counts active documents and active chunks of active documents.
func (s *MetadataStore) Stats(_ context.Context) (domain.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats domain.Stats
	for _, doc := range s.documents {
		if !doc.Deleted {
			stats.Documents++
		}
	}
	for _, c := range s.chunks {
		if s.activeLocked(c) {
			stats.Chunks++
		}
	}
	return stats, nil
}

// PurgeDeleted hard-deletes soft-deleted chunks and documents.
func (s *MetadataStore) PurgeDeleted(_ context.Context) (domain.PurgeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result domain.PurgeResult
	for id, c := range s.chunks {
		if !s.activeLocked(c) {
			delete(s.chunks, id)
			result.Chunks++
		}
	}
	for id, doc := range s.documents {
		if doc.Deleted {
			delete(s.documents, id)
			delete(s.byPath, doc.Path)
			result.Documents++
		}
	}
	return result, nil
}

// InTx runs fn and restores the previous state if it fails.
// Allocated IDs are not handed out again after a rollback.
func (s *MetadataStore) InTx(_ context.Context, fn func(driven.MetadataStore) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(txStore{s}); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// Close releases resources (no-op for memory store).
func (s *MetadataStore) Close() error {
	return nil
}

type snapshot struct {
	documents map[int64]domain.Document
	byPath    map[string]int64
	chunks    map[int64]domain.Chunk
}

func (s *MetadataStore) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := snapshot{
		documents: make(map[int64]domain.Document, len(s.documents)),
		byPath:    make(map[string]int64, len(s.byPath)),
		chunks:    make(map[int64]domain.Chunk, len(s.chunks)),
	}
	for k, v := range s.documents {
		snap.documents[k] = v
	}
	for k, v := range s.byPath {
		snap.byPath[k] = v
	}
	for k, v := range s.chunks {
		snap.chunks[k] = v
	}
	return snap
}

func (s *MetadataStore) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents, s.byPath, s.chunks = snap.documents, snap.byPath, snap.chunks
}

// txStore is the view passed to an InTx callback; nested InTx calls join it.
type txStore struct {
	*MetadataStore
}

func (t txStore) InTx(_ context.Context, fn func(driven.MetadataStore) error) error {
	return fn(t)
}

func (t txStore) Close() error {
	return nil
}
