// Package storetest holds the behavioural test suite shared by every
// driven.MetadataStore implementation.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
)

// Factory returns an empty store. The suite closes it.
type Factory func(t *testing.T) driven.MetadataStore

// Run executes the suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s driven.MetadataStore)
	}{
		{"UpsertDocument inserts and updates by path", testUpsert},
		{"UpsertDocument clears soft delete", testUpsertClearsDelete},
		{"UpsertDocument rejects empty path", testUpsertInvalid},
		{"GetDocument not found", testGetDocumentNotFound},
		{"soft deletes are idempotent", testSoftDeleteIdempotent},
		{"InsertChunk allocates increasing ids", testInsertChunkIDs},
		{"ListActiveChunks filters and orders", testListActiveChunks},
		{"ResolveChunk honours both soft-delete flags", testResolveChunk},
		{"ListActiveDocuments", testListActiveDocuments},
		{"SetChunksDeleted toggles flags", testSetChunksDeleted},
		{"Stats counts active rows", testStats},
		{"PurgeDeleted removes soft-deleted rows", testPurge},
		{"chunk ids are never reused after purge", testNoReuseAfterPurge},
		{"InTx commits", testTxCommit},
		{"InTx rolls back", testTxRollback},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			defer func() { assert.NoError(t, s.Close()) }()
			tt.fn(t, s)
		})
	}
}

func newDoc(path string) *domain.Document {
	return &domain.Document{
		Path:    path,
		Type:    domain.DocTypeText,
		Hash:    "hash-" + path,
		ModTime: time.Unix(1700000000, 42),
		Size:    100,
	}
}

func mustUpsert(t *testing.T, s driven.MetadataStore, path string) int64 {
	t.Helper()
	id, err := s.UpsertDocument(context.Background(), newDoc(path))
	require.NoError(t, err)
	return id
}

func mustInsert(t *testing.T, s driven.MetadataStore, docID int64, ordinal int, content string) int64 {
	t.Helper()
	id, err := s.InsertChunk(context.Background(), docID, ordinal, content, nil)
	require.NoError(t, err)
	return id
}

func testUpsert(t *testing.T, s driven.MetadataStore) {
	ctx := context.Background()

	id1, err := s.UpsertDocument(ctx, newDoc("/a.txt"))
	require.NoError(t, err)
	assert.Positive(t, id1)

	got, err := s.GetDocument(ctx, "/a.txt")
	require.NoError(t, err)
	assert.Equal(t, id1, got.ID)
	assert.Equal(t, domain.DocTypeText, got.Type)
	assert.Equal(t, "hash-/a.txt", got.Hash)
	assert.True(t, got.ModTime.Equal(time.Unix(1700000000, 42)))
	assert.Equal(t, int64(100), got.Size)
	assert.False(t, got.Deleted)

	// Same path again: same id, idempotent.
	id2, err := s.UpsertDocument(ctx, newDoc("/a.txt"))
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	changed := newDoc("/a.txt")
	changed.Hash, changed.Size = "other", 200
	id3, err := s.UpsertDocument(ctx, changed)
	require.NoError(t, err)
	assert.Equal(t, id1, id3)

	got, err = s.GetDocument(ctx, "/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "other", got.Hash)
	assert.Equal(t, int64(200), got.Size)

	other := mustUpsert(t, s, "/b.txt")
	assert.NotEqual(t, id1, other)
}

func testUpsertClearsDelete(t *testing.T, s driven.MetadataStore) {
	ctx := context.Background()
	id := mustUpsert(t, s, "/a.txt")
	require.NoError(t, s.MarkDocumentDeleted(ctx, id))

	got, err := s.GetDocument(ctx, "/a.txt")
	require.NoError(t, err)
	assert.True(t, got.Deleted, "soft-deleted documents are still returned")

	mustUpsert(t, s, "/a.txt")
	got, err = s.GetDocument(ctx, "/a.txt")
	require.NoError(t, err)
	assert.False(t, got.Deleted)
}

func testUpsertInvalid(t *testing.T, s driven.MetadataStore) {
	_, err := s.UpsertDocument(context.Background(), &domain.Document{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = s.UpsertDocument(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func testGetDocumentNotFound(t *testing.T, s driven.MetadataStore) {
	_, err := s.GetDocument(context.Background(), "/never.txt")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func testSoftDeleteIdempotent(t *testing.T, s driven.MetadataStore) {
	ctx := context.Background()
	id := mustUpsert(t, s, "/a.txt")
	mustInsert(t, s, id, 0, "one")

	for i := 0; i < 2; i++ {
		assert.NoError(t, s.MarkChunksDeletedForDocument(ctx, id))
		assert.NoError(t, s.MarkDocumentDeleted(ctx, id))
	}
	assert.NoError(t, s.MarkDocumentDeleted(ctx, 9999), "unknown id is not an error")
}

func testInsertChunkIDs(t *testing.T, s driven.MetadataStore) {
	ctx := context.Background()
	doc := mustUpsert(t, s, "/a.txt")

	var last int64
	for i := 0; i < 5; i++ {
		id := mustInsert(t, s, doc, i, "chunk")
		assert.Greater(t, id, last)
		last = id
	}

	pageID, err := s.InsertChunk(ctx, doc, 5, "paged", domain.IntPtr(3))
	require.NoError(t, err)
	rc, err := s.ResolveChunk(ctx, pageID)
	require.NoError(t, err)
	require.NotNil(t, rc.Page)
	assert.Equal(t, 3, *rc.Page)
}

func testListActiveChunks(t *testing.T, s driven.MetadataStore) {
	ctx := context.Background()
	a := mustUpsert(t, s, "/a.txt")
	b := mustUpsert(t, s, "/b.txt")

	a1 := mustInsert(t, s, a, 0, "a1")
	b1 := mustInsert(t, s, b, 0, "b1")
	a2 := mustInsert(t, s, a, 1, "a2")
	b2 := mustInsert(t, s, b, 1, "b2")

	require.NoError(t, s.SetChunksDeleted(ctx, []int64{a2}, true))
	require.NoError(t, s.MarkDocumentDeleted(ctx, b))

	chunks, err := s.ListActiveChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.ActiveChunk{{ID: a1, Content: "a1"}}, chunks)

	mustUpsert(t, s, "/b.txt")
	chunks, err = s.ListActiveChunks(ctx)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, []int64{a1, b1, b2}, []int64{chunks[0].ID, chunks[1].ID, chunks[2].ID})
}

func testResolveChunk(t *testing.T, s driven.MetadataStore) {
	ctx := context.Background()
	doc := mustUpsert(t, s, "/a.txt")
	id := mustInsert(t, s, doc, 0, "hello")

	rc, err := s.ResolveChunk(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, rc.ChunkID)
	assert.Equal(t, "/a.txt", rc.Path)
	assert.Equal(t, domain.DocTypeText, rc.Type)
	assert.Nil(t, rc.Page)
	assert.Equal(t, "hello", rc.Content)

	_, err = s.ResolveChunk(ctx, id+1000)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, s.MarkDocumentDeleted(ctx, doc))
	_, err = s.ResolveChunk(ctx, id)
	assert.ErrorIs(t, err, domain.ErrNotFound, "deleted document hides its chunks")

	mustUpsert(t, s, "/a.txt")
	require.NoError(t, s.SetChunksDeleted(ctx, []int64{id}, true))
	_, err = s.ResolveChunk(ctx, id)
	assert.ErrorIs(t, err, domain.ErrNotFound, "deleted chunk is hidden")
}

func testListActiveDocuments(t *testing.T, s driven.MetadataStore) {
	ctx := context.Background()
	mustUpsert(t, s, "/b.txt")
	a := mustUpsert(t, s, "/a.txt")
	c := mustUpsert(t, s, "/c.txt")
	require.NoError(t, s.MarkDocumentDeleted(ctx, c))

	docs, err := s.ListActiveDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "/a.txt", docs[0].Path)
	assert.Equal(t, a, docs[0].ID)
	assert.Equal(t, "/b.txt", docs[1].Path)
}

func testSetChunksDeleted(t *testing.T, s driven.MetadataStore) {
	ctx := context.Background()
	doc := mustUpsert(t, s, "/a.txt")
	ids := []int64{mustInsert(t, s, doc, 0, "x"), mustInsert(t, s, doc, 1, "y")}

	require.NoError(t, s.MarkChunksDeletedForDocument(ctx, doc))
	active, err := s.ActiveChunkIDs(ctx, doc)
	require.NoError(t, err)
	assert.Empty(t, active)

	require.NoError(t, s.SetChunksDeleted(ctx, ids, false))
	active, err = s.ActiveChunkIDs(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, ids, active)

	assert.NoError(t, s.SetChunksDeleted(ctx, nil, true))
}

func testStats(t *testing.T, s driven.MetadataStore) {
	ctx := context.Background()
	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Stats{}, stats)

	a := mustUpsert(t, s, "/a.txt")
	b := mustUpsert(t, s, "/b.txt")
	mustInsert(t, s, a, 0, "a1")
	mustInsert(t, s, a, 1, "a2")
	mustInsert(t, s, b, 0, "b1")

	stats, err = s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Stats{Documents: 2, Chunks: 3}, stats)

	require.NoError(t, s.MarkDocumentDeleted(ctx, a))
	stats, err = s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Stats{Documents: 1, Chunks: 1}, stats)
}

func testPurge(t *testing.T, s driven.MetadataStore) {
	ctx := context.Background()
	a := mustUpsert(t, s, "/a.txt")
	b := mustUpsert(t, s, "/b.txt")
	mustInsert(t, s, a, 0, "a1")
	mustInsert(t, s, a, 1, "a2")
	old := mustInsert(t, s, b, 0, "b-old")
	keep := mustInsert(t, s, b, 1, "b-new")

	require.NoError(t, s.MarkDocumentDeleted(ctx, a))
	require.NoError(t, s.SetChunksDeleted(ctx, []int64{old}, true))

	result, err := s.PurgeDeleted(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.PurgeResult{Documents: 1, Chunks: 3}, result)

	_, err = s.GetDocument(ctx, "/a.txt")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	chunks, err := s.ListActiveChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.ActiveChunk{{ID: keep, Content: "b-new"}}, chunks)

	result, err = s.PurgeDeleted(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.PurgeResult{}, result)
}

func testNoReuseAfterPurge(t *testing.T, s driven.MetadataStore) {
	ctx := context.Background()
	doc := mustUpsert(t, s, "/a.txt")
	first := mustInsert(t, s, doc, 0, "x")

	require.NoError(t, s.MarkChunksDeletedForDocument(ctx, doc))
	_, err := s.PurgeDeleted(ctx)
	require.NoError(t, err)

	next := mustInsert(t, s, doc, 0, "y")
	assert.Greater(t, next, first)
}

func testTxCommit(t *testing.T, s driven.MetadataStore) {
	ctx := context.Background()
	var chunkID int64
	err := s.InTx(ctx, func(tx driven.MetadataStore) error {
		docID, err := tx.UpsertDocument(ctx, newDoc("/a.txt"))
		if err != nil {
			return err
		}
		chunkID, err = tx.InsertChunk(ctx, docID, 0, "inside", nil)
		return err
	})
	require.NoError(t, err)

	rc, err := s.ResolveChunk(ctx, chunkID)
	require.NoError(t, err)
	assert.Equal(t, "inside", rc.Content)
}

func testTxRollback(t *testing.T, s driven.MetadataStore) {
	ctx := context.Background()
	existing := mustUpsert(t, s, "/keep.txt")
	kept := mustInsert(t, s, existing, 0, "kept")

	boom := errors.New("boom")
	err := s.InTx(ctx, func(tx driven.MetadataStore) error {
		if err := tx.MarkChunksDeletedForDocument(ctx, existing); err != nil {
			return err
		}
		docID, err := tx.UpsertDocument(ctx, newDoc("/new.txt"))
		if err != nil {
			return err
		}
		if _, err := tx.InsertChunk(ctx, docID, 0, "lost", nil); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = s.GetDocument(ctx, "/new.txt")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	active, err := s.ActiveChunkIDs(ctx, existing)
	require.NoError(t, err)
	assert.Equal(t, []int64{kept}, active)
}
