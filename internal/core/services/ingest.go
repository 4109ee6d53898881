package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
	"github.com/custodia-labs/recall/internal/core/ports/driving"
	"github.com/custodia-labs/recall/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// IngestOption configures an IngestService.
type IngestOption func(*IngestService)

// WithBatchSize sets how many chunk texts are embedded per call during
// compaction.
func WithBatchSize(n int) IngestOption {
	return func(s *IngestService) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithPurgeOnCompact hard-deletes soft-deleted metadata after each
// successful compaction.
func WithPurgeOnCompact(purge bool) IngestOption {
	return func(s *IngestService) {
		s.purgeOnCompact = purge
	}
}

// IngestService is the ingestion orchestrator. It keeps the metadata store
// and the Base and Delta indices consistent with files on disk.
//
// The two stores share no transaction. Chunk rows are committed before
// their vectors are appended, and a failed append is compensated by
// reverting the rows, so an active chunk always has a vector.
type IngestService struct {
	store    driven.MetadataStore
	index    driven.VectorIndexManager
	embedder driven.EmbeddingService
	loaders  driven.LoaderRegistry
	chunker  driven.Chunker

	batchSize      int
	purgeOnCompact bool

	// mu serialises operations that mutate either store.
	mu sync.Mutex

	statusMu sync.RWMutex
	status   domain.IngestStatus
}

// NewIngestService creates a new ingestion orchestrator.
func NewIngestService(
	store driven.MetadataStore,
	index driven.VectorIndexManager,
	embedder driven.EmbeddingService,
	loaders driven.LoaderRegistry,
	chunker driven.Chunker,
	opts ...IngestOption,
) *IngestService {
	s := &IngestService{
		store:     store,
		index:     index,
		embedder:  embedder,
		loaders:   loaders,
		chunker:   chunker,
		batchSize: domain.DefaultEmbeddingBatchSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// fileOutcome is the result of ingesting one file.
type fileOutcome int

const (
	outcomeUnchanged fileOutcome = iota
	outcomeAdded
	outcomeUpdated
)

// Sync reconciles a folder with the store.
func (s *IngestService) Sync(ctx context.Context, folder string, force bool) (*domain.IngestReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.syncLocked(ctx, folder, force)
}

// TrySync is Sync without waiting for a running operation.
func (s *IngestService) TrySync(ctx context.Context, folder string, force bool) (*domain.IngestReport, error) {
	if !s.mu.TryLock() {
		return nil, domain.ErrIngestInProgress
	}
	defer s.mu.Unlock()
	return s.syncLocked(ctx, folder, force)
}

func (s *IngestService) syncLocked(ctx context.Context, folder string, force bool) (*domain.IngestReport, error) {
	root, err := normalisePath(folder)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("sync %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, root)
	}

	logger.Section("Sync")
	logger.Debug("Scanning %s", root)

	files, err := s.scan(ctx, root)
	if err != nil {
		return nil, err
	}

	report := &domain.IngestReport{Scanned: len(files)}
	s.begin(domain.OperationSync, len(files))
	defer s.end()

	if err := s.reconcile(ctx, files, report); err != nil {
		return report, err
	}
	if err := s.ingestFiles(ctx, files, force, report); err != nil {
		return report, err
	}

	logger.Info("Sync complete: %d added, %d updated, %d unchanged, %d deleted, %d failed",
		report.Added, report.Updated, report.Unchanged, report.Deleted, len(report.Failed))
	return report, nil
}

// Add ingests files. Directories are expanded recursively without
// reconciliation.
func (s *IngestService) Add(ctx context.Context, paths []string, force bool) (*domain.IngestReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	logger.Section("Add")

	report := &domain.IngestReport{}
	var files []string
	for _, p := range paths {
		abs, err := normalisePath(p)
		if err != nil {
			report.Failed = append(report.Failed, domain.FileError{Path: p, Err: err})
			continue
		}
		info, err := os.Stat(abs)
		if err == nil && info.IsDir() {
			found, err := s.scan(ctx, abs)
			if err != nil {
				return report, err
			}
			files = append(files, found...)
			continue
		}
		files = append(files, abs)
	}
	report.Scanned = len(files)

	s.begin(domain.OperationAdd, len(files))
	defer s.end()

	if err := s.ingestFiles(ctx, files, force, report); err != nil {
		return report, err
	}
	return report, nil
}

// Delete soft-deletes documents. A directory path deletes every active
// document beneath it. No index file is touched.
func (s *IngestService) Delete(ctx context.Context, paths []string) (*domain.IngestReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	logger.Section("Delete")

	report := &domain.IngestReport{Scanned: len(paths)}
	s.begin(domain.OperationDelete, len(paths))
	defer s.end()

	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		abs, err := normalisePath(p)
		if err != nil {
			report.Failed = append(report.Failed, domain.FileError{Path: p, Err: err})
			s.advance(false)
			continue
		}

		docs, err := s.documentsAt(ctx, abs)
		if err != nil {
			report.Failed = append(report.Failed, domain.FileError{Path: abs, Err: err})
			s.advance(false)
			continue
		}
		if len(docs) == 0 {
			report.NotFound = append(report.NotFound, abs)
			s.advance(true)
			continue
		}

		for i := range docs {
			if err := s.softDelete(ctx, &docs[i]); err != nil {
				report.Failed = append(report.Failed, domain.FileError{Path: docs[i].Path, Err: err})
				continue
			}
			report.Deleted++
			logger.Debug("Deleted: %s", docs[i].Path)
		}
		s.advance(true)
	}

	logger.Info("Delete complete: %d deleted, %d not found", report.Deleted, len(report.NotFound))
	return report, nil
}

// documentsAt returns the active document at path, or every active
// document under path when it names a directory.
func (s *IngestService) documentsAt(ctx context.Context, path string) ([]domain.Document, error) {
	doc, err := s.store.GetDocument(ctx, path)
	switch {
	case err == nil:
		if doc.Deleted {
			return nil, nil
		}
		return []domain.Document{*doc}, nil
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	active, err := s.store.ListActiveDocuments(ctx)
	if err != nil {
		return nil, err
	}
	var under []domain.Document
	for _, d := range active {
		if isUnder(d.Path, path) {
			under = append(under, d)
		}
	}
	return under, nil
}

// Compact re-embeds every active chunk into a new Base and empties Delta.
func (s *IngestService) Compact(ctx context.Context) (*domain.IndexStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	logger.Section("Compact")

	chunks, err := s.store.ListActiveChunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active chunks: %w", err)
	}

	s.begin(domain.OperationCompact, len(chunks))
	defer s.end()

	ids := make([]int64, 0, len(chunks))
	vectors := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += s.batchSize {
		end := min(start+s.batchSize, len(chunks))
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Content
			ids = append(ids, c.ID)
		}
		embedded, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed chunks: %w", err)
		}
		if len(embedded) != len(batch) {
			return nil, fmt.Errorf("embed chunks: got %d vectors for %d texts", len(embedded), len(batch))
		}
		vectors = append(vectors, embedded...)
		s.advanceBy(len(batch))
		logger.Debug("Embedded %d/%d chunks", end, len(chunks))
	}

	if err := s.index.RebuildBase(ctx, ids, vectors); err != nil {
		return nil, fmt.Errorf("rebuild base: %w", err)
	}
	logger.Info("Base rebuilt with %d chunks", len(ids))

	if s.purgeOnCompact {
		purged, err := s.store.PurgeDeleted(ctx)
		if err != nil {
			return nil, fmt.Errorf("purge deleted metadata: %w", err)
		}
		logger.Info("Purged %d documents, %d chunks", purged.Documents, purged.Chunks)
	}

	stats, err := s.index.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("index stats: %w", err)
	}
	return &stats, nil
}

// RebuildIndex is an alias of Compact.
func (s *IngestService) RebuildIndex(ctx context.Context) (*domain.IndexStats, error) {
	return s.Compact(ctx)
}

// Stats counts active documents and chunks.
func (s *IngestService) Stats(ctx context.Context) (*domain.Stats, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("metadata stats: %w", err)
	}
	return &stats, nil
}

// IndexStats describes the Base and Delta indices.
func (s *IngestService) IndexStats(ctx context.Context) (*domain.IndexStats, error) {
	stats, err := s.index.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("index stats: %w", err)
	}
	return &stats, nil
}

// Status reports progress of the running operation.
func (s *IngestService) Status() domain.IngestStatus {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return s.status
}

func (s *IngestService) begin(op string, total int) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	s.status = domain.IngestStatus{Running: true, Operation: op, Total: total}
}

func (s *IngestService) advance(ok bool) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	s.status.Processed++
	if !ok {
		s.status.Failed++
	}
}

func (s *IngestService) advanceBy(n int) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	s.status.Processed += n
}

func (s *IngestService) end() {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	s.status.Running = false
}

// scan returns every supported, non-hidden file under root in lexical order.
func (s *IngestService) scan(ctx context.Context, root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			logger.Warn("Skipping %s: %v", path, err)
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if path != root && domain.IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && s.loaders.Supports(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	return files, nil
}

// reconcile soft-deletes every active document missing from the folder
// listing, including documents added from elsewhere.
func (s *IngestService) reconcile(ctx context.Context, files []string, report *domain.IngestReport) error {
	present := make(map[string]struct{}, len(files))
	for _, f := range files {
		present[f] = struct{}{}
	}

	docs, err := s.store.ListActiveDocuments(ctx)
	if err != nil {
		return fmt.Errorf("list active documents: %w", err)
	}
	for i := range docs {
		doc := &docs[i]
		if _, ok := present[doc.Path]; ok {
			continue
		}
		if err := s.softDelete(ctx, doc); err != nil {
			report.Failed = append(report.Failed, domain.FileError{Path: doc.Path, Err: err})
			continue
		}
		report.Deleted++
		logger.Debug("Removed from disk: %s", doc.Path)
	}
	return nil
}

func (s *IngestService) softDelete(ctx context.Context, doc *domain.Document) error {
	return s.store.InTx(ctx, func(tx driven.MetadataStore) error {
		if err := tx.MarkChunksDeletedForDocument(ctx, doc.ID); err != nil {
			return err
		}
		return tx.MarkDocumentDeleted(ctx, doc.ID)
	})
}

// ingestFiles ingests each file in turn. A file's failure is recorded in the
// report and the pass continues, except for failures that would repeat for
// every file, which abort the pass.
func (s *IngestService) ingestFiles(ctx context.Context, files []string, force bool, report *domain.IngestReport) error {
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return err
		}

		logger.Debug("Processing: %s", path)
		outcome, chunks, err := s.ingestFile(ctx, path, force)
		if err != nil {
			report.Failed = append(report.Failed, domain.FileError{Path: path, Err: err})
			s.advance(false)
			if isFatal(ctx, err) {
				return fmt.Errorf("ingest %s: %w", path, err)
			}
			logger.Warn("Failed to ingest %s: %v", path, err)
			continue
		}
		s.advance(true)

		switch outcome {
		case outcomeAdded:
			report.Added++
		case outcomeUpdated:
			report.Updated++
		default:
			report.Unchanged++
		}
		report.NewChunks += chunks
	}
	return nil
}

// ingestFile runs the per-file commit protocol and returns the number of
// chunks written.
func (s *IngestService) ingestFile(ctx context.Context, path string, force bool) (fileOutcome, int, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, 0, err
	}
	if !info.Mode().IsRegular() {
		return 0, 0, fmt.Errorf("%w: not a regular file", domain.ErrInvalidInput)
	}
	docType, ok := domain.DocTypeFromPath(path)
	if !ok || !s.loaders.Supports(path) {
		return 0, 0, domain.ErrUnsupportedType
	}

	prev, err := s.store.GetDocument(ctx, path)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return 0, 0, fmt.Errorf("get document: %w", err)
	}
	if prev != nil && !force && prev.Unchanged(info.ModTime(), info.Size()) {
		logger.Debug("Unchanged: %s", path)
		return outcomeUnchanged, 0, nil
	}

	hash, err := hashFile(path)
	if err != nil {
		return 0, 0, err
	}
	loaded, err := s.loaders.Load(ctx, path)
	if err != nil {
		return 0, 0, fmt.Errorf("load: %w", err)
	}
	segments, err := s.chunker.Process(ctx, loaded)
	if err != nil {
		return 0, 0, fmt.Errorf("chunk: %w", err)
	}

	var vectors [][]float32
	if len(segments) > 0 {
		texts := make([]string, len(segments))
		for i, seg := range segments {
			texts[i] = seg.Text
		}
		vectors, err = s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return 0, 0, fmt.Errorf("embed: %w", err)
		}
		if len(vectors) != len(segments) {
			return 0, 0, fmt.Errorf("embed: got %d vectors for %d segments", len(vectors), len(segments))
		}
	}

	var prevChunkIDs []int64
	if prev != nil && !prev.Deleted {
		prevChunkIDs, err = s.store.ActiveChunkIDs(ctx, prev.ID)
		if err != nil {
			return 0, 0, fmt.Errorf("list previous chunks: %w", err)
		}
	}

	doc := &domain.Document{
		Path:    path,
		Type:    docType,
		Hash:    hash,
		ModTime: info.ModTime(),
		Size:    info.Size(),
	}
	var docID int64
	ids := make([]int64, len(segments))
	err = s.store.InTx(ctx, func(tx driven.MetadataStore) error {
		var err error
		docID, err = tx.UpsertDocument(ctx, doc)
		if err != nil {
			return fmt.Errorf("upsert document: %w", err)
		}
		if err := tx.MarkChunksDeletedForDocument(ctx, docID); err != nil {
			return fmt.Errorf("supersede chunks: %w", err)
		}
		for i, seg := range segments {
			ids[i], err = tx.InsertChunk(ctx, docID, seg.Ordinal, seg.Text, seg.Page)
			if err != nil {
				return fmt.Errorf("insert chunk %d: %w", seg.Ordinal, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	if len(ids) > 0 {
		if err := s.index.AppendDelta(ctx, ids, vectors); err != nil {
			if cerr := s.compensate(ctx, prev, prevChunkIDs, docID, ids); cerr != nil {
				return 0, 0, errors.Join(fmt.Errorf("append delta: %w", err), fmt.Errorf("compensate: %w", cerr))
			}
			return 0, 0, fmt.Errorf("append delta: %w", err)
		}
	}

	if prev == nil || prev.Deleted {
		logger.Debug("Added %s (%d chunks)", path, len(ids))
		return outcomeAdded, len(ids), nil
	}
	logger.Debug("Updated %s (%d chunks)", path, len(ids))
	return outcomeUpdated, len(ids), nil
}

// compensate reverts a committed ingestion whose vectors were not written.
// The new chunks are soft-deleted and the previous chunks and fingerprint
// restored, so the next sync sees the file as changed and retries.
func (s *IngestService) compensate(
	ctx context.Context, prev *domain.Document, prevChunkIDs []int64, docID int64, newIDs []int64,
) error {
	ctx = context.WithoutCancel(ctx)
	return s.store.InTx(ctx, func(tx driven.MetadataStore) error {
		if err := tx.SetChunksDeleted(ctx, newIDs, true); err != nil {
			return err
		}
		if prev == nil {
			return tx.MarkDocumentDeleted(ctx, docID)
		}
		restored := *prev
		restored.Deleted = false
		if _, err := tx.UpsertDocument(ctx, &restored); err != nil {
			return err
		}
		if prev.Deleted {
			return tx.MarkDocumentDeleted(ctx, docID)
		}
		return tx.SetChunksDeleted(ctx, prevChunkIDs, false)
	})
}

// isFatal reports errors that would fail every remaining file.
func isFatal(ctx context.Context, err error) bool {
	return ctx.Err() != nil ||
		errors.Is(err, domain.ErrDimensionMismatch) ||
		errors.Is(err, domain.ErrEmbeddingUnavailable) ||
		errors.Is(err, domain.ErrIndexClosed)
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func normalisePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("%w: empty path", domain.ErrInvalidInput)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	return abs, nil
}

// isUnder reports whether path is root or lies beneath it.
func isUnder(path, root string) bool {
	if path == root {
		return true
	}
	return strings.HasPrefix(path, strings.TrimSuffix(root, string(filepath.Separator))+string(filepath.Separator))
}
