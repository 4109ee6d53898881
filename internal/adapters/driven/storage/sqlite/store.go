package sqlite

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/recall/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
)

// DatabaseFileName is the file created inside the data directory.
const DatabaseFileName = "kb.sqlite3"

// maxBatchParams bounds the number of bound parameters per statement.
const maxBatchParams = 500

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store owns the SQLite database.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.recall.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".recall")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	return Open(filepath.Join(dataDir, DatabaseFileName))
}

// Open opens or creates the database file at dbPath and migrates it.
func Open(dbPath string) (*Store, error) {
	// WAL for concurrent readers; foreign keys are per connection, so they
	// are set in the DSN rather than with a one-off PRAGMA.
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	if err := s.upgradeColumns(); err != nil {
		db.Close()
		return nil, fmt.Errorf("upgrading columns: %w", err)
	}
	if err := s.ensureIndexes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating indexes: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// MetadataStore returns a MetadataStore interface backed by this store.
func (s *Store) MetadataStore() driven.MetadataStore {
	return &metadataStore{store: s, q: s.db}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys fs.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning migration %s: %w", name, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %s: %w", name, err)
		}
	}

	return nil
}

// columnUpgrade is a column added after the table was first released.
type columnUpgrade struct {
	table      string
	column     string
	definition string
}

// columnUpgrades are applied only when the column is missing, so running
// them against an up-to-date database is a no-op.
var columnUpgrades = []columnUpgrade{
	{table: "documents", column: "file_hash", definition: "TEXT NOT NULL DEFAULT ''"},
	{table: "documents", column: "file_mtime", definition: "INTEGER NOT NULL DEFAULT 0"},
	{table: "documents", column: "file_size", definition: "INTEGER NOT NULL DEFAULT 0"},
	{table: "documents", column: "is_deleted", definition: "INTEGER NOT NULL DEFAULT 0"},
	{table: "chunks", column: "page", definition: "INTEGER"},
	{table: "chunks", column: "content_hash", definition: "TEXT NOT NULL DEFAULT ''"},
	{table: "chunks", column: "is_deleted", definition: "INTEGER NOT NULL DEFAULT 0"},
}

// upgradeColumns adds any missing column from columnUpgrades.
func (s *Store) upgradeColumns() error {
	for _, up := range columnUpgrades {
		exists, err := s.hasColumn(up.table, up.column)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", up.table, up.column, up.definition)
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("adding %s.%s: %w", up.table, up.column, err)
		}
	}
	return nil
}

// indexes are created after the column pass, since they reference
// columns that older databases only gain there.
var indexes = []string{
	"CREATE INDEX IF NOT EXISTS idx_chunks_doc_id ON chunks(doc_id)",
	"CREATE INDEX IF NOT EXISTS idx_chunks_active ON chunks(is_deleted, id)",
	"CREATE INDEX IF NOT EXISTS idx_documents_active ON documents(is_deleted, id)",
}

func (s *Store) ensureIndexes() error {
	for _, stmt := range indexes {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("%s: %w", stmt, err)
		}
	}
	return nil
}

func (s *Store) hasColumn(table, column string) (bool, error) {
	rows, err := s.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, fmt.Errorf("reading %s columns: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return false, fmt.Errorf("scanning %s columns: %w", table, err)
		}
		if strings.EqualFold(name, column) {
			return true, nil
		}
	}
	return false, rows.Err()
}

// ==================== Metadata Store ====================

// metadataStore implements driven.MetadataStore against either the
// database or a single transaction.
type metadataStore struct {
	store *Store
	q     querier
	inTx  bool
}

var _ driven.MetadataStore = (*metadataStore)(nil)

// UpsertDocument inserts or updates a document by path.
func (s *metadataStore) UpsertDocument(ctx context.Context, doc *domain.Document) (int64, error) {
	if doc == nil || doc.Path == "" {
		return 0, fmt.Errorf("upsert document: %w", domain.ErrInvalidInput)
	}

	var id int64
	err := s.q.QueryRowContext(ctx, `
		INSERT INTO documents (path, doc_type, file_hash, file_mtime, file_size, is_deleted)
		VALUES (?, ?, ?, ?, ?, 0)
		ON CONFLICT(path) DO UPDATE SET
			doc_type = excluded.doc_type,
			file_hash = excluded.file_hash,
			file_mtime = excluded.file_mtime,
			file_size = excluded.file_size,
			is_deleted = 0
		RETURNING id
	`, doc.Path, string(doc.Type), doc.Hash, doc.ModTime.UnixNano(), doc.Size).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upserting document: %w", err)
	}
	return id, nil
}

// GetDocument retrieves a document by path, including soft-deleted ones.
func (s *metadataStore) GetDocument(ctx context.Context, path string) (*domain.Document, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT id, path, doc_type, file_hash, file_mtime, file_size, is_deleted
		FROM documents WHERE path = ?
	`, path)

	return scanDocument(row)
}

// MarkDocumentDeleted soft-deletes a document.
func (s *metadataStore) MarkDocumentDeleted(ctx context.Context, documentID int64) error {
	_, err := s.q.ExecContext(ctx, "UPDATE documents SET is_deleted = 1 WHERE id = ?", documentID)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return nil
}

// MarkChunksDeletedForDocument soft-deletes every chunk of a document.
func (s *metadataStore) MarkChunksDeletedForDocument(ctx context.Context, documentID int64) error {
	_, err := s.q.ExecContext(ctx,
		"UPDATE chunks SET is_deleted = 1 WHERE doc_id = ? AND is_deleted = 0", documentID)
	if err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}
	return nil
}

// InsertChunk stores a new chunk and returns its ID.
func (s *metadataStore) InsertChunk(
	ctx context.Context, documentID int64, ordinal int, content string, page *int,
) (int64, error) {
	var pageValue sql.NullInt64
	if page != nil {
		pageValue = sql.NullInt64{Int64: int64(*page), Valid: true}
	}

	res, err := s.q.ExecContext(ctx, `
		INSERT INTO chunks (doc_id, chunk_index, page, content, content_hash, is_deleted)
		VALUES (?, ?, ?, ?, ?, 0)
	`, documentID, ordinal, pageValue, content, ContentHash(content))
	if err != nil {
		return 0, fmt.Errorf("saving chunk: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading chunk id: %w", err)
	}
	return id, nil
}

// ListActiveChunks returns every active chunk of an active document by ascending ID.
func (s *metadataStore) ListActiveChunks(ctx context.Context) ([]domain.ActiveChunk, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT c.id, c.content
		FROM chunks c
		JOIN documents d ON d.id = c.doc_id
		WHERE c.is_deleted = 0 AND d.is_deleted = 0
		ORDER BY c.id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.ActiveChunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		var c domain.ActiveChunk
		if err := rows.Scan(&c.ID, &c.Content); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		chunks = append(chunks, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return chunks, nil
}

// ResolveChunk joins an active chunk with its active document.
func (s *metadataStore) ResolveChunk(ctx context.Context, chunkID int64) (*domain.ResolvedChunk, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT c.id, d.path, d.doc_type, c.page, c.content
		FROM chunks c
		JOIN documents d ON d.id = c.doc_id
		WHERE c.id = ? AND c.is_deleted = 0 AND d.is_deleted = 0
	`, chunkID)

	var (
		rc      domain.ResolvedChunk
		docType string
		page    sql.NullInt64
	)
	if err := row.Scan(&rc.ChunkID, &rc.Path, &docType, &page, &rc.Content); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("resolving chunk: %w", err)
	}
	rc.Type = domain.DocType(docType)
	if page.Valid {
		rc.Page = domain.IntPtr(int(page.Int64))
	}
	return &rc, nil
}

// ListActiveDocuments returns all active documents ordered by path.
func (s *metadataStore) ListActiveDocuments(ctx context.Context) ([]domain.Document, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, path, doc_type, file_hash, file_mtime, file_size, is_deleted
		FROM documents WHERE is_deleted = 0
		ORDER BY path
	`)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}

// ActiveChunkIDs returns the active chunk IDs of a document.
func (s *metadataStore) ActiveChunkIDs(ctx context.Context, documentID int64) ([]int64, error) {
	rows, err := s.q.QueryContext(ctx,
		"SELECT id FROM chunks WHERE doc_id = ? AND is_deleted = 0 ORDER BY id", documentID)
	if err != nil {
		return nil, fmt.Errorf("querying chunk ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning chunk id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SetChunksDeleted sets the soft-delete flag on the given chunks.
func (s *metadataStore) SetChunksDeleted(ctx context.Context, chunkIDs []int64, deleted bool) error {
	flag := 0
	if deleted {
		flag = 1
	}

	for start := 0; start < len(chunkIDs); start += maxBatchParams {
		end := min(start+maxBatchParams, len(chunkIDs))
		batch := chunkIDs[start:end]

		args := make([]any, 0, len(batch)+1)
		args = append(args, flag)
		for _, id := range batch {
			args = append(args, id)
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(batch)), ",")

		query := "UPDATE chunks SET is_deleted = ? WHERE id IN (" + placeholders + ")" //nolint:gosec // placeholders only
		if _, err := s.q.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("updating chunks: %w", err)
		}
	}
	return nil
}

// Stats counts active documents and active chunks of active documents.
func (s *metadataStore) Stats(ctx context.Context) (domain.Stats, error) {
	var stats domain.Stats
	err := s.q.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM documents WHERE is_deleted = 0),
			(SELECT COUNT(*) FROM chunks c JOIN documents d ON d.id = c.doc_id
			 WHERE c.is_deleted = 0 AND d.is_deleted = 0)
	`).Scan(&stats.Documents, &stats.Chunks)
	if err != nil {
		return stats, fmt.Errorf("counting rows: %w", err)
	}
	return stats, nil
}

// PurgeDeleted hard-deletes soft-deleted chunks and documents.
func (s *metadataStore) PurgeDeleted(ctx context.Context) (domain.PurgeResult, error) {
	var result domain.PurgeResult
	err := s.InTx(ctx, func(tx driven.MetadataStore) error {
		q := tx.(*metadataStore).q

		res, err := q.ExecContext(ctx, `
			DELETE FROM chunks
			WHERE is_deleted = 1 OR doc_id IN (SELECT id FROM documents WHERE is_deleted = 1)
		`)
		if err != nil {
			return fmt.Errorf("purging chunks: %w", err)
		}
		n, _ := res.RowsAffected()
		result.Chunks = int(n)

		res, err = q.ExecContext(ctx, "DELETE FROM documents WHERE is_deleted = 1")
		if err != nil {
			return fmt.Errorf("purging documents: %w", err)
		}
		n, _ = res.RowsAffected()
		result.Documents = int(n)
		return nil
	})
	return result, err
}

// InTx runs fn inside a transaction. Nested calls join the outer transaction.
func (s *metadataStore) InTx(ctx context.Context, fn func(driven.MetadataStore) error) error {
	if s.inTx {
		return fn(s)
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	if err := fn(&metadataStore{store: s.store, q: tx, inTx: true}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rolling back: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Close closes the database. A transaction-bound store does nothing.
func (s *metadataStore) Close() error {
	if s.inTx {
		return nil
	}
	return s.store.Close()
}

// ContentHash returns the hex SHA-256 of content.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanDocument scans a single document row.
func scanDocument(row rowScanner) (*domain.Document, error) {
	var (
		doc     domain.Document
		docType string
		mtime   int64
		deleted int
	)

	if err := row.Scan(&doc.ID, &doc.Path, &docType, &doc.Hash, &mtime, &doc.Size, &deleted); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	doc.Type = domain.DocType(docType)
	doc.ModTime = time.Unix(0, mtime)
	doc.Deleted = deleted != 0
	return &doc, nil
}
