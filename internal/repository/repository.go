package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

// ErrNotFound indicates a document id with no row.
var ErrNotFound = errors.New("document not found")

// failedReasonLimit caps the stored failure reason.
const failedReasonLimit = 1000

// Document ingestion statuses.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Document is one ingestable source and its lifecycle state.
type Document struct {
	ID          string
	Title       string
	ContentType string
	Category    string
	// Path is the file path or empty for inline text.
	Path string
	// InlineText is the document body when no file is involved.
	InlineText string

	Status       string
	ChunkCount   int
	FailedReason string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	ProcessedAt  *time.Time
}

// Chunk is one stored chunk record with its vector-index point linkage.
type Chunk struct {
	DocumentID string
	Index      int
	Text       string
	TokenCount int
	PointID    string
}

// Repository is a SQLite-backed document/chunk store.
type Repository struct {
	db     *sql.DB
	logger *zap.Logger
}

// New opens (or creates) the database at path and applies the schema.
func New(path string, logger *zap.Logger) (*Repository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// SQLite tolerates exactly one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	r := &Repository{db: db, logger: logger}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return r, nil
}

func (r *Repository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id            TEXT PRIMARY KEY,
		title         TEXT NOT NULL DEFAULT '',
		content_type  TEXT NOT NULL DEFAULT '',
		category      TEXT NOT NULL DEFAULT '',
		path          TEXT NOT NULL DEFAULT '',
		inline_text   TEXT NOT NULL DEFAULT '',
		status        TEXT NOT NULL DEFAULT 'pending',
		chunk_count   INTEGER NOT NULL DEFAULT 0,
		failed_reason TEXT NOT NULL DEFAULT '',
		created_at    DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at    DATETIME DEFAULT CURRENT_TIMESTAMP,
		processed_at  DATETIME
	);
	CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);

	CREATE TABLE IF NOT EXISTS chunks (
		document_id  TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
		chunk_index  INTEGER NOT NULL,
		text         TEXT NOT NULL,
		token_count  INTEGER NOT NULL DEFAULT 0,
		point_id     TEXT NOT NULL,
		PRIMARY KEY (document_id, chunk_index)
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_point ON chunks(point_id);
	`
	_, err := r.db.Exec(schema)
	return err
}

// Close closes the database.
func (r *Repository) Close() error { return r.db.Close() }

// CreateDocument inserts a new document in pending status.
func (r *Repository) CreateDocument(ctx context.Context, doc Document) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO documents (id, title, content_type, category, path, inline_text, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Title, doc.ContentType, doc.Category, doc.Path, doc.InlineText, StatusPending, now, now,
	)
	if err != nil {
		return fmt.Errorf("creating document %s: %w", doc.ID, err)
	}
	return nil
}

// GetDocument returns a document by id.
func (r *Repository) GetDocument(ctx context.Context, id string) (*Document, error) {
	var doc Document
	var processedAt sql.NullTime
	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, content_type, category, path, inline_text, status,
		        chunk_count, failed_reason, created_at, updated_at, processed_at
		 FROM documents WHERE id = ?`, id,
	).Scan(&doc.ID, &doc.Title, &doc.ContentType, &doc.Category, &doc.Path,
		&doc.InlineText, &doc.Status, &doc.ChunkCount, &doc.FailedReason,
		&doc.CreatedAt, &doc.UpdatedAt, &processedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting document %s: %w", id, err)
	}
	if processedAt.Valid {
		doc.ProcessedAt = &processedAt.Time
	}
	return &doc, nil
}

// SetProcessing transitions a document to processing.
func (r *Repository) SetProcessing(ctx context.Context, id string) error {
	return r.setStatus(ctx, id,
		`UPDATE documents SET status = ?, updated_at = ? WHERE id = ?`,
		StatusProcessing, time.Now().UTC(), id)
}

// MarkCompleted transitions a document to completed with its chunk count and
// processing timestamp.
func (r *Repository) MarkCompleted(ctx context.Context, id string, chunkCount int) error {
	now := time.Now().UTC()
	return r.setStatus(ctx, id,
		`UPDATE documents SET status = ?, chunk_count = ?, failed_reason = '', processed_at = ?, updated_at = ? WHERE id = ?`,
		StatusCompleted, chunkCount, now, now, id)
}

// MarkFailed transitions a document to failed. The reason is truncated to a
// bounded, human-readable length before storage.
func (r *Repository) MarkFailed(ctx context.Context, id string, reason string) error {
	if len(reason) > failedReasonLimit {
		reason = reason[:failedReasonLimit]
	}
	return r.setStatus(ctx, id,
		`UPDATE documents SET status = ?, failed_reason = ?, chunk_count = 0, updated_at = ? WHERE id = ?`,
		StatusFailed, reason, time.Now().UTC(), id)
}

// ResetPending returns a document to pending, clearing completion state.
// Used by re-indexing before the fresh ingestion run.
func (r *Repository) ResetPending(ctx context.Context, id string) error {
	return r.setStatus(ctx, id,
		`UPDATE documents SET status = ?, chunk_count = 0, failed_reason = '', processed_at = NULL, updated_at = ? WHERE id = ?`,
		StatusPending, time.Now().UTC(), id)
}

func (r *Repository) setStatus(ctx context.Context, id, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating document %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating document %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// ReplaceChunks deletes any existing chunk rows for the document and inserts
// the new set in one transaction.
func (r *Repository) ReplaceChunks(ctx context.Context, documentID string, chunks []Chunk) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting chunk transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = ?`, documentID); err != nil {
		return fmt.Errorf("clearing chunks for %s: %w", documentID, err)
	}
	for _, c := range chunks {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO chunks (document_id, chunk_index, text, token_count, point_id)
			 VALUES (?, ?, ?, ?, ?)`,
			documentID, c.Index, c.Text, c.TokenCount, c.PointID)
		if err != nil {
			return fmt.Errorf("inserting chunk %d for %s: %w", c.Index, documentID, err)
		}
	}
	return tx.Commit()
}

// Chunks returns a document's chunk records ordered by index.
func (r *Repository) Chunks(ctx context.Context, documentID string) ([]Chunk, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT document_id, chunk_index, text, token_count, point_id
		 FROM chunks WHERE document_id = ? ORDER BY chunk_index`, documentID)
	if err != nil {
		return nil, fmt.Errorf("listing chunks for %s: %w", documentID, err)
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.DocumentID, &c.Index, &c.Text, &c.TokenCount, &c.PointID); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// PointIDs returns a document's vector-index point ids ordered by chunk
// index.
func (r *Repository) PointIDs(ctx context.Context, documentID string) ([]string, error) {
	chunks, err := r.Chunks(ctx, documentID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.PointID
	}
	return ids, nil
}

// DeleteChunks removes all chunk rows for a document.
func (r *Repository) DeleteChunks(ctx context.Context, documentID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = ?`, documentID); err != nil {
		return fmt.Errorf("deleting chunks for %s: %w", documentID, err)
	}
	return nil
}

// ListByStatus returns documents in the given status, oldest first.
func (r *Repository) ListByStatus(ctx context.Context, status string) ([]Document, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, content_type, category, path, inline_text, status,
		        chunk_count, failed_reason, created_at, updated_at, processed_at
		 FROM documents WHERE status = ? ORDER BY created_at`, status)
	if err != nil {
		return nil, fmt.Errorf("listing %s documents: %w", status, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var doc Document
		var processedAt sql.NullTime
		if err := rows.Scan(&doc.ID, &doc.Title, &doc.ContentType, &doc.Category,
			&doc.Path, &doc.InlineText, &doc.Status, &doc.ChunkCount,
			&doc.FailedReason, &doc.CreatedAt, &doc.UpdatedAt, &processedAt); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		if processedAt.Valid {
			doc.ProcessedAt = &processedAt.Time
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}
