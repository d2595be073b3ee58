package store

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DocumentState is the per-document bookkeeping row: the content hash of the
// last indexed version, the document id its chunk ids derive from, and how
// many chunks that version produced. The chunk count bounds orphan pruning
// when a re-chunk yields fewer windows.
type DocumentState struct {
	Path       string
	DocID      string
	Hash       string
	ChunkCount int
}

// MetaStore persists document states and the processed-revision marker in
// SQLite. It is safe for concurrent use; database/sql serializes access.
type MetaStore struct {
	db *sql.DB
}

const metaSchema = `
CREATE TABLE IF NOT EXISTS documents (
	path        TEXT PRIMARY KEY,
	doc_id      TEXT NOT NULL,
	hash        TEXT NOT NULL,
	chunk_count INTEGER NOT NULL,
	updated_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS revisions (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	marker     TEXT NOT NULL,
	indexed_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// NewMetaStore opens (creating if needed) the metadata database at path.
func NewMetaStore(path string) (*MetaStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create metadata directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)",
		url.PathEscape(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open metadata database: %w", err)
	}
	if _, err := db.Exec(metaSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply metadata schema: %w", err)
	}
	return &MetaStore{db: db}, nil
}

// Document returns the stored state for a corpus path. The second return is
// false when the document has never been indexed.
func (m *MetaStore) Document(ctx context.Context, path string) (DocumentState, bool, error) {
	var state DocumentState
	err := m.db.QueryRowContext(ctx,
		`SELECT path, doc_id, hash, chunk_count FROM documents WHERE path = ?`, path).
		Scan(&state.Path, &state.DocID, &state.Hash, &state.ChunkCount)
	if err == sql.ErrNoRows {
		return DocumentState{}, false, nil
	}
	if err != nil {
		return DocumentState{}, false, fmt.Errorf("query document state: %w", err)
	}
	return state, true, nil
}

// UpsertDocuments writes a batch of document states in one transaction.
// Replaying a batch leaves the table unchanged.
func (m *MetaStore) UpsertDocuments(ctx context.Context, states []DocumentState) error {
	if len(states) == 0 {
		return nil
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin document upsert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO documents (path, doc_id, hash, chunk_count, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(path) DO UPDATE SET
			doc_id = excluded.doc_id,
			hash = excluded.hash,
			chunk_count = excluded.chunk_count,
			updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("prepare document upsert: %w", err)
	}
	defer stmt.Close()

	for _, s := range states {
		if _, err := stmt.ExecContext(ctx, s.Path, s.DocID, s.Hash, s.ChunkCount); err != nil {
			return fmt.Errorf("upsert document %s: %w", s.Path, err)
		}
	}
	return tx.Commit()
}

// DocumentCount returns the number of tracked documents.
func (m *MetaStore) DocumentCount(ctx context.Context) (int, error) {
	var n int
	if err := m.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

// CurrentRevision returns the most recently recorded revision marker, or the
// empty string before the first ingestion run completes.
func (m *MetaStore) CurrentRevision(ctx context.Context) (string, error) {
	var marker string
	err := m.db.QueryRowContext(ctx,
		`SELECT marker FROM revisions ORDER BY id DESC LIMIT 1`).Scan(&marker)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query current revision: %w", err)
	}
	return marker, nil
}

// RecordRevision appends a processed revision marker. History is kept; the
// latest row is the current marker.
func (m *MetaStore) RecordRevision(ctx context.Context, marker string) error {
	if _, err := m.db.ExecContext(ctx,
		`INSERT INTO revisions (marker) VALUES (?)`, marker); err != nil {
		return fmt.Errorf("record revision: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (m *MetaStore) Close() error {
	return m.db.Close()
}
