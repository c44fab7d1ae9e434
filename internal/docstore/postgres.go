package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// PostgresStore keeps documents in a jsonb table and merges top-level keys
// on conflict, mirroring a shallow merge-write.
type PostgresStore struct {
	DB *sql.DB
}

// NewPostgresStore wraps an open database handle; migrations create the table.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{DB: db}
}

// Set upserts the document, merging body over the stored jsonb.
func (s *PostgresStore) Set(ctx context.Context, collection Path, docID string, body map[string]any) error {
	if err := collection.Validate(docID); err != nil {
		return upsertErr(collection, docID, err)
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return upsertErr(collection, docID, fmt.Errorf("encode body: %w", err))
	}

	const query = `
INSERT INTO documents (
    collection_path,
    doc_id,
    body,
    updated_at
) VALUES ($1, $2, $3::jsonb, now())
ON CONFLICT (collection_path, doc_id)
DO UPDATE SET body = documents.body || EXCLUDED.body, updated_at = now()`

	if _, err := s.DB.ExecContext(ctx, query, collection.String(), docID, string(payload)); err != nil {
		return upsertErr(collection, docID, err)
	}
	return nil
}

// Kind identifies the backend.
func (s *PostgresStore) Kind() string { return "postgres" }

// Close closes the underlying handle.
func (s *PostgresStore) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

var _ Store = (*PostgresStore)(nil)
