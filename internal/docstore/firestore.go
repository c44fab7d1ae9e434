package docstore

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
)

// FirestoreStore writes documents with Set(..., MergeAll).
type FirestoreStore struct {
	client *firestore.Client
}

// FirestoreConfig selects the project and credentials. CredentialsFile may be
// empty to use application default credentials or FIRESTORE_EMULATOR_HOST.
type FirestoreConfig struct {
	ProjectID       string
	CredentialsFile string
}

// NewFirestoreStore opens a Firestore client.
func NewFirestoreStore(ctx context.Context, cfg FirestoreConfig) (*FirestoreStore, error) {
	projectID := strings.TrimSpace(cfg.ProjectID)
	if projectID == "" {
		return nil, fmt.Errorf("firestore project id is required")
	}
	var opts []option.ClientOption
	if path := strings.TrimSpace(cfg.CredentialsFile); path != "" {
		opts = append(opts, option.WithCredentialsFile(path))
	}
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}
	return &FirestoreStore{client: client}, nil
}

// Set merges body into collection/docID. MergeAll leaves fields not present
// in body untouched and creates the document when missing.
func (s *FirestoreStore) Set(ctx context.Context, collection Path, docID string, body map[string]any) error {
	if err := collection.Validate(docID); err != nil {
		return upsertErr(collection, docID, err)
	}
	ref := s.client.Doc(collection.DocPath(docID))
	if ref == nil {
		return upsertErr(collection, docID, ErrInvalidPath)
	}
	if _, err := ref.Set(ctx, body, firestore.MergeAll); err != nil {
		return upsertErr(collection, docID, err)
	}
	return nil
}

// Kind identifies the backend.
func (s *FirestoreStore) Kind() string { return "firestore" }

// Close releases the client.
func (s *FirestoreStore) Close() error { return s.client.Close() }

var _ Store = (*FirestoreStore)(nil)
